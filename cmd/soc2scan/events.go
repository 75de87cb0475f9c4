package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/c360studio/soc2scan/orchestrator"
)

// cliSink writes scan-progress and cost-limit-reached events to stderr,
// as newline-delimited JSON under --json or as short human-readable
// lines otherwise. It stands in for the desktop shell's event bus named
// as external in spec.md §1.
//
// A CLI invocation has no persistent session for a separate "scan
// respond" call to reach, unlike the desktop shell's long-lived IPC
// channel, so cliSink answers its own cost-limit prompts: respond is
// wired to the same Core's RespondToCostLimit once it's constructed, and
// autoContinue carries the --continue-over-limit flag's decision.
type cliSink struct {
	jsonOutput   bool
	autoContinue bool
	out          *bufio.Writer
	respond      func(scanID string, continueScan bool) error
}

func newCLISink(jsonOutput, autoContinue bool) *cliSink {
	return &cliSink{jsonOutput: jsonOutput, autoContinue: autoContinue, out: bufio.NewWriter(os.Stderr)}
}

func (s *cliSink) Progress(e orchestrator.ProgressEvent) {
	defer s.out.Flush()
	if s.jsonOutput {
		s.writeJSON("scan-progress", e)
		return
	}
	fmt.Fprintf(s.out, "[%s] %d/%d files scanned, %d violations found (%s)\n",
		e.ScanID, e.FilesScanned, e.TotalFiles, e.ViolationsFound, e.CurrentFile)
}

func (s *cliSink) CostLimitReached(e orchestrator.CostLimitEvent) error {
	defer s.out.Flush()
	if s.jsonOutput {
		s.writeJSON("cost-limit-reached", e)
	} else {
		fmt.Fprintf(s.out, "[%s] cost limit reached: $%.4f of $%.2f spent, %d files analyzed, %d remaining\n",
			e.ScanID, e.CurrentCostUSD, e.LimitUSD, e.FilesAnalyzed, e.FilesRemaining)
	}
	if s.respond == nil {
		return nil
	}
	return s.respond(e.ScanID, s.autoContinue)
}

func (s *cliSink) writeJSON(event string, payload any) {
	b, err := json.Marshal(struct {
		Event   string `json:"event"`
		Payload any    `json:"payload"`
	}{Event: event, Payload: payload})
	if err != nil {
		return
	}
	s.out.Write(b)
	s.out.WriteByte('\n')
}

func printResult(jsonOutput bool, v any) {
	if jsonOutput {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal result: %v\n", err)
			return
		}
		fmt.Println(string(b))
		return
	}
	fmt.Printf("%+v\n", v)
}
