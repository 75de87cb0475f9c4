// Package orchestrator drives a single scan end to end: walking a
// project, running the regex rule engines, selecting files for LLM
// analysis, enforcing a cost limit with a user-decision handshake, and
// finalizing the scan row. Grounded on
// original_source/src-tauri/src/commands/scan.rs's scan_project and
// analyze_files_with_llm, restated as a single Go type instead of two
// free functions sharing process-global state.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/c360studio/soc2scan/audit"
	"github.com/c360studio/soc2scan/detector"
	"github.com/c360studio/soc2scan/llmclient"
	"github.com/c360studio/soc2scan/metrics"
	"github.com/c360studio/soc2scan/model"
	"github.com/c360studio/soc2scan/pathsafety"
	"github.com/c360studio/soc2scan/rules"
	"github.com/c360studio/soc2scan/selector"
	"github.com/c360studio/soc2scan/store"
	"github.com/c360studio/soc2scan/tscontext"
	"github.com/c360studio/soc2scan/walker"
)

// Settings keys read at the start of every scan, named after the
// original's queries::select_setting("llm_scan_mode") /
// select_setting("cost_limit_per_scan").
const (
	SettingScanMode    = "llm_scan_mode"
	SettingCostLimit   = "cost_limit_per_scan"
	// SettingExcludePatterns is a comma-separated list of doublestar glob
	// patterns (matched against a file's project-relative path) to skip
	// in addition to walker's fixed vendored/build/VCS skip set, e.g.
	// "**/*.generated.py,fixtures/**".
	SettingExcludePatterns = "scan_exclude_patterns"
	DefaultScanMode        = model.ScanModeRegexOnly
	DefaultCostLimit       = 1.0
	progressEveryFiles     = 10
	persistEveryFiles      = 50
	llmChunkSize           = 10
	llmConcurrency         = 10
)

// storeDeps is the subset of *store.Store the orchestrator needs.
type storeDeps interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	GetSetting(ctx context.Context, key string) (*model.Setting, error)
	CreateScan(ctx context.Context, projectID string, mode model.ScanMode) (*model.Scan, error)
	UpdateScanProgress(ctx context.Context, id string, filesScanned, totalFiles int) error
	CreateViolation(ctx context.Context, v *model.Violation) error
	ExistsAt(ctx context.Context, scanID, filePath string, lineNumber int, controlID string) (bool, error)
	ListViolations(ctx context.Context, scanID string) ([]model.Violation, error)
	RecordScanCost(ctx context.Context, c *model.ScanCost) error
	TotalCostForScan(ctx context.Context, scanID string) (float64, error)
	ComputeSeverityCounts(ctx context.Context, scanID string) (store.SeverityCounts, error)
	FinalizeScan(ctx context.Context, id string, status model.ScanStatus, counts store.SeverityCounts) error
}

// llmAnalyzer is the subset of *llmclient.Client the orchestrator needs.
type llmAnalyzer interface {
	AnalyzeFile(ctx context.Context, req llmclient.AnalyzeRequest) (*llmclient.AnalyzeResult, error)
	Pricing() llmclient.PricingTable
}

// Orchestrator runs scans against a project.
type Orchestrator struct {
	store    storeDeps
	llm      llmAnalyzer
	audit    *audit.Recorder
	channels *ResponseChannels
	sink     EventSink
	metrics  *metrics.Registry
}

// New constructs an Orchestrator. sink may be nil, in which case events
// are discarded via NoopSink.
func New(st storeDeps, llm llmAnalyzer, rec *audit.Recorder, channels *ResponseChannels, sink EventSink) *Orchestrator {
	if sink == nil {
		sink = NoopSink{}
	}
	return &Orchestrator{store: st, llm: llm, audit: rec, channels: channels, sink: sink}
}

// SetMetrics attaches a Prometheus registry the orchestrator reports
// scan counters against. Optional: a nil registry (the default) leaves
// every scan's counters uncollected.
func (o *Orchestrator) SetMetrics(m *metrics.Registry) {
	o.metrics = m
}

// Respond forwards a user's cost-limit decision to the scan waiting on
// it.
func (o *Orchestrator) Respond(scanID string, continueScan bool) error {
	return o.channels.Respond(scanID, continueScan)
}

type pendingLLMFile struct {
	relPath string
	content string
}

// Scan runs the full state machine (counting → walking → llm_batching ⇄
// cost_limit_wait → finalizing) for projectID and returns the finalized
// scan row.
func (o *Orchestrator) Scan(ctx context.Context, projectID string) (*model.Scan, error) {
	started := time.Now()
	mode, costLimit, excludePatterns, project, err := o.loadSettings(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if o.metrics != nil {
		defer func() { o.metrics.ScanDuration.Observe(time.Since(started).Seconds()) }()
	}

	root, err := pathsafety.EnsureWithin(project.Path, ".")
	if err != nil {
		return nil, fmt.Errorf("scan: invalid project path: %w", err)
	}
	if pathsafety.IsSystemRoot(root) {
		return nil, fmt.Errorf("scan: refusing to scan system root %q", root)
	}

	sc, err := o.store.CreateScan(ctx, project.ID, mode)
	if err != nil {
		return nil, fmt.Errorf("scan: create scan row: %w", err)
	}

	totalFiles, err := walker.Count(root, excludePatterns)
	if err != nil {
		return nil, fmt.Errorf("scan: count files: %w", err)
	}

	files, err := walker.Walk(root, excludePatterns)
	if err != nil {
		return nil, fmt.Errorf("scan: walk project: %w", err)
	}

	filesScanned, violationsFound, pending := o.walkAndRunRules(ctx, sc.ID, mode, files, totalFiles)
	if o.metrics != nil {
		o.metrics.FilesScanned.WithLabelValues(string(mode)).Add(float64(filesScanned))
	}

	if len(pending) > 0 {
		found := o.runLLMBatches(ctx, sc.ID, pending, costLimit)
		violationsFound += found
	}

	return o.finalize(ctx, sc, project, filesScanned, violationsFound)
}

func (o *Orchestrator) loadSettings(ctx context.Context, projectID string) (model.ScanMode, float64, []string, *model.Project, error) {
	project, err := o.store.GetProject(ctx, projectID)
	if err != nil {
		return "", 0, nil, nil, fmt.Errorf("scan: load project: %w", err)
	}

	mode := DefaultScanMode
	if s, err := o.store.GetSetting(ctx, SettingScanMode); err == nil {
		if m := model.ScanMode(s.Value); m.Valid() {
			mode = m
		}
	}

	costLimit := DefaultCostLimit
	if s, err := o.store.GetSetting(ctx, SettingCostLimit); err == nil {
		var parsed float64
		if _, serr := fmt.Sscanf(s.Value, "%f", &parsed); serr == nil && parsed > 0 {
			costLimit = parsed
		}
	}

	var excludePatterns []string
	if s, err := o.store.GetSetting(ctx, SettingExcludePatterns); err == nil && s.Value != "" {
		for _, p := range strings.Split(s.Value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				excludePatterns = append(excludePatterns, p)
			}
		}
	}

	return mode, costLimit, excludePatterns, project, nil
}

// walkAndRunRules performs spec.md §4.7 steps 2–4: reads each file, runs
// all rule engines, persists findings, and collects the LLM-selector's
// admitted subset.
func (o *Orchestrator) walkAndRunRules(ctx context.Context, scanID string, mode model.ScanMode, files []walker.File, totalFiles int) (int, int, []pendingLLMFile) {
	engines := rules.All()
	var pending []pendingLLMFile
	filesScanned := 0
	violationsFound := 0

	for _, f := range files {
		content, err := readFileString(f.AbsPath)
		if err != nil {
			continue
		}
		filesScanned++

		if filesScanned%progressEveryFiles == 0 || filesScanned == totalFiles {
			o.sink.Progress(ProgressEvent{
				ScanID:          scanID,
				FilesScanned:    filesScanned,
				TotalFiles:      totalFiles,
				ViolationsFound: violationsFound,
				CurrentFile:     f.RelPath,
			})
		}
		if filesScanned%persistEveryFiles == 0 {
			_ = o.store.UpdateScanProgress(ctx, scanID, filesScanned, totalFiles)
		}

		lang := detector.DetectLanguage(f.RelPath)
		if lang == detector.LanguageUnknown {
			continue
		}

		for _, eng := range engines {
			for _, v := range eng.Analyze(content, f.RelPath, scanID) {
				enrichViolation(ctx, &v, content, lang)
				if err := o.store.CreateViolation(ctx, &v); err == nil {
					violationsFound++
				}
			}
		}

		if selector.Select(mode, f.RelPath, content) {
			pending = append(pending, pendingLLMFile{relPath: f.RelPath, content: content})
		}
	}

	_ = o.store.UpdateScanProgress(ctx, scanID, filesScanned, totalFiles)
	return filesScanned, violationsFound, pending
}

// runLLMBatches performs spec.md §4.7 steps 5–7: chunked, bounded-
// concurrency LLM analysis with a cost-limit handshake between chunks.
func (o *Orchestrator) runLLMBatches(ctx context.Context, scanID string, pending []pendingLLMFile, costLimit float64) int {
	totalFound := 0
	totalFiles := len(pending)
	sem := semaphore.NewWeighted(llmConcurrency)

	for chunkStart := 0; chunkStart < len(pending); chunkStart += llmChunkSize {
		end := chunkStart + llmChunkSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[chunkStart:end]

		totalFound += o.runChunk(ctx, scanID, chunk, sem)

		filesAnalyzed := end
		filesRemaining := totalFiles - filesAnalyzed
		if filesRemaining <= 0 {
			break
		}

		cumulative, err := o.store.TotalCostForScan(ctx, scanID)
		if err != nil || cumulative <= costLimit {
			continue
		}

		if !o.awaitCostDecision(scanID, cumulative, costLimit, filesAnalyzed, filesRemaining) {
			break
		}
	}
	return totalFound
}

// runChunk analyzes one chunk of files concurrently, persists LLM
// findings and per-file cost rows, and returns the count of violations
// stored.
func (o *Orchestrator) runChunk(ctx context.Context, scanID string, chunk []pendingLLMFile, sem *semaphore.Weighted) int {
	type result struct {
		stored int
	}
	results := make(chan result, len(chunk))

	for _, f := range chunk {
		f := f
		go func() {
			if err := sem.Acquire(ctx, 1); err != nil {
				results <- result{}
				return
			}
			defer sem.Release(1)
			results <- result{stored: o.analyzeOne(ctx, scanID, f)}
		}()
	}

	stored := 0
	for range chunk {
		stored += (<-results).stored
	}
	return stored
}

// analyzeOne runs one file through the LLM, persists its detections
// (skipping exact-coincidence duplicates already found by regex), and
// records the call's cost.
func (o *Orchestrator) analyzeOne(ctx context.Context, scanID string, f pendingLLMFile) int {
	regexFindings, _ := o.regexFindingsFor(ctx, scanID, f.relPath)

	res, err := o.llm.AnalyzeFile(ctx, llmclient.AnalyzeRequest{
		RelPath:       f.relPath,
		Source:        f.content,
		RegexFindings: regexFindings,
	})
	if err != nil {
		return 0
	}

	stored := 0
	for _, d := range res.Detections {
		dup, _ := o.store.ExistsAt(ctx, scanID, f.relPath, d.LineNumber, d.ControlID)
		if dup {
			continue
		}
		score := d.ConfidenceScore
		v := model.Violation{
			ScanID:          scanID,
			ControlID:       d.ControlID,
			Severity:        d.Severity,
			Description:     d.Description,
			FilePath:        f.relPath,
			LineNumber:      d.LineNumber,
			CodeSnippet:     d.CodeSnippet,
			DetectionMethod: model.DetectionLLM,
			ConfidenceScore: &score,
			LLMReasoning:    d.Reasoning,
		}
		enrichViolation(ctx, &v, f.content, detector.DetectLanguage(f.relPath))
		if err := o.store.CreateViolation(ctx, &v); err == nil {
			stored++
		}
	}

	cost := res.Usage.CostUSD(o.llm.Pricing())
	_ = o.store.RecordScanCost(ctx, &model.ScanCost{
		ScanID:               scanID,
		FilesAnalyzedWithLLM: 1,
		InputTokens:          res.Usage.InputTokens,
		OutputTokens:         res.Usage.OutputTokens,
		CacheReadTokens:      res.Usage.CacheReadTokens,
		CacheWriteTokens:     res.Usage.CacheWriteTokens,
		TotalCostUSD:         cost,
	})
	if o.metrics != nil {
		o.metrics.LLMCalls.Inc()
		o.metrics.LLMCostUSD.Add(cost)
	}
	return stored
}

func readFileString(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// enrichViolation fills v.FunctionName/ClassName with the innermost
// enclosing scope around v.LineNumber, when the file's language has a
// tree-sitter grammar. Best-effort: an unsupported language or parse
// failure leaves v unchanged.
func enrichViolation(ctx context.Context, v *model.Violation, content string, lang detector.Language) {
	found := tscontext.Enrich(ctx, []byte(content), lang, v.LineNumber)
	v.FunctionName = found.FunctionName
	v.ClassName = found.ClassName
}

func (o *Orchestrator) regexFindingsFor(ctx context.Context, scanID, relPath string) ([]model.Violation, error) {
	all, err := o.store.ListViolations(ctx, scanID)
	if err != nil {
		return nil, err
	}
	var out []model.Violation
	for _, v := range all {
		if v.FilePath == relPath && v.DetectionMethod == model.DetectionRegex {
			out = append(out, v)
		}
	}
	return out, nil
}

// awaitCostDecision emits cost-limit-reached and blocks on the scan's
// response channel. It returns whether LLM processing should continue.
func (o *Orchestrator) awaitCostDecision(scanID string, currentCost, limit float64, filesAnalyzed, filesRemaining int) bool {
	rx := o.channels.Create(scanID)
	if err := o.sink.CostLimitReached(CostLimitEvent{
		ScanID:         scanID,
		CurrentCostUSD: currentCost,
		LimitUSD:       limit,
		FilesAnalyzed:  filesAnalyzed,
		FilesRemaining: filesRemaining,
	}); err != nil {
		o.channels.Cancel(scanID)
		return false
	}

	decision, ok := <-rx
	if !ok {
		return false
	}
	return decision
}

func (o *Orchestrator) finalize(ctx context.Context, sc *model.Scan, project *model.Project, filesScanned, violationsFound int) (*model.Scan, error) {
	counts, err := o.store.ComputeSeverityCounts(ctx, sc.ID)
	if err != nil {
		return nil, fmt.Errorf("scan: compute severity counts: %w", err)
	}
	if err := o.store.FinalizeScan(ctx, sc.ID, model.ScanStatusCompleted, counts); err != nil {
		return nil, fmt.Errorf("scan: finalize: %w", err)
	}
	if o.metrics != nil {
		o.metrics.ViolationsFound.WithLabelValues(string(model.SeverityCritical)).Add(float64(counts.Critical))
		o.metrics.ViolationsFound.WithLabelValues(string(model.SeverityHigh)).Add(float64(counts.High))
		o.metrics.ViolationsFound.WithLabelValues(string(model.SeverityMedium)).Add(float64(counts.Medium))
		o.metrics.ViolationsFound.WithLabelValues(string(model.SeverityLow)).Add(float64(counts.Low))
	}
	if o.audit != nil {
		_ = o.audit.ScanCompleted(ctx, project.ID,
			fmt.Sprintf("scanned %d files, found %d violations", filesScanned, violationsFound),
			map[string]interface{}{"scan_id": sc.ID, "files_scanned": filesScanned, "violations_found": violationsFound})
	}

	sc.Status = model.ScanStatusCompleted
	sc.FilesScanned = filesScanned
	sc.ViolationsFound = counts.Total
	sc.CriticalCount = counts.Critical
	sc.HighCount = counts.High
	sc.MediumCount = counts.Medium
	sc.LowCount = counts.Low
	return sc, nil
}
