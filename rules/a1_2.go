package rules

import (
	"regexp"
	"strings"

	"github.com/c360studio/soc2scan/catalog"
	"github.com/c360studio/soc2scan/model"
)

// A12 detects external calls and database operations lacking error
// handling, timeouts, retry logic, or circuit breaker coverage. Grounded
// on rules/a1_2_resilience.rs.
type A12 struct{}

func (A12) ControlID() string { return catalog.A1_2 }

var (
	reExternalCall  = regexp.MustCompile(`requests\.(get|post|put|delete|patch|request)|urllib\.|httpx\.|aiohttp\.|fetch\(|axios\.|\.query\(`)
	reTryStmt       = regexp.MustCompile(`try:|try\s*\{|try\(|with\s+`)
	reExceptStmt    = regexp.MustCompile(`except|catch\s*\(|except\s+|\.catch\(`)
	reRequestCall   = regexp.MustCompile(`(requests\.(get|post|put|delete|patch)|fetch|\.query|aiohttp\.get|axios\.(get|post)|httpx\.(get|post|AsyncClient)|http\.request)\s*\(`)
	reTimeout       = regexp.MustCompile(`timeout\s*=|timeout:|\.timeout\(|timeout\s*:|timeout\s*,`)
	reAPICall       = regexp.MustCompile(`requests\.(get|post)|\.query\(|http\.request|fetch|axios\.`)
	reRetry         = regexp.MustCompile(`@retry|retry|Retry|@tenacity|backoff|exponential|max_retries|retry_count|attempt|retries\s*=`)
	reDBOp          = regexp.MustCompile(`\.execute\(|\.query\(|cursor\.execute|db\.query|connection\.execute|database\.query`)
	reErrorHandling = regexp.MustCompile(`(?i)except|catch|try|error`)
	reExternalSvc   = regexp.MustCompile(`requests\.(get|post)|http\.(get|post)|fetch|axios\.`)
	reCircuitBreaker = regexp.MustCompile(`circuit_breaker|CircuitBreaker|@circuit_breaker|Hystrix|bulkhead|breaker`)
)

func (A12) Analyze(source, relPath, scanID string) []model.Violation {
	var out []model.Violation
	ls := lines(source)

	out = append(out, detectUnhandledExternalCalls(ls, relPath)...)
	out = append(out, detectMissingTimeout(ls, relPath)...)
	out = append(out, detectMissingRetryLogic(ls, relPath)...)
	out = append(out, detectUnhandledDatabaseOps(ls, relPath)...)
	out = append(out, detectMissingCircuitBreaker(ls, relPath)...)

	return withScan(scanID, out)
}

func detectUnhandledExternalCalls(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if isCommentLine(line) || !reExternalCall.MatchString(line) {
			continue
		}
		start := idx - 3
		if start < 0 {
			start = 0
		}
		ctx := joinWindow(ls[start:min(idx+5, len(ls))])
		hasTry := reTryStmt.MatchString(ctx)
		hasExcept := reExceptStmt.MatchString(ctx)
		hasWith := strings.Contains(ctx, "with ")
		lineHasWith := strings.Contains(line, "with ")
		if (hasTry && hasExcept) || hasWith || lineHasWith {
			continue
		}
		out = append(out, newViolation(catalog.A1_2, model.SeverityHigh,
			"External service call without error handling", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

func detectMissingTimeout(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if isCommentLine(line) || !reRequestCall.MatchString(line) {
			continue
		}
		ctx := joinWindow(ls[idx:min(idx+3, len(ls))])
		if reTimeout.MatchString(ctx) {
			continue
		}
		out = append(out, newViolation(catalog.A1_2, model.SeverityHigh,
			"External request without timeout configuration", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

func detectMissingRetryLogic(ls []string, relPath string) []model.Violation {
	full := joinWindow(ls)
	if !reAPICall.MatchString(full) || reRetry.MatchString(full) {
		return nil
	}
	for idx, line := range ls {
		if reAPICall.MatchString(line) && !isCommentLine(line) {
			return []model.Violation{newViolation(catalog.A1_2, model.SeverityMedium,
				"No retry logic for transient failures", relPath, idx+1, strings.TrimSpace(line))}
		}
	}
	return nil
}

func detectUnhandledDatabaseOps(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if isCommentLine(line) || !reDBOp.MatchString(line) {
			continue
		}
		start := idx - 1
		if start < 0 {
			start = 0
		}
		ctx := joinWindow(ls[start:min(idx+3, len(ls))])
		if reErrorHandling.MatchString(ctx) {
			continue
		}
		out = append(out, newViolation(catalog.A1_2, model.SeverityHigh,
			"Database operation without error handling", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

func detectMissingCircuitBreaker(ls []string, relPath string) []model.Violation {
	full := joinWindow(ls)
	if len(reExternalSvc.FindAllStringIndex(full, -1)) <= 1 || reCircuitBreaker.MatchString(full) {
		return nil
	}
	for idx, line := range ls {
		if reExternalSvc.MatchString(line) && !isCommentLine(line) {
			return []model.Violation{newViolation(catalog.A1_2, model.SeverityMedium,
				"Multiple external calls without circuit breaker pattern", relPath, idx+1, strings.TrimSpace(line))}
		}
	}
	return nil
}
