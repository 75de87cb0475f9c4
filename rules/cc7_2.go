package rules

import (
	"regexp"
	"strings"

	"github.com/c360studio/soc2scan/catalog"
	"github.com/c360studio/soc2scan/model"
)

// CC72 detects sensitive operations that go unaudited, logging statements
// that leak secrets, and unlogged authentication and transaction events.
// Grounded on rules/cc7_2_logging.rs.
type CC72 struct{}

func (CC72) ControlID() string { return catalog.CC7_2 }

var (
	reSensitiveOp  = regexp.MustCompile(`\.save\(\)|\.delete\(\)|\.create\(|\.update\(|\.remove\(|UPDATE\s+|INSERT\s+|DELETE\s+FROM`)
	reLoggingKw    = regexp.MustCompile(`(?i)logger|logging|log\(|console\.log|print\(|audit|syslog|trace|debug|info|warn`)
	reLoggingFunc  = regexp.MustCompile(`(?i)(logger|print|console|log)\s*(\.\w+)?\s*\(`)
	reAuthDef      = regexp.MustCompile(`^\s*def\s+(login|authenticate|verify_token|verify_password|validate_credentials)\b`)
	reAuthLoggingKw = regexp.MustCompile(`(?i)logger|logging|log\(|console\.log|print\(|audit`)
	reDBTransaction = regexp.MustCompile(`(?i)\b(BEGIN|COMMIT|ROLLBACK|START TRANSACTION|begin_transaction|commit|rollback)\b`)
	reTxLoggingKw   = regexp.MustCompile(`(?i)logger|logging|log\(|console\.log|print\(|audit|transaction\.log`)
)

var sensitiveDataPatterns = []struct {
	keyword     string
	displayName string
}{
	{"password", "password"},
	{"pwd", "password"},
	{"secret", "secret"},
	{"api_key", "API key"},
	{"apikey", "API key"},
	{"token", "token"},
	{"ssn", "SSN"},
	{"social", "social security"},
	{"card_number", "credit card"},
	{"card", "credit card"},
	{"cvv", "CVV"},
}

func (CC72) Analyze(source, relPath, scanID string) []model.Violation {
	var out []model.Violation
	ls := lines(source)

	out = append(out, detectMissingAuditLog(ls, relPath)...)
	out = append(out, detectSensitiveDataLogging(ls, relPath)...)
	out = append(out, detectMissingAuthLogging(ls, relPath)...)
	out = append(out, detectMissingTransactionLogging(ls, relPath)...)

	return withScan(scanID, out)
}

func detectMissingAuditLog(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if isCommentLine(line) || !reSensitiveOp.MatchString(line) {
			continue
		}
		start := idx - 1
		if start < 0 {
			start = 0
		}
		ctx := joinWindow(ls[start:min(idx+3, len(ls))])
		if reLoggingKw.MatchString(ctx) {
			continue
		}
		out = append(out, newViolation(catalog.CC7_2, model.SeverityMedium,
			"Sensitive operation without audit logging", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

func detectSensitiveDataLogging(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if isCommentLine(line) || !reLoggingFunc.MatchString(line) {
			continue
		}
		lower := strings.ToLower(line)
		for _, p := range sensitiveDataPatterns {
			if strings.Contains(lower, p.keyword) {
				out = append(out, newViolation(catalog.CC7_2, model.SeverityCritical,
					"Sensitive data ("+p.displayName+") in logging statement", relPath, idx+1, strings.TrimSpace(line)))
				break
			}
		}
	}
	return out
}

func detectMissingAuthLogging(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if isCommentLine(line) || !reAuthDef.MatchString(line) {
			continue
		}
		end := idx + 4
		if end > len(ls) {
			end = len(ls)
		}
		var next []string
		if idx+1 < end {
			next = ls[idx+1 : end]
		}
		if reAuthLoggingKw.MatchString(joinWindow(next)) {
			continue
		}
		out = append(out, newViolation(catalog.CC7_2, model.SeverityHigh,
			"Authentication event without logging", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

func detectMissingTransactionLogging(ls []string, relPath string) []model.Violation {
	full := joinWindow(ls)
	if !reDBTransaction.MatchString(full) || reTxLoggingKw.MatchString(full) {
		return nil
	}
	for idx, line := range ls {
		if reDBTransaction.MatchString(line) {
			return []model.Violation{newViolation(catalog.CC7_2, model.SeverityMedium,
				"Database transaction without logging mechanism", relPath, idx+1, strings.TrimSpace(line))}
		}
	}
	return nil
}
