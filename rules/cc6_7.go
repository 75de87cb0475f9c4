package rules

import (
	"regexp"
	"strings"

	"github.com/c360studio/soc2scan/catalog"
	"github.com/c360studio/soc2scan/model"
)

// CC67 detects hardcoded secrets and insecure credential handling,
// grounded on rules/cc6_7_secrets.rs.
type CC67 struct{}

func (CC67) ControlID() string { return catalog.CC6_7 }

var (
	rePaymentKey = regexp.MustCompile(`sk_live_|sk_test_|pk_live_|pk_test_|AC[0-9a-zA-Z]{32}|sq0atp[a-zA-Z0-9_-]{20,}`)
	reGithubTok  = regexp.MustCompile(`(?:ghp_|gho_|ghu_|ghs_|ghr_)[a-zA-Z0-9_]{20,}`)
	reAWSAccess  = regexp.MustCompile(`AKIA[0-9A-Z]{16}`)
	reAWSSecret  = regexp.MustCompile(`(?i)(aws_secret|secret_access_key|secret_key)\s*[:=]\s*['"]?[a-zA-Z0-9/+=]{20,}`)
	rePassword   = regexp.MustCompile(`(?i)(password|passwd|pwd|secret|api_?key|token|passphrase)\s*[:=]\s*['"]([^'"]{6,})['"]`)
	reIsExample  = regexp.MustCompile(`(?i)(your_?|xxx|test|demo|example|fake|temp|placeholder|change_?this|put_?your|password123|12345)`)
	reEnvRef     = regexp.MustCompile(`os\.getenv|process\.env|ENV\[|\$\{?[A-Z_]+\}?`)
	reDBCred     = regexp.MustCompile(`(?i)(postgresql|postgres|mysql|mongodb|oracle|mssql)://(\w+):([^@\s'"]+)@`)
	reJWT        = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]{50,}\.[a-zA-Z0-9_-]{20,}\.[a-zA-Z0-9_-]{20,}|(?i)bearer\s+[a-zA-Z0-9_-]{50,}`)
	reOAuthTok   = regexp.MustCompile(`(?i)(oauth_token|access_token)\s*[:=]\s*['"]?[a-zA-Z0-9_-]{40,}`)
	reGenericKey = regexp.MustCompile(`(?i)(api[_-]?key|api[_-]?secret|app[_-]?key|app[_-]?secret|secret[_-]?key)\s*[:=]\s*['"]([a-zA-Z0-9_-]{16,})['"]`)
)

var safeHTTPHosts = []string{
	"localhost", "127.0.0.1", "192.168.", "10.0.", "0.0.0.0",
	"172.16.", "172.17.", "172.18.", "172.19.", "172.20.", "172.21.",
	"172.22.", "172.23.", "172.24.", "172.25.", "172.26.", "172.27.",
	"172.28.", "172.29.", "172.30.", "172.31.",
}

func (CC67) Analyze(source, relPath, scanID string) []model.Violation {
	var out []model.Violation
	for idx, line := range lines(source) {
		if isCommentLine(line) {
			continue
		}
		ln := idx + 1

		if rePaymentKey.MatchString(line) {
			sev := model.SeverityHigh
			if strings.Contains(line, "sk_live") || strings.Contains(line, "pk_live") {
				sev = model.SeverityCritical
			}
			out = append(out, newViolation(catalog.CC6_7, sev, "Hardcoded payment API key (Stripe/Twilio/Square)", relPath, ln, redactLine(line)))
		}

		if reGithubTok.MatchString(line) {
			out = append(out, newViolation(catalog.CC6_7, model.SeverityCritical, "Hardcoded GitHub token", relPath, ln, redactLine(line)))
		}

		if reAWSAccess.MatchString(line) {
			out = append(out, newViolation(catalog.CC6_7, model.SeverityCritical, "Hardcoded AWS Access Key ID", relPath, ln, redactLine(line)))
		}
		if reAWSSecret.MatchString(line) {
			out = append(out, newViolation(catalog.CC6_7, model.SeverityCritical, "Hardcoded AWS Secret Access Key", relPath, ln, redactLine(line)))
		}

		if !strings.Contains(strings.ToLower(relPath), "test") && !strings.Contains(strings.ToLower(relPath), "example") {
			if m := rePassword.FindStringSubmatch(line); m != nil && !reIsExample.MatchString(line) && !reEnvRef.MatchString(line) {
				out = append(out, newViolation(catalog.CC6_7, model.SeverityCritical, "Hardcoded password or secret in code", relPath, ln, redactLine(line)))
			}
		}

		if reDBCred.MatchString(line) && !reEnvRef.MatchString(line) {
			out = append(out, newViolation(catalog.CC6_7, model.SeverityCritical, "Database credentials in connection string", relPath, ln, redactLine(line)))
		}

		if strings.Contains(line, "http://") {
			safe := false
			for _, h := range safeHTTPHosts {
				if strings.Contains(line, h) {
					safe = true
					break
				}
			}
			if !safe {
				out = append(out, newViolation(catalog.CC6_7, model.SeverityHigh, "Insecure HTTP connection (use HTTPS)", relPath, ln, strings.TrimSpace(line)))
			}
		}

		lowerLine := strings.ToLower(line)
		if reJWT.MatchString(line) && !strings.Contains(lowerLine, "decode") && !strings.Contains(lowerLine, "verify") &&
			!strings.Contains(lowerLine, "test") && !strings.Contains(lowerLine, "mock") {
			out = append(out, newViolation(catalog.CC6_7, model.SeverityCritical, "Hardcoded JWT or Bearer token", relPath, ln, redactLine(line)))
		}
		if reOAuthTok.MatchString(line) {
			out = append(out, newViolation(catalog.CC6_7, model.SeverityCritical, "Hardcoded OAuth token", relPath, ln, redactLine(line)))
		}

		if m := reGenericKey.FindStringSubmatch(line); m != nil && !reIsExample.MatchString(line) && !reEnvRef.MatchString(line) {
			out = append(out, newViolation(catalog.CC6_7, model.SeverityHigh, "Hardcoded API key detected", relPath, ln, redactLine(line)))
		}
	}
	return withScan(scanID, out)
}
