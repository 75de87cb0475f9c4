package rules

import "regexp"

// redactPatterns mask the sensitive portion of a matched secret line
// before it is persisted as a Violation's code snippet, so the store
// never holds a usable credential. Grounded on
// rules/cc6_7_secrets.rs::redact_line's replace-all pattern list.
var redactPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`(sk_live_)[a-zA-Z0-9]{10,}`), "${1}..."},
	{regexp.MustCompile(`(sk_test_)[a-zA-Z0-9]{10,}`), "${1}..."},
	{regexp.MustCompile(`(pk_live_)[a-zA-Z0-9]{10,}`), "${1}..."},
	{regexp.MustCompile(`(pk_test_)[a-zA-Z0-9]{10,}`), "${1}..."},
	{regexp.MustCompile(`(ghp_|gho_|ghu_|ghs_|ghr_)[a-zA-Z0-9_]{20,}`), "${1}..."},
	{regexp.MustCompile(`(AKIA)[0-9A-Z]{16}`), "${1}..."},
	{regexp.MustCompile(`(?i)(password\s*[:=]\s*)['"][^'"]{6,}['"]`), "${1}\"***\""},
	{regexp.MustCompile(`(?i)(passwd\s*[:=]\s*)['"][^'"]{6,}['"]`), "${1}\"***\""},
	{regexp.MustCompile(`(?i)(secret\s*[:=]\s*)['"][^'"]{6,}['"]`), "${1}\"***\""},
	{regexp.MustCompile(`(?i)(token\s*[:=]\s*)['"][^'"]{6,}['"]`), "${1}\"***\""},
	{regexp.MustCompile(`(?i)((?:pwd|passphrase|api_?key)\s*[:=]\s*)['"][^'"]{6,}['"]`), "${1}\"***\""},
	{regexp.MustCompile(`(?i)((?:aws_secret|secret_access_key|secret[_-]?key|api[_-]?key|api[_-]?secret|app[_-]?key|app[_-]?secret|oauth_token|access_token)\s*[:=]\s*)['"]?[a-zA-Z0-9/+=_-]{16,}['"]?`), "${1}\"***\""},
	{regexp.MustCompile(`(sq0atp)[a-zA-Z0-9_-]{20,}`), "${1}..."},
	{regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9_-]{50,}`), "${1}..."},
	{regexp.MustCompile(`(://\w+:)[^@]+(@)`), "${1}***${2}"},
	{regexp.MustCompile(`(eyJ[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}\.)[a-zA-Z0-9_-]{10,}`), "${1}..."},
}

// redactLine masks known secret shapes in a single line for safe
// storage/display.
func redactLine(line string) string {
	out := line
	for _, p := range redactPatterns {
		out = p.re.ReplaceAllString(out, p.repl)
	}
	return out
}
