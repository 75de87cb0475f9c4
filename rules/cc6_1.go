package rules

import (
	"regexp"
	"strings"

	"github.com/c360studio/soc2scan/catalog"
	"github.com/c360studio/soc2scan/model"
)

// CC61 detects missing or insufficient access control checks across
// Django, Flask, FastAPI, and Express route handlers, plus hardcoded
// user ids and admin operations missing permission checks. Grounded on
// rules/cc6_1_access_control.rs.
type CC61 struct{}

func (CC61) ControlID() string { return catalog.CC6_1 }

var (
	reDjangoView      = regexp.MustCompile(`^\s*def\s+\w+\s*\(\s*request`)
	reDjangoDecorator = regexp.MustCompile(`@(login_required|permission_required|require_http_methods|csrf_exempt|require_permission)`)
	reDjangoInlineAuth = regexp.MustCompile(`request\.user\.is_authenticated|is_authenticated|current_user|if not request\.user`)

	reHardcodedUserID = regexp.MustCompile(`(?i)(user_?id|account_?id)\s*=\s*(\d+|['"]\d+['"])`)

	reAdminFuncName     = regexp.MustCompile(`(?i)def\s+\w*(delete|remove|ban|suspend|promote|demote|admin|moderate|grant|revoke|archive|purge)\w*\s*\(`)
	reAdminPermission   = regexp.MustCompile(`(?i)(is_staff|is_superuser|is_admin|permission|role|authorize|check_permission|require_role)`)

	reExpressRoute    = regexp.MustCompile(`router\.(get|post|put|delete|patch)\s*\(\s*['"]([^'"]*)['"]\s*,\s*(?:async\s+)?\(req,\s*res`)
	reSensitivePath   = regexp.MustCompile(`/(admin|user|account|profile|settings|api|private|protected)`)
	reExpressAuth     = regexp.MustCompile(`authMiddleware|isAuthenticated|verifyToken|requireAuth|auth\(`)

	reFastAPIRoute    = regexp.MustCompile(`@(?:app|router)\.(get|post|put|delete|patch)\s*\(['"]([^'"]*)['"]\)`)
	reFastAPIDepends  = regexp.MustCompile(`Depends\(`)
	reFastAPIProtected = regexp.MustCompile(`['"]/(admin|user|account|profile|settings|internal|private)`)

	reFlaskRoute      = regexp.MustCompile(`@(?:app|blueprint|bp)\s*\.\s*route\s*\(\s*['"]([^'"]*)['"]`)
	reFlaskAuthDec    = regexp.MustCompile(`@(login_required|permission_required|auth_required|requires_auth|require_permission|jwt_required)`)
	reFlaskPublic     = regexp.MustCompile(`['"]/(login|register|signup|logout|public|health|ping|static)`)
	reFlaskInlineAuth = regexp.MustCompile(`request\.headers\.get\s*\(\s*['"](Authorization|auth|token)['"]|verify_jwt|verify_token|check_auth|is_authenticated|current_user`)

	reIsTestPath = regexp.MustCompile(`(?i)test`)
)

func (CC61) Analyze(source, relPath, scanID string) []model.Violation {
	var out []model.Violation
	ls := lines(source)
	isTestFile := reIsTestPath.MatchString(relPath)

	if strings.HasSuffix(relPath, ".py") {
		out = append(out, detectMissingLoginRequired(ls, relPath)...)
		out = append(out, detectFastAPIMissingDependency(ls, relPath)...)
		out = append(out, detectFlaskMissingAuth(ls, relPath)...)
	}
	if strings.HasSuffix(relPath, ".js") || strings.HasSuffix(relPath, ".ts") ||
		strings.HasSuffix(relPath, ".jsx") || strings.HasSuffix(relPath, ".tsx") {
		out = append(out, detectExpressMissingAuth(ls, relPath)...)
	}

	out = append(out, detectHardcodedUserID(ls, relPath, isTestFile)...)
	out = append(out, detectAdminWithoutPermission(ls, relPath, isTestFile)...)

	return withScan(scanID, out)
}

// detectMissingLoginRequired flags Django view functions lacking an auth
// decorator in the 5 lines above, or an inline auth check in the 5 lines
// below.
func detectMissingLoginRequired(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if !reDjangoView.MatchString(line) {
			continue
		}
		hasDecorator := false
		start := idx - 5
		if start < 0 {
			start = 0
		}
		for prev := idx - 1; prev >= start; prev-- {
			if reDjangoDecorator.MatchString(ls[prev]) {
				hasDecorator = true
				break
			}
			t := strings.TrimSpace(ls[prev])
			if !strings.HasPrefix(t, "@") && t != "" {
				break
			}
		}
		if hasDecorator {
			continue
		}
		if joinWindow(window(ls, idx, 5)) != "" && reDjangoInlineAuth.MatchString(joinWindow(window(ls, idx, 5))) {
			continue
		}
		out = append(out, newViolation(catalog.CC6_1, model.SeverityHigh,
			"View function missing authentication decorator or check", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

// detectHardcodedUserID flags literal user/account ids assigned instead of
// being read from the authenticated session.
func detectHardcodedUserID(ls []string, relPath string, isTestFile bool) []model.Violation {
	if isTestFile {
		return nil
	}
	var out []model.Violation
	for idx, line := range ls {
		if isCommentLine(line) {
			continue
		}
		if strings.Contains(line, "def ") || strings.Contains(line, "param") || strings.Contains(line, "Expected[") {
			continue
		}
		if reHardcodedUserID.MatchString(line) {
			out = append(out, newViolation(catalog.CC6_1, model.SeverityHigh,
				"Hardcoded user ID should use request.user or current_user", relPath, idx+1, strings.TrimSpace(line)))
		}
	}
	return out
}

// detectAdminWithoutPermission flags admin-shaped function definitions
// lacking a permission check in the 10 lines following the signature.
func detectAdminWithoutPermission(ls []string, relPath string, isTestFile bool) []model.Violation {
	if isTestFile {
		return nil
	}
	var out []model.Violation
	for idx, line := range ls {
		if !reAdminFuncName.MatchString(line) {
			continue
		}
		w := joinWindow(window(ls, idx, 10))
		if reAdminPermission.MatchString(w) {
			continue
		}
		out = append(out, newViolation(catalog.CC6_1, model.SeverityCritical,
			"Admin/sensitive operation missing permission check", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

// detectExpressMissingAuth flags Express routes on sensitive paths lacking
// auth middleware on the route line or the immediately following line.
func detectExpressMissingAuth(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if !reExpressRoute.MatchString(line) || !reSensitivePath.MatchString(line) {
			continue
		}
		if reExpressAuth.MatchString(line) {
			continue
		}
		hasAuthNextLine := idx+1 < len(ls) && reExpressAuth.MatchString(ls[idx+1])
		if hasAuthNextLine {
			continue
		}
		out = append(out, newViolation(catalog.CC6_1, model.SeverityHigh,
			"Express route missing authentication middleware", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

// detectFastAPIMissingDependency flags FastAPI endpoints on protected paths
// whose following function signature lacks a Depends() parameter.
func detectFastAPIMissingDependency(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		if !reFastAPIRoute.MatchString(line) || !reFastAPIProtected.MatchString(line) {
			continue
		}
		if idx+1 >= len(ls) {
			continue
		}
		if reFastAPIDepends.MatchString(ls[idx+1]) {
			continue
		}
		out = append(out, newViolation(catalog.CC6_1, model.SeverityHigh,
			"FastAPI endpoint missing Depends(permission) check", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}

// detectFlaskMissingAuth flags Flask routes lacking an auth decorator
// above them or an inline auth check below, excluding public routes.
// Mutating methods (POST/PUT/DELETE) are rated Critical, others High.
func detectFlaskMissingAuth(ls []string, relPath string) []model.Violation {
	var out []model.Violation
	for idx, line := range ls {
		caps := reFlaskRoute.FindStringSubmatch(line)
		if caps == nil {
			continue
		}
		routePath := caps[1]
		if reFlaskPublic.MatchString(line) {
			continue
		}

		hasDecorator := false
		start := idx - 5
		if start < 0 {
			start = 0
		}
		for prev := idx - 1; prev >= start; prev-- {
			if reFlaskAuthDec.MatchString(ls[prev]) {
				hasDecorator = true
				break
			}
			t := strings.TrimSpace(ls[prev])
			if !strings.HasPrefix(t, "@") && t != "" {
				break
			}
		}
		if hasDecorator {
			continue
		}

		w := joinWindow(window(ls, idx, 10))
		if reFlaskInlineAuth.MatchString(w) {
			continue
		}

		severity := model.SeverityHigh
		if strings.Contains(line, "POST") || strings.Contains(line, "PUT") || strings.Contains(line, "DELETE") {
			severity = model.SeverityCritical
		}
		out = append(out, newViolation(catalog.CC6_1, severity,
			"Flask route '"+routePath+"' missing authentication decorator or check", relPath, idx+1, strings.TrimSpace(line)))
	}
	return out
}
