// Package selector implements the hybrid file selector: a pure function
// deciding which files additionally go to the LLM analysis pass, layered
// on top of the always-on regex rule engines.
package selector

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/c360studio/soc2scan/model"
)

var supportedExt = map[string]bool{
	".py": true, ".js": true, ".jsx": true, ".ts": true, ".tsx": true, ".go": true,
}

// cueGroups mirror the keyword sets the regex rule engines themselves key
// off of (authentication, ORM/SQL mutation verbs, route decorators,
// secrets, file I/O, network clients), so smart mode stays conceptually
// aligned with what the regex engines already look for.
var cueGroups = []*regexp.Regexp{
	regexp.MustCompile(`(?i)login_required|permission_required|is_authenticated|current_user|authmiddleware|isauthenticated|verifytoken|requireauth|jwt_required|is_staff|is_superuser|is_admin|authorize`),
	regexp.MustCompile(`(?i)\.save\(\)|\.delete\(\)|\.update\(|\.create\(|\.remove\(|update\s+|insert\s+|delete\s+from|\.execute\(|cursor\.execute`),
	regexp.MustCompile(`(?i)@app\.route|@router\.(get|post|put|delete|patch)|router\.(get|post|put|delete|patch)|@app\.(get|post|put|delete|patch)`),
	regexp.MustCompile(`(?i)password|secret|api_?key|token|credential|private_key|access_key`),
	regexp.MustCompile(`(?i)open\(|os\.path\.join|fs\.readfile|fs\.writefile|\.write\(|\.read\(`),
	regexp.MustCompile(`(?i)requests\.(get|post|put|delete)|fetch\(|axios\.|httpx\.|aiohttp\.|urllib\.`),
}

func extSupported(relPath string) bool {
	return supportedExt[strings.ToLower(filepath.Ext(relPath))]
}

func matchesCue(source string) bool {
	for _, cue := range cueGroups {
		if cue.MatchString(source) {
			return true
		}
	}
	return false
}

// Select reports whether relPath/source should be sent to the LLM for
// semantic analysis, given the scan's mode.
func Select(mode model.ScanMode, relPath, source string) bool {
	switch mode {
	case model.ScanModeRegexOnly:
		return false
	case model.ScanModeAnalyzeAll:
		return extSupported(relPath)
	case model.ScanModeSmart:
		return extSupported(relPath) && matchesCue(source)
	default:
		return false
	}
}
