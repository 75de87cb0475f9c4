// Package detector identifies a project's framework and each file's
// source language, narrowing processor/repo-ingester/languages.go's
// broader KnownLanguages map to the four languages the rule engines
// understand, plus the framework priority order from spec.md §4.3.
package detector

import (
	"os"
	"path/filepath"
	"strings"
)

// Language is one of the four source languages the rule engines analyze.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageJavaScript Language = "javascript"
	LanguageTypeScript Language = "typescript"
	LanguageGo         Language = "go"
	LanguageUnknown    Language = ""
)

var extToLanguage = map[string]Language{
	".py":  LanguagePython,
	".js":  LanguageJavaScript,
	".jsx": LanguageJavaScript,
	".ts":  LanguageTypeScript,
	".tsx": LanguageTypeScript,
	".go":  LanguageGo,
}

// DetectLanguage maps a file extension to a supported Language, or
// LanguageUnknown for anything else — unknown extensions are skipped by
// the pipeline.
func DetectLanguage(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	return extToLanguage[ext]
}

// Framework is the detected web framework for a project.
type Framework string

const (
	FrameworkDjango  Framework = "django"
	FrameworkFlask   Framework = "flask"
	FrameworkNextJS  Framework = "nextjs"
	FrameworkExpress Framework = "express"
	FrameworkReact   Framework = "react"
	FrameworkNone    Framework = ""
)

// ProjectFile is the minimal view the detector needs of a walked file:
// its project-relative path and, for manifest candidates, its content.
type ProjectFile struct {
	RelPath string
	Content []byte
}

// DetectFramework applies the priority order from spec.md §4.3 against a
// snapshot of a project's files. It only inspects manifest-shaped files
// (those named in the rules below); callers may pass the full file list
// or a prefiltered subset without changing the result.
func DetectFramework(files []ProjectFile) Framework {
	var pyRequirements []byte
	var jsManifest []byte
	hasManageOrSettings := false
	hasAppOrRoutes := false

	for _, f := range files {
		base := filepath.Base(f.RelPath)
		switch base {
		case "manage.py", "settings.py":
			hasManageOrSettings = true
		case "app.py", "routes.py":
			hasAppOrRoutes = true
		case "requirements.txt", "Pipfile", "pyproject.toml":
			pyRequirements = append(pyRequirements, f.Content...)
			pyRequirements = append(pyRequirements, '\n')
		case "package.json":
			jsManifest = f.Content
		}
	}

	lowerReq := strings.ToLower(string(pyRequirements))
	if hasManageOrSettings || strings.Contains(lowerReq, "django") {
		return FrameworkDjango
	}
	if hasAppOrRoutes || strings.Contains(lowerReq, "flask") {
		return FrameworkFlask
	}

	manifest := string(jsManifest)
	hasNext := manifestDeclares(manifest, "next")
	hasReact := manifestDeclares(manifest, "react")
	hasExpress := manifestDeclares(manifest, "express")

	switch {
	case hasNext && hasReact:
		return FrameworkNextJS
	case hasExpress:
		return FrameworkExpress
	case hasReact:
		return FrameworkReact
	}

	return FrameworkNone
}

// manifestDeclares does a light-weight check for `"name"` appearing as a
// dependency key in a package.json-shaped manifest, without a full JSON
// parse (manifests fed in here are already known to be package.json by
// filename, but may be malformed; a cheap substring probe degrades
// gracefully instead of failing framework detection).
func manifestDeclares(manifest, name string) bool {
	needle := `"` + name + `"`
	return strings.Contains(manifest, needle)
}

// DetectFrameworkAtRoot reads the handful of marker/manifest files
// DetectFramework needs directly from disk, for callers that have a
// project root but not a pre-read file snapshot.
func DetectFrameworkAtRoot(root string) Framework {
	candidates := []string{
		"manage.py", "settings.py", "app.py", "routes.py",
		"requirements.txt", "Pipfile", "pyproject.toml", "package.json",
	}
	var files []ProjectFile
	for _, name := range candidates {
		p := filepath.Join(root, name)
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		content, err := os.ReadFile(p)
		if err != nil {
			content = nil
		}
		files = append(files, ProjectFile{RelPath: name, Content: content})
	}
	return DetectFramework(files)
}
