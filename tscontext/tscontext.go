// Package tscontext enriches a violation with the enclosing function and
// class name using tree-sitter, the way
// processor/ast/python/parser.go and processor/ast/ts/parser.go walk a
// parsed tree to build code entities. Enrichment here is narrower: given a
// line number, find the nearest enclosing function/class node and report
// its name, nothing else. A parse failure or unsupported language simply
// leaves the violation unenriched, since AST context is a nicety layered
// on top of findings the regex engines already produced.
package tscontext

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"github.com/c360studio/soc2scan/detector"
)

// funcNodeTypes and classNodeTypes list the tree-sitter node kinds that
// count as a function or class boundary, per supported language.
var funcNodeTypes = map[string]bool{
	"function_definition":  true, // python, C-family
	"function_declaration": true, // go, js, ts
	"method_definition":    true, // js, ts
	"arrow_function":       true, // js, ts
}

var classNodeTypes = map[string]bool{
	"class_definition":  true, // python
	"class_declaration": true, // js, ts
}

func languageFor(lang detector.Language) *sitter.Language {
	switch lang {
	case detector.LanguagePython:
		return python.GetLanguage()
	case detector.LanguageJavaScript:
		return javascript.GetLanguage()
	case detector.LanguageTypeScript:
		return typescript.GetLanguage()
	case detector.LanguageGo:
		return golang.GetLanguage()
	default:
		return nil
	}
}

// Context is the enclosing-scope names found for a given line.
type Context struct {
	FunctionName string
	ClassName    string
}

// Enrich parses source with the grammar for lang and returns the
// innermost enclosing function/class name pair covering the given
// 1-based line number. It returns a zero Context, not an error, when
// lang is unsupported or parsing fails — enrichment is best-effort.
func Enrich(ctx context.Context, source []byte, lang detector.Language, line int) Context {
	sl := languageFor(lang)
	if sl == nil {
		return Context{}
	}

	parser := sitter.NewParser()
	parser.SetLanguage(sl)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil || tree == nil {
		return Context{}
	}
	defer tree.Close()

	target := uint32(line - 1)
	var out Context
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		start := n.StartPoint().Row
		end := n.EndPoint().Row
		if target < start || target > end {
			return
		}
		switch {
		case funcNodeTypes[n.Type()]:
			if name := nodeName(n, source); name != "" {
				out.FunctionName = name
			}
		case classNodeTypes[n.Type()]:
			if name := nodeName(n, source); name != "" {
				out.ClassName = name
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())
	return out
}

func nodeName(n *sitter.Node, source []byte) string {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return nameNode.Content(source)
}
