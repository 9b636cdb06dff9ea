//go:build cgo

package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"tokopt/internal/cache"
	"tokopt/internal/errors"
)

// TreeSitter is the built-in extraction plugin. A fresh tree-sitter parser is
// created per call, so concurrent Analyze calls for different files are safe.
type TreeSitter struct{}

// NewTreeSitter creates the built-in tree-sitter analyzer.
func NewTreeSitter() *TreeSitter {
	return &TreeSitter{}
}

// Supports reports whether the plugin has a grammar for the file.
func (t *TreeSitter) Supports(path string) bool {
	_, ok := LanguageFromExtension(strings.ToLower(filepath.Ext(path)))
	return ok
}

// Analyze parses content and extracts functions, classes, and imports.
func (t *TreeSitter) Analyze(ctx context.Context, path string, content []byte) (*Result, error) {
	lang, ok := LanguageFromExtension(strings.ToLower(filepath.Ext(path)))
	if !ok {
		return nil, errors.New(errors.AnalysisFailed,
			fmt.Sprintf("unsupported file extension %s", filepath.Ext(path)), nil)
	}

	root, err := parse(ctx, content, lang)
	if err != nil {
		return nil, errors.New(errors.AnalysisFailed,
			fmt.Sprintf("cannot parse %s", path), err)
	}

	summary := Summary{Language: string(lang)}

	for _, fn := range findNodes(root, functionNodeTypes(lang)) {
		name := identifierName(fn, content, lang)
		if name == "" {
			continue
		}
		summary.Functions = append(summary.Functions, Function{
			Name:       name,
			Container:  containerName(fn, content, lang),
			Signature:  firstLine(fn, content),
			StartLine:  int(fn.StartPoint().Row) + 1,
			EndLine:    int(fn.EndPoint().Row) + 1,
			Cyclomatic: cyclomatic(fn, lang),
		})
	}

	for _, cls := range findNodes(root, classNodeTypes(lang)) {
		name := className(cls, content, lang)
		if name == "" {
			continue
		}
		summary.Classes = append(summary.Classes, Class{
			Name:      name,
			Kind:      classKind(cls, lang),
			StartLine: int(cls.StartPoint().Row) + 1,
			EndLine:   int(cls.EndPoint().Row) + 1,
		})
	}

	for _, imp := range findNodes(root, importNodeTypes(lang)) {
		if text := importText(imp, content); text != "" {
			summary.Imports = append(summary.Imports, text)
		}
	}

	return buildResult(path, content, summary)
}

// buildResult marshals the summary into the opaque payload and derives the
// structural metadata stored next to it.
func buildResult(path string, content []byte, summary Summary) (*Result, error) {
	total, max := 0, 0
	for _, fn := range summary.Functions {
		total += fn.Cyclomatic
		if fn.Cyclomatic > max {
			max = fn.Cyclomatic
		}
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot encode summary", err)
	}
	detailPayload, err := json.Marshal(detail{
		Language:        summary.Language,
		FunctionCount:   len(summary.Functions),
		ClassCount:      len(summary.Classes),
		TotalCyclomatic: total,
		MaxCyclomatic:   max,
	})
	if err != nil {
		return nil, errors.New(errors.InternalError, "cannot encode analysis detail", err)
	}

	return &Result{
		Summary: payload,
		Metadata: cache.FileMetadata{
			Size:       int64(len(content)),
			LineCount:  CountLines(content),
			Kind:       DetectKind(path),
			Complexity: ComplexityBucket(total),
			Detail:     detailPayload,
		},
	}, nil
}

func parse(ctx context.Context, source []byte, lang Language) (*sitter.Node, error) {
	tsLang, err := grammar(lang)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsLang)
	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, err
	}
	return tree.RootNode(), nil
}

func grammar(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}

// cyclomatic counts decision points + 1 inside a function node.
func cyclomatic(node *sitter.Node, lang Language) int {
	return 1 + len(findNodes(node, decisionNodeTypes(lang)))
}

// identifierName extracts the declared name of a function node.
func identifierName(node *sitter.Node, source []byte, lang Language) string {
	if name := node.ChildByFieldName("name"); name != nil {
		return string(source[name.StartByte():name.EndByte()])
	}

	// Kotlin and a few grammars expose the name as a bare identifier child.
	for i := uint32(0); i < node.ChildCount(); i++ {
		child := node.Child(int(i))
		if child == nil {
			continue
		}
		if child.Type() == "identifier" || child.Type() == "simple_identifier" {
			return string(source[child.StartByte():child.EndByte()])
		}
	}
	return ""
}

// containerName returns the enclosing class name for method nodes.
func containerName(node *sitter.Node, source []byte, lang Language) string {
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		for _, classType := range classNodeTypes(lang) {
			if parent.Type() == classType {
				return className(parent, source, lang)
			}
		}
	}
	return ""
}

// className extracts the declared name of a class/type node.
func className(node *sitter.Node, source []byte, lang Language) string {
	if lang == LangGo {
		// type_declaration wraps type_spec, which carries the name
		for i := uint32(0); i < node.ChildCount(); i++ {
			child := node.Child(int(i))
			if child != nil && child.Type() == "type_spec" {
				if name := child.ChildByFieldName("name"); name != nil {
					return string(source[name.StartByte():name.EndByte()])
				}
			}
		}
		return ""
	}
	return identifierName(node, source, lang)
}

// classKind maps a class node type onto the summary's kind vocabulary.
func classKind(node *sitter.Node, lang Language) string {
	switch node.Type() {
	case "interface_declaration", "trait_item":
		return "interface"
	case "type_declaration", "struct_item", "enum_item", "enum_declaration":
		return "type"
	default:
		return "class"
	}
}

// firstLine returns the declaration line of a node as its signature.
func firstLine(node *sitter.Node, source []byte) string {
	text := source[node.StartByte():node.EndByte()]
	for i, b := range text {
		if b == '\n' || b == '{' {
			return strings.TrimSpace(string(text[:i]))
		}
	}
	if len(text) > 200 {
		return strings.TrimSpace(string(text[:200])) + "..."
	}
	return strings.TrimSpace(string(text))
}

// importText returns the raw import clause, trimmed.
func importText(node *sitter.Node, source []byte) string {
	text := strings.TrimSpace(string(source[node.StartByte():node.EndByte()]))
	text = strings.Trim(text, "\"'`")
	if len(text) > 200 {
		return text[:200]
	}
	return text
}

// findNodes collects all nodes of the given types in document order.
func findNodes(root *sitter.Node, types []string) []*sitter.Node {
	if len(types) == 0 {
		return nil
	}

	var result []*sitter.Node
	var walk func(*sitter.Node)
	walk = func(node *sitter.Node) {
		if node == nil {
			return
		}
		for _, t := range types {
			if node.Type() == t {
				result = append(result, node)
				break
			}
		}
		for i := uint32(0); i < node.ChildCount(); i++ {
			walk(node.Child(int(i)))
		}
	}
	walk(root)
	return result
}

// Available reports whether the built-in analyzer is usable in this build.
func Available() bool {
	return true
}
