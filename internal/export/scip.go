// Package export turns cache contents into a SCIP index so other code
// intelligence tooling can consume analysis results.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"tokopt/internal/analyzer"
	"tokopt/internal/cache"
	"tokopt/internal/paths"
	"tokopt/internal/version"
)

// Export writes a SCIP index built from every entry in the store to outPath.
// Entries whose payloads do not decode as analyzer summaries are skipped;
// the cache may hold payloads from other analyzer plugins.
func Export(store *cache.Store, projectRoot, outPath string) (int, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return 0, fmt.Errorf("cannot resolve project root: %w", err)
	}

	index := &scippb.Index{
		Metadata: &scippb.Metadata{
			Version: scippb.ProtocolVersion_UnspecifiedProtocolVersion,
			ToolInfo: &scippb.ToolInfo{
				Name:    "tokopt",
				Version: version.Version,
			},
			ProjectRoot:          "file://" + filepath.ToSlash(absRoot),
			TextDocumentEncoding: scippb.TextEncoding_UTF8,
		},
	}

	exported := 0
	for _, key := range store.Keys() {
		entry, ok := store.Get(key)
		if !ok {
			continue
		}
		doc := documentFor(key, entry)
		if doc == nil {
			continue
		}
		index.Documents = append(index.Documents, doc)
		exported++
	}

	data, err := proto.Marshal(index)
	if err != nil {
		return 0, fmt.Errorf("cannot encode SCIP index: %w", err)
	}

	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("cannot create index directory: %w", err)
		}
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return 0, fmt.Errorf("cannot write SCIP index: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		_ = os.Remove(tmpPath)
		return 0, fmt.Errorf("cannot replace SCIP index: %w", err)
	}
	return exported, nil
}

// documentFor converts one cache entry to a SCIP document, or nil when the
// summary payload is not in the built-in analyzer's shape.
func documentFor(key string, entry *cache.Entry) *scippb.Document {
	var summary analyzer.Summary
	if err := json.Unmarshal(entry.Summary, &summary); err != nil {
		return nil
	}
	if summary.Language == "" {
		return nil
	}

	relPath := strings.TrimPrefix(key, paths.RelativeMarker)
	doc := &scippb.Document{
		RelativePath: relPath,
		Language:     string(summary.Language),
	}

	for _, fn := range summary.Functions {
		symbol := functionSymbol(relPath, fn)
		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range:       rangeFor(fn.StartLine, fn.EndLine),
			Symbol:      symbol,
			SymbolRoles: int32(scippb.SymbolRole_Definition),
		})
		kind := scippb.SymbolInformation_Function
		if fn.Container != "" {
			kind = scippb.SymbolInformation_Method
		}
		doc.Symbols = append(doc.Symbols, &scippb.SymbolInformation{
			Symbol:      symbol,
			Kind:        kind,
			DisplayName: fn.Name,
		})
	}

	for _, cls := range summary.Classes {
		symbol := classSymbol(relPath, cls)
		doc.Occurrences = append(doc.Occurrences, &scippb.Occurrence{
			Range:       rangeFor(cls.StartLine, cls.EndLine),
			Symbol:      symbol,
			SymbolRoles: int32(scippb.SymbolRole_Definition),
		})
		doc.Symbols = append(doc.Symbols, &scippb.SymbolInformation{
			Symbol:      symbol,
			Kind:        classKindFor(cls.Kind),
			DisplayName: cls.Name,
		})
	}

	return doc
}

// rangeFor converts 1-based inclusive line numbers to a SCIP range.
func rangeFor(startLine, endLine int) []int32 {
	if startLine < 1 {
		startLine = 1
	}
	if endLine < startLine {
		endLine = startLine
	}
	return []int32{int32(startLine - 1), 0, int32(endLine - 1), 0}
}

func functionSymbol(relPath string, fn analyzer.Function) string {
	descriptor := fn.Name + "()."
	if fn.Container != "" {
		descriptor = fn.Container + "#" + descriptor
	}
	return fmt.Sprintf("tokopt . . . %s/%s", relPath, descriptor)
}

func classSymbol(relPath string, cls analyzer.Class) string {
	return fmt.Sprintf("tokopt . . . %s/%s#", relPath, cls.Name)
}

func classKindFor(kind string) scippb.SymbolInformation_Kind {
	switch kind {
	case "interface":
		return scippb.SymbolInformation_Interface
	case "struct":
		return scippb.SymbolInformation_Struct
	case "enum":
		return scippb.SymbolInformation_Enum
	case "trait":
		return scippb.SymbolInformation_Trait
	default:
		return scippb.SymbolInformation_Class
	}
}
