package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"

	"tokopt/internal/analyzer"
	"tokopt/internal/cache"
)

func summaryEntry(t *testing.T, s analyzer.Summary) *cache.Entry {
	t.Helper()
	payload, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	return &cache.Entry{
		FileHash:     "h",
		LastAnalyzed: time.Now().UTC(),
		Summary:      payload,
	}
}

func TestExportRoundTrip(t *testing.T) {
	store := cache.NewStore()
	store.Set("./src/auth.service.ts", summaryEntry(t, analyzer.Summary{
		Language: string(analyzer.LangTypeScript),
		Functions: []analyzer.Function{
			{Name: "login", Container: "AuthService", StartLine: 10, EndLine: 25, Cyclomatic: 3},
			{Name: "helper", StartLine: 30, EndLine: 32, Cyclomatic: 1},
		},
		Classes: []analyzer.Class{
			{Name: "AuthService", Kind: "class", StartLine: 5, EndLine: 40},
		},
	}))
	// Opaque payload from some other analyzer plugin: skipped, not fatal.
	store.Set("./src/raw.bin", &cache.Entry{
		FileHash: "x",
		Summary:  json.RawMessage(`{"custom":"shape"}`),
	})

	outPath := filepath.Join(t.TempDir(), "index.scip")
	exported, err := Export(store, "/proj", outPath)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported != 1 {
		t.Fatalf("exported %d documents, want 1", exported)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		t.Fatalf("output is not a SCIP index: %v", err)
	}

	if index.Metadata == nil || index.Metadata.ToolInfo.Name != "tokopt" {
		t.Errorf("metadata = %+v", index.Metadata)
	}
	if len(index.Documents) != 1 {
		t.Fatalf("got %d documents", len(index.Documents))
	}

	doc := index.Documents[0]
	if doc.RelativePath != "src/auth.service.ts" || doc.Language != "typescript" {
		t.Errorf("document = %+v", doc)
	}
	if len(doc.Symbols) != 3 || len(doc.Occurrences) != 3 {
		t.Fatalf("symbols=%d occurrences=%d, want 3 and 3", len(doc.Symbols), len(doc.Occurrences))
	}

	kinds := map[scippb.SymbolInformation_Kind]int{}
	for _, sym := range doc.Symbols {
		kinds[sym.Kind]++
	}
	if kinds[scippb.SymbolInformation_Method] != 1 ||
		kinds[scippb.SymbolInformation_Function] != 1 ||
		kinds[scippb.SymbolInformation_Class] != 1 {
		t.Errorf("symbol kinds = %v", kinds)
	}

	// Ranges are 0-based.
	first := doc.Occurrences[0]
	if first.Range[0] != 9 {
		t.Errorf("range = %v", first.Range)
	}
}

func TestExportEmptyStore(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "index.scip")
	exported, err := Export(cache.NewStore(), "/proj", outPath)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exported != 0 {
		t.Errorf("exported = %d", exported)
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("index file not written: %v", err)
	}
}
