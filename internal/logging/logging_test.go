package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: JSONFormat, Level: InfoLevel, Output: &buf})

	logger.Info("batch complete", map[string]interface{}{
		"processed": 42,
		"errors":    1,
	})

	var entry struct {
		Timestamp string                 `json:"timestamp"`
		Level     string                 `json:"level"`
		Message   string                 `json:"message"`
		Fields    map[string]interface{} `json:"fields"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry.Level != "info" || entry.Message != "batch complete" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Fields["processed"] != float64(42) {
		t.Errorf("fields = %v", entry.Fields)
	}
}

func TestHumanFormatSortsFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: InfoLevel, Output: &buf})

	logger.Info("saved", map[string]interface{}{
		"zeta":  1,
		"alpha": 2,
	})

	out := buf.String()
	if !strings.Contains(out, "[info] saved") {
		t.Errorf("output = %q", out)
	}
	if strings.Index(out, "alpha=2") > strings.Index(out, "zeta=1") {
		t.Errorf("fields not sorted: %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Format: HumanFormat, Level: WarnLevel, Output: &buf})

	logger.Debug("hidden", nil)
	logger.Info("hidden", nil)
	logger.Warn("shown", nil)
	logger.Error("shown", nil)

	lines := strings.Count(buf.String(), "\n")
	if lines != 2 {
		t.Errorf("got %d lines, want 2: %q", lines, buf.String())
	}
}

func TestParseLevelAndFormat(t *testing.T) {
	if ParseLevel("debug") != DebugLevel || ParseLevel("bogus") != InfoLevel {
		t.Error("ParseLevel defaults wrong")
	}
	if ParseFormat("json") != JSONFormat || ParseFormat("bogus") != HumanFormat {
		t.Error("ParseFormat defaults wrong")
	}
}
