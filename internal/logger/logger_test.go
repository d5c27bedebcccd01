package logger

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joseph-ayodele/petfood-scanner/internal/common"
)

func TestSetupJSONFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "petscan.log")
	l, closer, err := Setup(common.LogConfig{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	WithComponent(l, "scan").Info("scan.transition", "to", "idle")
	WithComponent(l, "scan").Warn("scan.failed", "reason", "timeout")
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 1 {
		t.Fatalf("info should be filtered at warn level, got %d lines", len(lines))
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if rec["msg"] != "scan.failed" || rec["component"] != "scan" || rec["reason"] != "timeout" {
		t.Fatalf("unexpected record %v", rec)
	}
}

func TestSetupRejectsBadLevel(t *testing.T) {
	if _, _, err := Setup(common.LogConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}

func TestWithComponentNil(t *testing.T) {
	if WithComponent(nil, "x") == nil {
		t.Fatalf("nil logger should fall back to the default")
	}
}
