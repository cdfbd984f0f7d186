package logger

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/andrescris/shopfront/config"
)

func TestNew_WritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log, err := New(config.LoggerConfig{Mode: "production", Level: "info", FileEnable: true, Filename: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer zap.ReplaceGlobals(zap.NewNop())

	log.Info("catalog ready", zap.Int("products", 3))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected log output in %s", path)
	}
}

func TestNew_RejectsBadLevel(t *testing.T) {
	if _, err := New(config.LoggerConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatalf("expected nop logger")
	}
}
