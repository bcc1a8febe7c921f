package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"cashflow/internal/storage"
)

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&buf, "debug", "cli")
	logger.DebugContext(context.Background(), "hello")

	if !strings.Contains(buf.String(), "hello") || !strings.Contains(buf.String(), "component=cli") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestSetupLoggerUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupLogger(&buf, "loud", "cli")
	logger.DebugContext(context.Background(), "hidden")

	out := buf.String()
	if !strings.Contains(out, "Unknown log level") || strings.Contains(out, "hidden") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	if _, err := LoadAndValidateConfig(); err == nil {
		t.Fatal("expected validation error")
	}

	t.Setenv("PORT", "8090")
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		t.Fatalf("LoadAndValidateConfig: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("Port = %q", cfg.Port)
	}
}

func TestOpenPrefs(t *testing.T) {
	prefs, err := OpenPrefs(filepath.Join(t.TempDir(), "prefs.db"))
	if err != nil {
		t.Fatalf("OpenPrefs: %v", err)
	}
	defer prefs.Close()

	ctx := context.Background()
	if err := prefs.Set(ctx, storage.KeyTheme, "dark"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := prefs.Get(ctx, storage.KeyTheme)
	if err != nil || !ok || v != "dark" {
		t.Fatalf("Get = %q %v %v", v, ok, err)
	}
}
