package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"ShortsFactory/internal/domain"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCmd(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	SetVersionInfo("1.2.3", "abc123", "2026-01-01")
	t.Cleanup(func() { SetVersionInfo("dev", "none", "unknown") })

	out, err := execute("version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out, "shortsfactory 1.2.3 (commit: abc123") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestRunRejectsMalformedDate(t *testing.T) {
	_, err := execute("run", "--date", "2026/03/14", "--config-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "YYYY-MM-DD") {
		t.Fatalf("expected date error, got %v", err)
	}
}

func TestRunRejectsConflictingFlags(t *testing.T) {
	_, err := execute("run", "--upload-only", "--no-upload", "--config-dir", t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "upload-only") {
		t.Fatalf("expected mutual exclusion error, got %v", err)
	}
}

func TestRunWithoutConfigIsConfigurationError(t *testing.T) {
	t.Setenv("SHORTS_CONFIG_DIR", "")
	_, err := execute("run", "--config-dir", t.TempDir(), "--profile", "quotes")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
