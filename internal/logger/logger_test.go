package logger

import (
	"bytes"
	"os"
	"testing"
)

func TestDebugRespectVerbose(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(false)
	Debug("hidden %d", 1)
	if buf.Len() != 0 {
		t.Errorf("expected no output when verbose disabled, got %q", buf.String())
	}

	SetVerbose(true)
	defer SetVerbose(false)
	Debug("shown %d", 2)
	if got := buf.String(); got != "[DEBUG] shown 2\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestSection(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	SetVerbose(true)
	defer SetVerbose(false)

	Section("Ingestion")
	if got := buf.String(); got != "\n=== Ingestion ===\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestIsVerbose(t *testing.T) {
	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be enabled")
	}
	SetVerbose(false)
	if IsVerbose() {
		t.Error("expected verbose to be disabled")
	}
}
