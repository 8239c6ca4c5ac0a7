package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestPreInitLoggerUsesConfiguredHandler(t *testing.T) {
	logger := L("capture")

	var buf bytes.Buffer
	Init("text", "info", &buf)

	logger.Info("canvas reallocated", "width", 3000, "height", 1920)

	out := buf.String()
	if !strings.Contains(out, `msg="canvas reallocated"`) {
		t.Fatalf("expected message, got: %s", out)
	}
	if !strings.Contains(out, "component=capture") {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, "width=3000") {
		t.Fatalf("expected width field, got: %s", out)
	}
}

func TestPreInitLoggerRespectsConfiguredLevel(t *testing.T) {
	logger := L("capture")

	var buf bytes.Buffer
	Init("text", "warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info log should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn log should be emitted: %s", out)
	}
}

func TestJSONFormatCarriesCycleAndDisplay(t *testing.T) {
	var buf bytes.Buffer
	Init("json", "debug", &buf)

	logger := WithDisplay(WithCycle(L("capture"), "cycle-1"), `\\.\DISPLAY2`)
	logger.Debug("frame acquired")

	out := buf.String()
	if !strings.Contains(out, `"cycleId":"cycle-1"`) {
		t.Fatalf("expected cycleId field, got: %s", out)
	}
	if !strings.Contains(out, `"display":"\\\\.\\DISPLAY2"`) {
		t.Fatalf("expected display field, got: %s", out)
	}
}

func TestFormatSwitchKeepsEarlierLoggers(t *testing.T) {
	logger := L("intercept").WithGroup("blit").With("rop", "0x40CC0020")

	var text bytes.Buffer
	Init("text", "info", &text)
	var js bytes.Buffer
	Init("json", "info", &js)
	logger.Info("substituted")

	if text.Len() != 0 {
		t.Fatalf("record went to the replaced handler: %s", text.String())
	}
	out := js.String()
	if !strings.Contains(out, `"component":"intercept"`) {
		t.Fatalf("expected component field, got: %s", out)
	}
	if !strings.Contains(out, `"blit":{"rop":"0x40CC0020"}`) {
		t.Fatalf("expected grouped rop field, got: %s", out)
	}

	text.Reset()
	Init("text", "info", &text)
	logger.Info("substituted again")
	if !strings.Contains(text.String(), "blit.rop=0x40CC0020") {
		t.Fatalf("expected text record after switching back, got: %s", text.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARNING": "WARN",
		" error ": "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		if got := parseLevel(in).String(); got != want {
			t.Fatalf("parseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRotatingWriterRotatesAtLimit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "hdrblit.log")
	rw, err := NewRotatingWriter(path, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter: %v", err)
	}
	defer rw.Close()
	rw.maxSize = 16

	if _, err := rw.Write([]byte("0123456789")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := rw.Write([]byte("abcdefghij")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	backup, err := os.ReadFile(path + ".1")
	if err != nil {
		t.Fatalf("expected backup file: %v", err)
	}
	if string(backup) != "0123456789" {
		t.Fatalf("backup = %q", backup)
	}
	current, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read current: %v", err)
	}
	if string(current) != "abcdefghij" {
		t.Fatalf("current = %q", current)
	}
}
