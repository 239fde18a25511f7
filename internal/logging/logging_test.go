package logging_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"meloconv/internal/logging"
)

func TestConsoleHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	child := logging.NewComponentLogger(logger, "export")
	child.Info("acoustic model exported",
		logging.String("output", "/tmp/out/acoustic_model.onnx"),
		logging.Int("initializers", 42),
	)

	line := buf.String()
	if !strings.Contains(line, " INFO export: acoustic model exported") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "output=/tmp/out/acoustic_model.onnx") {
		t.Fatalf("missing output attr: %q", line)
	}
	if !strings.Contains(line, "initializers=42") {
		t.Fatalf("missing int attr: %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Warn("vocoder checkpoint not found", logging.Error(errors.New("no such file")))
	if !strings.Contains(buf.String(), `error="no such file"`) {
		t.Fatalf("expected quoted error value, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("should be suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info line emitted at warn level: %q", buf.String())
	}
	logger.Warn("visible")
	if buf.Len() == 0 {
		t.Fatal("warn line was suppressed")
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("exported", logging.String("model", "vocoder"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON output %q: %v", buf.String(), err)
	}
	if payload["msg"] != "exported" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
	if payload["model"] != "vocoder" {
		t.Fatalf("unexpected model attr: %v", payload["model"])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := logging.New(logging.Options{Format: "logfmt", Writer: &buf}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
