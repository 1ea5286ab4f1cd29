package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewWithWriterLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "warn")

	logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("Expected info to be filtered, got %s", buf.String())
	}

	logger.Warn().Str("path", "/generate").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got: %v", err)
	}
	if entry["message"] != "shown" || entry["path"] != "/generate" || entry["service"] != "diagnosis" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
}

func TestNewWithWriterUnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "chatty")

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")

	if bytes.Count(buf.Bytes(), []byte("\n")) != 1 {
		t.Errorf("Expected exactly one line at info level, got %q", buf.String())
	}
}
