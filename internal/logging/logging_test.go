package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewJSONLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "json")
	log.Info().Msg("hidden")
	log.Warn().Str("k", "v").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["k"] != "v" || entry["level"] != "warn" {
		t.Fatalf("entry = %#v", entry)
	}
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "loud", "json")
	log.Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug written at default level: %q", buf.String())
	}
	log.Info().Msg("shown")
	if buf.Len() == 0 {
		t.Fatalf("info not written")
	}
}
