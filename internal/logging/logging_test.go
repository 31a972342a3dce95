package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestComponentLoggerWritesJSON(t *testing.T) {
	prev := zerolog.GlobalLevel()
	defer zerolog.SetGlobalLevel(prev)

	var buf bytes.Buffer
	initWith(&buf, "info", false)

	logger := Component("syncer")
	logger.Debug().Msg("hidden")
	logger.Info().Str("store_id", "s1").Msg("pushed")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "syncer" || entry["store_id"] != "s1" || entry["message"] != "pushed" {
		t.Fatalf("unexpected entry %v", entry)
	}
}
