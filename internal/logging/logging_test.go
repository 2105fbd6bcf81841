package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestForTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel)
	t.Cleanup(Close)

	For("hotkey").Info().Str("hotkey", "ctrl+alt+1").Msg("registered")

	out := buf.String()
	for _, want := range []string{`"component":"hotkey"`, `"hotkey":"ctrl+alt+1"`, `"message":"registered"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q missing %q", out, want)
		}
	}
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf, zerolog.InfoLevel)
	t.Cleanup(Close)

	For("capture").Debug().Msg("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug event written at info level: %q", buf.String())
	}
}

func TestInitWritesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Init(dir, false); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	For("app").Info().Msg("started")
	Close()

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "started") || !strings.Contains(string(data), "component=app") {
		t.Errorf("log file %q missing the event", data)
	}
}
