package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"INFO":  zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseLevel("bogus"); err == nil {
		t.Fatal("ParseLevel(\"bogus\") expected an error")
	}
}

func TestNewLoggerJSONIncludesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: zerolog.InfoLevel, Format: JSONFormat, Output: &buf, Component: "demo"})
	logger.Info().Msg("hello")

	if out := buf.String(); !strings.Contains(out, `"component":"demo"`) || !strings.Contains(out, `"hello"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
}

func TestConfigureFromSettingsInvalidLevel(t *testing.T) {
	if _, err := ConfigureFromSettings("not-a-level", "text", "console", ""); err == nil {
		t.Fatal("expected an error for an invalid log level")
	}
}

func TestConfigureFromSettingsFileRequiresFilename(t *testing.T) {
	if _, err := ConfigureFromSettings("info", "text", "file", ""); err == nil {
		t.Fatal("expected an error when file output is requested without a filename")
	}
}
