package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"titan/pkg/logger"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "verbose", want: slog.LevelInfo, wantErr: true},
	}

	for _, tc := range tests {
		got, err := logger.ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
		}

		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer

	log, err := logger.New(&logger.Options{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	log.Info("dropped")
	slog.Warn("kept", slog.String("package", "test"))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}

	if entry["msg"] != "kept" || entry["package"] != "test" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNewUnknownLevel(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	log, err := logger.New(&logger.Options{Level: "loud", Writer: &bytes.Buffer{}})
	if err == nil {
		t.Error("expected an error for an unknown level")
	}

	if log == nil {
		t.Fatal("logger must be usable even with an unknown level")
	}

	if _, err := logger.New(nil); err == nil {
		t.Error("expected an error for nil options")
	}
}
