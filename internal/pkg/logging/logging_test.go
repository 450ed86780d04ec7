package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/samirrijal/photoeye/internal/pkg/logging"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := logging.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNew_TextAndJSON(t *testing.T) {
	var buf bytes.Buffer
	logging.New(&buf, "info", "text").Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "k=v") {
		t.Errorf("expected text output, got %q", buf.String())
	}

	buf.Reset()
	logging.New(&buf, "info", "json").Info("hello", "k", "v")
	if !strings.Contains(buf.String(), `"k":"v"`) {
		t.Errorf("expected json output, got %q", buf.String())
	}

	buf.Reset()
	logging.New(&buf, "error", "json").Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at error level, got %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if logging.FromContext(context.Background()) != slog.Default() {
		t.Error("expected default logger without a stored one")
	}

	var buf bytes.Buffer
	l := logging.New(&buf, "info", "json").With("request_id", "abc")
	ctx := logging.WithLogger(context.Background(), l)
	logging.FromContext(ctx).Info("scoped")
	if !strings.Contains(buf.String(), `"request_id":"abc"`) {
		t.Errorf("expected scoped logger output, got %q", buf.String())
	}
}
