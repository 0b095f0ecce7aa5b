package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestJSONLevelFiltering(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelWarn)
	log.Info("should not appear")
	if buf.Len() > 0 {
		t.Fatalf("expected no output below warn, got: %s", buf.String())
	}
	log.Warn("should appear", "rate", 0.5)
	out := buf.String()
	if !strings.Contains(out, "should appear") || !strings.Contains(out, `"rate":0.5`) {
		t.Fatalf("unexpected JSON output: %s", out)
	}
}

func TestTextWithAttrs(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := Text(&buf, slog.LevelInfo).With("layer", "always_on_dropout_1")
	log.Info("forward")
	if !strings.Contains(buf.String(), "layer=always_on_dropout_1") {
		t.Fatalf("expected attribute in output, got: %s", buf.String())
	}
}

func TestWithGroup(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log := JSON(&buf, slog.LevelInfo).WithGroup("mc")
	log.Info("done", "samples", 3)
	if !strings.Contains(buf.String(), `"mc":{"samples":3}`) {
		t.Fatalf("expected grouped attrs, got: %s", buf.String())
	}
}

func TestForFormat(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	ForFormat(&buf, "JSON", slog.LevelInfo).Info("hello")
	if !strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("expected JSON record, got: %s", buf.String())
	}
	buf.Reset()
	ForFormat(&buf, "text", slog.LevelInfo).Info("hello")
	if !strings.Contains(buf.String(), "msg=hello") {
		t.Fatalf("expected text record, got: %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()
	log := Discard()
	ctx := WithContext(context.Background(), log)
	if FromContext(ctx) != log {
		t.Fatal("expected stored logger back from context")
	}
	if FromContext(context.Background()) == nil {
		t.Fatal("expected default logger for empty context")
	}
}

func TestParseLevel(t *testing.T) {
	t.Parallel()
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
