package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := WithTicker(zerolog.New(&buf), "AAPL")

	ctx := WithLogger(context.Background(), logger)
	got := FromContext(ctx, zerolog.Nop())
	got.Info().Msg("hello")

	if !strings.Contains(buf.String(), `"ticker":"AAPL"`) {
		t.Fatalf("日志缺少 ticker 字段: %s", buf.String())
	}

	// 没有日志器时使用 fallback
	buf.Reset()
	fallback := FromContext(context.Background(), zerolog.New(&buf))
	fallback.Info().Msg("fallback")
	if !strings.Contains(buf.String(), "fallback") {
		t.Fatalf("未使用 fallback: %s", buf.String())
	}
}
