package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"trace":    zerolog.TraceLevel,
		"debug":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"warning":  zerolog.WarnLevel,
		" ERROR ":  zerolog.ErrorLevel,
		"":         zerolog.InfoLevel,
		"nonsense": zerolog.InfoLevel,
	}
	for in, want := range cases {
		require.Equal(t, want, parseLevel(in), "parseLevel(%q)", in)
	}
}

func TestContextFieldsReachChildLogger(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "debug", Format: "json", Service: "babylog-test", Writer: &buf})

	ctx := WithRequest(context.Background(), "req-1", "tenant-a")
	ctx = WithSubject(ctx, "baby-1")
	C(ctx).Info().Msg("ctx-msg")
	Named("cache").Info().Msg("named-msg")
	C(context.Background()).Info().Msg("bare-msg")

	out := buf.String()
	require.Contains(t, out, `"request_id":"req-1"`)
	require.Contains(t, out, `"tenant_id":"tenant-a"`)
	require.Contains(t, out, `"subject_id":"baby-1"`)
	require.Contains(t, out, `"component":"cache"`)
	require.Contains(t, out, "bare-msg")
}
