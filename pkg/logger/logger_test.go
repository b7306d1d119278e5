package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "Given debug Then debug", level: "debug", want: zerolog.DebugLevel},
		{name: "Given mixed case Then parsed", level: " WARN ", want: zerolog.WarnLevel},
		{name: "Given empty Then info", level: "", want: zerolog.InfoLevel},
		{name: "Given unknown Then info", level: "verbose", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLevel(tt.level)
			if got := zerolog.GlobalLevel(); got != tt.want {
				t.Errorf("level = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestWithContext_CarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	Logger = zerolog.New(&buf)
	t.Cleanup(func() { Logger = prev })

	Info(WithRequestID(context.Background(), "req-42")).Msg("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if line["request_id"] != "req-42" {
		t.Errorf("request_id = %v", line["request_id"])
	}
	if _, ok := line["trace_id"]; ok {
		t.Errorf("trace_id set without a span")
	}
}
