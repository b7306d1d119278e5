package tracing

import (
	"strings"
	"testing"
)

func TestSampler(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  string
	}{
		{name: "Given ratio one Then always on", ratio: 1, want: "AlwaysOnSampler"},
		{name: "Given zero Then always off", ratio: 0, want: "AlwaysOffSampler"},
		{name: "Given a fraction Then ratio based", ratio: 0.25, want: "TraceIDRatioBased{0.25}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := Sampler(tt.ratio).Description()
			if !strings.HasPrefix(desc, "ParentBased{root:"+tt.want) {
				t.Errorf("description = %q", desc)
			}
		})
	}
}
