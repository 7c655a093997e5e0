package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSlogLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false, false)

	l.Debug("hidden")
	assert.Zero(t, buf.Len(), "debug must be filtered at info level")

	l.With("task", "sampler").Info("sample written", "id", 7)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "sample written", rec["msg"])
	assert.Equal(t, "sampler", rec["task"])
	assert.EqualValues(t, 7, rec["id"])
	assert.Contains(t, rec, "ts")
}

func TestSlogLogger_SetLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, ErrorLevel, false, false)
	assert.Equal(t, ErrorLevel, l.Level())

	child := l.With("k", "v")
	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.Level(), "child shares the parent level")

	child.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestSlogLogger_Console(t *testing.T) {
	var buf bytes.Buffer
	l := NewSlogWithWriter(&buf, InfoLevel, false, true)
	l.Warn("frame overflow", "capacity", 64)

	out := buf.String()
	assert.Contains(t, out, "frame overflow")
	assert.Contains(t, out, "capacity")
}

func TestMockLogger(t *testing.T) {
	m := NewPermissiveMockLogger()
	m.With("a", 1).Error("boom", "err", "x")
	m.AssertCalled(t, "Error", "boom", []any{"err", "x"})
}

func TestDefaultLogger_LevelFromEnv(t *testing.T) {
	tests := []struct {
		env  string
		want Level
	}{
		{"debug", DebugLevel},
		{"WARN", WarnLevel},
		{"", InfoLevel},
		{"chatty", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			t.Setenv(LevelEnv, tt.env)
			assert.Equal(t, tt.want, newDefaultLogger().Level())
		})
	}
}

func TestSetLogger_IgnoresNil(t *testing.T) {
	prev := GetLogger()
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(nil)
	assert.Same(t, prev, GetLogger())

	m := NewPermissiveMockLogger()
	SetLogger(m)
	assert.Same(t, m, GetLogger())
}
