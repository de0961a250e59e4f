package logging

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		" warn ":  LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestLogger_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn).With("planner")
	l.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }

	l.Infof("dropped %d", 1)
	l.Warnf("kept %s", "this")

	assert.Equal(t, "2026-03-01T10:00:00Z WARN [planner] kept this\n", buf.String())
}

func TestLogger_WithDoesNotAffectParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(&buf, LevelDebug)
	parent.now = func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC) }
	_ = parent.With("api")

	parent.Errorf("boom")
	assert.Equal(t, "2026-03-01T10:00:00Z ERROR boom\n", buf.String())
}
