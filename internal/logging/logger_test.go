package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	for _, tt := range []struct {
		level string
		want  []string
		skip  []string
	}{
		{"trace", []string{"trace message", "debug message", "info message"}, nil},
		{"debug", []string{"debug message", "info message"}, []string{"trace message"}},
		{"info", []string{"info message"}, []string{"trace message", "debug message"}},
		{"error", nil, []string{"trace message", "debug message", "info message"}},
		{"bogus", []string{"info message"}, []string{"debug message"}},
	} {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := New(Config{Level: tt.level, Output: &buf})

			logger.Trace().Msg("trace message")
			logger.Debug().Msg("debug message")
			logger.Info().Msg("info message")

			for _, msg := range tt.want {
				assert.Contains(t, buf.String(), msg)
			}
			for _, msg := range tt.skip {
				assert.NotContains(t, buf.String(), msg)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("off"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
}

func TestNew_Pretty(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "info", Pretty: true, Output: &buf})
	logger.Info().Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.False(t, strings.HasPrefix(out, "{"), "expected console output, got JSON")
}

func TestNewWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithComponent(Config{Level: "info", Output: &buf}, "cse")
	logger.Info().Msg("run")
	assert.Contains(t, buf.String(), `"component":"cse"`)
}

type closer struct {
	err    error
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return c.err
}

func TestDeferClose(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		var buf bytes.Buffer
		c := &closer{}
		DeferClose(zerolog.New(&buf), c, "close failed")
		require.True(t, c.closed)
		assert.Empty(t, buf.String())
	})

	t.Run("Error", func(t *testing.T) {
		var buf bytes.Buffer
		c := &closer{err: errors.New("marker")}
		DeferClose(zerolog.New(&buf), c, "close failed")
		assert.Contains(t, buf.String(), "close failed")
		assert.Contains(t, buf.String(), "marker")
	})

	t.Run("Nil", func(t *testing.T) {
		DeferClose(zerolog.Nop(), nil, "close failed")
	})
}
