package cse_test

import (
	"testing"
	"time"

	"github.com/glee-cse/glee/cse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	type nested struct {
		Name string `env:"TEST_GLEE_NESTED_NAME"`
	}
	type config struct {
		Str      string        `env:"TEST_GLEE_STR"`
		Int      int           `env:"TEST_GLEE_INT"`
		Uint     uint8         `env:"TEST_GLEE_UINT"`
		Bool     bool          `env:"TEST_GLEE_BOOL"`
		Duration time.Duration `env:"TEST_GLEE_DURATION"`
		List     []string      `env:"TEST_GLEE_LIST"`
		Untagged string
		Nested   nested
	}

	t.Run("OK", func(t *testing.T) {
		t.Setenv("TEST_GLEE_STR", "foo")
		t.Setenv("TEST_GLEE_INT", "-3")
		t.Setenv("TEST_GLEE_UINT", "200")
		t.Setenv("TEST_GLEE_BOOL", "true")
		t.Setenv("TEST_GLEE_DURATION", "150ms")
		t.Setenv("TEST_GLEE_LIST", "a, b,,c")
		t.Setenv("TEST_GLEE_NESTED_NAME", "bar")

		cfg := config{Untagged: "keep", Int: 1}
		require.NoError(t, cse.LoadFromEnv(&cfg))
		assert.Equal(t, config{
			Str:      "foo",
			Int:      -3,
			Uint:     200,
			Bool:     true,
			Duration: 150 * time.Millisecond,
			List:     []string{"a", "b", "c"},
			Untagged: "keep",
			Nested:   nested{Name: "bar"},
		}, cfg)
	})

	t.Run("Unset", func(t *testing.T) {
		cfg := config{Str: "default", Int: 4}
		require.NoError(t, cse.LoadFromEnv(&cfg))
		assert.Equal(t, "default", cfg.Str)
		assert.Equal(t, 4, cfg.Int)
	})

	t.Run("ErrInvalidInt", func(t *testing.T) {
		t.Setenv("TEST_GLEE_INT", "four")
		err := cse.LoadFromEnv(&config{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TEST_GLEE_INT")
	})

	t.Run("ErrInvalidDuration", func(t *testing.T) {
		t.Setenv("TEST_GLEE_DURATION", "soon")
		assert.Error(t, cse.LoadFromEnv(&config{}))
	})

	t.Run("ErrInvalidBool", func(t *testing.T) {
		t.Setenv("TEST_GLEE_BOOL", "maybe")
		assert.Error(t, cse.LoadFromEnv(&config{}))
	})
}
