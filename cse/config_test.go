package cse_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/cse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategy(t *testing.T) {
	for _, tt := range []struct {
		name string
		want cse.Strategy
	}{
		{"", cse.StrategyBU},
		{"bu", cse.StrategyBU},
		{"bucse", cse.StrategyBU},
		{"CTX", cse.StrategyCTX},
		{"ctxcse", cse.StrategyCTX},
		{"td", cse.StrategyTD},
		{" tdcse ", cse.StrategyTD},
		{"none", cse.StrategyNone},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cse.ParseStrategy(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("ErrUnknownStrategy", func(t *testing.T) {
		_, err := cse.ParseStrategy("sideways")
		assert.ErrorIs(t, err, cse.ErrUnknownStrategy)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		config := cse.DefaultConfig()
		assert.NoError(t, config.Validate())
	})

	t.Run("NormalizeStrategy", func(t *testing.T) {
		config := cse.DefaultConfig()
		config.Strategy = "tdcse"
		require.NoError(t, config.Validate())
		assert.Equal(t, cse.StrategyTD, config.Strategy)
	})

	for name, fn := range map[string]func(*cse.Config){
		"MaxLoopUnroll":      func(c *cse.Config) { c.MaxLoopUnroll = -1 },
		"MaxStatesInSummary": func(c *cse.Config) { c.MaxStatesInSummary = 0 },
		"MaxCallDepth":       func(c *cse.Config) { c.MaxCallDepth = -1 },
		"SolverTimeout":      func(c *cse.Config) { c.SolverTimeout = -time.Second },
		"PointerArgElems":    func(c *cse.Config) { c.PointerArgElems = 0 },
		"StringArgLen":       func(c *cse.Config) { c.StringArgLen = -1 },
		"HaltOn":             func(c *cse.Config) { c.HaltOn = []string{"bogus"} },
	} {
		t.Run(name, func(t *testing.T) {
			config := cse.DefaultConfig()
			fn(&config)
			assert.Error(t, config.Validate())
		})
	}

	t.Run("ErrUnknownSearcher", func(t *testing.T) {
		config := cse.DefaultConfig()
		config.Searcher = "astar"
		assert.ErrorIs(t, config.Validate(), cse.ErrUnknownSearcher)
	})
}

func TestConfig_HaltReasons(t *testing.T) {
	config := cse.DefaultConfig()
	config.HaltOn = []string{"assert", "exit"}

	reasons, err := config.HaltReasons()
	require.NoError(t, err)
	assert.Equal(t, []glee.ErrorReason{glee.ReasonAssert, glee.ReasonExit}, reasons)
}

func TestLoadConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		config, err := cse.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, cse.StrategyBU, config.Strategy)
		assert.Equal(t, 5, config.MaxLoopUnroll)
		assert.Equal(t, 10*time.Second, config.SolverTimeout)
	})

	t.Run("File", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "glee.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
strategy: ctxcse
max_loop_unroll: 3
solver_timeout: 2s
halt_on: [assert]
compose: false
log:
  level: debug
`), 0o600))

		config, err := cse.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, cse.StrategyCTX, config.Strategy)
		assert.Equal(t, 3, config.MaxLoopUnroll)
		assert.Equal(t, 2*time.Second, config.SolverTimeout)
		assert.Equal(t, []string{"assert"}, config.HaltOn)
		assert.False(t, config.Compose)
		assert.Equal(t, "debug", config.Log.Level)

		// Unset keys keep their defaults.
		assert.Equal(t, 20, config.MaxStatesInSummary)
		assert.Equal(t, "dfs", config.Searcher)
	})

	t.Run("Env", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "glee.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_loop_unroll: 3\n"), 0o600))

		t.Setenv("GLEE_MAX_LOOP_UNROLL", "7")
		t.Setenv("GLEE_STRATEGY", "td")
		t.Setenv("GLEE_HALT_ON", "assert, exit,")
		t.Setenv("GLEE_LOG_LEVEL", "warn")

		config, err := cse.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 7, config.MaxLoopUnroll)
		assert.Equal(t, cse.StrategyTD, config.Strategy)
		assert.Equal(t, []string{"assert", "exit"}, config.HaltOn)
		assert.Equal(t, "warn", config.Log.Level)
	})

	t.Run("ErrMissingFile", func(t *testing.T) {
		_, err := cse.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("ErrInvalidFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "glee.yaml")
		require.NoError(t, os.WriteFile(path, []byte("max_loop_unroll: [1\n"), 0o600))
		_, err := cse.LoadConfig(path)
		assert.Error(t, err)
	})

	t.Run("ErrInvalidStrategy", func(t *testing.T) {
		t.Setenv("GLEE_STRATEGY", "sideways")
		_, err := cse.LoadConfig("")
		assert.ErrorIs(t, err, cse.ErrUnknownStrategy)
	})
}
