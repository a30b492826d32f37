package cse

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/glee-cse/glee"
	"github.com/glee-cse/glee/internal/logging"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownStrategy = errors.New("cse: unknown strategy")
	ErrUnknownSearcher = errors.New("cse: unknown searcher")
)

// Strategy selects how a function is explored when it is summarized.
type Strategy string

const (
	StrategyNone = Strategy("none") // summaries disabled
	StrategyBU   = Strategy("bu")   // bottom-up: unconstrained arguments, final-value effects
	StrategyCTX  = Strategy("ctx")  // bottom-up narrowed by argument intervals
	StrategyTD   = Strategy("td")   // top-down: write-log effects, error paths keep effects
)

// ParseStrategy returns the strategy matching name. The command-line
// spellings bucse, ctxcse and tdcse are accepted as aliases.
func ParseStrategy(name string) (Strategy, error) {
	switch s := strings.ToLower(strings.TrimSpace(name)); s {
	case "", "bu", "bucse":
		return StrategyBU, nil
	case "ctx", "ctxcse":
		return StrategyCTX, nil
	case "td", "tdcse":
		return StrategyTD, nil
	case "none":
		return StrategyNone, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Config controls how summaries are computed.
type Config struct {
	Strategy Strategy `yaml:"strategy" env:"GLEE_STRATEGY"`

	// Limits on a single exploration.
	MaxLoopUnroll      int           `yaml:"max_loop_unroll" env:"GLEE_MAX_LOOP_UNROLL"`
	MaxStatesInSummary int           `yaml:"max_states_in_summary" env:"GLEE_MAX_STATES_IN_SUMMARY"`
	MaxCallDepth       int           `yaml:"max_call_depth" env:"GLEE_MAX_CALL_DEPTH"`
	SolverTimeout      time.Duration `yaml:"solver_timeout" env:"GLEE_SOLVER_TIMEOUT"`

	// Error reasons that stop the exploration of the function they occur in.
	HaltOn []string `yaml:"halt_on" env:"GLEE_HALT_ON"`

	// Answer calls from the callee's summary instead of stepping into it.
	Compose bool `yaml:"compose" env:"GLEE_COMPOSE"`

	// State selection: dfs, bfs or random.
	Searcher string `yaml:"searcher" env:"GLEE_SEARCHER"`

	// Shape of the symbolic inputs bound to formal arguments.
	PointerArgElems int `yaml:"pointer_arg_elems" env:"GLEE_POINTER_ARG_ELEMS"`
	StringArgLen    int `yaml:"string_arg_len" env:"GLEE_STRING_ARG_LEN"`

	Log logging.Config `yaml:"log"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Strategy:           StrategyBU,
		MaxLoopUnroll:      5,
		MaxStatesInSummary: 20,
		MaxCallDepth:       16,
		SolverTimeout:      10 * time.Second,
		Compose:            true,
		Searcher:           "dfs",
		PointerArgElems:    1,
		StringArgLen:       8,
		Log:                logging.DefaultConfig(),
	}
}

// LoadConfig reads the YAML file at path over the defaults and then applies
// environment overrides. An empty path skips the file.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("cse: read config: %w", err)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return cfg, fmt.Errorf("cse: parse config %s: %w", path, err)
		}
	}

	if err := LoadFromEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate normalizes the strategy name and checks the limits.
func (c *Config) Validate() error {
	strategy, err := ParseStrategy(string(c.Strategy))
	if err != nil {
		return err
	}
	c.Strategy = strategy

	switch {
	case c.MaxLoopUnroll < 0:
		return fmt.Errorf("cse: max_loop_unroll must not be negative: %d", c.MaxLoopUnroll)
	case c.MaxStatesInSummary < 1:
		return fmt.Errorf("cse: max_states_in_summary must be positive: %d", c.MaxStatesInSummary)
	case c.MaxCallDepth < 0:
		return fmt.Errorf("cse: max_call_depth must not be negative: %d", c.MaxCallDepth)
	case c.SolverTimeout < 0:
		return fmt.Errorf("cse: solver_timeout must not be negative: %s", c.SolverTimeout)
	case c.PointerArgElems < 1:
		return fmt.Errorf("cse: pointer_arg_elems must be positive: %d", c.PointerArgElems)
	case c.StringArgLen < 0:
		return fmt.Errorf("cse: string_arg_len must not be negative: %d", c.StringArgLen)
	}

	switch c.Searcher {
	case "dfs", "bfs", "random":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSearcher, c.Searcher)
	}

	_, err = c.HaltReasons()
	return err
}

// HaltReasons parses HaltOn.
func (c *Config) HaltReasons() ([]glee.ErrorReason, error) {
	reasons := make([]glee.ErrorReason, 0, len(c.HaltOn))
	for _, name := range c.HaltOn {
		reason, err := glee.ParseErrorReason(name)
		if err != nil {
			return nil, fmt.Errorf("cse: halt_on: %w", err)
		}
		reasons = append(reasons, reason)
	}
	return reasons, nil
}
