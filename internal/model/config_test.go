package model

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	assert.Nil(t, cfg.Validate())
	assert.Equal(t, StrategyAStar, cfg.Search.Strategy)
	assert.Equal(t, DedupFacts, cfg.Search.Dedup)
	assert.Equal(t, 0.001, cfg.Temporal.Epsilon)
}

func TestLoadConfig_PartialOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	data := "search:\n  strategy: wastar\n  weight: 2.5\n  workers: 4\nheuristic:\n  kind: hadd\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, StrategyWeighted, cfg.Search.Strategy)
	assert.Equal(t, 2.5, cfg.Search.Weight)
	assert.Equal(t, 4, cfg.Search.Workers)
	assert.Equal(t, HeuristicAdd, cfg.Heuristic.Kind)
	// untouched fields keep their defaults
	assert.Equal(t, CostDuration, cfg.Search.CostModel)
	assert.Equal(t, 4096, cfg.Heuristic.CacheSize)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "planner.yaml")
	data := "search:\n  strategy: dfs\n  workers: 0\ntemporal:\n  epsilon: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)

	verrs, ok := err.(*ValidationErrors)
	require.True(t, ok, "expected *ValidationErrors, got %T", err)
	fields := make([]string, 0, len(verrs.Errors))
	for _, e := range verrs.Errors {
		fields = append(fields, e.FieldPath)
	}
	assert.ElementsMatch(t, []string{"search.strategy", "search.workers", "temporal.epsilon"}, fields)
	assert.True(t, strings.HasPrefix(verrs.FormatStderr(), "error: search.strategy"))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("bogus"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}
