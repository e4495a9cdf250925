package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 120*time.Second, cfg.Pipeline.DuplicateWindow)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.DuplicateWait)
	assert.Equal(t, 6, cfg.Pipeline.HistoryTurns)
	assert.Equal(t, 3, cfg.Pipeline.MaxLanes)
	assert.Equal(t, 80, cfg.Pipeline.MinSnippetLength)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PIPELINE_DUPLICATE_WINDOW", "30s")
	t.Setenv("PIPELINE_DUPLICATE_WAIT", "2")
	t.Setenv("PIPELINE_CONCURRENT_LANES", "false")
	t.Setenv("PIPELINE_PROMPT_VERSION", "v1")
	t.Setenv("JURISDICTION_GAZETTEER", "Anytown, Springfield ,")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.Pipeline.DuplicateWindow)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.DuplicateWait)
	assert.False(t, cfg.Pipeline.ConcurrentLanes)
	assert.Equal(t, "v1", cfg.Pipeline.PromptVersion)
	assert.Equal(t, []string{"Anytown", "Springfield"}, cfg.Pipeline.ExtraTowns)
}

func TestGetEnvAsDuration_BadValueFallsBack(t *testing.T) {
	t.Setenv("SOME_DURATION", "soon")
	assert.Equal(t, time.Minute, getEnvAsDuration("SOME_DURATION", time.Minute))
}
