package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doom-index/internal/apperr"
	"doom-index/internal/idhash"
)

func TestDefault_IsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
	assert.Equal(t, idhash.GranularityHour, Default().Granularity())
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doom.yaml")
	yaml := `
log:
  level: debug
generation:
  bucket_granularity: minute
selection:
  recency_window: 3h
  forced_tokens:
    - id: solana
      priority: 5
timeouts:
  image: 120s
blob:
  driver: memory
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("DOOM_POSTGRES_DSN", "postgres://u:p@db:5432/doom")
	t.Setenv("DOOM_KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("GEMINI_API_KEY", "key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, idhash.GranularityMinute, cfg.Granularity())
	assert.Equal(t, 3*time.Hour, cfg.Selection.RecencyWindow)
	assert.Equal(t, []ForcedToken{{ID: "solana", Priority: 5}}, cfg.Selection.ForcedTokens)
	assert.Equal(t, 120*time.Second, cfg.Timeouts.Image)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Market)
	assert.Equal(t, "postgres://u:p@db:5432/doom", cfg.Postgres.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "key", cfg.Gemini.APIKey)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Prompt, cfg.Prompt)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log: [unclosed"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
}

func TestApplyEnv_ForcedTokens(t *testing.T) {
	cfg := Default()
	env := map[string]string{"DOOM_FORCED_TOKENS": "bitcoin:10, pepe ,solana:3"}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, []ForcedToken{{ID: "bitcoin", Priority: 10}, {ID: "pepe"}, {ID: "solana", Priority: 3}}, cfg.Selection.ForcedTokens)

	env["DOOM_FORCED_TOKENS"] = "bitcoin:high"
	assert.Error(t, cfg.applyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"granularity", func(c *Config) { c.Generation.BucketGranularity = "day" }},
		{"weights", func(c *Config) { c.Prompt.MinWeight = 3 }},
		{"exponent", func(c *Config) { c.Prompt.Exponent = 0 }},
		{"penalty", func(c *Config) { c.Selection.RecencyPenalty = 1.5 }},
		{"timeout", func(c *Config) { c.Timeouts.Image = 0 }},
		{"s3 without bucket", func(c *Config) { c.Blob.Driver = "s3"; c.Blob.Endpoint = "r2.example" }},
		{"unknown driver", func(c *Config) { c.Blob.Driver = "ftp" }},
		{"kafka without topic", func(c *Config) { c.Kafka.Brokers = []string{"k:9092"}; c.Kafka.Topic = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, apperr.KindConfiguration, apperr.KindOf(err))
		})
	}
}
