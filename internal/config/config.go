// Package config loads the service configuration from a YAML file, an
// optional .env file and environment variables. Environment values win.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"doom-index/internal/apperr"
	"doom-index/internal/idhash"
)

// Config is the complete service configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
	Generation GenerationConfig `yaml:"generation"`
	Selection  SelectionConfig  `yaml:"selection"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Prompt     PromptConfig     `yaml:"prompt"`
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	CoinGecko  CoinGeckoConfig  `yaml:"coingecko"`
	Sentiment  SentimentConfig  `yaml:"sentiment"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Redis      RedisConfig      `yaml:"redis"`
	Blob       BlobConfig       `yaml:"blob"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Server     ServerConfig     `yaml:"server"`
}

// LogConfig selects level and output format.
type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// ScheduleConfig drives the serve command's ticker.
type ScheduleConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

// GenerationConfig controls the orchestrator.
type GenerationConfig struct {
	BucketGranularity string        `yaml:"bucket_granularity"` // hour|minute
	LeaseTTL          time.Duration `yaml:"lease_ttl"`
	EnrichTokens      bool          `yaml:"enrich_tokens"`
}

// ForcedToken is an operator allow-list entry.
type ForcedToken struct {
	ID       string `yaml:"id"`
	Priority int    `yaml:"priority"`
}

// SelectionConfig controls candidate sourcing and the recency policy.
type SelectionConfig struct {
	ForcedTokens   []ForcedToken `yaml:"forced_tokens"`
	TrendingLimit  int           `yaml:"trending_limit"`
	RecencyWindow  time.Duration `yaml:"recency_window"`
	RecencyPenalty float64       `yaml:"recency_penalty"`
}

// ScoringConfig holds the impact score ceilings.
type ScoringConfig struct {
	Change24hCeiling float64 `yaml:"change_24h_ceiling"`
	Change7dCeiling  float64 `yaml:"change_7d_ceiling"`
}

// PromptToken is one basket member.
type PromptToken struct {
	ID     string `yaml:"id"`
	Phrase string `yaml:"phrase"`
}

// PromptConfig controls weights and the image request shape.
type PromptConfig struct {
	MinWeight float64       `yaml:"min_weight"`
	MaxWeight float64       `yaml:"max_weight"`
	Exponent  float64       `yaml:"exponent"`
	Tokens    []PromptToken `yaml:"tokens"` // empty uses the built-in basket
	Width     int           `yaml:"width"`
	Height    int           `yaml:"height"`
	Format    string        `yaml:"format"`
}

// TimeoutsConfig bounds every external call.
type TimeoutsConfig struct {
	Candidates time.Duration `yaml:"candidates"`
	Market     time.Duration `yaml:"market"`
	Sentiment  time.Duration `yaml:"sentiment"`
	Basket     time.Duration `yaml:"basket"`
	Enrichment time.Duration `yaml:"enrichment"`
	Image      time.Duration `yaml:"image"`
	Storage    time.Duration `yaml:"storage"`
}

// CoinGeckoConfig configures the market data provider.
type CoinGeckoConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	RPS         float64 `yaml:"rps"`
	MaxAttempts int     `yaml:"max_attempts"`
	// CoinGecko category ids candidates are tagged with; one request each.
	TagCategories []string `yaml:"tag_categories"`
}

// SentimentConfig configures the fear & greed provider.
type SentimentConfig struct {
	BaseURL string `yaml:"base_url"`
}

// GeminiConfig configures image and JSON generation.
type GeminiConfig struct {
	APIKey     string `yaml:"api_key"`
	ImageModel string `yaml:"image_model"`
	TextModel  string `yaml:"text_model"`
}

// PostgresConfig configures the row store. Empty DSN selects in-memory stores.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ClickHouseConfig configures the score ledger. Empty DSN selects the in-memory ledger.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the snapshot cache and bucket lease. Empty Addr disables both.
type RedisConfig struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	SnapshotTTL time.Duration `yaml:"snapshot_ttl"`
}

// BlobConfig selects and configures the blob store.
type BlobConfig struct {
	Driver        string `yaml:"driver"` // s3|fs|memory
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	Bucket        string `yaml:"bucket"`
	AccessKey     string `yaml:"access_key"`
	SecretKey     string `yaml:"secret_key"`
	UseSSL        bool   `yaml:"use_ssl"`
	Dir           string `yaml:"dir"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// KafkaConfig configures generation events. No brokers selects the noop publisher.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "json"},
		Schedule: ScheduleConfig{Interval: time.Minute, RunOnStart: true},
		Generation: GenerationConfig{
			BucketGranularity: string(idhash.GranularityHour),
			LeaseTTL:          3 * time.Minute,
			EnrichTokens:      true,
		},
		Selection: SelectionConfig{
			TrendingLimit:  15,
			RecencyWindow:  6 * time.Hour,
			RecencyPenalty: 0.5,
		},
		Scoring: ScoringConfig{Change24hCeiling: 20, Change7dCeiling: 50},
		Prompt: PromptConfig{
			MinWeight: 0.1,
			MaxWeight: 2.0,
			Exponent:  2.0,
			Width:     1024,
			Height:    1024,
			Format:    "webp",
		},
		Timeouts: TimeoutsConfig{
			Candidates: 30 * time.Second,
			Market:     10 * time.Second,
			Sentiment:  10 * time.Second,
			Basket:     10 * time.Second,
			Enrichment: 10 * time.Second,
			Image:      90 * time.Second,
			Storage:    10 * time.Second,
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL:       "https://api.coingecko.com/api/v3",
			RPS:           0.5,
			MaxAttempts:   3,
			TagCategories: []string{"layer-1", "decentralized-finance-defi", "meme-token"},
		},
		Sentiment: SentimentConfig{BaseURL: "https://api.alternative.me"},
		Gemini: GeminiConfig{
			ImageModel: "imagen-4.0-generate-001",
			TextModel:  "gemini-2.5-flash",
		},
		Redis: RedisConfig{SnapshotTTL: 2 * time.Hour},
		Blob:  BlobConfig{Driver: "fs", Dir: "./data/paintings", Region: "auto", UseSSL: true},
		Kafka: KafkaConfig{Topic: "doom-index.paintings"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads defaults, then the YAML file at path (optional when empty or
// missing), then .env, then environment variables, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, apperr.Configuration("read %s: %v", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, apperr.Configuration("parse %s: %v", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("DOOM_LOG_LEVEL", &c.Log.Level)
	str("DOOM_LOG_FORMAT", &c.Log.Format)
	str("DOOM_BUCKET_GRANULARITY", &c.Generation.BucketGranularity)
	str("DOOM_POSTGRES_DSN", &c.Postgres.DSN)
	str("DOOM_CLICKHOUSE_DSN", &c.ClickHouse.DSN)
	str("DOOM_REDIS_ADDR", &c.Redis.Addr)
	str("DOOM_REDIS_PASSWORD", &c.Redis.Password)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("COINGECKO_API_KEY", &c.CoinGecko.APIKey)
	str("DOOM_S3_ENDPOINT", &c.Blob.Endpoint)
	str("DOOM_S3_REGION", &c.Blob.Region)
	str("DOOM_S3_BUCKET", &c.Blob.Bucket)
	str("DOOM_S3_ACCESS_KEY", &c.Blob.AccessKey)
	str("DOOM_S3_SECRET_KEY", &c.Blob.SecretKey)
	str("DOOM_S3_PUBLIC_BASE_URL", &c.Blob.PublicBaseURL)
	str("DOOM_BLOB_DRIVER", &c.Blob.Driver)
	str("DOOM_SERVER_ADDR", &c.Server.Addr)

	if v, ok := lookup("DOOM_COINGECKO_TAG_CATEGORIES"); ok {
		c.CoinGecko.TagCategories = splitList(v)
	}
	if v, ok := lookup("DOOM_KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("DOOM_FORCED_TOKENS"); ok && v != "" {
		forced, err := parseForced(v)
		if err != nil {
			return err
		}
		c.Selection.ForcedTokens = forced
	}
	if v, ok := lookup("DOOM_SCHEDULE_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return apperr.Configuration("DOOM_SCHEDULE_INTERVAL: %v", err)
		}
		c.Schedule.Interval = d
	}
	return nil
}

// parseForced parses "id[:priority],id[:priority]".
func parseForced(v string) ([]ForcedToken, error) {
	var out []ForcedToken
	for _, item := range splitList(v) {
		id, prio, hasPrio := strings.Cut(item, ":")
		ft := ForcedToken{ID: strings.TrimSpace(id)}
		if hasPrio {
			p, err := strconv.Atoi(strings.TrimSpace(prio))
			if err != nil {
				return nil, apperr.Configuration("DOOM_FORCED_TOKENS entry %q: %v", item, err)
			}
			ft.Priority = p
		}
		out = append(out, ft)
	}
	return out, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks ranges and required combinations.
func (c Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if _, err := idhash.ParseGranularity(c.Generation.BucketGranularity); err != nil {
		add("generation.bucket_granularity: %v", err)
	}
	if c.Prompt.MinWeight < 0 || c.Prompt.MaxWeight < c.Prompt.MinWeight {
		add("prompt weights: need 0 <= min_weight <= max_weight, got %v/%v", c.Prompt.MinWeight, c.Prompt.MaxWeight)
	}
	if c.Prompt.Exponent <= 0 {
		add("prompt.exponent must be > 0")
	}
	if c.Prompt.Width <= 0 || c.Prompt.Height <= 0 {
		add("prompt width/height must be > 0")
	}
	if c.Prompt.Format != "webp" {
		add("prompt.format %q unsupported, artifacts are webp", c.Prompt.Format)
	}
	if c.Selection.RecencyPenalty < 0 || c.Selection.RecencyPenalty > 1 {
		add("selection.recency_penalty must be within [0,1]")
	}
	if c.Selection.RecencyWindow < 0 {
		add("selection.recency_window must be >= 0")
	}
	for _, ft := range c.Selection.ForcedTokens {
		if ft.ID == "" {
			add("selection.forced_tokens: empty id")
		}
	}
	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"candidates", c.Timeouts.Candidates},
		{"market", c.Timeouts.Market},
		{"sentiment", c.Timeouts.Sentiment},
		{"basket", c.Timeouts.Basket},
		{"enrichment", c.Timeouts.Enrichment},
		{"image", c.Timeouts.Image},
		{"storage", c.Timeouts.Storage},
	}
	for _, t := range timeouts {
		if t.d <= 0 {
			add("timeouts.%s must be > 0", t.name)
		}
	}
	switch c.Blob.Driver {
	case "s3":
		if c.Blob.Endpoint == "" || c.Blob.Bucket == "" {
			add("blob: s3 driver needs endpoint and bucket")
		}
	case "fs":
		if c.Blob.Dir == "" {
			add("blob: fs driver needs dir")
		}
	case "memory":
	default:
		add("blob.driver %q unknown", c.Blob.Driver)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		add("kafka.topic required when brokers are set")
	}

	if len(problems) > 0 {
		return apperr.Configuration("%s", strings.Join(problems, "; "))
	}
	return nil
}

// Granularity returns the parsed bucket granularity. Call after Validate.
func (c Config) Granularity() idhash.Granularity {
	g, _ := idhash.ParseGranularity(c.Generation.BucketGranularity)
	return g
}
