package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/gateway"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/orchestrator"
	"github.com/etruxton/for-you-puzzles/go/internal/wordsearch/relay"
)

const defaultConfigFile = "config.yaml"

type Config struct {
	Port     string `yaml:"port" env:"PORT"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	Puzzles struct {
		Source string `yaml:"source" env:"PUZZLE_SOURCE"` // file | postgres
		File   string `yaml:"file" env:"PUZZLE_FILE"`
	} `yaml:"puzzles"`

	Round struct {
		Duration          time.Duration `yaml:"duration" env:"ROUND_DURATION"`
		PendingDelay      time.Duration `yaml:"pending_delay" env:"PENDING_DELAY"`
		GraceDelay        time.Duration `yaml:"grace_delay" env:"GRACE_DELAY"`
		RetryDelay        time.Duration `yaml:"retry_delay" env:"RETRY_DELAY"`
		MaxPuzzleAttempts int           `yaml:"max_puzzle_attempts" env:"MAX_PUZZLE_ATTEMPTS"`
	} `yaml:"round"`

	HTTP struct {
		AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
		RateLimitRPS   float64  `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
		RateLimitBurst int      `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
	} `yaml:"http"`

	NATS struct {
		URL           string `yaml:"url" env:"NATS_URL"`
		RelayEnabled  bool   `yaml:"relay_enabled" env:"EVENT_RELAY_ENABLED"`
		EventStream   string `yaml:"event_stream" env:"EVENT_STREAM"`
		SubjectPrefix string `yaml:"subject_prefix" env:"EVENT_SUBJECT_PREFIX"`
		IngestEnabled bool   `yaml:"ingest_enabled" env:"CHAT_INGEST_ENABLED"`
		ChatStream    string `yaml:"chat_stream" env:"CHAT_STREAM"`
		ChatConsumer  string `yaml:"chat_consumer" env:"CHAT_CONSUMER"`
		ChatSubject   string `yaml:"chat_subject" env:"CHAT_SUBJECT"`
	} `yaml:"nats"`
}

func defaultConfig() Config {
	var c Config
	c.Port = "8080"
	c.LogLevel = "info"
	c.Puzzles.Source = "file"
	c.Puzzles.File = "puzzles.json"

	sched := orchestrator.DefaultConfig()
	c.Round.Duration = sched.RoundDuration
	c.Round.PendingDelay = sched.PendingDelay
	c.Round.GraceDelay = sched.GraceDelay
	c.Round.RetryDelay = sched.RetryDelay
	c.Round.MaxPuzzleAttempts = sched.MaxPuzzleAttempts

	gw := gateway.DefaultConfig()
	c.HTTP.AllowedOrigins = []string{"*"}
	c.HTTP.RateLimitRPS = gw.RateLimitRPS
	c.HTTP.RateLimitBurst = gw.RateLimitBurst

	js := relay.DefaultJetStreamConfig()
	ingest := relay.DefaultIngestConfig()
	c.NATS.URL = relay.DefaultConnConfig().URL
	c.NATS.EventStream = js.StreamName
	c.NATS.SubjectPrefix = js.SubjectPrefix
	c.NATS.ChatStream = ingest.StreamName
	c.NATS.ChatConsumer = ingest.ConsumerName
	c.NATS.ChatSubject = ingest.SubjectFilter
	return c
}

// configPath returns CONFIG_FILE and whether it was set explicitly.
func configPath() (string, bool) {
	if p := os.Getenv("CONFIG_FILE"); p != "" {
		return p, true
	}
	return defaultConfigFile, false
}

// loadConfig layers defaults, the YAML file and then environment variables.
// A missing file is only an error when it was asked for explicitly.
func loadConfig(path string, required bool) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
		log.Debug().Str("path", path).Msg("no config file, using defaults")
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Puzzles.Source != "file" && c.Puzzles.Source != "postgres" {
		errs = append(errs, fmt.Errorf("puzzle source %q must be file or postgres", c.Puzzles.Source))
	}
	if c.Puzzles.Source == "file" && c.Puzzles.File == "" {
		errs = append(errs, errors.New("puzzle file is required for the file source"))
	}
	if c.Round.Duration <= 0 {
		errs = append(errs, errors.New("round duration must be positive"))
	}
	if c.Round.PendingDelay < 0 || c.Round.GraceDelay < 0 {
		errs = append(errs, errors.New("pending and grace delays cannot be negative"))
	}
	if c.Round.RetryDelay <= 0 {
		errs = append(errs, errors.New("retry delay must be positive"))
	}
	if c.Round.MaxPuzzleAttempts < 1 {
		errs = append(errs, errors.New("max puzzle attempts must be at least 1"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) schedulerConfig() orchestrator.Config {
	return orchestrator.Config{
		RoundDuration:     c.Round.Duration,
		PendingDelay:      c.Round.PendingDelay,
		GraceDelay:        c.Round.GraceDelay,
		RetryDelay:        c.Round.RetryDelay,
		MaxPuzzleAttempts: c.Round.MaxPuzzleAttempts,
	}
}

func (c *Config) gatewayConfig() gateway.Config {
	gw := gateway.DefaultConfig()
	gw.RateLimitRPS = c.HTTP.RateLimitRPS
	gw.RateLimitBurst = c.HTTP.RateLimitBurst
	return gw
}

func (c *Config) relayConfig() relay.JetStreamConfig {
	js := relay.DefaultJetStreamConfig()
	js.StreamName = c.NATS.EventStream
	js.SubjectPrefix = c.NATS.SubjectPrefix
	return js
}

func (c *Config) ingestConfig() relay.IngestConfig {
	ic := relay.DefaultIngestConfig()
	ic.StreamName = c.NATS.ChatStream
	ic.ConsumerName = c.NATS.ChatConsumer
	ic.SubjectFilter = c.NATS.ChatSubject
	ic.Subjects = []string{c.NATS.ChatSubject}
	return ic
}

func setupLogging(level string) error {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}
