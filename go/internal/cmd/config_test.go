package main

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"PORT", "LOG_LEVEL", "PUZZLE_SOURCE", "PUZZLE_FILE",
	"ROUND_DURATION", "PENDING_DELAY", "GRACE_DELAY", "RETRY_DELAY", "MAX_PUZZLE_ATTEMPTS",
	"CORS_ALLOWED_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"NATS_URL", "EVENT_RELAY_ENABLED", "EVENT_STREAM", "EVENT_SUBJECT_PREFIX",
	"CHAT_INGEST_ENABLED", "CHAT_STREAM", "CHAT_CONSUMER", "CHAT_SUBJECT",
}

// unsetEnv clears keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfig_MissingOptionalFileUsesDefaults(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), false)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "8080" || cfg.Puzzles.Source != "file" || cfg.Puzzles.File != "puzzles.json" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Round.Duration != 120*time.Second || cfg.Round.PendingDelay != 3*time.Second ||
		cfg.Round.GraceDelay != 10*time.Second || cfg.Round.MaxPuzzleAttempts != 10 {
		t.Fatalf("round = %+v", cfg.Round)
	}
	if !reflect.DeepEqual(cfg.HTTP.AllowedOrigins, []string{"*"}) {
		t.Fatalf("origins = %v", cfg.HTTP.AllowedOrigins)
	}
	if cfg.NATS.RelayEnabled || cfg.NATS.IngestEnabled {
		t.Fatal("NATS features should be off by default")
	}
}

func TestLoadConfig_MissingRequiredFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), true); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	path := writeConfig(t, `
port: "9000"
log_level: debug
puzzles:
  source: postgres
round:
  duration: 90s
  grace_delay: 5s
http:
  allowed_origins: ["https://example.com"]
nats:
  relay_enabled: true
  subject_prefix: game.events
`)
	t.Setenv("ROUND_DURATION", "45s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.test,https://b.test")

	cfg, err := loadConfig(path, true)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9000" || cfg.LogLevel != "debug" || cfg.Puzzles.Source != "postgres" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Round.Duration != 45*time.Second {
		t.Fatalf("env should override file duration, got %v", cfg.Round.Duration)
	}
	if cfg.Round.GraceDelay != 5*time.Second || cfg.Round.PendingDelay != 3*time.Second {
		t.Fatalf("round = %+v", cfg.Round)
	}
	if !reflect.DeepEqual(cfg.HTTP.AllowedOrigins, []string{"https://a.test", "https://b.test"}) {
		t.Fatalf("origins = %v", cfg.HTTP.AllowedOrigins)
	}
	if !cfg.NATS.RelayEnabled || cfg.relayConfig().SubjectPrefix != "game.events" {
		t.Fatalf("nats = %+v", cfg.NATS)
	}

	sched := cfg.schedulerConfig()
	if sched.RoundDuration != 45*time.Second || sched.GraceDelay != 5*time.Second {
		t.Fatalf("scheduler config = %+v", sched)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	unsetEnv(t, configEnvKeys...)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad source", "puzzles:\n  source: redis\n", "puzzle source"},
		{"zero duration", "round:\n  duration: 0s\n", "round duration"},
		{"negative grace", "round:\n  grace_delay: -1s\n", "cannot be negative"},
		{"no attempts", "round:\n  max_puzzle_attempts: 0\n", "at least 1"},
		{"bad yaml", "round: [", "failed to parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.body), true)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestIngestConfigUsesChatSubject(t *testing.T) {
	cfg := defaultConfig()
	cfg.NATS.ChatSubject = "live.chat.>"
	ic := cfg.ingestConfig()
	if ic.SubjectFilter != "live.chat.>" || !reflect.DeepEqual(ic.Subjects, []string{"live.chat.>"}) {
		t.Fatalf("ingest config = %+v", ic)
	}
}

func TestSetupLogging(t *testing.T) {
	if err := setupLogging("warn"); err != nil {
		t.Fatal(err)
	}
	if err := setupLogging("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	setupLogging("info")
}
