package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := map[string]func(*Config){
		"unknown mode":        func(c *Config) { c.Mode = "scrape" },
		"unknown log level":   func(c *Config) { c.LogLevel = "verbose" },
		"empty rpc url":       func(c *Config) { c.Solana.RpcURL = "" },
		"bad commitment":      func(c *Config) { c.Solana.Commitment = "Confirmed" },
		"empty program id":    func(c *Config) { c.Solana.ProgramID = "" },
		"missing password":    func(c *Config) { c.Wallet.EncryptedKeyPath = "/tmp/key.json" },
		"bad postgres port":   func(c *Config) { c.Postgres.Port = 0 },
		"pool min above max":  func(c *Config) { c.Postgres.PoolMinConns = 20 },
		"empty redis addr":    func(c *Config) { c.Redis.Addr = "" },
		"zero cache ttl":      func(c *Config) { c.Redis.CacheTTLMinutes = 0 },
		"empty bucket":        func(c *Config) { c.S3.Bucket = "" },
		"zero poll interval":  func(c *Config) { c.Watcher.PollInterval = duration{} },
		"bad server port":     func(c *Config) { c.Server.Port = 70000 },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "watch"
log_level = "debug"

[solana]
rpc_url = "http://localhost:8899"
commitment = "processed"

[watcher]
poll_interval = "10s"

[redis]
cache_ttl_minutes = 5
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "watch", cfg.Mode)
	assert.Equal(t, "http://localhost:8899", cfg.Solana.RpcURL)
	assert.Equal(t, "processed", cfg.Solana.Commitment)
	assert.Equal(t, 10*time.Second, cfg.Watcher.PollInterval.Duration)
	assert.Equal(t, 5, cfg.Redis.CacheTTLMinutes)

	// Untouched sections keep their defaults.
	assert.Equal(t, "BSn7neicVV2kEzgaZmd6tZEBm4tdgzBRyELov65Lq7dt", cfg.Solana.ProgramID)
	assert.Equal(t, 8000, cfg.Server.Port)

	require.NoError(t, cfg.Validate())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IDLBOT_SOLANA_RPC_URL", "https://rpc.example.com")
	t.Setenv("IDLBOT_WALLET_PRIVATE_KEY", "base58secret")
	t.Setenv("IDLBOT_WATCHER_POLL_INTERVAL", "45s")
	t.Setenv("IDLBOT_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("IDLBOT_SOLANA_SKIP_PREFLIGHT", "true")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "https://rpc.example.com", cfg.Solana.RpcURL)
	assert.Equal(t, "base58secret", cfg.Wallet.PrivateKey)
	assert.Equal(t, 45*time.Second, cfg.Watcher.PollInterval.Duration)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.Solana.SkipPreflight)
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "supersecret"
	cfg.Postgres.Password = "dbpass"
	cfg.Redis.Password = "redispass"
	cfg.S3.SecretKey = "s3secret"
	cfg.Notify.TelegramToken = "tg-token"

	red := RedactedConfig(&cfg)

	assert.Equal(t, "***", red.Wallet.PrivateKey)
	assert.Equal(t, "***", red.Postgres.Password)
	assert.Equal(t, "***", red.Redis.Password)
	assert.Equal(t, "***", red.S3.SecretKey)
	assert.Equal(t, "***", red.Notify.TelegramToken)

	// Original must be untouched.
	assert.Equal(t, "supersecret", cfg.Wallet.PrivateKey)

	// Empty secrets stay empty rather than becoming "***".
	assert.Empty(t, red.Wallet.KeyPassword)

	// Mutating the redacted copy's slices must not reach the original.
	red.Notify.Events[0] = "mutated"
	assert.Equal(t, "market_resolved", cfg.Notify.Events[0])
}
