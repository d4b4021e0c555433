package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies IDLBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known IDLBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Solana ──
	setStr(&cfg.Solana.RpcURL, "IDLBOT_SOLANA_RPC_URL")
	setStr(&cfg.Solana.Commitment, "IDLBOT_SOLANA_COMMITMENT")
	setStr(&cfg.Solana.ProgramID, "IDLBOT_SOLANA_PROGRAM_ID")
	setBool(&cfg.Solana.SkipPreflight, "IDLBOT_SOLANA_SKIP_PREFLIGHT")
	setInt(&cfg.Solana.MaxRetries, "IDLBOT_SOLANA_MAX_RETRIES")
	setInt(&cfg.Solana.SendRatePerMin, "IDLBOT_SOLANA_SEND_RATE_PER_MIN")

	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "IDLBOT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "IDLBOT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "IDLBOT_WALLET_KEY_PASSWORD")
	setStr(&cfg.Wallet.KeypairPath, "IDLBOT_WALLET_KEYPAIR_PATH")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "IDLBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "IDLBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "IDLBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "IDLBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "IDLBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "IDLBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "IDLBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "IDLBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "IDLBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "IDLBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "IDLBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "IDLBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "IDLBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "IDLBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "IDLBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "IDLBOT_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLMinutes, "IDLBOT_REDIS_CACHE_TTL_MINUTES")
	setInt64(&cfg.Redis.StreamMaxLen, "IDLBOT_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "IDLBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "IDLBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "IDLBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "IDLBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "IDLBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "IDLBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "IDLBOT_S3_FORCE_PATH_STYLE")

	// ── Watcher ──
	setBool(&cfg.Watcher.Enabled, "IDLBOT_WATCHER_ENABLED")
	setDuration(&cfg.Watcher.PollInterval, "IDLBOT_WATCHER_POLL_INTERVAL")
	setDuration(&cfg.Watcher.SyncTimeout, "IDLBOT_WATCHER_SYNC_TIMEOUT")
	setDuration(&cfg.Watcher.ArchiveInterval, "IDLBOT_WATCHER_ARCHIVE_INTERVAL")
	setInt(&cfg.Watcher.ArchiveAfterDays, "IDLBOT_WATCHER_ARCHIVE_AFTER_DAYS")
	setInt(&cfg.Watcher.ArchiveBatchSize, "IDLBOT_WATCHER_ARCHIVE_BATCH_SIZE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "IDLBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "IDLBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "IDLBOT_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "IDLBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "IDLBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "IDLBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "IDLBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "IDLBOT_MODE")
	setStr(&cfg.LogLevel, "IDLBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
