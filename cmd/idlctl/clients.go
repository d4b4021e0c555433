package main

import (
	"context"
	"fmt"
	"time"

	solanago "github.com/gagliardetto/solana-go"

	s3blob "github.com/idlprotocol/idlbot/internal/blob/s3"
	"github.com/idlprotocol/idlbot/internal/cache/redis"
	"github.com/idlprotocol/idlbot/internal/crypto"
	"github.com/idlprotocol/idlbot/internal/notify"
	"github.com/idlprotocol/idlbot/internal/platform/solana"
	"github.com/idlprotocol/idlbot/internal/service"
	"github.com/idlprotocol/idlbot/internal/store/postgres"
)

// toolbox holds the dialed infrastructure and services for one command
// invocation. Commands dial only what they touch: reads skip the wallet,
// archive inspection skips the database.
type toolbox struct {
	chain *solana.Client
	rdb   *redis.Client

	market *service.MarketService
	bet    *service.BetService
	stake  *service.StakeService
	admin  *service.AdminService

	closers []func()
}

func (t *toolbox) Close() {
	for i := len(t.closers) - 1; i >= 0; i-- {
		t.closers[i]()
	}
}

// dial builds the read-only service stack: Postgres, Redis, and the chain
// client. Migrations are left to the daemon; the CLI assumes the schema is in
// place.
func dial(ctx context.Context) (*toolbox, error) {
	t := &toolbox{}

	programID, err := solanago.PublicKeyFromBase58(cfg.Solana.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}
	commitment, err := solana.ParseCommitment(cfg.Solana.Commitment)
	if err != nil {
		return nil, err
	}
	t.chain = solana.NewClient(cfg.Solana.RpcURL, commitment, logger)

	pg, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	t.closers = append(t.closers, pg.Close)

	t.rdb, err = redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		t.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := t.rdb
	t.closers = append(t.closers, func() { _ = rdb.Close() })

	cacheTTL := time.Duration(cfg.Redis.CacheTTLMinutes) * time.Minute
	pool := pg.Pool()
	markets := postgres.NewMarketStore(pool)
	bets := postgres.NewBetStore(pool)
	audit := postgres.NewAuditStore(pool)
	marketCache := redis.NewMarketCache(rdb, cacheTTL)
	stateCache := redis.NewStateCache(rdb, cacheTTL)
	locks := redis.NewLockManager(rdb)
	bus := redis.NewSignalBus(rdb, cfg.Redis.StreamMaxLen)

	t.market = service.NewMarketService(programID, t.chain, markets, marketCache, stateCache, bus, audit, logger)
	t.bet = service.NewBetService(programID, t.chain, t.market, t.market, bets, locks, audit, bus, logger)
	t.stake = service.NewStakeService(programID, t.chain, t.market, audit, bus, logger)
	t.admin = service.NewAdminService(t.market, t.market, audit, bus, logger).WithNotifier(newNotifier())

	return t, nil
}

// withSigner loads the wallet and attaches a transaction sender to every
// service. Commands that submit call this after dial. The submission rate
// limiter lives in the shared Redis, so CLI sends count against the same
// budget as any daemon using the wallet.
func (t *toolbox) withSigner() error {
	wallet, err := crypto.LoadWallet(crypto.KeyConfig{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
		KeygenPath:       cfg.Wallet.KeypairPath,
	})
	if err != nil {
		return fmt.Errorf("load wallet: %w", err)
	}

	sender := solana.NewSender(t.chain, wallet, redis.NewRateLimiter(t.rdb), solana.SenderOpts{
		SkipPreflight:  cfg.Solana.SkipPreflight,
		MaxRetries:     uint(cfg.Solana.MaxRetries),
		SendRatePerMin: cfg.Solana.SendRatePerMin,
	}, logger)

	t.market.WithSender(sender)
	t.bet.WithSender(sender)
	t.stake.WithSender(sender)
	t.admin.WithSender(sender)
	return nil
}

// dialBlob builds only the S3 reader, for archive inspection.
func dialBlob(ctx context.Context) (*s3blob.Reader, func(), error) {
	client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("s3: %w", err)
	}
	return s3blob.NewReader(client), func() { _ = client.Close() }, nil
}

func newNotifier() *notify.Notifier {
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	return notify.NewNotifier(senders, cfg.Notify.Events, logger)
}
