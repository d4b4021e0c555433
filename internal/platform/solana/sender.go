package solana

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/idlprotocol/idlbot/internal/crypto"
	"github.com/idlprotocol/idlbot/internal/domain"
)

// submitRateKey is the rate-limiter bucket shared by all transaction sends.
const submitRateKey = "solana:send"

// confirmPollInterval is how often the sender polls signature statuses.
const confirmPollInterval = 700 * time.Millisecond

// SenderOpts tunes transaction submission.
type SenderOpts struct {
	SkipPreflight  bool
	MaxRetries     uint // 0 leaves the node default in place
	SendRatePerMin int
}

// Sender signs and submits transactions, then waits for confirmation.
type Sender struct {
	rpc     *rpc.Client
	wallet  *crypto.Wallet
	limiter domain.RateLimiter
	opts    SenderOpts

	commitment rpc.CommitmentType
	logger     *slog.Logger
}

// NewSender creates a Sender sharing the Client's RPC connection.
func NewSender(client *Client, wallet *crypto.Wallet, limiter domain.RateLimiter, opts SenderOpts, logger *slog.Logger) *Sender {
	return &Sender{
		rpc:        client.rpc,
		wallet:     wallet,
		limiter:    limiter,
		opts:       opts,
		commitment: client.commitment,
		logger:     logger.With(slog.String("component", "solana_sender")),
	}
}

// Payer returns the fee-payer public key used for submissions.
func (s *Sender) Payer() solanago.PublicKey {
	return s.wallet.PublicKey()
}

// Submit signs the instructions with the sender's wallet, submits the
// transaction and blocks until it is confirmed or ctx is done. The
// distributed rate limiter gates submissions across all processes sharing
// the wallet.
func (s *Sender) Submit(ctx context.Context, instructions []solanago.Instruction) (solanago.Signature, error) {
	if s.limiter != nil && s.opts.SendRatePerMin > 0 {
		ok, err := s.limiter.Allow(ctx, submitRateKey, s.opts.SendRatePerMin, time.Minute)
		if err != nil {
			return solanago.Signature{}, fmt.Errorf("solana: rate limiter: %w", err)
		}
		if !ok {
			return solanago.Signature{}, domain.ErrRateLimited
		}
	}

	recent, err := s.rpc.GetLatestBlockhash(ctx, s.commitment)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("solana: get latest blockhash: %w", err)
	}

	tx, err := solanago.NewTransaction(
		instructions,
		recent.Value.Blockhash,
		solanago.TransactionPayer(s.wallet.PublicKey()),
	)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("solana: build transaction: %w", err)
	}

	if _, err := tx.Sign(s.wallet.Signer()); err != nil {
		return solanago.Signature{}, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}

	opts := rpc.TransactionOpts{
		SkipPreflight:       s.opts.SkipPreflight,
		PreflightCommitment: s.commitment,
	}
	if s.opts.MaxRetries > 0 {
		retries := s.opts.MaxRetries
		opts.MaxRetries = &retries
	}

	sig, err := s.rpc.SendTransactionWithOpts(ctx, tx, opts)
	if err != nil {
		return solanago.Signature{}, fmt.Errorf("solana: send transaction: %w", err)
	}

	s.logger.InfoContext(ctx, "transaction submitted",
		slog.String("signature", sig.String()),
	)

	if err := s.waitForConfirmation(ctx, sig); err != nil {
		return sig, err
	}
	return sig, nil
}

func (s *Sender) waitForConfirmation(ctx context.Context, sig solanago.Signature) error {
	ticker := time.NewTicker(confirmPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			result, err := s.rpc.GetSignatureStatuses(ctx, true, sig)
			if err != nil {
				continue
			}
			if len(result.Value) == 0 || result.Value[0] == nil {
				continue
			}
			status := result.Value[0]
			if status.Err != nil {
				return fmt.Errorf("solana: transaction %s failed: %v", sig, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}
	}
}
