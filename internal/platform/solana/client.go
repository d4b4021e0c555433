// Package solana wraps the JSON-RPC client used to read IDL Protocol
// accounts and submit transactions.
package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/idlprotocol/idlbot/internal/domain"
)

// ParseCommitment maps a config string to an RPC commitment level.
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch s {
	case "processed":
		return rpc.CommitmentProcessed, nil
	case "confirmed":
		return rpc.CommitmentConfirmed, nil
	case "finalized":
		return rpc.CommitmentFinalized, nil
	default:
		return "", fmt.Errorf("solana: unknown commitment %q", s)
	}
}

// Client is a read-side wrapper around the Solana JSON-RPC API.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	logger     *slog.Logger
}

// NewClient creates a Client against the given RPC endpoint.
func NewClient(rpcURL string, commitment rpc.CommitmentType, logger *slog.Logger) *Client {
	return &Client{
		rpc:        rpc.New(rpcURL),
		commitment: commitment,
		logger:     logger.With(slog.String("component", "solana_client")),
	}
}

// KeyedAccount pairs an account address with its raw data.
type KeyedAccount struct {
	Pubkey solanago.PublicKey
	Data   []byte
}

// FetchAccount returns the raw bytes of a single account and the slot the
// read was served at. A missing account maps to domain.ErrNotFound.
func (c *Client) FetchAccount(ctx context.Context, address solanago.PublicKey) ([]byte, uint64, error) {
	out, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{Commitment: c.commitment})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, 0, domain.ErrNotFound
		}
		return nil, 0, fmt.Errorf("solana: fetch account %s: %w", address, err)
	}
	if out == nil || out.Value == nil {
		return nil, 0, domain.ErrNotFound
	}
	return out.Value.Data.GetBinary(), out.RPCContext.Context.Slot, nil
}

// FetchAccounts returns the raw bytes of several accounts in one call. The
// result slice is index-aligned with the input; missing accounts are nil.
func (c *Client) FetchAccounts(ctx context.Context, addresses []solanago.PublicKey) ([][]byte, uint64, error) {
	if len(addresses) == 0 {
		return nil, 0, nil
	}
	out, err := c.rpc.GetMultipleAccountsWithOpts(ctx, addresses, &rpc.GetMultipleAccountsOpts{Commitment: c.commitment})
	if err != nil {
		return nil, 0, fmt.Errorf("solana: fetch %d accounts: %w", len(addresses), err)
	}
	if out == nil || len(out.Value) != len(addresses) {
		return nil, 0, fmt.Errorf("solana: fetch accounts: got %d results, want %d", len(out.Value), len(addresses))
	}

	data := make([][]byte, len(addresses))
	for i, acc := range out.Value {
		if acc == nil {
			continue
		}
		data[i] = acc.Data.GetBinary()
	}
	return data, out.RPCContext.Context.Slot, nil
}

// ScanProgramAccounts returns every account owned by the program whose first
// eight bytes match the given account tag.
func (c *Client) ScanProgramAccounts(ctx context.Context, programID solanago.PublicKey, tag [8]byte) ([]KeyedAccount, error) {
	out, err := c.rpc.GetProgramAccountsWithOpts(ctx, programID, &rpc.GetProgramAccountsOpts{
		Commitment: c.commitment,
		Filters: []rpc.RPCFilter{
			{Memcmp: &rpc.RPCFilterMemcmp{Offset: 0, Bytes: solanago.Base58(tag[:])}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("solana: scan program accounts: %w", err)
	}

	accounts := make([]KeyedAccount, 0, len(out))
	for _, item := range out {
		if item == nil || item.Account == nil {
			continue
		}
		accounts = append(accounts, KeyedAccount{
			Pubkey: item.Pubkey,
			Data:   item.Account.Data.GetBinary(),
		})
	}
	return accounts, nil
}

// CurrentSlot returns the latest slot at the client's commitment level.
func (c *Client) CurrentSlot(ctx context.Context) (uint64, error) {
	slot, err := c.rpc.GetSlot(ctx, c.commitment)
	if err != nil {
		return 0, fmt.Errorf("solana: get slot: %w", err)
	}
	return slot, nil
}

// ClusterTime returns the cluster's block time, falling back to the local
// clock when the RPC node cannot serve it.
func (c *Client) ClusterTime(ctx context.Context) time.Time {
	slot, err := c.rpc.GetSlot(ctx, c.commitment)
	if err != nil {
		c.logger.WarnContext(ctx, "using local clock because getSlot failed",
			slog.String("error", err.Error()),
		)
		return time.Now()
	}

	blockTime, err := c.rpc.GetBlockTime(ctx, slot)
	if err != nil || blockTime == nil {
		c.logger.WarnContext(ctx, "using local clock because getBlockTime unavailable",
			slog.Uint64("slot", slot),
		)
		return time.Now()
	}
	return blockTime.Time()
}
