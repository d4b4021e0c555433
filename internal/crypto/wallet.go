package crypto

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Wallet wraps an ed25519 keypair and exposes the pieces transaction
// submission needs: the fee-payer public key and the signing callback.
type Wallet struct {
	key    solana.PrivateKey
	pubkey solana.PublicKey
}

// NewWallet creates a Wallet from a resolved private key.
func NewWallet(key solana.PrivateKey) (*Wallet, error) {
	if len(key) != ed25519KeyLen {
		return nil, fmt.Errorf("crypto: wallet key is %d bytes, want %d", len(key), ed25519KeyLen)
	}
	return &Wallet{
		key:    key,
		pubkey: key.PublicKey(),
	}, nil
}

// LoadWallet resolves a key via LoadKey and wraps it in a Wallet.
func LoadWallet(cfg KeyConfig) (*Wallet, error) {
	key, err := LoadKey(cfg)
	if err != nil {
		return nil, err
	}
	return NewWallet(key)
}

// PublicKey returns the wallet's public key.
func (w *Wallet) PublicKey() solana.PublicKey {
	return w.pubkey
}

// Signer returns the callback solana.Transaction.Sign expects. It answers
// only for the wallet's own key.
func (w *Wallet) Signer() func(key solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		if w.pubkey.Equals(key) {
			return &w.key
		}
		return nil
	}
}
