package chain

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Account wraps a signing keypair (the swap owner / fee payer).
type Account struct {
	priv solana.PrivateKey
	pub  solana.PublicKey
}

// NewAccount parses a base58-encoded 64-byte private key or a
// solana-keygen JSON byte array.
func NewAccount(privateKey string) (*Account, error) {
	priv, err := parsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}
	return &Account{priv: priv, pub: priv.PublicKey()}, nil
}

func (a *Account) PublicKey() solana.PublicKey   { return a.pub }
func (a *Account) PrivateKey() solana.PrivateKey { return a.priv }
func (a *Account) Address() string               { return a.pub.String() }

func parsePrivateKey(s string) (solana.PrivateKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("account: private key is required")
	}
	if strings.HasPrefix(s, "[") {
		var ints []int
		if err := json.Unmarshal([]byte(s), &ints); err != nil {
			return nil, fmt.Errorf("account: invalid JSON private key: %w", err)
		}
		b := make([]byte, len(ints))
		for i, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("account: invalid byte at %d: %d", i, v)
			}
			b[i] = byte(v)
		}
		if len(b) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("account: expected %d bytes, got %d", ed25519.PrivateKeySize, len(b))
		}
		return solana.PrivateKey(ed25519.PrivateKey(b)), nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("account: invalid base58 private key: %w", err)
	}
	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("account: expected %d bytes, got %d", ed25519.PrivateKeySize, len(raw))
	}
	return solana.PrivateKey(ed25519.PrivateKey(raw)), nil
}
