package orcaswap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
)

// Wallet references one of the user's token accounts.
type Wallet struct {
	Pubkey solana.PublicKey
	Mint   solana.PublicKey
}

// NetworkFeesParams describes a prospective swap for fee estimation.
type NetworkFeesParams struct {
	Owner          solana.PublicKey
	MyWalletsMints []solana.PublicKey // mints the user already holds accounts for
	FromWallet     Wallet
	ToWallet       *Wallet // nil when the destination account does not exist yet
	BestPoolsPair  PoolsPair

	LamportsPerSignature uint64
	MinRentExemption     uint64
}

// GetNetworkFees estimates the signature and rent costs of a prospective
// swap, keeping the three fee buckets separate. Signature fees are spent;
// the deposit bucket is refunded when WSOL scratch accounts close; account
// balances are recoverable only by closing the created token accounts.
func (s *Service) GetNetworkFees(ctx context.Context, params NetworkFeesParams) (*FeeAmount, error) {
	snap, err := s.requireSnapshot()
	if err != nil {
		return nil, err
	}
	if len(params.BestPoolsPair) == 0 || len(params.BestPoolsPair) > 2 {
		return nil, ErrInvalidPoolsPair
	}

	var fees FeeAmount
	numberOfTransactions := uint64(1)

	var intermediaryMint *solana.PublicKey
	if len(params.BestPoolsPair) == 2 {
		name, _ := params.BestPoolsPair.IntermediaryTokenName()
		token, ok := snap.Tokens[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrIntermediaryMintNotFound, name)
		}
		intermediaryMint = &token.Mint

		// A missing intermediary account forces the account-creation
		// transaction ahead of the swap transaction. WSOL legs are exempt:
		// their scratch accounts ride inside the swap transaction.
		if !token.Mint.Equals(chain.WrappedSOLMint) && !mintInSet(token.Mint, params.MyWalletsMints) {
			numberOfTransactions++
		}
	}

	fees.Transaction = numberOfTransactions * params.LamportsPerSignature

	// wrapping native SOL adds a scratch-account signature and a refundable
	// rent deposit
	if params.FromWallet.Mint.Equals(chain.WrappedSOLMint) {
		fees.Transaction += params.LamportsPerSignature
		fees.Deposit += params.MinRentExemption
	}

	if intermediaryMint != nil {
		if intermediaryMint.Equals(chain.WrappedSOLMint) {
			fees.Transaction += params.LamportsPerSignature
			fees.Deposit += params.MinRentExemption
		} else {
			exists, err := s.chain.CheckIfAssociatedTokenAccountExists(ctx, params.Owner, *intermediaryMint)
			if err != nil {
				return nil, fmt.Errorf("failed to check intermediary account: %w", err)
			}
			if !exists {
				fees.AccountBalances += params.MinRentExemption
			}
		}
	}

	if params.ToWallet == nil {
		fees.AccountBalances += params.MinRentExemption
	}

	return &fees, nil
}

func mintInSet(mint solana.PublicKey, set []solana.PublicKey) bool {
	for _, m := range set {
		if m.Equals(mint) {
			return true
		}
	}
	return false
}
