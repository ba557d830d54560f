package orcaswap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
)

// AccountInstructions groups the instructions realizing one hop of a swap
// with the scratch signers and cleanup they require. Cleanup instructions
// must run after the swap instruction they belong to: closing a WSOL
// account before the swap would destroy the balance the swap just produced.
type AccountInstructions struct {
	Instructions        []solana.Instruction
	CleanupInstructions []solana.Instruction
	Signers             []solana.PrivateKey // scratch-account keys only, never the transfer authority
	Account             solana.PublicKey    // destination token account of this hop
}

// ExchangeParams is the input to one hop's instruction construction.
// Destination nil means the builder must create the destination account
// itself: a single-use WSOL scratch account when DestinationMint is the
// native pseudo-mint, a persistent associated account otherwise.
type ExchangeParams struct {
	Snapshot          *Snapshot
	Pool              Pool // oriented, hydrated
	Owner             solana.PublicKey
	FeePayer          solana.PublicKey
	Source            solana.PublicKey
	Destination       *solana.PublicKey
	DestinationMint   solana.PublicKey
	TransferAuthority solana.PublicKey
	AmountIn          uint64
	MinimumAmountOut  uint64
	MinRentExemption  uint64
}

// InstructionBuilder is where chain-specific instruction encoding lives.
// ConstructExchange returns the hop's account instructions plus the
// lamports spent creating new accounts.
type InstructionBuilder interface {
	ConstructExchange(ctx context.Context, params ExchangeParams) (*AccountInstructions, uint64, error)
}

// TokenSwapBuilder encodes hops against the SPL Token Swap program.
type TokenSwapBuilder struct {
	chain BlockchainClient
}

func NewTokenSwapBuilder(client BlockchainClient) *TokenSwapBuilder {
	return &TokenSwapBuilder{chain: client}
}

func (b *TokenSwapBuilder) ConstructExchange(ctx context.Context, params ExchangeParams) (*AccountInstructions, uint64, error) {
	if !params.Pool.Hydrated() {
		return nil, 0, ErrPoolsNotHydrated
	}

	result := &AccountInstructions{}
	var accountCreationFee uint64

	switch {
	case params.Destination != nil:
		result.Account = *params.Destination

	case params.DestinationMint.Equals(chain.WrappedSOLMint):
		// single-use scratch account: created here, closed in cleanup
		scratch := solana.NewWallet().PrivateKey
		result.Account = scratch.PublicKey()
		result.Instructions = append(result.Instructions,
			chain.NewCreateAccountIx(params.FeePayer, result.Account, params.MinRentExemption, chain.TokenAccountSpan, solana.TokenProgramID),
			chain.NewTokenInitializeAccountIx(result.Account, chain.WrappedSOLMint, params.Owner),
		)
		result.CleanupInstructions = append(result.CleanupInstructions,
			chain.NewTokenCloseAccountIx(result.Account, params.Owner, params.Owner),
		)
		result.Signers = append(result.Signers, scratch)
		accountCreationFee += params.MinRentExemption

	default:
		ata, _, err := chain.FindAssociatedTokenAddress(params.Owner, params.DestinationMint)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to derive associated account: %w", err)
		}
		result.Account = ata
		result.Instructions = append(result.Instructions,
			chain.NewCreateAssociatedTokenAccountIx(params.FeePayer, ata, params.Owner, params.DestinationMint),
		)
		accountCreationFee += params.MinRentExemption
	}

	result.Instructions = append(result.Instructions,
		chain.NewTokenApproveIx(params.Source, params.TransferAuthority, params.Owner, params.AmountIn),
	)

	swapIx, err := chain.NewTokenSwapIx(chain.TokenSwapIxParams{
		ProgramID:         params.Snapshot.ProgramIDs.TokenSwap,
		SwapAccount:       params.Pool.Account,
		Authority:         params.Pool.Authority,
		TransferAuthority: params.TransferAuthority,
		UserSource:        params.Source,
		PoolSource:        params.Pool.TokenAccountA,
		PoolDestination:   params.Pool.TokenAccountB,
		UserDestination:   result.Account,
		PoolMint:          params.Pool.PoolTokenMint,
		FeeAccount:        params.Pool.FeeAccount,
		HostFeeAccount:    params.Pool.HostFeeAccount,
		AmountIn:          params.AmountIn,
		MinAmountOut:      params.MinimumAmountOut,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build swap instruction: %w", err)
	}
	result.Instructions = append(result.Instructions, swapIx)

	return result, accountCreationFee, nil
}
