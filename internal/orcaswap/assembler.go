package orcaswap

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
)

// PrepareSwapParams describes one swap attempt to assemble. ToWallet nil
// means the destination token account does not exist yet and must be
// created as part of the swap.
type PrepareSwapParams struct {
	Owner      solana.PrivateKey
	FromWallet solana.PublicKey
	FromMint   solana.PublicKey
	ToWallet   *solana.PublicKey
	ToMint     solana.PublicKey

	BestPoolsPair PoolsPair
	Amount        float64 // human-readable, converted via the source token's decimals
	SlippageBps   uint16
	FeePayer      *solana.PublicKey // nil means the owner pays
}

func (p *PrepareSwapParams) feePayer() solana.PublicKey {
	if p.FeePayer != nil {
		return *p.FeePayer
	}
	return p.Owner.PublicKey()
}

// PrepareForSwapping builds the prepared transaction(s) implementing a
// direct or transitive swap. Returns the ordered transactions plus the
// newly created destination account's address, when one was created.
func (s *Service) PrepareForSwapping(ctx context.Context, params PrepareSwapParams) ([]PreparedSwapTransaction, *solana.PublicKey, error) {
	snap, err := s.requireSnapshot()
	if err != nil {
		return nil, nil, err
	}
	if !params.BestPoolsPair.Hydrated() {
		if len(params.BestPoolsPair) == 0 {
			return nil, nil, ErrSwapPoolsNotFound
		}
		return nil, nil, ErrPoolsNotHydrated
	}

	sourceToken, ok := snap.TokenByMint(params.FromMint)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrTokenNotFound, params.FromMint)
	}
	amountIn := BaseUnits(params.Amount, sourceToken.Decimals)
	if amountIn == 0 {
		return nil, nil, ErrInvalidAmount
	}

	minRent, err := s.chain.GetMinimumBalanceForRentExemption(ctx, chain.TokenAccountSpan)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch rent exemption: %w", err)
	}

	swapData, transferAuthority, err := prepareSwapData(params.BestPoolsPair, &amountIn, nil, params.SlippageBps)
	if err != nil {
		return nil, nil, err
	}

	switch data := swapData.(type) {
	case DirectSwapData:
		return s.prepareDirect(ctx, snap, params, data, transferAuthority, minRent)
	case TransitiveSwapData:
		return s.prepareTransitive(ctx, snap, params, data, transferAuthority, minRent)
	default:
		return nil, nil, ErrInvalidPoolsPair
	}
}

// prepareDirect assembles a single transaction: optional WSOL-wrap setup,
// the swap instruction, optional destination creation, and cleanup appended
// after the swap so it observes the post-swap balance.
func (s *Service) prepareDirect(
	ctx context.Context,
	snap *Snapshot,
	params PrepareSwapParams,
	data DirectSwapData,
	transferAuthority solana.PrivateKey,
	minRent uint64,
) ([]PreparedSwapTransaction, *solana.PublicKey, error) {
	feePayer := params.feePayer()

	source, err := s.prepareSource(params, data.AmountIn, minRent, feePayer)
	if err != nil {
		return nil, nil, err
	}

	exchange, exchangeFee, err := s.builder.ConstructExchange(ctx, ExchangeParams{
		Snapshot:          snap,
		Pool:              params.BestPoolsPair[0],
		Owner:             params.Owner.PublicKey(),
		FeePayer:          feePayer,
		Source:            source.Account,
		Destination:       params.ToWallet,
		DestinationMint:   params.ToMint,
		TransferAuthority: transferAuthority.PublicKey(),
		AmountIn:          data.AmountIn,
		MinimumAmountOut:  data.MinimumAmountOut,
		MinRentExemption:  minRent,
	})
	if err != nil {
		return nil, nil, err
	}

	tx := PreparedSwapTransaction{
		AccountCreationFee: source.fee + exchangeFee,
	}
	tx.Instructions = append(tx.Instructions, source.Instructions...)
	tx.Instructions = append(tx.Instructions, exchange.Instructions...)
	tx.Instructions = append(tx.Instructions, exchange.CleanupInstructions...)
	tx.Instructions = append(tx.Instructions, source.CleanupInstructions...)

	tx.Signers = append(tx.Signers, params.Owner)
	tx.Signers = append(tx.Signers, source.Signers...)
	tx.Signers = append(tx.Signers, exchange.Signers...)
	tx.Signers = append(tx.Signers, transferAuthority)

	var newWallet *solana.PublicKey
	if params.ToWallet == nil && !params.ToMint.Equals(chain.WrappedSOLMint) {
		created := exchange.Account
		newWallet = &created
	}
	return []PreparedSwapTransaction{tx}, newWallet, nil
}

// prepareTransitive assembles up to two transactions. Persistent associated
// accounts for the intermediary and destination are created in a first
// transaction; WSOL legs are deferred to the swap transaction as scratch
// create/close pairs. The first transaction is omitted when nothing needs
// creating ahead of time.
func (s *Service) prepareTransitive(
	ctx context.Context,
	snap *Snapshot,
	params PrepareSwapParams,
	data TransitiveSwapData,
	transferAuthority solana.PrivateKey,
	minRent uint64,
) ([]PreparedSwapTransaction, *solana.PublicKey, error) {
	feePayer := params.feePayer()
	owner := params.Owner.PublicKey()

	intermediaryName, _ := params.BestPoolsPair.IntermediaryTokenName()
	intermediaryToken, ok := snap.Tokens[intermediaryName]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrIntermediaryMintNotFound, intermediaryName)
	}
	intermediaryMint := intermediaryToken.Mint

	var setupTx *PreparedSwapTransaction
	addSetup := func(ix solana.Instruction) {
		if setupTx == nil {
			setupTx = &PreparedSwapTransaction{Signers: []solana.PrivateKey{params.Owner}}
		}
		setupTx.Instructions = append(setupTx.Instructions, ix)
		setupTx.AccountCreationFee += minRent
	}

	// Intermediary leg: persistent associated account created ahead of the
	// swap unless it already exists. WSOL intermediaries defer to a scratch
	// account inside the swap transaction.
	var intermediaryAccount *solana.PublicKey
	if !intermediaryMint.Equals(chain.WrappedSOLMint) {
		ata, _, err := chain.FindAssociatedTokenAddress(owner, intermediaryMint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive intermediary account: %w", err)
		}
		exists, err := s.chain.CheckIfAssociatedTokenAccountExists(ctx, owner, intermediaryMint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to check intermediary account: %w", err)
		}
		if !exists {
			addSetup(chain.NewCreateAssociatedTokenAccountIx(feePayer, ata, owner, intermediaryMint))
		}
		intermediaryAccount = &ata
	}

	// Destination leg: same rule.
	var destinationAccount *solana.PublicKey
	var newWallet *solana.PublicKey
	switch {
	case params.ToWallet != nil:
		destinationAccount = params.ToWallet
	case params.ToMint.Equals(chain.WrappedSOLMint):
		// deferred scratch account, built by the hop-two exchange
	default:
		ata, _, err := chain.FindAssociatedTokenAddress(owner, params.ToMint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive destination account: %w", err)
		}
		addSetup(chain.NewCreateAssociatedTokenAccountIx(feePayer, ata, owner, params.ToMint))
		destinationAccount = &ata
		created := ata
		newWallet = &created
	}

	source, err := s.prepareSource(params, data.From.AmountIn, minRent, feePayer)
	if err != nil {
		return nil, nil, err
	}

	exchange1, fee1, err := s.builder.ConstructExchange(ctx, ExchangeParams{
		Snapshot:          snap,
		Pool:              params.BestPoolsPair[0],
		Owner:             owner,
		FeePayer:          feePayer,
		Source:            source.Account,
		Destination:       intermediaryAccount,
		DestinationMint:   intermediaryMint,
		TransferAuthority: transferAuthority.PublicKey(),
		AmountIn:          data.From.AmountIn,
		MinimumAmountOut:  data.From.MinimumAmountOut,
		MinRentExemption:  minRent,
	})
	if err != nil {
		return nil, nil, err
	}

	exchange2, fee2, err := s.builder.ConstructExchange(ctx, ExchangeParams{
		Snapshot:          snap,
		Pool:              params.BestPoolsPair[1],
		Owner:             owner,
		FeePayer:          feePayer,
		Source:            exchange1.Account,
		Destination:       destinationAccount,
		DestinationMint:   params.ToMint,
		TransferAuthority: transferAuthority.PublicKey(),
		AmountIn:          data.To.AmountIn,
		MinimumAmountOut:  data.To.MinimumAmountOut,
		MinRentExemption:  minRent,
	})
	if err != nil {
		return nil, nil, err
	}

	swapTx := PreparedSwapTransaction{
		AccountCreationFee: source.fee + fee1 + fee2,
	}
	swapTx.Instructions = append(swapTx.Instructions, source.Instructions...)
	swapTx.Instructions = append(swapTx.Instructions, exchange1.Instructions...)
	swapTx.Instructions = append(swapTx.Instructions, exchange2.Instructions...)
	swapTx.Instructions = append(swapTx.Instructions, exchange2.CleanupInstructions...)
	swapTx.Instructions = append(swapTx.Instructions, exchange1.CleanupInstructions...)
	swapTx.Instructions = append(swapTx.Instructions, source.CleanupInstructions...)

	swapTx.Signers = append(swapTx.Signers, params.Owner)
	swapTx.Signers = append(swapTx.Signers, source.Signers...)
	swapTx.Signers = append(swapTx.Signers, exchange1.Signers...)
	swapTx.Signers = append(swapTx.Signers, exchange2.Signers...)
	swapTx.Signers = append(swapTx.Signers, transferAuthority)

	var txs []PreparedSwapTransaction
	if setupTx != nil {
		txs = append(txs, *setupTx)
	}
	txs = append(txs, swapTx)
	return txs, newWallet, nil
}

// sourceInstructions wraps the user's source account for one attempt. For
// native SOL it is a scratch WSOL account funded with the trade amount on
// top of rent; closed after the swap to refund the deposit.
type sourceInstructions struct {
	AccountInstructions
	fee uint64
}

func (s *Service) prepareSource(params PrepareSwapParams, amountIn, minRent uint64, feePayer solana.PublicKey) (*sourceInstructions, error) {
	if !params.FromMint.Equals(chain.WrappedSOLMint) {
		return &sourceInstructions{
			AccountInstructions: AccountInstructions{Account: params.FromWallet},
		}, nil
	}

	owner := params.Owner.PublicKey()
	scratch := solana.NewWallet().PrivateKey
	src := &sourceInstructions{fee: minRent}
	src.Account = scratch.PublicKey()
	src.Instructions = append(src.Instructions,
		chain.NewCreateAccountIx(feePayer, src.Account, minRent+amountIn, chain.TokenAccountSpan, solana.TokenProgramID),
		chain.NewTokenInitializeAccountIx(src.Account, chain.WrappedSOLMint, owner),
	)
	src.CleanupInstructions = append(src.CleanupInstructions,
		chain.NewTokenCloseAccountIx(src.Account, owner, owner),
	)
	src.Signers = append(src.Signers, scratch)
	return src, nil
}
