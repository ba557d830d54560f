package orcaswap

import (
	"context"
	"errors"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/chain"
	"github.com/p2p-org/p2p-wallet-web-sub001/internal/rpc"
)

// SwapState names the stages of one staged execution.
type SwapState string

const (
	StatePreparing            SwapState = "PREPARING"
	StateSubmittingFirst      SwapState = "SUBMITTING_FIRST"
	StateAwaitingConfirmation SwapState = "AWAITING_CONFIRMATION"
	StateSubmittingSecond     SwapState = "SUBMITTING_SECOND"
	StateDone                 SwapState = "DONE"
	StateFailed               SwapState = "FAILED"
)

// BackoffPolicy is a value describing bounded exponential backoff.
// MaxElapsed zero means retry until the context is cancelled.
type BackoffPolicy struct {
	BaseDelay  time.Duration
	Multiplier float64
	MaxDelay   time.Duration
	MaxElapsed time.Duration
}

// DefaultBackoffPolicy matches the second-leg submission schedule: start at
// one second, double each attempt, cap at sixty seconds.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		BaseDelay:  time.Second,
		Multiplier: 2,
		MaxDelay:   60 * time.Second,
	}
}

// RetryClassifier decides whether a submission error is worth retrying.
type RetryClassifier func(error) bool

// DefaultRetryClassifier retries transport failures, rate limiting,
// node-behind responses and confirmation timeouts. On-chain transaction
// failures and program rejections are never retried: resubmitting a
// logically failed swap could duplicate its effects.
func DefaultRetryClassifier(err error) bool {
	var txErr *chain.TransactionError
	if errors.As(err, &txErr) {
		return false
	}
	var rpcErr *rpc.RPCError
	if errors.As(err, &rpcErr) {
		if rpcErr.IsProgramError() {
			return false
		}
		return rpcErr.IsTransient()
	}
	if errors.Is(err, rpc.ErrRateLimited) || errors.Is(err, chain.ErrConfirmationTimeout) {
		return true
	}
	// anything else is assumed to be a transport-level failure
	return true
}

// retryWithBackoff runs fn under the policy until it succeeds, a
// non-retryable error is classified, the elapsed budget runs out, or the
// context is cancelled.
func retryWithBackoff(ctx context.Context, policy BackoffPolicy, retryable RetryClassifier, fn func() error) error {
	delay := policy.BaseDelay
	start := time.Now()
	for {
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if policy.MaxElapsed > 0 && time.Since(start) >= policy.MaxElapsed {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * policy.Multiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}
}

// SwapParams drives a full swap execution: assembly plus staged submission.
type SwapParams struct {
	PrepareSwapParams

	// IsSimulation dry-runs the submission. Ignored for the first leg of a
	// transitive swap: its account-creation side effects are required for
	// the second leg to succeed.
	IsSimulation bool

	Backoff   *BackoffPolicy  // nil means DefaultBackoffPolicy
	Retryable RetryClassifier // nil means DefaultRetryClassifier
	OnState   func(SwapState) // optional state-transition hook
}

// Swap assembles and submits a swap end to end. For a transitive swap the
// second transaction is submitted only after the first has confirmed, under
// bounded-backoff retry. Returns the signature of the last submitted
// transaction and the newly created destination account, if any.
func (s *Service) Swap(ctx context.Context, params SwapParams) (*SwapResult, error) {
	notify := params.OnState
	if notify == nil {
		notify = func(SwapState) {}
	}
	policy := DefaultBackoffPolicy()
	if params.Backoff != nil {
		policy = *params.Backoff
	}
	retryable := params.Retryable
	if retryable == nil {
		retryable = DefaultRetryClassifier
	}

	notify(StatePreparing)
	txs, newWallet, err := s.PrepareForSwapping(ctx, params.PrepareSwapParams)
	if err != nil {
		notify(StateFailed)
		return nil, err
	}

	feePayer := params.feePayer()

	switch len(txs) {
	case 1:
		notify(StateSubmittingFirst)
		sig, err := s.submit(ctx, feePayer, txs[0], params.IsSimulation)
		if err != nil {
			notify(StateFailed)
			return nil, err
		}
		notify(StateDone)
		return &SwapResult{TransactionID: sig, NewWalletAddress: newWallet}, nil

	case 2:
		notify(StateSubmittingFirst)
		firstSig, err := s.submit(ctx, feePayer, txs[0], false)
		if err != nil {
			notify(StateFailed)
			return nil, err
		}

		// The swap transaction references accounts the first transaction
		// just created; submission order is a correctness requirement.
		notify(StateAwaitingConfirmation)
		if err := s.chain.WaitForConfirmation(ctx, firstSig); err != nil {
			notify(StateFailed)
			return nil, err
		}

		notify(StateSubmittingSecond)
		var lastSig string
		err = retryWithBackoff(ctx, policy, retryable, func() error {
			sig, err := s.submit(ctx, feePayer, txs[1], params.IsSimulation)
			if err != nil {
				s.logger.WithError(err).Warn("second swap transaction failed, retrying")
				return err
			}
			lastSig = sig
			return nil
		})
		if err != nil {
			notify(StateFailed)
			return nil, err
		}
		notify(StateDone)
		return &SwapResult{TransactionID: lastSig, NewWalletAddress: newWallet}, nil

	default:
		// unreachable given the assembler's contract, still checked
		notify(StateFailed)
		return nil, ErrInvalidNumberOfTransactions
	}
}

// submit signs against a fresh blockhash and sends one prepared
// transaction.
func (s *Service) submit(ctx context.Context, feePayer solana.PublicKey, tx PreparedSwapTransaction, isSimulation bool) (string, error) {
	prepared, err := s.chain.PrepareTransaction(ctx, chain.PrepareTransactionParams{
		Instructions:        tx.Instructions,
		Signers:             tx.Signers,
		FeePayer:            feePayer,
		AccountsCreationFee: tx.AccountCreationFee,
	})
	if err != nil {
		return "", err
	}
	sig, err := s.chain.SerializeAndSend(ctx, prepared, isSimulation)
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"signature":  sig,
		"simulation": isSimulation,
	}).Info("swap transaction submitted")
	return sig, nil
}
