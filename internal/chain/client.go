package chain

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/rpc"
)

// ErrConfirmationTimeout is returned when a submitted transaction is not
// confirmed before the configured deadline. Distinct from an on-chain
// failure: the transaction may still land, so callers treat it as retryable
// at their own discretion.
var ErrConfirmationTimeout = errors.New("transaction confirmation timeout")

// TransactionError is an on-chain transaction failure reported by the
// cluster. Never retried: resubmitting a logically failed swap could
// duplicate effects.
type TransactionError struct {
	Detail any
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction failed: %v", e.Detail)
}

// ClientConfig holds configuration for the blockchain client
type ClientConfig struct {
	RPCURL         string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Commitment     string // e.g. "confirmed"
	ConfirmTimeout time.Duration
	Logger         *logrus.Logger
}

// Client talks to a Solana RPC endpoint: account state, rent exemption,
// transaction preparation, submission and confirmation polling.
type Client struct {
	rpc            *rpc.Client
	commitment     string
	confirmTimeout time.Duration
	logger         *logrus.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.RPCURL == "" {
		return nil, fmt.Errorf("solana client: RPCURL is required")
	}
	if cfg.Commitment == "" {
		cfg.Commitment = "confirmed"
	}
	if cfg.ConfirmTimeout == 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCURL,
		Timeout:      cfg.Timeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       cfg.Logger,
	})

	return &Client{
		rpc:            rpcClient,
		commitment:     cfg.Commitment,
		confirmTimeout: cfg.ConfirmTimeout,
		logger:         cfg.Logger,
	}, nil
}

// GetMinimumBalanceForRentExemption returns the lamports needed to make an
// account of the given byte span rent exempt.
func (c *Client) GetMinimumBalanceForRentExemption(ctx context.Context, span uint64) (uint64, error) {
	var resp struct {
		Result uint64        `json:"result"`
		Error  *rpc.RPCError `json:"error"`
	}

	params := []any{span}
	if err := c.rpc.Call(ctx, "getMinimumBalanceForRentExemption", params, &resp); err != nil {
		return 0, fmt.Errorf("getMinimumBalanceForRentExemption failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getMinimumBalanceForRentExemption error: %w", resp.Error)
	}
	return resp.Result, nil
}

// GetTokenAccountBalance fetches the raw token balance of an SPL account,
// used to hydrate pool vault reserves.
func (c *Client) GetTokenAccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	var resp struct {
		Result struct {
			Value struct {
				Amount   string `json:"amount"`
				Decimals uint8  `json:"decimals"`
			} `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		account.String(),
		map[string]any{"commitment": c.commitment},
	}
	if err := c.rpc.Call(ctx, "getTokenAccountBalance", params, &resp); err != nil {
		return 0, fmt.Errorf("getTokenAccountBalance failed: %w", err)
	}
	if resp.Error != nil {
		return 0, fmt.Errorf("getTokenAccountBalance error: %w", resp.Error)
	}

	var amount uint64
	if _, err := fmt.Sscanf(resp.Result.Value.Amount, "%d", &amount); err != nil {
		return 0, fmt.Errorf("invalid amount format: %w", err)
	}
	return amount, nil
}

// AccountExists checks whether an account exists on-chain.
func (c *Client) AccountExists(ctx context.Context, pubkey solana.PublicKey) (bool, error) {
	var resp struct {
		Result struct {
			Value any `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		pubkey.String(),
		map[string]any{
			"encoding":   "base64",
			"commitment": c.commitment,
		},
	}
	if err := c.rpc.Call(ctx, "getAccountInfo", params, &resp); err != nil {
		return false, fmt.Errorf("getAccountInfo failed: %w", err)
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getAccountInfo error: %w", resp.Error)
	}
	return resp.Result.Value != nil, nil
}

// CheckIfAssociatedTokenAccountExists derives the ATA for (owner, mint) and
// checks its on-chain existence.
func (c *Client) CheckIfAssociatedTokenAccountExists(ctx context.Context, owner, mint solana.PublicKey) (bool, error) {
	ata, _, err := FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return false, err
	}
	return c.AccountExists(ctx, ata)
}

// GetLatestBlockhash fetches the most recent blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var resp struct {
		Result struct {
			Value struct {
				Blockhash            string `json:"blockhash"`
				LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
			} `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		map[string]any{"commitment": "processed"},
	}
	if err := c.rpc.Call(ctx, "getLatestBlockhash", params, &resp); err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash failed: %w", err)
	}
	if resp.Error != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash error: %w", resp.Error)
	}

	hash, err := solana.HashFromBase58(resp.Result.Value.Blockhash)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("invalid blockhash format: %w", err)
	}
	return hash, nil
}

// PrepareTransactionParams carries everything needed to build and sign one
// transaction.
type PrepareTransactionParams struct {
	Instructions        []solana.Instruction
	Signers             []solana.PrivateKey
	FeePayer            solana.PublicKey
	AccountsCreationFee uint64
	RecentBlockhash     *solana.Hash // fetched fresh when nil
}

// PreparedTransaction is a built, fully signed transaction not yet
// submitted.
type PreparedTransaction struct {
	Tx                  *solana.Transaction
	AccountsCreationFee uint64
}

// PrepareTransaction builds a transaction from instructions, sets the fee
// payer and blockhash, and signs it with every provided signer.
func (c *Client) PrepareTransaction(ctx context.Context, params PrepareTransactionParams) (*PreparedTransaction, error) {
	blockhash := params.RecentBlockhash
	if blockhash == nil {
		fresh, err := c.GetLatestBlockhash(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get blockhash: %w", err)
		}
		blockhash = &fresh
	}

	tx, err := solana.NewTransaction(
		params.Instructions,
		*blockhash,
		solana.TransactionPayer(params.FeePayer),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if _, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range params.Signers {
			if key.Equals(params.Signers[i].PublicKey()) {
				return &params.Signers[i]
			}
		}
		return nil
	}); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	return &PreparedTransaction{
		Tx:                  tx,
		AccountsCreationFee: params.AccountsCreationFee,
	}, nil
}

// SerializeAndSend submits a prepared transaction, or simulates it when
// isSimulation is set. Returns the transaction signature (empty for
// simulations).
func (c *Client) SerializeAndSend(ctx context.Context, prepared *PreparedTransaction, isSimulation bool) (string, error) {
	txBytes, err := prepared.Tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	encodedTx := base64.StdEncoding.EncodeToString(txBytes)

	if isSimulation {
		return "", c.simulate(ctx, encodedTx)
	}

	var resp struct {
		Result string        `json:"result"`
		Error  *rpc.RPCError `json:"error"`
	}

	params := []any{
		encodedTx,
		map[string]any{
			"encoding":            "base64",
			"skipPreflight":       false,
			"preflightCommitment": "processed",
		},
	}
	if err := c.rpc.Call(ctx, "sendTransaction", params, &resp); err != nil {
		return "", fmt.Errorf("sendTransaction failed: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("sendTransaction error: %w", resp.Error)
	}
	return resp.Result, nil
}

func (c *Client) simulate(ctx context.Context, encodedTx string) error {
	var resp struct {
		Result struct {
			Value struct {
				Err  any      `json:"err"`
				Logs []string `json:"logs"`
			} `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		encodedTx,
		map[string]any{
			"encoding":   "base64",
			"commitment": "processed",
		},
	}
	if err := c.rpc.Call(ctx, "simulateTransaction", params, &resp); err != nil {
		return fmt.Errorf("simulateTransaction failed: %w", err)
	}
	if resp.Error != nil {
		return fmt.Errorf("simulateTransaction error: %w", resp.Error)
	}
	if resp.Result.Value.Err != nil {
		return &TransactionError{Detail: resp.Result.Value.Err}
	}
	return nil
}

// WaitForConfirmation polls signature status until the configured
// commitment level is reached, the deadline passes, or the context is
// cancelled. An on-chain failure surfaces as *TransactionError; a deadline
// miss surfaces as ErrConfirmationTimeout.
func (c *Client) WaitForConfirmation(ctx context.Context, signature string) error {
	deadline := time.Now().Add(c.confirmTimeout)
	backoff := 500 * time.Millisecond
	maxBackoff := 4 * time.Second

	for time.Now().Before(deadline) {
		confirmed, err := c.checkSignatureStatus(ctx, signature)
		if err != nil {
			return err
		}
		if confirmed {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}

	return fmt.Errorf("%w after %v", ErrConfirmationTimeout, c.confirmTimeout)
}

func (c *Client) checkSignatureStatus(ctx context.Context, signature string) (bool, error) {
	var resp struct {
		Result struct {
			Value []struct {
				Slot               uint64 `json:"slot"`
				Confirmations      *int   `json:"confirmations"`
				Err                any    `json:"err"`
				ConfirmationStatus string `json:"confirmationStatus"`
			} `json:"value"`
		} `json:"result"`
		Error *rpc.RPCError `json:"error"`
	}

	params := []any{
		[]string{signature},
		map[string]any{"searchTransactionHistory": true},
	}
	if err := c.rpc.Call(ctx, "getSignatureStatuses", params, &resp); err != nil {
		return false, err
	}
	if resp.Error != nil {
		return false, fmt.Errorf("getSignatureStatuses error: %w", resp.Error)
	}

	if len(resp.Result.Value) == 0 || resp.Result.Value[0].ConfirmationStatus == "" {
		return false, nil // not yet processed
	}

	status := resp.Result.Value[0]
	if status.Err != nil {
		return false, &TransactionError{Detail: status.Err}
	}

	switch c.commitment {
	case "processed":
		return true, nil
	case "finalized":
		return status.ConfirmationStatus == "finalized", nil
	default:
		return status.ConfirmationStatus == "confirmed" || status.ConfirmationStatus == "finalized", nil
	}
}
