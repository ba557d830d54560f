package models

import "time"

// SwapRecord is one executed (or simulated) swap attempt as recorded after
// submission.
type SwapRecord struct {
	TransactionID      string    `json:"transaction_id"`
	Timestamp          time.Time `json:"timestamp"`
	Owner              string    `json:"owner"`
	SourceMint         string    `json:"source_mint"`
	DestinationMint    string    `json:"destination_mint"`
	Route              []string  `json:"route"` // pool names, in hop order
	AmountIn           uint64    `json:"amount_in"`
	MinimumAmountOut   uint64    `json:"minimum_amount_out"`
	Transitive         bool      `json:"transitive"`
	Simulation         bool      `json:"simulation"`
	NewWalletAddress   string    `json:"new_wallet_address,omitempty"`
	FeeTransaction     uint64    `json:"fee_transaction"`
	FeeAccountBalances uint64    `json:"fee_account_balances"`
	FeeDeposit         uint64    `json:"fee_deposit"`
}
