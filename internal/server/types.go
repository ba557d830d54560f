package server

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK     bool `json:"ok"`     // Service health status
	Loaded bool `json:"loaded"` // Whether a swap-info snapshot is loaded
}

// SwapInfoResponse summarizes the loaded swap-info snapshot
type SwapInfoResponse struct {
	Tokens           int    `json:"tokens"`
	Pools            int    `json:"pools"`
	Pairs            int    `json:"pairs"`
	TokenSwapProgram string `json:"token_swap_program"`
}

// MintResponse resolves a token symbol to its mint address
type MintResponse struct {
	Symbol string `json:"symbol"`
	Mint   string `json:"mint"`
}

// RoutesResponse lists the precomputed routes between two mints
type RoutesResponse struct {
	Routes [][]string `json:"routes"` // pool names, in hop order
}

// DestinationsResponse lists mints reachable from a source mint
type DestinationsResponse struct {
	Mints []string `json:"mints"`
}

// QuoteResponse describes the best route found for a prospective trade
type QuoteResponse struct {
	Route                 []string `json:"route"` // pool names, in hop order
	AmountIn              uint64   `json:"amount_in"`
	EstimatedAmountOut    uint64   `json:"estimated_amount_out"`
	MinimumAmountOut      uint64   `json:"minimum_amount_out"`
	LiquidityProviderFees []uint64 `json:"liquidity_provider_fees"` // per hop, input token base units
}

// FeesRequest describes a prospective swap for network-fee estimation
type FeesRequest struct {
	FromMint       string   `json:"from_mint"`
	ToMint         string   `json:"to_mint"`
	Amount         float64  `json:"amount"`
	SlippageBps    uint16   `json:"slippage_bps"`
	MyWalletsMints []string `json:"my_wallets_mints,omitempty"`
}

// FeesResponse separates the fee buckets of a prospective swap
type FeesResponse struct {
	Transaction     uint64 `json:"transaction"`      // signature fees, spent
	AccountBalances uint64 `json:"account_balances"` // rent for created token accounts
	Deposit         uint64 `json:"deposit"`          // refundable WSOL deposits
	Total           uint64 `json:"total"`
}

// SwapRequest submits a swap for execution by the configured signer
type SwapRequest struct {
	FromMint    string  `json:"from_mint"`
	ToMint      string  `json:"to_mint"`
	Amount      float64 `json:"amount"`
	SlippageBps uint16  `json:"slippage_bps"`
	Simulation  bool    `json:"simulation"`
}

// SwapResponse reports a completed swap execution
type SwapResponse struct {
	TransactionID    string `json:"transaction_id"`
	NewWalletAddress string `json:"new_wallet_address,omitempty"`
	Simulation       bool   `json:"simulation"`
}

// GateSetRequest creates or updates a feature gate
type GateSetRequest struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}

// GateUpdateRequest updates an existing feature gate
type GateUpdateRequest struct {
	Enabled bool `json:"enabled"`
}
