package registry

// TokenInfo describes a fungible asset known to the swap registry.
type TokenInfo struct {
	Mint      string `json:"mint"`
	Decimals  uint8  `json:"decimals"`
	PoolToken bool   `json:"poolToken"` // synthetic pool-share token, excluded from routing
	Wrapper   string `json:"wrapper,omitempty"`
}

// PoolConfig describes one liquidity pool as published by the registry.
// Reserve balances are not part of the config; they are hydrated from chain
// state per trade.
type PoolConfig struct {
	Account                  string `json:"account"`
	Authority                string `json:"authority"`
	Nonce                    uint8  `json:"nonce"`
	PoolTokenMint            string `json:"poolTokenMint"`
	TokenAName               string `json:"tokenAName"`
	TokenBName               string `json:"tokenBName"`
	TokenAccountA            string `json:"tokenAccountA"` // vault holding token A reserves
	TokenAccountB            string `json:"tokenAccountB"` // vault holding token B reserves
	FeeAccount               string `json:"feeAccount"`
	HostFeeAccount           string `json:"hostFeeAccount,omitempty"`
	FeeNumerator             uint64 `json:"feeNumerator"`
	FeeDenominator           uint64 `json:"feeDenominator"`
	OwnerTradeFeeNumerator   uint64 `json:"ownerTradeFeeNumerator"`
	OwnerTradeFeeDenominator uint64 `json:"ownerTradeFeeDenominator"`
	Deprecated               bool   `json:"deprecated,omitempty"`
}

// ProgramIDSet carries the program addresses the assembler targets.
type ProgramIDSet struct {
	Serum       string `json:"serumTokenSwap"`
	TokenSwapV2 string `json:"tokenSwapV2"`
	TokenSwap   string `json:"tokenSwap"`
	Token       string `json:"token"`
}

// SwapInfo is one immutable registry snapshot as fetched.
type SwapInfo struct {
	Tokens     map[string]TokenInfo  `json:"tokens"`
	Pools      map[string]PoolConfig `json:"pools"`
	ProgramIDs ProgramIDSet          `json:"programIds"`
}
