package orcaswap

import (
	"github.com/gagliardetto/solana-go"

	"github.com/p2p-org/p2p-wallet-web-sub001/internal/registry"
)

// Token identifies a fungible asset known to the loaded registry snapshot.
type Token struct {
	Name      string
	Mint      solana.PublicKey
	Decimals  uint8
	PoolToken bool // synthetic pool-share token, excluded from routing
}

// Pool is one liquidity pool, oriented so that token A is the input side of
// the trade being considered. Reserve balances are nil until hydrated from
// chain state; the math methods refuse to run on un-hydrated pools.
type Pool struct {
	Name string // registry key, e.g. "SOL/USDC"

	Account        solana.PublicKey
	Authority      solana.PublicKey
	PoolTokenMint  solana.PublicKey
	FeeAccount     solana.PublicKey
	HostFeeAccount *solana.PublicKey

	TokenAName    string
	TokenBName    string
	TokenAccountA solana.PublicKey // vault holding input-side reserves
	TokenAccountB solana.PublicKey // vault holding output-side reserves

	TokenABalance *uint64
	TokenBBalance *uint64

	FeeNumerator             uint64
	FeeDenominator           uint64
	OwnerTradeFeeNumerator   uint64
	OwnerTradeFeeDenominator uint64
}

// Hydrated reports whether both reserve balances have been fetched.
func (p *Pool) Hydrated() bool {
	return p != nil && p.TokenABalance != nil && p.TokenBBalance != nil
}

// Reversed returns a copy of the pool with the input and output sides
// swapped. The registry stores each pool once; a trade in the other
// direction works on the reversed view.
func (p Pool) Reversed() Pool {
	r := p
	r.TokenAName, r.TokenBName = p.TokenBName, p.TokenAName
	r.TokenAccountA, r.TokenAccountB = p.TokenAccountB, p.TokenAccountA
	r.TokenABalance, r.TokenBBalance = p.TokenBBalance, p.TokenABalance
	return r
}

// PoolsPair is a concrete sequence of one or two hydrated pools realizing a
// route for one swap attempt. Element 0 trades the source token; element 1,
// when present, trades the intermediary into the destination.
type PoolsPair []Pool

// Route is an ordered sequence of one or two pool identifiers connecting a
// source token to a destination token.
type Route []string

// RouteTable maps a canonical unordered token-pair key to every route
// connecting that pair. Immutable once built.
type RouteTable map[string][]Route

// ProgramIDs carries the parsed program addresses the assembler targets.
type ProgramIDs struct {
	TokenSwap solana.PublicKey
	Token     solana.PublicKey
}

// Snapshot is the loaded swap-info state: token registry, pool registry,
// program IDs and the precomputed route table. A snapshot is immutable for
// its lifetime; reloading replaces it wholesale.
type Snapshot struct {
	Tokens     map[string]Token
	Pools      map[string]Pool
	ProgramIDs ProgramIDs
	Routes     RouteTable

	mintToName map[string]string
}

// NewSnapshot builds a snapshot from a registry payload, parsing addresses
// and precomputing the route table.
func NewSnapshot(info *registry.SwapInfo) (*Snapshot, error) {
	s := &Snapshot{
		Tokens:     make(map[string]Token, len(info.Tokens)),
		Pools:      make(map[string]Pool, len(info.Pools)),
		mintToName: make(map[string]string, len(info.Tokens)),
	}

	for name, t := range info.Tokens {
		mint, err := solana.PublicKeyFromBase58(t.Mint)
		if err != nil {
			return nil, err
		}
		s.Tokens[name] = Token{
			Name:      name,
			Mint:      mint,
			Decimals:  t.Decimals,
			PoolToken: t.PoolToken,
		}
		s.mintToName[t.Mint] = name
	}

	for name, pc := range info.Pools {
		pool, err := parsePoolConfig(name, pc)
		if err != nil {
			return nil, err
		}
		s.Pools[name] = pool
	}

	if info.ProgramIDs.TokenSwap != "" {
		pk, err := solana.PublicKeyFromBase58(info.ProgramIDs.TokenSwap)
		if err != nil {
			return nil, err
		}
		s.ProgramIDs.TokenSwap = pk
	}
	if info.ProgramIDs.Token != "" {
		pk, err := solana.PublicKeyFromBase58(info.ProgramIDs.Token)
		if err != nil {
			return nil, err
		}
		s.ProgramIDs.Token = pk
	}

	s.Routes = BuildRouteTable(s.Tokens, s.Pools)
	return s, nil
}

func parsePoolConfig(name string, pc registry.PoolConfig) (Pool, error) {
	pool := Pool{
		Name:                     name,
		TokenAName:               pc.TokenAName,
		TokenBName:               pc.TokenBName,
		FeeNumerator:             pc.FeeNumerator,
		FeeDenominator:           pc.FeeDenominator,
		OwnerTradeFeeNumerator:   pc.OwnerTradeFeeNumerator,
		OwnerTradeFeeDenominator: pc.OwnerTradeFeeDenominator,
	}

	var err error
	if pool.Account, err = solana.PublicKeyFromBase58(pc.Account); err != nil {
		return Pool{}, err
	}
	if pool.Authority, err = solana.PublicKeyFromBase58(pc.Authority); err != nil {
		return Pool{}, err
	}
	if pool.PoolTokenMint, err = solana.PublicKeyFromBase58(pc.PoolTokenMint); err != nil {
		return Pool{}, err
	}
	if pool.FeeAccount, err = solana.PublicKeyFromBase58(pc.FeeAccount); err != nil {
		return Pool{}, err
	}
	if pool.TokenAccountA, err = solana.PublicKeyFromBase58(pc.TokenAccountA); err != nil {
		return Pool{}, err
	}
	if pool.TokenAccountB, err = solana.PublicKeyFromBase58(pc.TokenAccountB); err != nil {
		return Pool{}, err
	}
	if pc.HostFeeAccount != "" {
		hf, err := solana.PublicKeyFromBase58(pc.HostFeeAccount)
		if err != nil {
			return Pool{}, err
		}
		pool.HostFeeAccount = &hf
	}
	return pool, nil
}

// TokenByMint resolves a mint address to its token entry.
func (s *Snapshot) TokenByMint(mint solana.PublicKey) (Token, bool) {
	name, ok := s.mintToName[mint.String()]
	if !ok {
		return Token{}, false
	}
	return s.Tokens[name], true
}

// GetMint resolves a token name to its mint address.
func (s *Snapshot) GetMint(name string) (solana.PublicKey, bool) {
	t, ok := s.Tokens[name]
	if !ok {
		return solana.PublicKey{}, false
	}
	return t.Mint, true
}

// FeeAmount separates the three fee buckets of a prospective swap. Callers
// must not conflate them: signature fees are spent, deposits are refunded
// when the backing account closes, account balances are recoverable only by
// closing the created token accounts.
type FeeAmount struct {
	Transaction     uint64 `json:"transaction"`     // signature fees, never refunded
	AccountBalances uint64 `json:"accountBalances"` // rent exemption for created token accounts
	Deposit         uint64 `json:"deposit"`         // refundable deposits (WSOL wrapping)
}

// Total returns the sum of all buckets.
func (f FeeAmount) Total() uint64 {
	return f.Transaction + f.AccountBalances + f.Deposit
}

// PreparedSwapTransaction is an immutable bundle representing one on-chain
// transaction not yet submitted. Single use: submit once, then discard.
type PreparedSwapTransaction struct {
	Instructions       []solana.Instruction
	Signers            []solana.PrivateKey
	AccountCreationFee uint64
}

// SwapResult is returned by a completed staged execution.
type SwapResult struct {
	TransactionID    string // signature of the last submitted transaction
	NewWalletAddress *solana.PublicKey
}
