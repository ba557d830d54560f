package orcaswap

import "errors"

// Configuration / data-integrity errors. Fatal for the attempt, never
// retried.
var (
	ErrSwapInfoUnavailable      = errors.New("swap info not loaded")
	ErrTokenNotFound            = errors.New("token not found in registry")
	ErrIntermediaryMintNotFound = errors.New("intermediary mint not found in registry")
)

// Precondition-violation errors. Indicate a caller bug, never retried.
var (
	ErrSwapPoolsNotFound           = errors.New("swap pools not found")
	ErrInvalidPoolsPair            = errors.New("pools pair must contain one or two pools")
	ErrInvalidAmount               = errors.New("exactly one of input amount and minimum output amount must be provided")
	ErrPoolsNotHydrated            = errors.New("pools pair reserves not hydrated")
	ErrInvalidNumberOfTransactions = errors.New("invalid number of prepared transactions")
)
