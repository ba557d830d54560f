package rpc

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrRateLimited is returned when the RPC endpoint responds with HTTP 429.
var ErrRateLimited = errors.New("rate limited (429)")

// JSON-RPC error codes this module cares about.
const (
	// CodeNodeBehind is returned while the queried node is catching up;
	// the request is safe to retry.
	CodeNodeBehind = -32005
)

// RPCError represents a JSON-RPC error response
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// IsProgramError reports whether the error carries an on-chain
// instruction/program rejection. Such failures are final: the transaction
// was (or would be) rejected by the program itself, and resubmitting the
// same logical swap could duplicate effects.
func (e *RPCError) IsProgramError() bool {
	if e == nil {
		return false
	}
	if len(e.Data) > 0 && strings.Contains(string(e.Data), "InstructionError") {
		return true
	}
	return strings.Contains(e.Message, "custom program error") ||
		strings.Contains(e.Message, "InstructionError")
}

// IsTransient reports whether the error is worth retrying as-is.
func (e *RPCError) IsTransient() bool {
	if e == nil {
		return false
	}
	return e.Code == CodeNodeBehind
}
