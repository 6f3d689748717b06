package tally

import (
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// Re-export common types for convenience so users don't have to import the
// types, token and transfer packages for everyday calls.

// Amount is re-exported from types package.
type Amount = types.Amount

// Address is re-exported from types package.
type Address = types.Address

// Params is re-exported from token package.
type Params = token.Params

// Event is re-exported from transfer package.
type Event = transfer.Transfer

// ZeroAddress is the reserved no-account sentinel.
const ZeroAddress = types.ZeroAddress

// Re-export Amount and Address constructors
var (
	NewAmount        = types.NewAmount
	ParseAmount      = types.ParseAmount
	MustParseAmount  = types.MustParseAmount
	ParseAddress     = types.ParseAddress
	MustParseAddress = types.MustParseAddress
	ZeroAmount       = types.ZeroAmount
	MaxAmount        = types.MaxAmount
)
