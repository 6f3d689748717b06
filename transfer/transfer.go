// Package transfer defines the append-only transfer log.
package transfer

import (
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

type Kind string

const (
	KindTransfer Kind = "transfer"
	KindMint     Kind = "mint"
)

// Transfer is one accepted balance change. Records are immutable once
// appended; Sequence starts at 1 and increases by one per token.
type Transfer struct {
	ID        id.TransferID `json:"id"`
	TokenID   id.TokenID    `json:"token_id"`
	Sequence  uint64        `json:"sequence"`
	Kind      Kind          `json:"kind"`
	From      types.Address `json:"from"`
	To        types.Address `json:"to"`
	Amount    types.Amount  `json:"amount"`
	CreatedAt time.Time     `json:"created_at"`
}

// Rejection codes.
const (
	RejectInsufficientFunds = "insufficient_funds"
	RejectInvalidSender     = "invalid_sender"
	RejectInvalidRecipient  = "invalid_recipient"
)

// Rejection describes a transfer the ledger refused. It is never stored.
type Rejection struct {
	TokenID id.TokenID    `json:"token_id"`
	From    types.Address `json:"from"`
	To      types.Address `json:"to"`
	Amount  types.Amount  `json:"amount"`
	Code    string        `json:"code"`
	Reason  string        `json:"reason"`
	At      time.Time     `json:"at"`
}

// QueryOpts filters a transfer listing. Results are always in ascending
// sequence order.
type QueryOpts struct {
	// FromSequence is the inclusive lower bound.
	FromSequence uint64
	// ToSequence is the inclusive upper bound; zero means unbounded.
	ToSequence uint64
	// Address keeps transfers where it is the sender or the recipient.
	Address types.Address
	Limit   int
}

// Matches reports whether t satisfies the filter, ignoring Limit.
func (o QueryOpts) Matches(t *Transfer) bool {
	if t.Sequence < o.FromSequence {
		return false
	}
	if o.ToSequence > 0 && t.Sequence > o.ToSequence {
		return false
	}
	if o.Address != "" && t.From != o.Address && t.To != o.Address {
		return false
	}
	return true
}
