package transfer

import (
	"context"

	"github.com/xraph/tally/id"
)

type Store interface {
	// AppendTransfer stores t as a single atomic write. It fails with
	// ErrAlreadyExists when the token already has a record at t.Sequence.
	AppendTransfer(ctx context.Context, t *Transfer) error
	ListTransfers(ctx context.Context, tokenID id.TokenID, opts QueryOpts) ([]*Transfer, error)
	LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error)
}
