package store

import (
	"context"

	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// Store is the unified storage interface for tokens and their transfer logs.
// Implementations must make AppendTransfer a single atomic write and reject
// a second record at the same (token, sequence).
type Store interface {
	token.Store
	transfer.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
