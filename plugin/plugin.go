// Package plugin provides an extensible plugin system for tally.
// Plugins implement any subset of the hook interfaces below and are
// notified after the ledger has committed the corresponding change.
package plugin

import (
	"context"

	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called once the ledger is ready to accept transfers.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l interface{}) error
}

// OnShutdown is called when the ledger is closed.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Token hooks
// ──────────────────────────────────────────────────

// OnTokenDeployed is called after a new token is persisted and its supply
// credited to the owner.
type OnTokenDeployed interface {
	Plugin
	OnTokenDeployed(ctx context.Context, t *token.Token) error
}

// OnLedgerOpened is called after an existing token's log has been replayed.
type OnLedgerOpened interface {
	Plugin
	OnLedgerOpened(ctx context.Context, t *token.Token, head uint64) error
}

// ──────────────────────────────────────────────────
// Transfer hooks
// ──────────────────────────────────────────────────

// OnTransfer is called for every appended transfer, including the optional
// genesis mint, in sequence order for a single caller.
type OnTransfer interface {
	Plugin
	OnTransfer(ctx context.Context, t *transfer.Transfer) error
}

// OnTransferRejected is called when a transfer is refused for a business
// reason (insufficient funds, bad sender or recipient).
type OnTransferRejected interface {
	Plugin
	OnTransferRejected(ctx context.Context, r *transfer.Rejection) error
}
