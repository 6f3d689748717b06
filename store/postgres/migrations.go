package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Tally store.
var Migrations = migrate.NewGroup("tally")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tally_tokens",
			Version: "20250601000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_tokens (
    id             TEXT PRIMARY KEY,
    name           TEXT NOT NULL,
    symbol         TEXT NOT NULL,
    decimals       SMALLINT NOT NULL CHECK (decimals BETWEEN 0 AND 77),
    initial_supply NUMERIC(78,0) NOT NULL CHECK (initial_supply > 0),
    total_supply   NUMERIC(78,0) NOT NULL CHECK (total_supply > 0),
    owner          TEXT NOT NULL,
    mint_logged    BOOLEAN NOT NULL DEFAULT FALSE,
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_tokens_symbol ON tally_tokens (symbol);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_tokens`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tally_transfers",
			Version: "20250601000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tally_transfers (
    id         TEXT PRIMARY KEY,
    token_id   TEXT NOT NULL REFERENCES tally_tokens (id),
    sequence   BIGINT NOT NULL CHECK (sequence > 0),
    kind       TEXT NOT NULL DEFAULT 'transfer',
    from_addr  TEXT NOT NULL,
    to_addr    TEXT NOT NULL,
    amount     NUMERIC(78,0) NOT NULL CHECK (amount >= 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tally_transfers_seq ON tally_transfers (token_id, sequence);
CREATE INDEX IF NOT EXISTS idx_tally_transfers_from ON tally_transfers (token_id, from_addr, sequence);
CREATE INDEX IF NOT EXISTS idx_tally_transfers_to ON tally_transfers (token_id, to_addr, sequence);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tally_transfers`)
				return err
			},
		},
	)
}
