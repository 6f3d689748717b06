// Package tally provides a fungible-token ledger engine for Go applications.
//
// Tally is designed as a library, not a service. A Ledger tracks the
// balances of one fixed-supply token, validates transfers against the
// sender's balance and records every accepted transfer in an append-only
// log. It provides:
//
//   - Exact arbitrary-precision amounts (no floating point, overflow is an error)
//   - Linearizable transfers: check, append and apply under one lock
//   - Pluggable persistence (memory, PostgreSQL, SQLite, MongoDB, RocksDB)
//   - Lazy, restartable event queries by sequence
//   - Plugin hooks for audit trails, metrics and Kafka streaming
//
// # Quick Start
//
// Deploy a token against your preferred store:
//
//	import (
//	    "github.com/xraph/tally"
//	    "github.com/xraph/tally/store/memory"
//	)
//
//	l, err := tally.Deploy(ctx, memory.New(), tally.Params{
//	    Name:          "DappLearning Test Token",
//	    Symbol:        "DLT",
//	    Decimals:      18,
//	    InitialSupply: tally.NewAmount(10000),
//	    Owner:         owner,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
// The whole supply, 10000 * 10^18 units, is credited to the owner. Move it
// with Transfer:
//
//	evt, err := l.Transfer(ctx, owner, alice, tally.NewAmount(1))
//	switch {
//	case errors.Is(err, tally.ErrInsufficientFunds):
//	    // surface to the user, retrying will not help
//	case err != nil:
//	    // tally.ErrStorageFailure and friends
//	}
//
// Read the log back in acceptance order:
//
//	for evt, err := range l.Events(ctx, 1) {
//	    ...
//	}
//
// # Persistence
//
// Every store appends exactly one record per transfer, keyed by
// (token, sequence). Balances are a projection of that log held in memory;
// Open rebuilds them by replay and refuses a log with gaps or a broken
// supply total.
//
// # Genesis
//
// By default deployment records no event: the owner's balance is implied
// by the token record. WithMintEvent records the supply as a mint transfer
// from ZeroAddress at sequence 1 for consumers that expect one.
package tally
