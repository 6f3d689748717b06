package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/store/sqlite"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

const (
	alice types.Address = "0x00000000000000000000000000000000000000a1"
	bob   types.Address = "0x00000000000000000000000000000000000000b0"
	carol types.Address = "0x00000000000000000000000000000000000000c0"
)

func openAt(t *testing.T, path string) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func newStore(t *testing.T) (*sqlite.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tally.db")
	return openAt(t, path), path
}

func newToken(symbol string) *token.Token {
	return &token.Token{
		Entity:        types.NewEntity(),
		ID:            id.NewTokenID(),
		Name:          "Lite",
		Symbol:        symbol,
		Decimals:      2,
		InitialSupply: types.NewAmount(1),
		TotalSupply:   types.NewAmount(100),
		Owner:         alice,
		Metadata:      map[string]string{"site": "example.org"},
	}
}

func xfer(tok id.TokenID, seq uint64, from, to types.Address) *transfer.Transfer {
	return &transfer.Transfer{
		ID:       id.NewTransferID(),
		TokenID:  tok,
		Sequence: seq,
		Kind:     transfer.KindTransfer,
		From:     from,
		To:       to,
		Amount:   types.NewAmount(seq),
	}
}

func TestTokenRoundTripAndUniqueSymbol(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tok := newToken("LIT")

	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}
	if err := s.CreateToken(ctx, tok); !errors.Is(err, tally.ErrAlreadyExists) {
		t.Fatalf("same id: got %v", err)
	}
	if err := s.CreateToken(ctx, newToken("LIT")); !errors.Is(err, tally.ErrAlreadyExists) {
		t.Fatalf("same symbol: got %v", err)
	}

	got, err := s.GetTokenBySymbol(ctx, "LIT")
	if err != nil {
		t.Fatalf("GetTokenBySymbol: %v", err)
	}
	if got.ID != tok.ID || got.Decimals != 2 || !got.TotalSupply.Equal(tok.TotalSupply) ||
		got.Owner != alice || got.Metadata["site"] != "example.org" {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := s.GetToken(ctx, id.NewTokenID()); !errors.Is(err, tally.ErrTokenNotFound) {
		t.Fatalf("unknown token: got %v", err)
	}
}

func TestAppendTransferRejectsDuplicateSequence(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tok := newToken("SEQ")
	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatal(err)
	}

	if err := s.AppendTransfer(ctx, xfer(tok.ID, 1, alice, bob)); err != nil {
		t.Fatalf("AppendTransfer: %v", err)
	}
	if err := s.AppendTransfer(ctx, xfer(tok.ID, 1, alice, carol)); !errors.Is(err, tally.ErrAlreadyExists) {
		t.Fatalf("duplicate sequence: got %v", err)
	}

	head, err := s.LastSequence(ctx, tok.ID)
	if err != nil || head != 1 {
		t.Fatalf("LastSequence = %d, %v", head, err)
	}
	if head, err := s.LastSequence(ctx, id.NewTokenID()); err != nil || head != 0 {
		t.Fatalf("LastSequence(unknown) = %d, %v", head, err)
	}
}

func TestListTransfersFilters(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()
	tok := newToken("FLT")
	if err := s.CreateToken(ctx, tok); err != nil {
		t.Fatal(err)
	}

	pairs := [][2]types.Address{{alice, bob}, {bob, carol}, {alice, carol}, {carol, alice}}
	for i, p := range pairs {
		if err := s.AppendTransfer(ctx, xfer(tok.ID, uint64(i+1), p[0], p[1])); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name string
		opts transfer.QueryOpts
		want []uint64
	}{
		{"all", transfer.QueryOpts{}, []uint64{1, 2, 3, 4}},
		{"from", transfer.QueryOpts{FromSequence: 3}, []uint64{3, 4}},
		{"range", transfer.QueryOpts{FromSequence: 2, ToSequence: 3}, []uint64{2, 3}},
		{"limit", transfer.QueryOpts{Limit: 2}, []uint64{1, 2}},
		{"address", transfer.QueryOpts{Address: bob}, []uint64{1, 2}},
		{"address and limit", transfer.QueryOpts{Address: carol, Limit: 2}, []uint64{2, 3}},
		{"past head", transfer.QueryOpts{FromSequence: 9}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListTransfers(ctx, tok.ID, tt.opts)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d transfers, want %d", len(got), len(tt.want))
			}
			for i, tr := range got {
				if tr.Sequence != tt.want[i] {
					t.Errorf("[%d] sequence = %d, want %d", i, tr.Sequence, tt.want[i])
				}
				if !tr.Amount.Equal(types.NewAmount(tr.Sequence)) {
					t.Errorf("[%d] amount = %s", i, tr.Amount)
				}
			}
		})
	}
}

func TestLedgerReplaysFromSQLite(t *testing.T) {
	ctx := context.Background()
	s, path := newStore(t)

	l, err := tally.Deploy(ctx, s, token.Params{
		Name:          "DappLearning Test Token",
		Symbol:        "DLT",
		Decimals:      18,
		InitialSupply: types.NewAmount(10000),
		Owner:         alice,
	}, tally.WithMintEvent())
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if _, err := l.Transfer(ctx, alice, bob, types.MustParseAmount("2500000000000000000000")); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := l.Transfer(ctx, bob, carol, types.NewAmount(7)); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if _, err := l.Transfer(ctx, carol, alice, types.NewAmount(8)); !errors.Is(err, tally.ErrInsufficientFunds) {
		t.Fatalf("overspend: got %v", err)
	}
	_ = l.Close()

	// A second connection sees only what reached the database.
	reopened, err := tally.OpenSymbol(ctx, openAt(t, path), "DLT")
	if err != nil {
		t.Fatalf("OpenSymbol: %v", err)
	}
	defer reopened.Close()

	if reopened.ID() != l.ID() || reopened.Head() != 3 {
		t.Fatalf("reopened %s at head %d, want %s at 3", reopened.ID(), reopened.Head(), l.ID())
	}
	for _, addr := range []types.Address{alice, bob, carol} {
		if got, want := reopened.BalanceOf(addr), l.BalanceOf(addr); !got.Equal(want) {
			t.Errorf("BalanceOf(%s) = %s, want %s", addr, got, want)
		}
	}

	events, err := reopened.EventsSince(ctx, 0)
	if err != nil {
		t.Fatalf("EventsSince: %v", err)
	}
	if len(events) != 3 || events[0].Kind != transfer.KindMint {
		t.Fatalf("events = %d, first kind %q", len(events), events[0].Kind)
	}
}
