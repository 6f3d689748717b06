package balance

import (
	"errors"
	"testing"

	"github.com/xraph/tally/types"
)

func TestSheetMove(t *testing.T) {
	s := NewSheet()
	if err := s.Credit("owner", types.NewAmount(100)); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		from, to  types.Address
		amount    uint64
		wantErr   error
		wantFrom  string
		wantTo    string
		wantCount int
	}{
		{"Partial", "owner", "alice", 30, nil, "70", "30", 2},
		{"Self", "alice", "alice", 30, nil, "30", "30", 2},
		{"Zero", "bob", "alice", 0, nil, "0", "30", 2},
		{"Overdraw", "alice", "bob", 31, ErrInsufficient, "30", "0", 2},
		{"Drain", "alice", "owner", 30, nil, "0", "100", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Move(tt.from, tt.to, types.NewAmount(tt.amount))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if got := s.Balance(tt.from).String(); got != tt.wantFrom {
				t.Errorf("from balance: got %s, want %s", got, tt.wantFrom)
			}
			if got := s.Balance(tt.to).String(); got != tt.wantTo {
				t.Errorf("to balance: got %s, want %s", got, tt.wantTo)
			}
			if s.Len() != tt.wantCount {
				t.Errorf("holders: got %d, want %d", s.Len(), tt.wantCount)
			}

			sum, err := s.Sum()
			if err != nil {
				t.Fatal(err)
			}
			if !sum.Equal(s.Total()) {
				t.Errorf("sum %s != total %s", sum, s.Total())
			}
		})
	}
}

func TestSheetHolders(t *testing.T) {
	s := NewSheet()
	_ = s.Credit("carol", types.NewAmount(3))
	_ = s.Credit("alice", types.NewAmount(1))
	_ = s.Credit("bob", types.NewAmount(2))

	holders := s.Holders()
	want := []types.Address{"alice", "bob", "carol"}
	if len(holders) != len(want) {
		t.Fatalf("got %d holders, want %d", len(holders), len(want))
	}
	for i, h := range holders {
		if h.Address != want[i] {
			t.Errorf("holder %d: got %s, want %s", i, h.Address, want[i])
		}
	}
}

func TestSheetCreditOverflow(t *testing.T) {
	s := NewSheet()
	if err := s.Credit("owner", types.MaxAmount); err != nil {
		t.Fatal(err)
	}
	if err := s.Credit("other", types.NewAmount(1)); !errors.Is(err, types.ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	if s.Balance("other").String() != "0" {
		t.Error("failed credit changed the sheet")
	}
}
