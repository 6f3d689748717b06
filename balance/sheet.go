// Package balance holds the in-memory balance projection of a token's
// transfer log.
//
// A Sheet is not safe for concurrent use; the owning ledger serializes
// access to it.
package balance

import (
	"errors"
	"fmt"
	"slices"

	"github.com/xraph/tally/types"
)

// ErrInsufficient is returned by Move when the sender cannot cover the amount.
var ErrInsufficient = errors.New("balance: insufficient balance")

// Holding is one address with a non-zero balance.
type Holding struct {
	Address types.Address `json:"address"`
	Balance types.Amount  `json:"balance"`
}

// Sheet maps addresses to balances. Absent addresses hold zero, and zero
// balances are never stored.
type Sheet struct {
	balances map[types.Address]types.Amount
	total    types.Amount
}

// NewSheet returns an empty sheet.
func NewSheet() *Sheet {
	return &Sheet{balances: make(map[types.Address]types.Amount)}
}

// Credit adds amount to addr and to the sheet total. It is used for the
// genesis mint only; transfers go through Move.
func (s *Sheet) Credit(addr types.Address, amount types.Amount) error {
	total, err := s.total.Add(amount)
	if err != nil {
		return err
	}
	bal, err := s.balances[addr].Add(amount)
	if err != nil {
		return err
	}
	s.total = total
	s.set(addr, bal)
	return nil
}

// Check reports the sender's balance and whether it covers amount.
func (s *Sheet) Check(from types.Address, amount types.Amount) (types.Amount, bool) {
	have := s.balances[from]
	return have, !have.LessThan(amount)
}

// Move debits from and credits to. On error the sheet is unchanged.
func (s *Sheet) Move(from, to types.Address, amount types.Amount) error {
	have, ok := s.Check(from, amount)
	if !ok {
		return fmt.Errorf("%w: %s holds %s, needs %s", ErrInsufficient, from, have, amount)
	}
	if from == to || amount.IsZero() {
		return nil
	}

	debited, err := have.Sub(amount)
	if err != nil {
		return err
	}
	// Cannot exceed the total, so overflow here means the sheet is corrupt.
	credited, err := s.balances[to].Add(amount)
	if err != nil {
		return err
	}

	s.set(from, debited)
	s.set(to, credited)
	return nil
}

// Balance returns the balance of addr, zero when unknown.
func (s *Sheet) Balance(addr types.Address) types.Amount {
	return s.balances[addr]
}

// Total returns the amount credited to the sheet.
func (s *Sheet) Total() types.Amount { return s.total }

// Sum recomputes the sum of all balances.
func (s *Sheet) Sum() (types.Amount, error) {
	sum := types.ZeroAmount
	for _, bal := range s.balances {
		var err error
		if sum, err = sum.Add(bal); err != nil {
			return types.ZeroAmount, err
		}
	}
	return sum, nil
}

// Len returns the number of addresses with a non-zero balance.
func (s *Sheet) Len() int { return len(s.balances) }

// Holders returns every non-zero balance ordered by address.
func (s *Sheet) Holders() []Holding {
	out := make([]Holding, 0, len(s.balances))
	for addr, bal := range s.balances {
		out = append(out, Holding{Address: addr, Balance: bal})
	}
	slices.SortFunc(out, func(a, b Holding) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		}
		return 0
	})
	return out
}

func (s *Sheet) set(addr types.Address, bal types.Amount) {
	if bal.IsZero() {
		delete(s.balances, addr)
		return
	}
	s.balances[addr] = bal
}
