// Package memory implements store.Store in process memory. It is meant for
// tests and single-process deployments that do not need durability.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	// Token storage
	tokens   map[string]*token.Token
	bySymbol map[string]string

	// Transfer logs, indexed by token ID; position i holds sequence i+1.
	logs map[string][]transfer.Transfer
}

func New() *Store {
	return &Store{
		tokens:   make(map[string]*token.Token),
		bySymbol: make(map[string]string),
		logs:     make(map[string][]transfer.Transfer),
	}
}

// Token Store implementation
func (s *Store) CreateToken(_ context.Context, t *token.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tokens[t.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	if _, exists := s.bySymbol[t.Symbol]; exists {
		return tally.ErrAlreadyExists
	}

	cp := *t
	s.tokens[t.ID.String()] = &cp
	s.bySymbol[t.Symbol] = t.ID.String()
	return nil
}

func (s *Store) GetToken(_ context.Context, tokenID id.TokenID) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.tokens[tokenID.String()]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, tally.ErrTokenNotFound
}

func (s *Store) GetTokenBySymbol(_ context.Context, symbol string) (*token.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tid, ok := s.bySymbol[symbol]; ok {
		cp := *s.tokens[tid]
		return &cp, nil
	}
	return nil, tally.ErrTokenNotFound
}

// Transfer Store implementation
func (s *Store) AppendTransfer(_ context.Context, t *transfer.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := t.TokenID.String()
	if _, ok := s.tokens[key]; !ok {
		return tally.ErrTokenNotFound
	}

	log := s.logs[key]
	next := uint64(len(log)) + 1
	switch {
	case t.Sequence < next:
		return fmt.Errorf("%w: sequence %d", tally.ErrAlreadyExists, t.Sequence)
	case t.Sequence > next:
		return fmt.Errorf("memory: sequence %d out of order, next is %d", t.Sequence, next)
	}

	s.logs[key] = append(log, *t)
	return nil
}

func (s *Store) ListTransfers(_ context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := s.logs[tokenID.String()]
	result := make([]*transfer.Transfer, 0)

	start := opts.FromSequence
	if start > 0 {
		start--
	}
	for i := start; i < uint64(len(log)); i++ {
		if !opts.Matches(&log[i]) {
			if opts.ToSequence > 0 && log[i].Sequence > opts.ToSequence {
				break
			}
			continue
		}
		cp := log[i]
		result = append(result, &cp)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context, tokenID id.TokenID) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint64(len(s.logs[tokenID.String()])), nil
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op for the memory store.
func (s *Store) Close() error { return nil }
