//go:build rocksdb

// Package rocks implements store.Store on an embedded RocksDB database.
//
// It needs the RocksDB C library and is compiled only with the rocksdb
// build tag.
package rocks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/tecbot/gorocksdb"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store keeps tokens and transfer logs in one RocksDB instance. Each
// append writes the record and the new head in a single batch.
type Store struct {
	db *gorocksdb.DB
	ro *gorocksdb.ReadOptions
	wo *gorocksdb.WriteOptions

	// mu serializes the read-check-write of CreateToken and AppendTransfer.
	mu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithSync controls whether every write is fsynced. It is on by default.
func WithSync(on bool) Option {
	return func(s *Store) { s.wo.SetSync(on) }
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	dbOpts := gorocksdb.NewDefaultOptions()
	dbOpts.SetCreateIfMissing(true)

	db, err := gorocksdb.OpenDb(dbOpts, path)
	if err != nil {
		return nil, fmt.Errorf("tally/rocks: open %s: %w", path, err)
	}

	s := &Store{
		db: db,
		ro: gorocksdb.NewDefaultReadOptions(),
		wo: gorocksdb.NewDefaultWriteOptions(),
	}
	s.wo.SetSync(true)
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate is a no-op; RocksDB is schemaless.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping performs a point read.
func (s *Store) Ping(_ context.Context) error {
	v, err := s.db.Get(s.ro, []byte(prefixHead))
	if err != nil {
		return err
	}
	v.Free()
	return nil
}

// Close releases the database handles.
func (s *Store) Close() error {
	if s.ro != nil {
		s.ro.Destroy()
	}
	if s.wo != nil {
		s.wo.Destroy()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

// ==================== Token Store ====================

func (s *Store) CreateToken(_ context.Context, t *token.Token) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("tally/rocks: encode token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range [][]byte{keyToken(t.ID.String()), keySymbol(t.Symbol)} {
		ok, err := s.exists(k)
		if err != nil {
			return err
		}
		if ok {
			return tally.ErrAlreadyExists
		}
	}

	wb := gorocksdb.NewWriteBatch()
	defer wb.Destroy()

	wb.Put(keyToken(t.ID.String()), data)
	wb.Put(keySymbol(t.Symbol), []byte(t.ID.String()))

	return s.db.Write(s.wo, wb)
}

func (s *Store) GetToken(_ context.Context, tokenID id.TokenID) (*token.Token, error) {
	return s.getToken(keyToken(tokenID.String()))
}

func (s *Store) GetTokenBySymbol(_ context.Context, symbol string) (*token.Token, error) {
	raw, err := s.get(keySymbol(symbol))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, tally.ErrTokenNotFound
	}
	return s.getToken(keyToken(string(raw)))
}

// ==================== Transfer Store ====================

func (s *Store) AppendTransfer(_ context.Context, t *transfer.Transfer) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("tally/rocks: encode transfer: %w", err)
	}
	tokenID := t.TokenID.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	ok, err := s.exists(keyToken(tokenID))
	if err != nil {
		return err
	}
	if !ok {
		return tally.ErrTokenNotFound
	}

	head, err := s.head(tokenID)
	if err != nil {
		return err
	}
	switch next := head + 1; {
	case t.Sequence < next:
		return fmt.Errorf("%w: sequence %d", tally.ErrAlreadyExists, t.Sequence)
	case t.Sequence > next:
		return fmt.Errorf("tally/rocks: sequence %d out of order, next is %d", t.Sequence, next)
	}

	wb := gorocksdb.NewWriteBatch()
	defer wb.Destroy()

	wb.Put(keyTransfer(tokenID, t.Sequence), data)
	wb.Put(keyHead(tokenID), []byte(strconv.FormatUint(t.Sequence, 10)))

	return s.db.Write(s.wo, wb)
}

func (s *Store) ListTransfers(_ context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Transfer, error) {
	tid := tokenID.String()
	from := max(opts.FromSequence, 1)

	result := make([]*transfer.Transfer, 0)
	err := s.scan(keyTransfer(tid, from), transferPrefix(tid), func(_, v []byte) (bool, error) {
		t := new(transfer.Transfer)
		if err := json.Unmarshal(v, t); err != nil {
			return false, fmt.Errorf("tally/rocks: decode transfer: %w", err)
		}
		if opts.ToSequence > 0 && t.Sequence > opts.ToSequence {
			return false, nil
		}
		if !opts.Matches(t) {
			return true, nil
		}
		result = append(result, t)
		return opts.Limit <= 0 || len(result) < opts.Limit, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) LastSequence(_ context.Context, tokenID id.TokenID) (uint64, error) {
	return s.head(tokenID.String())
}

// ==================== Helpers ====================

// get returns a copy of the value at key, or nil when it is absent.
func (s *Store) get(key []byte) ([]byte, error) {
	v, err := s.db.Get(s.ro, key)
	if err != nil {
		return nil, fmt.Errorf("tally/rocks: get %s: %w", key, err)
	}
	defer v.Free()

	if !v.Exists() {
		return nil, nil
	}
	return append([]byte(nil), v.Data()...), nil
}

func (s *Store) exists(key []byte) (bool, error) {
	v, err := s.db.Get(s.ro, key)
	if err != nil {
		return false, fmt.Errorf("tally/rocks: get %s: %w", key, err)
	}
	defer v.Free()
	return v.Exists(), nil
}

func (s *Store) head(tokenID string) (uint64, error) {
	raw, err := s.get(keyHead(tokenID))
	if err != nil || raw == nil {
		return 0, err
	}
	n, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("tally/rocks: head of %s: %w", tokenID, err)
	}
	return n, nil
}

func (s *Store) getToken(key []byte) (*token.Token, error) {
	raw, err := s.get(key)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, tally.ErrTokenNotFound
	}
	t := new(token.Token)
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, fmt.Errorf("tally/rocks: decode token: %w", err)
	}
	return t, nil
}

// scan walks keys from start while they carry prefix. fn returns false to stop.
func (s *Store) scan(start, prefix []byte, fn func(k, v []byte) (bool, error)) error {
	it := s.db.NewIterator(s.ro)
	defer it.Close()

	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		k := it.Key()
		v := it.Value()
		cont, err := fn(k.Data(), v.Data())
		k.Free()
		v.Free()
		if err != nil {
			return err
		}
		if !cont {
			break
		}
	}
	return it.Err()
}
