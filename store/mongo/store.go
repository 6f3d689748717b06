package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// Collection name constants.
const (
	colTokens    = "tally_tokens"
	colTransfers = "tally_transfers"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Open connects to the MongoDB deployment at uri. The database name
// comes from the URI path.
func Open(ctx context.Context, uri string) (*Store, error) {
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri); err != nil {
		return nil, fmt.Errorf("tally/mongo: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("tally/mongo: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tally collections. The unique indexes
// are what enforce one token per symbol and one record per sequence.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tally/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Token Store ====================

func (s *Store) CreateToken(ctx context.Context, t *token.Token) error {
	m := toTokenModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrAlreadyExists
		}
		return fmt.Errorf("tally/mongo: create token: %w", err)
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": tokenID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrTokenNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get token: %w", err)
	}
	return fromTokenModel(&m)
}

func (s *Store) GetTokenBySymbol(ctx context.Context, symbol string) (*token.Token, error) {
	var m tokenModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"symbol": symbol}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrTokenNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get token by symbol: %w", err)
	}
	return fromTokenModel(&m)
}

// ==================== Transfer Store ====================

func (s *Store) AppendTransfer(ctx context.Context, t *transfer.Transfer) error {
	m := toTransferModel(t)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: sequence %d", tally.ErrAlreadyExists, t.Sequence)
		}
		return fmt.Errorf("tally/mongo: append transfer: %w", err)
	}
	return nil
}

func (s *Store) ListTransfers(ctx context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Transfer, error) {
	filter := bson.M{"token_id": tokenID.String()}

	seq := bson.M{}
	if opts.FromSequence > 0 {
		seq["$gte"] = int64(opts.FromSequence) //nolint:gosec // bounded by head
	}
	if opts.ToSequence > 0 {
		seq["$lte"] = int64(opts.ToSequence) //nolint:gosec // bounded by head
	}
	if len(seq) > 0 {
		filter["sequence"] = seq
	}
	if opts.Address != "" {
		filter["$or"] = bson.A{
			bson.M{"from_addr": opts.Address.String()},
			bson.M{"to_addr": opts.Address.String()},
		}
	}

	var models []transferModel
	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "sequence", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: list transfers: %w", err)
	}

	result := make([]*transfer.Transfer, len(models))
	for i := range models {
		t, err := fromTransferModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = t
	}
	return result, nil
}

func (s *Store) LastSequence(ctx context.Context, tokenID id.TokenID) (uint64, error) {
	var m transferModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"token_id": tokenID.String()}).
		Sort(bson.D{{Key: "sequence", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("tally/mongo: last sequence: %w", err)
	}
	return uint64(m.Sequence), nil //nolint:gosec // unique index keeps it positive
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tally collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colTokens: {
			{
				Keys:    bson.D{{Key: "symbol", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colTransfers: {
			{
				Keys:    bson.D{{Key: "token_id", Value: 1}, {Key: "sequence", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "from_addr", Value: 1}, {Key: "sequence", Value: 1}}},
			{Keys: bson.D{{Key: "token_id", Value: 1}, {Key: "to_addr", Value: 1}, {Key: "sequence", Value: 1}}},
		},
	}
}
