package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// Open connects to the PostgreSQL database at dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pgdb := pgdriver.New()
	if err := pgdb.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("tally/postgres: %w", err)
	}
	db, err := grove.Open(pgdb)
	if err != nil {
		_ = pgdb.Close()
		return nil, fmt.Errorf("tally/postgres: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("tally/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/postgres: migration failed: %w", err)
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

// CreateToken inserts t. A clash on the ID or the symbol reports
// tally.ErrAlreadyExists.
func (s *Store) CreateToken(ctx context.Context, t *token.Token) error {
	m := toTokenModel(t)
	res, err := s.pg.NewInsert(m).
		OnConflict("DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrAlreadyExists
	}
	return nil
}

func (s *Store) GetToken(ctx context.Context, tokenID id.TokenID) (*token.Token, error) {
	m := new(tokenModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", tokenID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrTokenNotFound
		}
		return nil, err
	}
	return fromTokenModel(m)
}

func (s *Store) GetTokenBySymbol(ctx context.Context, symbol string) (*token.Token, error) {
	m := new(tokenModel)
	err := s.pg.NewSelect(m).
		Where("symbol = $1", symbol).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrTokenNotFound
		}
		return nil, err
	}
	return fromTokenModel(m)
}

// ==================== Transfer Store ====================

// AppendTransfer inserts one log record. The unique (token_id, sequence)
// index turns a concurrent writer's duplicate into tally.ErrAlreadyExists.
func (s *Store) AppendTransfer(ctx context.Context, t *transfer.Transfer) error {
	m := toTransferModel(t)
	res, err := s.pg.NewInsert(m).
		OnConflict("(token_id, sequence) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: sequence %d", tally.ErrAlreadyExists, t.Sequence)
	}
	return nil
}

func (s *Store) ListTransfers(ctx context.Context, tokenID id.TokenID, opts transfer.QueryOpts) ([]*transfer.Transfer, error) {
	var models []transferModel
	q := s.pg.NewSelect(&models).Where("token_id = $1", tokenID.String())

	argIdx := 1
	if opts.FromSequence > 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("sequence >= $%d", argIdx), int64(opts.FromSequence)) //nolint:gosec // bounded by head
	}
	if opts.ToSequence > 0 {
		argIdx++
		q = q.Where(fmt.Sprintf("sequence <= $%d", argIdx), int64(opts.ToSequence)) //nolint:gosec // bounded by head
	}
	if opts.Address != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("(from_addr = $%d OR to_addr = $%d)", argIdx, argIdx), opts.Address.String())
	}
	q = q.OrderExpr("sequence ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	var head int64
	err := s.pg.NewRaw(`
		SELECT COALESCE(MAX(sequence), 0) FROM tally_transfers
		WHERE token_id = $1
	`, tokenID.String()).Scan(ctx, &head)
	if err != nil {
		return 0, err
	}
	return uint64(head), nil //nolint:gosec // column is CHECKed positive
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
