package tally

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/xraph/tally/balance"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// DefaultPageSize is the number of transfers fetched per store round trip
// while replaying or iterating the log.
const DefaultPageSize = 500

// Ledger is the accounting engine of one token. It owns the balance
// projection and serializes every transfer through a single lock, so
// concurrent callers observe a linearizable history.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	mu     sync.RWMutex
	token  *token.Token
	sheet  *balance.Sheet
	head   uint64
	closed bool

	// OnTransfer hooks run outside mu but in sequence order: each waits
	// until emitNext reaches its sequence.
	emitMu   sync.Mutex
	emitCond *sync.Cond
	emitNext uint64

	// Configuration
	mintEvent   bool
	skipMigrate bool
	pageSize    int
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithMintEvent makes Deploy record the initial supply as a mint transfer
// from the zero address to the owner, at sequence 1. It has no effect on Open;
// the choice is stored with the token.
func WithMintEvent() Option {
	return func(l *Ledger) {
		l.mintEvent = true
	}
}

// WithSkipMigrate disables the store migration run by Deploy and Open.
func WithSkipMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// WithPageSize sets how many transfers are read per store query.
func WithPageSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.pageSize = n
		}
	}
}

func newLedger(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		pageSize: DefaultPageSize,
	}
	l.emitCond = sync.NewCond(&l.emitMu)

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Deploy creates a token, credits its whole supply to the owner and returns
// the ledger for it. The supply is params.InitialSupply * 10^params.Decimals.
//
// With WithMintEvent the token record is stored before the genesis mint is
// appended. If that append fails Deploy returns the error and the symbol
// stays taken; Open on the token ID (or OpenSymbol) appends the missing
// mint and recovers.
func Deploy(ctx context.Context, s store.Store, params token.Params, opts ...Option) (*Ledger, error) {
	l := newLedger(s, opts...)

	tok, err := newToken(params, l.mintEvent)
	if err != nil {
		return nil, err
	}

	if err := l.migrate(ctx); err != nil {
		return nil, err
	}

	if err := s.CreateToken(ctx, tok); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: token symbol %q", ErrAlreadyExists, tok.Symbol)
		}
		return nil, storageErr("create token", err)
	}

	sheet := balance.NewSheet()
	if err := sheet.Credit(tok.Owner, tok.TotalSupply); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, err)
	}
	l.token = tok
	l.sheet = sheet
	l.emitNext = 1

	if tok.MintLogged {
		if err := l.appendGenesis(ctx); err != nil {
			return nil, err
		}
	}

	l.plugins.EmitTokenDeployed(ctx, tok)

	l.logger.Info("token deployed",
		"token_id", tok.ID.String(),
		"symbol", tok.Symbol,
		"decimals", tok.Decimals,
		"total_supply", tok.TotalSupply.String(),
		"owner", tok.Owner.String(),
		"mint_event", tok.MintLogged,
	)

	l.plugins.EmitInit(ctx, l)
	return l, nil
}

// Open loads an existing token and rebuilds its balances by replaying the
// transfer log. A log with gaps, foreign records or a broken supply total
// fails with ErrCorruptLog.
func Open(ctx context.Context, s store.Store, tokenID id.TokenID, opts ...Option) (*Ledger, error) {
	return open(ctx, s, tokenID.String(), func(ctx context.Context) (*token.Token, error) {
		return s.GetToken(ctx, tokenID)
	}, opts...)
}

// OpenSymbol is Open for the token deployed under symbol.
func OpenSymbol(ctx context.Context, s store.Store, symbol string, opts ...Option) (*Ledger, error) {
	symbol = strings.TrimSpace(symbol)
	return open(ctx, s, symbol, func(ctx context.Context) (*token.Token, error) {
		return s.GetTokenBySymbol(ctx, symbol)
	}, opts...)
}

// OpenOrDeploy reopens the token deployed under params.Symbol, or deploys
// one from params when the store has none. The boolean reports a fresh
// deployment. A process restarted with the same params keeps its balances;
// the rest of params is ignored when the token already exists.
func OpenOrDeploy(ctx context.Context, s store.Store, params token.Params, opts ...Option) (*Ledger, bool, error) {
	l, err := OpenSymbol(ctx, s, params.Symbol, opts...)
	switch {
	case err == nil:
		return l, false, nil
	case !errors.Is(err, ErrTokenNotFound):
		return nil, false, err
	}

	l, err = Deploy(ctx, s, params, opts...)
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

func open(ctx context.Context, s store.Store, key string, lookup func(context.Context) (*token.Token, error), opts ...Option) (*Ledger, error) {
	l := newLedger(s, opts...)

	if err := l.migrate(ctx); err != nil {
		return nil, err
	}

	tok, err := lookup(ctx)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrTokenNotFound, key)
		}
		return nil, storageErr("get token", err)
	}

	start := time.Now()
	sheet, head, err := l.replay(ctx, tok)
	if err != nil {
		return nil, err
	}

	l.token = tok
	l.sheet = sheet
	l.head = head
	l.emitNext = head + 1

	// A crash between CreateToken and the genesis append leaves an empty log.
	if tok.MintLogged && head == 0 {
		if err := l.appendGenesis(ctx); err != nil {
			return nil, err
		}
	}

	l.logger.Info("ledger opened",
		"token_id", tok.ID.String(),
		"symbol", tok.Symbol,
		"head", l.head,
		"holders", sheet.Len(),
		"replay_ms", time.Since(start).Milliseconds(),
	)

	l.plugins.EmitLedgerOpened(ctx, tok, l.head)
	l.plugins.EmitInit(ctx, l)
	return l, nil
}

// Close stops the ledger. Later transfers fail with ErrLedgerClosed; queries
// keep working on the final state. The store is left open for its owner to close.
func (l *Ledger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.plugins.EmitShutdown(context.Background())
	l.logger.Info("ledger closed", "token_id", l.token.ID.String(), "head", l.Head())
	return nil
}

func (l *Ledger) migrate(ctx context.Context) error {
	if l.skipMigrate {
		return nil
	}
	return storageErr("migrate", l.store.Migrate(ctx))
}

// ──────────────────────────────────────────────────
// Transfers
// ──────────────────────────────────────────────────

// Transfer moves amount from sender to recipient and returns the recorded
// event. The balance check, the log append and the balance update happen
// under one lock; on any error the ledger is unchanged.
//
// Zero amounts and self transfers are accepted and recorded. Sending to the
// zero address is allowed; sending from it is not.
func (l *Ledger) Transfer(ctx context.Context, from, to types.Address, amount types.Amount) (*transfer.Transfer, error) {
	from, to, err := normalizeParties(from, to)
	if err != nil {
		l.reject(ctx, from, to, amount, err)
		return nil, err
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrLedgerClosed
	}

	if have, ok := l.sheet.Check(from, amount); !ok {
		l.mu.Unlock()
		err := &InsufficientFundsError{Address: from, Balance: have, Amount: amount}
		l.reject(ctx, from, to, amount, err)
		return nil, err
	}

	t := &transfer.Transfer{
		ID:        id.NewTransferID(),
		TokenID:   l.token.ID,
		Sequence:  l.head + 1,
		Kind:      transfer.KindTransfer,
		From:      from,
		To:        to,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}

	if err := l.store.AppendTransfer(ctx, t); err != nil {
		l.mu.Unlock()
		l.logger.Error("failed to append transfer",
			"token_id", l.token.ID.String(),
			"sequence", t.Sequence,
			"error", err,
		)
		return nil, storageErr("append transfer", err)
	}

	// Check passed under the same lock, so Move cannot fail here.
	if err := l.sheet.Move(from, to, amount); err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("tally: apply transfer %d: %w", t.Sequence, err)
	}
	l.head = t.Sequence
	l.mu.Unlock()

	l.logger.Debug("transfer accepted",
		"token_id", t.TokenID.String(),
		"sequence", t.Sequence,
		"from", from.String(),
		"to", to.String(),
		"amount", amount.String(),
	)

	l.emitTransfer(ctx, t)
	return t, nil
}

// emitTransfer delivers t to OnTransfer hooks once every lower sequence has
// been delivered. Appended sequences are contiguous, so the wait always ends.
// A hook that calls Transfer itself stalls until the plugin timeout fires.
func (l *Ledger) emitTransfer(ctx context.Context, t *transfer.Transfer) {
	l.emitMu.Lock()
	for l.emitNext < t.Sequence {
		l.emitCond.Wait()
	}
	l.emitMu.Unlock()

	l.plugins.EmitTransfer(ctx, t)

	l.emitMu.Lock()
	l.emitNext = t.Sequence + 1
	l.emitCond.Broadcast()
	l.emitMu.Unlock()
}

func (l *Ledger) appendGenesis(ctx context.Context) error {
	l.mu.Lock()

	t := &transfer.Transfer{
		ID:        id.NewTransferID(),
		TokenID:   l.token.ID,
		Sequence:  1,
		Kind:      transfer.KindMint,
		From:      types.ZeroAddress,
		To:        l.token.Owner,
		Amount:    l.token.TotalSupply,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.AppendTransfer(ctx, t); err != nil {
		l.mu.Unlock()
		return storageErr("append mint", err)
	}
	l.head = 1
	l.mu.Unlock()

	l.emitTransfer(ctx, t)
	return nil
}

func (l *Ledger) reject(ctx context.Context, from, to types.Address, amount types.Amount, err error) {
	l.logger.Debug("transfer rejected",
		"token_id", l.token.ID.String(),
		"from", from.String(),
		"to", to.String(),
		"amount", amount.String(),
		"error", err,
	)

	l.plugins.EmitTransferRejected(ctx, &transfer.Rejection{
		TokenID: l.token.ID,
		From:    from,
		To:      to,
		Amount:  amount,
		Code:    rejectionCode(err),
		Reason:  err.Error(),
		At:      time.Now().UTC(),
	})
}

func rejectionCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return transfer.RejectInsufficientFunds
	case errors.Is(err, ErrInvalidSender):
		return transfer.RejectInvalidSender
	default:
		return transfer.RejectInvalidRecipient
	}
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// BalanceOf returns the balance of addr. Unknown and malformed addresses
// hold zero.
func (l *Ledger) BalanceOf(addr types.Address) types.Amount {
	addr, err := types.ParseAddress(string(addr))
	if err != nil {
		return types.ZeroAmount
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sheet.Balance(addr)
}

// Holders returns every non-zero balance ordered by address.
func (l *Ledger) Holders() []balance.Holding {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sheet.Holders()
}

// Head returns the sequence of the last recorded transfer, zero when the
// log is empty.
func (l *Ledger) Head() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.head
}

// TotalSupply returns the fixed total supply in the smallest unit.
func (l *Ledger) TotalSupply() types.Amount { return l.token.TotalSupply }

// Name returns the token name.
func (l *Ledger) Name() string { return l.token.Name }

// Symbol returns the token symbol.
func (l *Ledger) Symbol() string { return l.token.Symbol }

// Decimals returns the display precision.
func (l *Ledger) Decimals() uint8 { return l.token.Decimals }

// Owner returns the address credited at deployment.
func (l *Ledger) Owner() types.Address { return l.token.Owner }

// ID returns the token ID.
func (l *Ledger) ID() id.TokenID { return l.token.ID }

// Token returns a copy of the token record.
func (l *Ledger) Token() token.Token {
	t := *l.token
	if t.Metadata != nil {
		meta := make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			meta[k] = v
		}
		t.Metadata = meta
	}
	return t
}

// Events returns the transfers with Sequence >= since in ascending order.
// The sequence is lazy and pages through the store; it ends at the head
// observed when iteration starts, and can be ranged over any number of times.
func (l *Ledger) Events(ctx context.Context, since uint64) iter.Seq2[*transfer.Transfer, error] {
	return l.query(ctx, transfer.QueryOpts{FromSequence: since})
}

// EventsSince collects Events into a slice.
func (l *Ledger) EventsSince(ctx context.Context, since uint64) ([]*transfer.Transfer, error) {
	return collect(l.Events(ctx, since))
}

// Query returns the transfers matching opts, bounded by the current head.
func (l *Ledger) Query(ctx context.Context, opts transfer.QueryOpts) ([]*transfer.Transfer, error) {
	if opts.Address != "" {
		addr, err := types.ParseAddress(string(opts.Address))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		opts.Address = addr
	}
	return collect(l.query(ctx, opts))
}

func (l *Ledger) query(ctx context.Context, opts transfer.QueryOpts) iter.Seq2[*transfer.Transfer, error] {
	return func(yield func(*transfer.Transfer, error) bool) {
		upper := l.Head()
		if opts.ToSequence > 0 && opts.ToSequence < upper {
			upper = opts.ToSequence
		}
		next := max(opts.FromSequence, 1)
		remaining := opts.Limit

		for next <= upper {
			pageLimit := l.pageSize
			if remaining > 0 && remaining < pageLimit {
				pageLimit = remaining
			}

			page, err := l.store.ListTransfers(ctx, l.token.ID, transfer.QueryOpts{
				FromSequence: next,
				ToSequence:   upper,
				Address:      opts.Address,
				Limit:        pageLimit,
			})
			if err != nil {
				yield(nil, storageErr("list transfers", err))
				return
			}

			for _, t := range page {
				if !yield(t, nil) {
					return
				}
				next = t.Sequence + 1
				if remaining > 0 {
					remaining--
					if remaining == 0 {
						return
					}
				}
			}

			if len(page) < pageLimit {
				return
			}
		}
	}
}

func collect(seq iter.Seq2[*transfer.Transfer, error]) ([]*transfer.Transfer, error) {
	out := make([]*transfer.Transfer, 0)
	for t, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Replay
// ──────────────────────────────────────────────────

func (l *Ledger) replay(ctx context.Context, tok *token.Token) (*balance.Sheet, uint64, error) {
	sheet := balance.NewSheet()
	if err := sheet.Credit(tok.Owner, tok.TotalSupply); err != nil {
		return nil, 0, corrupt(0, "genesis credit: %v", err)
	}

	var head uint64
	for {
		page, err := l.store.ListTransfers(ctx, tok.ID, transfer.QueryOpts{
			FromSequence: head + 1,
			Limit:        l.pageSize,
		})
		if err != nil {
			return nil, 0, storageErr("replay", err)
		}

		for _, t := range page {
			if t.Sequence != head+1 {
				return nil, 0, corrupt(t.Sequence, "expected sequence %d", head+1)
			}

			switch t.Kind {
			case transfer.KindMint:
				if !tok.MintLogged || t.Sequence != 1 || !t.From.IsZero() ||
					t.To != tok.Owner || !t.Amount.Equal(tok.TotalSupply) {
					return nil, 0, corrupt(t.Sequence, "unexpected mint")
				}
			case transfer.KindTransfer:
				if err := sheet.Move(t.From, t.To, t.Amount); err != nil {
					return nil, 0, corrupt(t.Sequence, "%v", err)
				}
			default:
				return nil, 0, corrupt(t.Sequence, "unknown kind %q", t.Kind)
			}
			head = t.Sequence
		}

		if len(page) < l.pageSize {
			break
		}
	}

	last, err := l.store.LastSequence(ctx, tok.ID)
	if err != nil {
		return nil, 0, storageErr("replay", err)
	}
	if last != head {
		return nil, 0, corrupt(head, "store reports head %d", last)
	}

	sum, err := sheet.Sum()
	if err != nil || !sum.Equal(tok.TotalSupply) {
		return nil, 0, corrupt(head, "balances sum to %s, supply is %s", sum, tok.TotalSupply)
	}

	return sheet, head, nil
}

func corrupt(seq uint64, format string, args ...any) error {
	return &StorageError{
		Op:  "replay",
		Err: fmt.Errorf("%w at sequence %d: %s", ErrCorruptLog, seq, fmt.Sprintf(format, args...)),
	}
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func newToken(p token.Params, mintEvent bool) (*token.Token, error) {
	var errs MultiError

	name := strings.TrimSpace(p.Name)
	if name == "" {
		errs.Add(ValidationError{Field: "name", Message: "must not be empty"})
	}

	symbol := strings.TrimSpace(p.Symbol)
	switch {
	case symbol == "":
		errs.Add(ValidationError{Field: "symbol", Message: "must not be empty"})
	case p.SymbolLength > 0 && utf8.RuneCountInString(symbol) != p.SymbolLength:
		errs.Add(ValidationError{
			Field:   "symbol",
			Message: fmt.Sprintf("must be %d characters, got %q", p.SymbolLength, symbol),
		})
	}

	if p.Decimals > types.MaxDecimals {
		errs.Add(ValidationError{
			Field:   "decimals",
			Message: fmt.Sprintf("must be at most %d", types.MaxDecimals),
		})
	}

	var total types.Amount
	if p.InitialSupply.IsZero() {
		errs.Add(ValidationError{Field: "initial_supply", Message: "must be positive"})
	} else if p.Decimals <= types.MaxDecimals {
		scaled, err := p.InitialSupply.Scale(p.Decimals)
		if err != nil {
			errs.Add(fmt.Errorf("tally: validation failed for initial_supply: %w", err))
		}
		total = scaled
	}

	owner, err := types.ParseAddress(string(p.Owner))
	switch {
	case err != nil:
		errs.Add(ValidationError{Field: "owner", Message: err.Error()})
	case owner.IsZero():
		errs.Add(ValidationError{Field: "owner", Message: "must not be the zero address"})
	}

	if errs.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, errs)
	}

	return &token.Token{
		Entity:        types.NewEntity(),
		ID:            id.NewTokenID(),
		Name:          name,
		Symbol:        symbol,
		Decimals:      p.Decimals,
		InitialSupply: p.InitialSupply,
		TotalSupply:   total,
		Owner:         owner,
		MintLogged:    mintEvent,
		Metadata:      p.Metadata,
	}, nil
}

func normalizeParties(from, to types.Address) (types.Address, types.Address, error) {
	f, err := types.ParseAddress(string(from))
	if err != nil {
		return from, to, fmt.Errorf("%w: %w", ErrInvalidSender, err)
	}
	if f.IsZero() {
		return f, to, fmt.Errorf("%w: the zero address cannot send", ErrInvalidSender)
	}

	t, err := types.ParseAddress(string(to))
	if err != nil {
		return f, to, fmt.Errorf("%w: %w", ErrInvalidRecipient, err)
	}
	return f, t, nil
}
