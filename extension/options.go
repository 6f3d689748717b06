package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/token"
)

// Option configures the Tally Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB backs the ledger with a grove database. driver is one of
// "postgres", "sqlite" or "mongo" and selects the matching store.
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.GroveDriver = driver
	}
}

// WithLedgerOption passes a tally.Option through to the underlying ledger.
func WithLedgerOption(opt tally.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, tally.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate skips store migrations.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithTokenID opens an existing token instead of deploying one.
func WithTokenID(tokenID string) Option {
	return func(e *Extension) { e.config.TokenID = tokenID }
}

// WithToken sets the token to deploy.
func WithToken(p token.Params) Option {
	return func(e *Extension) {
		e.config.Token = TokenConfig{
			Name:     p.Name,
			Symbol:   p.Symbol,
			Decimals: p.Decimals,
			Supply:   p.InitialSupply.String(),
			Owner:    p.Owner.String(),
		}
	}
}

// WithMintEvent records the initial supply as a mint transfer.
func WithMintEvent() Option {
	return func(e *Extension) { e.config.MintEvent = true }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
