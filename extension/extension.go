// Package extension provides the Forge extension adapter for Tally.
//
// It implements the forge.Extension interface to integrate a token Ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.tally" or "tally" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/store/memory"
	mongostore "github.com/xraph/tally/store/mongo"
	pgstore "github.com/xraph/tally/store/postgres"
	sqlitestore "github.com/xraph/tally/store/sqlite"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/types"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "tally"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Fixed-supply fungible token ledger"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts a tally Ledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *tally.Ledger
	store      store.Store
	groveDB    *grove.DB
	ledgerOpts []tally.Option
}

// New creates a new Tally Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying Ledger. It is nil until Register is called.
func (e *Extension) Ledger() *tally.Ledger { return e.ledger }

// Register implements [forge.Extension]. It loads configuration, deploys
// or opens the token and registers the ledger in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		s, err := storeFor(e.groveDB, e.config.GroveDriver)
		if err != nil {
			return err
		}
		e.store = s
	}

	l, err := e.openLedger(context.Background())
	if err != nil {
		return err
	}
	e.ledger = l

	return vessel.Provide(fapp.Container(), func() (*tally.Ledger, error) {
		return e.ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(_ context.Context) error {
	if e.ledger == nil {
		return errors.New("tally: extension not initialized")
	}
	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension]. The store is closed after the ledger.
func (e *Extension) Stop(_ context.Context) error {
	var errs []error
	if e.ledger != nil {
		errs = append(errs, e.ledger.Close())
	}
	if e.store != nil {
		errs = append(errs, e.store.Close())
	}
	e.MarkStopped()
	return errors.Join(errs...)
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("tally: store not initialized")
	}
	return e.store.Ping(ctx)
}

func (e *Extension) openLedger(ctx context.Context) (*tally.Ledger, error) {
	opts := e.buildLedgerOpts()

	if e.config.TokenID != "" {
		tid, err := id.ParseTokenID(e.config.TokenID)
		if err != nil {
			return nil, fmt.Errorf("%w: token_id: %w", tally.ErrInvalidConfiguration, err)
		}
		return tally.Open(ctx, e.store, tid, opts...)
	}

	params, err := e.config.Token.params()
	if err != nil {
		return nil, err
	}
	l, fresh, err := tally.OpenOrDeploy(ctx, e.store, params, opts...)
	if err != nil {
		return nil, err
	}
	if fresh {
		e.Logger().Info("tally: token deployed",
			forge.F("token_id", l.ID().String()),
			forge.F("symbol", l.Symbol()),
		)
	}
	return l, nil
}

// buildLedgerOpts constructs tally.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() []tally.Option {
	opts := make([]tally.Option, 0, len(e.ledgerOpts)+4)

	if e.config.DisableMigrate {
		opts = append(opts, tally.WithSkipMigrate())
	}
	if e.config.MintEvent {
		opts = append(opts, tally.WithMintEvent())
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, tally.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.PageSize > 0 {
		opts = append(opts, tally.WithPageSize(e.config.PageSize))
	}

	// Pass-through options go last so they win.
	opts = append(opts, e.ledgerOpts...)

	return opts
}

func (c TokenConfig) params() (token.Params, error) {
	supply, err := types.ParseAmount(c.Supply)
	if err != nil {
		return token.Params{}, fmt.Errorf("%w: token.supply: %w", tally.ErrInvalidConfiguration, err)
	}
	return token.Params{
		Name:          c.Name,
		Symbol:        c.Symbol,
		Decimals:      c.Decimals,
		InitialSupply: supply,
		Owner:         types.Address(c.Owner),
	}, nil
}

// storeFor picks the store matching a grove driver. Without a database the
// ledger lives in memory.
func storeFor(db *grove.DB, driver string) (store.Store, error) {
	if db == nil {
		return memory.New(), nil
	}
	switch driver {
	case "postgres", "pg":
		return pgstore.New(db), nil
	case "sqlite", "sqlite3":
		return sqlitestore.New(db), nil
	case "mongo", "mongodb":
		return mongostore.New(db), nil
	default:
		return nil, fmt.Errorf("%w: unknown grove driver %q", tally.ErrInvalidConfiguration, driver)
	}
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("tally: configuration is required but not found in config files; " +
				"ensure 'extensions.tally' or 'tally' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("tally: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("token_id", e.config.TokenID),
		forge.F("symbol", e.config.Token.Symbol),
		forge.F("mint_event", e.config.MintEvent),
		forge.F("grove_driver", e.config.GroveDriver),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.tally", "tally"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("tally: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("tally: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = defaults.PageSize
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.MintEvent {
		yamlConfig.MintEvent = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.TokenID == "" {
		yamlConfig.TokenID = programmaticConfig.TokenID
	}
	if yamlConfig.GroveDriver == "" {
		yamlConfig.GroveDriver = programmaticConfig.GroveDriver
	}
	if yamlConfig.Token == (TokenConfig{}) {
		yamlConfig.Token = programmaticConfig.Token
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.PluginTimeout == 0 && programmaticConfig.PluginTimeout != 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.PageSize == 0 && programmaticConfig.PageSize != 0 {
		yamlConfig.PageSize = programmaticConfig.PageSize
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
