// Package config loads tallyd settings from the environment. A .env file
// in the working directory is read first when present; real environment
// variables win over it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/xraph/tally"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/types"
)

// Store backends. Every backend except memory needs TALLY_DSN.
const (
	StoreMemory   = "memory"
	StoreRocks    = "rocksdb"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMongo    = "mongo"
)

// Config is the daemon configuration.
type Config struct {
	Port     int    `env:"PORT,default=2358"`
	Domain   string `env:"DOMAIN"`
	LogLevel string `env:"TALLY_LOG_LEVEL,default=info"`

	Store string `env:"TALLY_STORE,default=memory"`
	// DSN is the rocksdb directory, the sqlite file, or the postgres or
	// mongodb connection URI. The mongo URI path names the database.
	DSN string `env:"TALLY_DSN"`

	// TokenID selects an existing token. When empty the token deployed
	// under TokenSymbol is reopened, or deployed from the Token* settings.
	TokenID       string `env:"TALLY_TOKEN_ID"`
	TokenName     string `env:"TALLY_TOKEN_NAME,default=DappLearning Test Token"`
	TokenSymbol   string `env:"TALLY_TOKEN_SYMBOL,default=DLT"`
	TokenDecimals uint8  `env:"TALLY_TOKEN_DECIMALS,default=18"`
	TokenSupply   string `env:"TALLY_TOKEN_SUPPLY,default=10000"`
	TokenOwner    string `env:"TALLY_TOKEN_OWNER"`
	MintEvent     bool   `env:"TALLY_MINT_EVENT,default=false"`

	// KafkaBrokers is a semicolon separated list.
	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC,default=tally.events"`

	RateLimit float64 `env:"TALLY_RATE_LIMIT,default=5"`
	RateBurst int     `env:"TALLY_RATE_BURST,default=10"`

	ShutdownTimeout time.Duration `env:"TALLY_SHUTDOWN_TIMEOUT,default=10s"`
}

// Load reads .env files (default ".env") and then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}

	cfg := new(Config)
	if err := envdecode.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that decoding cannot.
func (c *Config) Validate() error {
	errs := &tally.MultiError{}

	switch c.Store {
	case StoreMemory:
	case StoreRocks, StorePostgres, StoreSQLite, StoreMongo:
		if c.DSN == "" {
			errs.Add(tally.ValidationError{Field: "TALLY_DSN", Message: "required for store " + c.Store})
		}
	default:
		errs.Add(tally.ValidationError{Field: "TALLY_STORE", Message: fmt.Sprintf("unsupported store %q, want memory, rocksdb, postgres, sqlite or mongo", c.Store)})
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs.Add(tally.ValidationError{Field: "PORT", Message: fmt.Sprintf("out of range: %d", c.Port)})
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		errs.Add(tally.ValidationError{Field: "TALLY_LOG_LEVEL", Message: err.Error()})
	}

	if c.TokenID != "" {
		if _, err := id.ParseTokenID(c.TokenID); err != nil {
			errs.Add(tally.ValidationError{Field: "TALLY_TOKEN_ID", Message: err.Error()})
		}
	} else {
		if c.TokenOwner == "" {
			errs.Add(tally.ValidationError{Field: "TALLY_TOKEN_OWNER", Message: "required to deploy a token"})
		}
		if _, err := types.ParseAmount(c.TokenSupply); err != nil {
			errs.Add(tally.ValidationError{Field: "TALLY_TOKEN_SUPPLY", Message: err.Error()})
		}
	}

	if errs.HasErrors() {
		return fmt.Errorf("%w: %w", tally.ErrInvalidConfiguration, errs)
	}
	return nil
}

// Level returns the slog level named by LogLevel, Info when unparsable.
func (c *Config) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// ParsedTokenID returns TokenID, or id.Nil when a token must be deployed.
func (c *Config) ParsedTokenID() id.TokenID {
	tid, err := id.ParseTokenID(c.TokenID)
	if err != nil {
		return id.Nil
	}
	return tid
}

// TokenParams builds the deployment arguments.
func (c *Config) TokenParams() (token.Params, error) {
	supply, err := types.ParseAmount(c.TokenSupply)
	if err != nil {
		return token.Params{}, err
	}
	return token.Params{
		Name:          c.TokenName,
		Symbol:        c.TokenSymbol,
		Decimals:      c.TokenDecimals,
		InitialSupply: supply,
		Owner:         types.Address(c.TokenOwner),
	}, nil
}
