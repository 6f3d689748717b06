package extension

import "time"

// Config holds the Tally extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.tally" or "tally" keys).
type Config struct {
	// DisableMigrate skips store migrations when the ledger is opened.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// TokenID opens an existing token. When empty, the token deployed under
	// Token.Symbol is reopened, or the Token section is deployed.
	TokenID string `json:"token_id" mapstructure:"token_id" yaml:"token_id"`

	// Token describes the token to deploy.
	Token TokenConfig `json:"token" mapstructure:"token" yaml:"token"`

	// MintEvent records the initial supply as a mint transfer at sequence 1.
	MintEvent bool `json:"mint_event" mapstructure:"mint_event" yaml:"mint_event"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// PageSize is the number of transfers read per store query (default: 500).
	PageSize int `json:"page_size" mapstructure:"page_size" yaml:"page_size"`

	// GroveDriver names the driver of the grove.DB given to WithGroveDB:
	// "postgres", "sqlite" or "mongo".
	GroveDriver string `json:"grove_driver" mapstructure:"grove_driver" yaml:"grove_driver"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// TokenConfig are the deployment parameters. Supply is in whole units.
type TokenConfig struct {
	Name     string `json:"name" mapstructure:"name" yaml:"name"`
	Symbol   string `json:"symbol" mapstructure:"symbol" yaml:"symbol"`
	Decimals uint8  `json:"decimals" mapstructure:"decimals" yaml:"decimals"`
	Supply   string `json:"supply" mapstructure:"supply" yaml:"supply"`
	Owner    string `json:"owner" mapstructure:"owner" yaml:"owner"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		PluginTimeout: 5 * time.Second,
		PageSize:      500,
	}
}
