package extension

import (
	"errors"
	"testing"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/store/memory"
	"github.com/xraph/tally/types"
)

func TestMergeConfigurations(t *testing.T) {
	yaml := Config{
		Token:    TokenConfig{Name: "File Token", Symbol: "FIL", Supply: "10", Owner: "0x1111111111111111111111111111111111111111"},
		PageSize: 50,
	}
	prog := Config{
		DisableMigrate: true,
		GroveDriver:    "postgres",
		Token:          TokenConfig{Symbol: "PRG"},
		PluginTimeout:  time.Second,
	}

	got := mergeConfigurations(yaml, prog)
	if !got.DisableMigrate {
		t.Error("programmatic DisableMigrate lost")
	}
	if got.Token.Symbol != "FIL" {
		t.Errorf("Token.Symbol = %q, YAML must win", got.Token.Symbol)
	}
	if got.GroveDriver != "postgres" {
		t.Errorf("GroveDriver = %q", got.GroveDriver)
	}
	if got.PageSize != 50 || got.PluginTimeout != time.Second {
		t.Errorf("PageSize = %d, PluginTimeout = %v", got.PageSize, got.PluginTimeout)
	}

	if d := mergeWithDefaults(Config{}); d.PageSize != tally.DefaultPageSize || d.PluginTimeout != 5*time.Second {
		t.Errorf("defaults = %+v", d)
	}
}

func TestStoreFor(t *testing.T) {
	s, err := storeFor(nil, "")
	if err != nil {
		t.Fatalf("storeFor: %v", err)
	}
	if _, ok := s.(*memory.Store); !ok {
		t.Errorf("store = %T, want *memory.Store", s)
	}
}

func TestTokenConfigParams(t *testing.T) {
	p, err := TokenConfig{Name: "T", Symbol: "TKN", Decimals: 6, Supply: "42", Owner: "0x1111111111111111111111111111111111111111"}.params()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if !p.InitialSupply.Equal(types.NewAmount(42)) || p.Decimals != 6 {
		t.Errorf("params = %+v", p)
	}

	_, err = TokenConfig{Supply: "many"}.params()
	if !errors.Is(err, tally.ErrInvalidConfiguration) {
		t.Errorf("got %v, want ErrInvalidConfiguration", err)
	}
}

func TestOptionsSetConfig(t *testing.T) {
	e := &Extension{}
	for _, opt := range []Option{
		WithTokenID("tok_01h2xcejqtf2nbrexx3vqjhp41"),
		WithMintEvent(),
		WithDisableMigrate(),
		WithPluginTimeout(time.Minute),
		WithGroveDB(nil, "sqlite"),
	} {
		opt(e)
	}
	if e.config.TokenID == "" || !e.config.MintEvent || !e.config.DisableMigrate {
		t.Errorf("config = %+v", e.config)
	}
	if e.config.GroveDriver != "sqlite" || e.config.PluginTimeout != time.Minute {
		t.Errorf("config = %+v", e.config)
	}
	if n := len(e.buildLedgerOpts()); n != 3 {
		t.Errorf("ledger options = %d, want 3", n)
	}
}
