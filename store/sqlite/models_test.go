package sqlite

import (
	"testing"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/types"
)

func TestTokenModelMetadata(t *testing.T) {
	tok := &token.Token{
		Entity:        types.NewEntity(),
		ID:            id.NewTokenID(),
		Name:          "Lite",
		Symbol:        "LIT",
		InitialSupply: types.NewAmount(5),
		TotalSupply:   types.NewAmount(5),
		Owner:         types.MustParseAddress("0x1111111111111111111111111111111111111111"),
		Metadata:      map[string]string{"site": "example.org"},
	}

	m := toTokenModel(tok)
	if m.Metadata != `{"site":"example.org"}` {
		t.Fatalf("Metadata = %s", m.Metadata)
	}

	got, err := fromTokenModel(m)
	if err != nil {
		t.Fatalf("fromTokenModel: %v", err)
	}
	if got.Metadata["site"] != "example.org" {
		t.Errorf("metadata lost: %v", got.Metadata)
	}

	tok.Metadata = nil
	m = toTokenModel(tok)
	if m.Metadata != "{}" {
		t.Errorf("empty metadata = %q, want {}", m.Metadata)
	}
	got, err = fromTokenModel(m)
	if err != nil {
		t.Fatalf("fromTokenModel: %v", err)
	}
	if got.Metadata != nil {
		t.Errorf("metadata = %v, want nil", got.Metadata)
	}
}
