package postgres

import (
	"testing"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

func TestTokenModelKeepsSupplyExact(t *testing.T) {
	supply := types.MustParseAmount("10000000000000000000000")
	tok := &token.Token{
		Entity:        types.NewEntity(),
		ID:            id.NewTokenID(),
		Name:          "DappLearning Test Token",
		Symbol:        "DLT",
		Decimals:      18,
		InitialSupply: types.NewAmount(10000),
		TotalSupply:   supply,
		Owner:         types.MustParseAddress("0x1111111111111111111111111111111111111111"),
		MintLogged:    true,
	}

	got, err := fromTokenModel(toTokenModel(tok))
	if err != nil {
		t.Fatalf("fromTokenModel: %v", err)
	}
	if got.ID.String() != tok.ID.String() || got.Symbol != "DLT" || got.Decimals != 18 || !got.MintLogged {
		t.Errorf("token fields lost: %+v", got)
	}
	if !got.TotalSupply.Equal(supply) {
		t.Errorf("TotalSupply = %s, want %s", got.TotalSupply, supply)
	}
}

func TestTransferModelRejectsForeignID(t *testing.T) {
	m := toTransferModel(&transfer.Transfer{
		ID:        id.NewTransferID(),
		TokenID:   id.NewTokenID(),
		Sequence:  7,
		Kind:      transfer.KindTransfer,
		From:      types.ZeroAddress,
		To:        types.ZeroAddress,
		Amount:    types.NewAmount(1),
		CreatedAt: time.Now().UTC(),
	})
	if m.Sequence != 7 {
		t.Fatalf("Sequence = %d, want 7", m.Sequence)
	}

	m.TokenID = id.NewTransferID().String()
	if _, err := fromTransferModel(m); err == nil {
		t.Error("expected error for a transfer ID in the token column")
	}
}
