package mongo

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

func TestMigrationIndexesEnforceUniqueness(t *testing.T) {
	idx := migrationIndexes()

	seq := idx[colTransfers][0]
	want := bson.D{{Key: "token_id", Value: 1}, {Key: "sequence", Value: 1}}
	keys, ok := seq.Keys.(bson.D)
	if !ok || len(keys) != len(want) {
		t.Fatalf("transfer index keys = %v, want %v", seq.Keys, want)
	}
	for i := range want {
		if keys[i].Key != want[i].Key {
			t.Errorf("key %d = %s, want %s", i, keys[i].Key, want[i].Key)
		}
	}
	if seq.Options == nil {
		t.Error("sequence index must be unique")
	}
	if idx[colTokens][0].Options == nil {
		t.Error("symbol index must be unique")
	}
}

func TestTransferModelStoresAmountAsString(t *testing.T) {
	big := types.MustParseAmount("115792089237316195423570985008687907853269984665640564039457584007913129639935")
	in := &transfer.Transfer{
		ID:        id.NewTransferID(),
		TokenID:   id.NewTokenID(),
		Sequence:  3,
		Kind:      transfer.KindTransfer,
		From:      types.MustParseAddress("0x1111111111111111111111111111111111111111"),
		To:        types.MustParseAddress("0x2222222222222222222222222222222222222222"),
		Amount:    big,
		CreatedAt: time.Now().UTC(),
	}

	m := toTransferModel(in)
	if m.Amount != big.String() {
		t.Fatalf("Amount = %q", m.Amount)
	}

	out, err := fromTransferModel(m)
	if err != nil {
		t.Fatalf("fromTransferModel: %v", err)
	}
	if !out.Amount.Equal(big) || out.Sequence != 3 {
		t.Errorf("round trip lost data: %+v", out)
	}

	m.Amount = "-1"
	if _, err := fromTransferModel(m); err == nil {
		t.Error("expected error for a negative stored amount")
	}
}
