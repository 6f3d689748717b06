package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// ==================== Token models ====================

// Amounts are stored as decimal strings; BSON has no 256-bit integer.
type tokenModel struct {
	grove.BaseModel `grove:"table:tally_tokens"`

	ID            string            `grove:"id,pk"          bson:"_id"`
	Name          string            `grove:"name"           bson:"name"`
	Symbol        string            `grove:"symbol"         bson:"symbol"`
	Decimals      int32             `grove:"decimals"       bson:"decimals"`
	InitialSupply string            `grove:"initial_supply" bson:"initial_supply"`
	TotalSupply   string            `grove:"total_supply"   bson:"total_supply"`
	Owner         string            `grove:"owner"          bson:"owner"`
	MintLogged    bool              `grove:"mint_logged"    bson:"mint_logged"`
	Metadata      map[string]string `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt     time.Time         `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"     bson:"updated_at"`
}

func toTokenModel(t *token.Token) *tokenModel {
	return &tokenModel{
		ID:            t.ID.String(),
		Name:          t.Name,
		Symbol:        t.Symbol,
		Decimals:      int32(t.Decimals),
		InitialSupply: t.InitialSupply.String(),
		TotalSupply:   t.TotalSupply.String(),
		Owner:         t.Owner.String(),
		MintLogged:    t.MintLogged,
		Metadata:      t.Metadata,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func fromTokenModel(m *tokenModel) (*token.Token, error) {
	tokenID, err := id.ParseTokenID(m.ID)
	if err != nil {
		return nil, err
	}
	initial, err := types.ParseAmount(m.InitialSupply)
	if err != nil {
		return nil, fmt.Errorf("token %s initial_supply: %w", m.ID, err)
	}
	total, err := types.ParseAmount(m.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("token %s total_supply: %w", m.ID, err)
	}
	return &token.Token{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            tokenID,
		Name:          m.Name,
		Symbol:        m.Symbol,
		Decimals:      uint8(m.Decimals), //nolint:gosec // validated on deploy
		InitialSupply: initial,
		TotalSupply:   total,
		Owner:         types.Address(m.Owner),
		MintLogged:    m.MintLogged,
		Metadata:      m.Metadata,
	}, nil
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:tally_transfers"`

	ID        string    `grove:"id,pk"      bson:"_id"`
	TokenID   string    `grove:"token_id"   bson:"token_id"`
	Sequence  int64     `grove:"sequence"   bson:"sequence"`
	Kind      string    `grove:"kind"       bson:"kind"`
	FromAddr  string    `grove:"from_addr"  bson:"from_addr"`
	ToAddr    string    `grove:"to_addr"    bson:"to_addr"`
	Amount    string    `grove:"amount"     bson:"amount"`
	CreatedAt time.Time `grove:"created_at" bson:"created_at"`
}

func toTransferModel(t *transfer.Transfer) *transferModel {
	return &transferModel{
		ID:        t.ID.String(),
		TokenID:   t.TokenID.String(),
		Sequence:  int64(t.Sequence), //nolint:gosec // sequences stay far below 2^63
		Kind:      string(t.Kind),
		FromAddr:  t.From.String(),
		ToAddr:    t.To.String(),
		Amount:    t.Amount.String(),
		CreatedAt: t.CreatedAt,
	}
}

func fromTransferModel(m *transferModel) (*transfer.Transfer, error) {
	transferID, err := id.ParseTransferID(m.ID)
	if err != nil {
		return nil, err
	}
	tokenID, err := id.ParseTokenID(m.TokenID)
	if err != nil {
		return nil, err
	}
	amount, err := types.ParseAmount(m.Amount)
	if err != nil {
		return nil, fmt.Errorf("transfer %s amount: %w", m.ID, err)
	}
	return &transfer.Transfer{
		ID:        transferID,
		TokenID:   tokenID,
		Sequence:  uint64(m.Sequence), //nolint:gosec // unique index keeps it positive
		Kind:      transfer.Kind(m.Kind),
		From:      types.Address(m.FromAddr),
		To:        types.Address(m.ToAddr),
		Amount:    amount,
		CreatedAt: m.CreatedAt,
	}, nil
}
