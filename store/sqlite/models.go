package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/token"
	"github.com/xraph/tally/transfer"
	"github.com/xraph/tally/types"
)

// ==================== Token models ====================

type tokenModel struct {
	grove.BaseModel `grove:"table:tally_tokens"`

	ID            string            `grove:"id,pk"`
	Name          string            `grove:"name"`
	Symbol        string            `grove:"symbol"`
	Decimals      int16             `grove:"decimals"`
	InitialSupply types.Amount      `grove:"initial_supply"`
	TotalSupply   types.Amount      `grove:"total_supply"`
	Owner         string            `grove:"owner"`
	MintLogged    bool              `grove:"mint_logged"`
	Metadata      string            `grove:"metadata"`
	CreatedAt     time.Time         `grove:"created_at"`
	UpdatedAt     time.Time         `grove:"updated_at"`
}

// SQLite keeps amounts as TEXT and metadata as a JSON document.
func toTokenModel(t *token.Token) *tokenModel {
	meta := "{}"
	if len(t.Metadata) > 0 {
		b, _ := json.Marshal(t.Metadata) //nolint:errcheck // map[string]string always encodes
		meta = string(b)
	}
	return &tokenModel{
		ID:            t.ID.String(),
		Name:          t.Name,
		Symbol:        t.Symbol,
		Decimals:      int16(t.Decimals),
		InitialSupply: t.InitialSupply,
		TotalSupply:   t.TotalSupply,
		Owner:         t.Owner.String(),
		MintLogged:    t.MintLogged,
		Metadata:      meta,
		CreatedAt:     t.CreatedAt,
		UpdatedAt:     t.UpdatedAt,
	}
}

func fromTokenModel(m *tokenModel) (*token.Token, error) {
	tokenID, err := id.ParseTokenID(m.ID)
	if err != nil {
		return nil, err
	}
	var meta map[string]string
	if m.Metadata != "" && m.Metadata != "{}" {
		if err := json.Unmarshal([]byte(m.Metadata), &meta); err != nil {
			return nil, err
		}
	}
	return &token.Token{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            tokenID,
		Name:          m.Name,
		Symbol:        m.Symbol,
		Decimals:      uint8(m.Decimals), //nolint:gosec // column is CHECKed to 0..77
		InitialSupply: m.InitialSupply,
		TotalSupply:   m.TotalSupply,
		Owner:         types.Address(m.Owner),
		MintLogged:    m.MintLogged,
		Metadata:      meta,
	}, nil
}

// ==================== Transfer models ====================

type transferModel struct {
	grove.BaseModel `grove:"table:tally_transfers"`

	ID        string       `grove:"id,pk"`
	TokenID   string       `grove:"token_id"`
	Sequence  int64        `grove:"sequence"`
	Kind      string       `grove:"kind"`
	FromAddr  string       `grove:"from_addr"`
	ToAddr    string       `grove:"to_addr"`
	Amount    types.Amount `grove:"amount"`
	CreatedAt time.Time    `grove:"created_at"`
}

func toTransferModel(t *transfer.Transfer) *transferModel {
	return &transferModel{
		ID:        t.ID.String(),
		TokenID:   t.TokenID.String(),
		Sequence:  int64(t.Sequence), //nolint:gosec // sequences stay far below 2^63
		Kind:      string(t.Kind),
		FromAddr:  t.From.String(),
		ToAddr:    t.To.String(),
		Amount:    t.Amount,
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
	return &transfer.Transfer{
		ID:        transferID,
		TokenID:   tokenID,
		Sequence:  uint64(m.Sequence), //nolint:gosec // column is CHECKed positive
		Kind:      transfer.Kind(m.Kind),
		From:      types.Address(m.FromAddr),
		To:        types.Address(m.ToAddr),
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
	}, nil
}
