package token

import (
	"context"

	"github.com/xraph/tally/id"
)

type Store interface {
	CreateToken(ctx context.Context, t *Token) error
	GetToken(ctx context.Context, tokenID id.TokenID) (*Token, error)
	GetTokenBySymbol(ctx context.Context, symbol string) (*Token, error)
}
