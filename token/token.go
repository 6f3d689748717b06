// Package token defines the deployed token record and its storage contract.
package token

import (
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/types"
)

// Token is a deployed fungible token. Everything except Metadata and
// UpdatedAt is fixed at deployment.
type Token struct {
	types.Entity
	ID            id.TokenID        `json:"id"`
	Name          string            `json:"name"`
	Symbol        string            `json:"symbol"`
	Decimals      uint8             `json:"decimals"`
	InitialSupply types.Amount      `json:"initial_supply"`
	TotalSupply   types.Amount      `json:"total_supply"`
	Owner         types.Address     `json:"owner"`
	MintLogged    bool              `json:"mint_logged"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Params are the deployment arguments of a token.
type Params struct {
	Name     string
	Symbol   string
	Decimals uint8

	// InitialSupply is expressed in whole units; the minted total is
	// InitialSupply * 10^Decimals.
	InitialSupply types.Amount

	Owner types.Address

	// SymbolLength pins the symbol to an exact length when non-zero.
	SymbolLength int

	Metadata map[string]string
}
