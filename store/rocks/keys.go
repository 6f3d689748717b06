//go:build rocksdb

package rocks

import "fmt"

// Key layout. Sequences are zero padded so lexical order is log order.
//
//	tok/<token id>                  token JSON
//	sym/<symbol>                    token id
//	xfer/<token id>/<seq %020d>     transfer JSON
//	head/<token id>                 last sequence, decimal

const (
	prefixToken    = "tok/"
	prefixSymbol   = "sym/"
	prefixTransfer = "xfer/"
	prefixHead     = "head/"
)

func keyToken(tokenID string) []byte { return []byte(prefixToken + tokenID) }

func keySymbol(symbol string) []byte { return []byte(prefixSymbol + symbol) }

func keyHead(tokenID string) []byte { return []byte(prefixHead + tokenID) }

func transferPrefix(tokenID string) []byte { return []byte(prefixTransfer + tokenID + "/") }

func keyTransfer(tokenID string, seq uint64) []byte {
	return fmt.Appendf(nil, "%s%s/%020d", prefixTransfer, tokenID, seq)
}
