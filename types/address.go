package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// ErrInvalidAddress is returned by ParseAddress for unusable input.
var ErrInvalidAddress = errors.New("tally: invalid address")

// Address identifies an account. It is opaque to the ledger: any non-empty
// string works, but 0x-prefixed hex addresses are case-normalized so that
// checksummed and lower-case spellings refer to the same account.
type Address string

// ZeroAddress is the reserved "no account" sentinel. It is the sender of the
// optional genesis mint event and can never spend.
const ZeroAddress Address = "0x0000000000000000000000000000000000000000"

// ParseAddress validates and normalizes s.
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty string", ErrInvalidAddress)
	}
	if strings.IndexFunc(s, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0 {
		return "", fmt.Errorf("%w: %q contains whitespace", ErrInvalidAddress, s)
	}

	if isHexAddress(s) {
		return Address(strings.ToLower(s)), nil
	}
	return Address(s), nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(fmt.Sprintf("types: must parse address %q: %v", s, err))
	}
	return a
}

// String returns the address as a string.
func (a Address) String() string { return string(a) }

// IsZero reports whether a is the zero sentinel.
func (a Address) IsZero() bool { return a == ZeroAddress }

// IsEmpty reports whether a is unset.
func (a Address) IsEmpty() bool { return a == "" }

func isHexAddress(s string) bool {
	if len(s) != 42 || (s[:2] != "0x" && s[:2] != "0X") {
		return false
	}
	for _, c := range s[2:] {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
