package types

import (
	"bytes"
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount errors.
var (
	ErrInvalidAmount = errors.New("tally: invalid amount")
	ErrOverflow      = errors.New("tally: amount overflow")
	ErrUnderflow     = errors.New("tally: amount underflow")
)

// MaxDecimals is the largest decimal precision a token may declare.
// 10^77 is the largest power of ten below 2^256.
const MaxDecimals = 77

// MaxAmount is the largest representable amount, 2^256 - 1.
var MaxAmount = Amount{d: decimal.NewFromBigInt(
	new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)), 0,
)}

// Amount is a non-negative integer quantity of a token counted in its
// smallest unit. Arithmetic is exact and bounded by MaxAmount; operations that
// would leave the range return an error instead of wrapping.
//
// The zero value is a valid zero amount.
//
//nolint:recvcheck // Value receivers for arithmetic, pointer receivers for decoding.
type Amount struct {
	d decimal.Decimal
}

// ZeroAmount is the zero Amount.
var ZeroAmount = Amount{}

// NewAmount returns an Amount from a uint64.
func NewAmount(v uint64) Amount {
	return Amount{d: decimal.NewFromUint64(v)}
}

// ParseAmount parses a base-10 integer string. Exponent notation is accepted
// as long as the value is integral ("1e18").
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ZeroAmount, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return ZeroAmount, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	return fromDecimal(d)
}

// MustParseAmount is like ParseAmount but panics on error. Use for constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(fmt.Sprintf("types: must parse amount %q: %v", s, err))
	}
	return a
}

func fromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.IsInteger() {
		return ZeroAmount, fmt.Errorf("%w: %s is not an integer", ErrInvalidAmount, d.String())
	}
	if d.Sign() < 0 {
		return ZeroAmount, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, d.String())
	}

	// Normalize to exponent 0 so equal values share one representation.
	n := decimal.NewFromBigInt(d.BigInt(), 0)
	if n.Cmp(MaxAmount.d) > 0 {
		return ZeroAmount, ErrOverflow
	}
	return Amount{d: n}, nil
}

// Add returns a + b, or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a.d.Add(b.d)
	if sum.Cmp(MaxAmount.d) > 0 {
		return a, ErrOverflow
	}
	return Amount{d: sum}, nil
}

// Sub returns a - b, or ErrUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.d.Cmp(b.d) < 0 {
		return a, ErrUnderflow
	}
	return Amount{d: a.d.Sub(b.d)}, nil
}

// Scale multiplies the amount by 10^decimals, converting whole units into
// the smallest unit.
func (a Amount) Scale(decimals uint8) (Amount, error) {
	if decimals > MaxDecimals {
		return a, fmt.Errorf("%w: decimals %d exceeds %d", ErrOverflow, decimals, MaxDecimals)
	}
	return fromDecimal(a.d.Shift(int32(decimals)))
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.d.Cmp(b.d) }

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool { return a.d.Cmp(b.d) < 0 }

// Equal reports whether a == b.
func (a Amount) Equal(b Amount) bool { return a.d.Cmp(b.d) == 0 }

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.d.Sign() == 0 }

// BigInt returns a copy of the amount as a big.Int.
func (a Amount) BigInt() *big.Int { return a.d.BigInt() }

// String returns the base-10 representation.
func (a Amount) String() string { return a.d.String() }

// FormatUnits renders the amount in whole units for the given precision.
// FormatUnits(18) of 1500000000000000000 is "1.5".
func (a Amount) FormatUnits(decimals uint8) string {
	return a.d.Shift(-int32(decimals)).String()
}

// MarshalJSON encodes the amount as a JSON string so large values survive
// JavaScript number precision.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.d.String() + `"`), nil
}

// UnmarshalJSON accepts a JSON string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("%w: null", ErrInvalidAmount)
	}
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(data []byte) error {
	parsed, err := ParseAmount(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer. Amounts are stored as decimal strings.
func (a Amount) Value() (driver.Value, error) {
	return a.d.String(), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = ZeroAmount
		return nil
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	case int64:
		if v < 0 {
			return fmt.Errorf("%w: %d is negative", ErrInvalidAmount, v)
		}
		*a = NewAmount(uint64(v))
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}
