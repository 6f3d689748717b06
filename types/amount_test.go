package types

import (
	"encoding/json"
	"errors"
	"math/big"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"Integer", "42", "42", nil},
		{"Whitespace", "  7 ", "7", nil},
		{"Zero", "0", "0", nil},
		{"Exponent", "1e18", "1000000000000000000", nil},
		{"TrailingZeros", "5.000", "5", nil},
		{"Empty", "", "", ErrInvalidAmount},
		{"Garbage", "ten", "", ErrInvalidAmount},
		{"Fraction", "1.5", "", ErrInvalidAmount},
		{"Negative", "-1", "", ErrInvalidAmount},
		{"TooLarge", "115792089237316195423570985008687907853269984665640564039457584007913129639936", "", ErrOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Errorf("got %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	a := NewAmount(10)
	b := NewAmount(3)

	sum, err := a.Add(b)
	if err != nil || sum.String() != "13" {
		t.Fatalf("Add: got %s, %v", sum, err)
	}

	diff, err := a.Sub(b)
	if err != nil || diff.String() != "7" {
		t.Fatalf("Sub: got %s, %v", diff, err)
	}

	if _, err := b.Sub(a); !errors.Is(err, ErrUnderflow) {
		t.Errorf("expected ErrUnderflow, got %v", err)
	}

	if _, err := MaxAmount.Add(NewAmount(1)); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow, got %v", err)
	}

	if !b.LessThan(a) || a.LessThan(b) {
		t.Error("LessThan mismatch")
	}
	if !ZeroAmount.IsZero() || a.IsZero() {
		t.Error("IsZero mismatch")
	}
	if !MustParseAmount("3").Equal(b) {
		t.Error("Equal mismatch")
	}
}

func TestAmountScale(t *testing.T) {
	supply, err := NewAmount(10000).Scale(18)
	if err != nil {
		t.Fatalf("Scale: %v", err)
	}
	want, _ := new(big.Int).SetString("10000000000000000000000", 10)
	if supply.BigInt().Cmp(want) != 0 {
		t.Errorf("got %s, want %s", supply, want)
	}
	if got := supply.FormatUnits(18); got != "10000" {
		t.Errorf("FormatUnits: got %s", got)
	}
	if got := NewAmount(1500).FormatUnits(3); got != "1.5" {
		t.Errorf("FormatUnits: got %s", got)
	}

	if _, err := NewAmount(2).Scale(77); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow for 2*10^77, got %v", err)
	}
	if _, err := NewAmount(1).Scale(78); !errors.Is(err, ErrOverflow) {
		t.Errorf("expected ErrOverflow for 78 decimals, got %v", err)
	}
}

func TestAmountJSON(t *testing.T) {
	big := MustParseAmount("10000000000000000000000")

	data, err := json.Marshal(big)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"10000000000000000000000"` {
		t.Errorf("got %s", data)
	}

	var fromNumber Amount
	if err := json.Unmarshal([]byte(`12`), &fromNumber); err != nil {
		t.Fatal(err)
	}
	if fromNumber.String() != "12" {
		t.Errorf("got %s", fromNumber)
	}

	var negative Amount
	if err := json.Unmarshal([]byte(`"-5"`), &negative); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAmountScan(t *testing.T) {
	var a Amount
	if err := a.Scan("99"); err != nil || a.String() != "99" {
		t.Fatalf("scan string: %s, %v", a, err)
	}
	if err := a.Scan([]byte("100")); err != nil || a.String() != "100" {
		t.Fatalf("scan bytes: %s, %v", a, err)
	}
	if err := a.Scan(int64(5)); err != nil || a.String() != "5" {
		t.Fatalf("scan int64: %s, %v", a, err)
	}
	if err := a.Scan(3.5); err == nil {
		t.Error("expected error scanning float64")
	}
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Address
		wantErr bool
	}{
		{"Hex", "0xABCDEFabcdef0123456789ABCDEFabcdef012345", "0xabcdefabcdef0123456789abcdefabcdef012345", false},
		{"Opaque", "alice", "alice", false},
		{"Trimmed", "  bob ", "bob", false},
		{"Empty", "", "", true},
		{"Spaces", "al ice", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAddress(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAddress) {
					t.Fatalf("expected ErrInvalidAddress, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}

	if !ZeroAddress.IsZero() {
		t.Error("ZeroAddress.IsZero() = false")
	}
	if MustParseAddress("0X0000000000000000000000000000000000000000") != ZeroAddress {
		t.Error("upper-case zero address did not normalize")
	}
}
