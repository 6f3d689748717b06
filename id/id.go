// Package id defines the identifiers of tokens and transfer events.
//
// An ID is a TypeID: a prefix naming what it identifies, an underscore and
// a UUIDv7 suffix, so IDs of one kind sort by creation time. Tokens print
// as "tok_..." and transfers as "xfer_...".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the kind of record an ID belongs to.
type Prefix string

const (
	PrefixToken    Prefix = "tok"
	PrefixTransfer Prefix = "xfer"
)

// ID is a TypeID. The zero value is Nil and prints as "".
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the unset ID.
var Nil ID

type (
	TokenID    = ID
	TransferID = ID
)

func generate(p Prefix) ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		// Both prefixes are constants; this only fires on a bad edit.
		panic(fmt.Sprintf("id: generate %s: %v", p, err))
	}
	return ID{tid: tid, set: true}
}

func NewTokenID() TokenID       { return generate(PrefixToken) }
func NewTransferID() TransferID { return generate(PrefixTransfer) }

// Parse reads any well-formed TypeID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, set: true}, nil
}

// ParseTokenID reads a "tok_" ID and refuses every other kind.
func ParseTokenID(s string) (TokenID, error) { return parseKind(s, PrefixToken) }

// ParseTransferID reads an "xfer_" ID and refuses every other kind.
func ParseTransferID(s string) (TransferID, error) { return parseKind(s, PrefixTransfer) }

func parseKind(s string, want Prefix) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := v.Prefix(); got != want {
		return Nil, fmt.Errorf("id: %q is a %q id, want %q", s, got, want)
	}
	return v, nil
}

func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

func (i ID) IsNil() bool { return !i.set }

func (i ID) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

// UnmarshalText accepts an empty input as Nil.
func (i *ID) UnmarshalText(data []byte) error {
	return i.decode(string(data))
}

// Value stores Nil as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan reads TEXT, BLOB and NULL columns.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.decode(v)
	case []byte:
		return i.decode(string(v))
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}

func (i *ID) decode(s string) error {
	if s == "" {
		*i = Nil
		return nil
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*i = v
	return nil
}
