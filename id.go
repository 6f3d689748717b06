package tally

import "github.com/xraph/tally/id"

// ID is the primary identifier type for tokens and transfers.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
