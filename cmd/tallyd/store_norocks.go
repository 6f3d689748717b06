//go:build !rocksdb

package main

import (
	"errors"

	"github.com/xraph/tally/store"
)

func openRocks(string) (store.Store, error) {
	return nil, errors.New("tallyd: built without rocksdb support, rebuild with -tags rocksdb")
}
