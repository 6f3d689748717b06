//go:build rocksdb

package main

import (
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/store/rocks"
)

func openRocks(path string) (store.Store, error) {
	return rocks.Open(path)
}
