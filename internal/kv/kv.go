// Package kv defines the key-value medium the ledger persists its collections in.
//
// Every value is an opaque byte slice holding one whole collection; backends do
// not interpret it.
package kv

import "context"

// Store is a durable key-value medium with whole-value reads and writes.
type Store interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}
