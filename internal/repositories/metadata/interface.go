// Package metadata is a small key/value store in the local database. The
// engine keeps its last confirmed remote snapshot and roster here so the
// presentation layer has something to show when the ledger is unreachable at
// startup. Nothing read from here is ever used for duplicate checks.
package metadata

import (
	"context"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
