// Package slots stores named JSON blobs in the local journal database, one
// row per slot.
package slots

import "context"

type Repository interface {
	// Get returns (nil, nil) when the slot is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
	// Size is the total stored byte length of keys and values.
	Size(ctx context.Context) (int64, error)
}
