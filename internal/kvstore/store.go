package kvstore

import (
	"context"
	"errors"
)

//go:generate mockgen -source=$GOFILE -destination=../tracker/store_mocks_test.go -package=tracker_test

var ErrInvalidKey = errors.New("invalid key")

// Store is an opaque persistence of named string blobs.
// Get reports false (and no error) when the key is absent.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
