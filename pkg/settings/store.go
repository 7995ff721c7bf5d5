// Package settings is the key/value collaborator used to persist
// observational memory and other small values outside the thread files.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrClosed = errors.New("settings store closed")

// Store is a last-write-wins key/value store. Implementations are safe for
// concurrent use but offer no transactions.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// GetOr reads key and decodes it into T. Strings are returned verbatim;
// other types are decoded from JSON. A missing key yields def.
func GetOr[T any](ctx context.Context, s Store, key string, def T) (T, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	if p, isString := any(&def).(*string); isString {
		*p = raw
		return def, nil
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return def, fmt.Errorf("decode setting %q: %w", key, err)
	}
	return out, nil
}

// SetJSON encodes value as JSON and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}
