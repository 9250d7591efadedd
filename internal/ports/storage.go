package ports

import "context"

// LocalStorage is the device's persisted key-value storage.
type LocalStorage interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// SetMany writes all values or none of them.
	SetMany(ctx context.Context, values map[string]string) error

	// Remove deletes the keys; missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
}

// FallbackConfig is the read-only configuration bundled with the application.
type FallbackConfig interface {
	Lookup(key string) (string, bool)
}
