// Package provider defines the config source abstraction.
//
// Providers load raw configuration bytes and support watching for changes.
package provider

import (
	"context"
)

// Provider abstracts config sources.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// Load reads raw config bytes from the source.
	Load(ctx context.Context) ([]byte, error)

	// Watch starts watching for changes and signals via the returned channel.
	// The channel receives a value when config changes.
	// Cancel the context to stop watching.
	// Returns nil channel if watching is not supported.
	Watch(ctx context.Context) (<-chan struct{}, error)

	// Close releases any resources held by the provider.
	Close() error
}

// Static serves a fixed byte slice; useful in tests and for defaults.
type Static struct {
	Data []byte
}

func (s *Static) Load(ctx context.Context) ([]byte, error) {
	return s.Data, nil
}

func (s *Static) Watch(ctx context.Context) (<-chan struct{}, error) {
	return nil, nil
}

func (s *Static) Close() error {
	return nil
}
