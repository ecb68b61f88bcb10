// Package storage persists the webpage state document.
package storage

import "context"

// Provider stores a single serialized document.
type Provider interface {
	// Load returns the stored document, or an error wrapping apperr.ErrNotFound
	// when nothing has been saved yet.
	Load(ctx context.Context) ([]byte, error)
	// Save overwrites the stored document.
	Save(ctx context.Context, content []byte) error
	// Name identifies the backend in logs.
	Name() string
}
