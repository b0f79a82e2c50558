package database

import (
	"context"
)

// IdentityReader provides read-only access to enrolled faces
type IdentityReader interface {
	// Get retrieves the identity of a user, returns ErrNotFound if the user has no face
	Get(ctx context.Context, userID int64) (*Identity, error)
	// List returns every enrolled identity ordered by user ID
	List(ctx context.Context) ([]Identity, error)
	// Count returns the number of enrolled identities
	Count(ctx context.Context) (int, error)
	// FindByEmail looks up an identity by email (case-insensitive)
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	// FindByName returns identities whose normalized name equals the normalized input.
	// "jan-novak" matches "Jan Novák".
	FindByName(ctx context.Context, name string) ([]Identity, error)
}

// IdentityWriter provides write access to enrolled faces
type IdentityWriter interface {
	IdentityReader

	// Save stores the identity, replacing any previous descriptor of the same user
	Save(ctx context.Context, identity Identity) error
	// Delete removes the identity of a user, returns ErrNotFound if none exists
	Delete(ctx context.Context, userID int64) error
}
