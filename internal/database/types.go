package database

import (
	"errors"
	"time"

	"github.com/kozaktomas/facegate/internal/embedding"
)

// ErrNotFound is returned when a requested identity does not exist.
var ErrNotFound = errors.New("not found")

// Identity sources
const (
	SourceRegistration = "registration" // enrolled while creating the account
	SourceEnroll       = "enroll"       // re-enrolled by the signed-in user
	SourceSync         = "sync"         // imported from the backend
)

// Identity is the single face descriptor stored for a backend user.
// Saving an identity for an existing user overwrites the previous descriptor.
type Identity struct {
	UserID    int64
	Name      string
	Email     string
	Embedding embedding.Vector
	Source    string
	UpdatedAt time.Time
}
