// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/facematch"
)

// MockIdentityStore is an in-memory implementation of database.IdentityWriter
type MockIdentityStore struct {
	mu         sync.RWMutex
	identities map[int64]database.Identity

	// Error injection
	GetError         error
	ListError        error
	CountError       error
	FindByEmailError error
	FindByNameError  error
	SaveError        error
	DeleteError      error
}

// NewMockIdentityStore creates a new mock identity store
func NewMockIdentityStore() *MockIdentityStore {
	return &MockIdentityStore{
		identities: make(map[int64]database.Identity),
	}
}

// AddIdentity adds an identity to the mock store without touching UpdatedAt
func (m *MockIdentityStore) AddIdentity(identity database.Identity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.UserID] = identity
}

// Get retrieves the identity of a user
func (m *MockIdentityStore) Get(ctx context.Context, userID int64) (*database.Identity, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	identity, ok := m.identities[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	return &identity, nil
}

// List returns all identities ordered by user ID
func (m *MockIdentityStore) List(ctx context.Context) ([]database.Identity, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.Identity, 0, len(m.identities))
	for _, identity := range m.identities {
		result = append(result, identity)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UserID < result[j].UserID })
	return result, nil
}

// Count returns the number of identities
func (m *MockIdentityStore) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.identities), nil
}

// FindByEmail looks up an identity by email
func (m *MockIdentityStore) FindByEmail(ctx context.Context, email string) (*database.Identity, error) {
	if m.FindByEmailError != nil {
		return nil, m.FindByEmailError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, identity := range m.identities {
		if strings.EqualFold(identity.Email, email) {
			return &identity, nil
		}
	}
	return nil, database.ErrNotFound
}

// FindByName returns identities with the same normalized name
func (m *MockIdentityStore) FindByName(ctx context.Context, name string) ([]database.Identity, error) {
	if m.FindByNameError != nil {
		return nil, m.FindByNameError
	}
	want := facematch.NormalizeName(name)
	all, _ := m.List(ctx)
	var result []database.Identity
	for _, identity := range all {
		if facematch.NormalizeName(identity.Name) == want {
			result = append(result, identity)
		}
	}
	return result, nil
}

// Save stores an identity, replacing any previous one
func (m *MockIdentityStore) Save(ctx context.Context, identity database.Identity) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.UserID] = identity
	return nil
}

// Delete removes an identity
func (m *MockIdentityStore) Delete(ctx context.Context, userID int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.identities[userID]; !ok {
		return database.ErrNotFound
	}
	delete(m.identities, userID)
	return nil
}

var _ database.IdentityWriter = (*MockIdentityStore)(nil)
