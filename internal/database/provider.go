package database

import (
	"context"
	"fmt"
)

var (
	postgresIdentityReader func() IdentityReader
	postgresIdentityWriter func() IdentityWriter
	postgresInitialized    bool
)

// RegisterPostgresBackend registers PostgreSQL repository constructors.
// This is called by the commands that open a pool to avoid import cycles.
func RegisterPostgresBackend(reader func() IdentityReader, writer func() IdentityWriter) {
	postgresIdentityReader = reader
	postgresIdentityWriter = writer
	postgresInitialized = true
}

// IsInitialized returns whether the PostgreSQL backend has been initialized.
func IsInitialized() bool {
	return postgresInitialized
}

// GetIdentityReader returns an IdentityReader from the PostgreSQL backend
func GetIdentityReader(ctx context.Context) (IdentityReader, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresIdentityReader == nil {
		return nil, fmt.Errorf("PostgreSQL identity reader not registered")
	}
	return postgresIdentityReader(), nil
}

// GetIdentityWriter returns an IdentityWriter from the PostgreSQL backend
func GetIdentityWriter(ctx context.Context) (IdentityWriter, error) {
	if !postgresInitialized {
		return nil, fmt.Errorf("PostgreSQL backend not initialized: DATABASE_URL is required")
	}
	if postgresIdentityWriter == nil {
		return nil, fmt.Errorf("PostgreSQL identity writer not registered")
	}
	return postgresIdentityWriter(), nil
}
