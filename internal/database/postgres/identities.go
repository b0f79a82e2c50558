package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/facematch"
	"github.com/pgvector/pgvector-go"
)

const identityColumns = `user_id, name, email, embedding, source, updated_at`

// IdentityRepository provides PostgreSQL-backed face storage.
// Matching is done in Go over List; no vector index is maintained.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Get retrieves the identity of a user.
func (r *IdentityRepository) Get(ctx context.Context, userID int64) (*database.Identity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE user_id = $1`, userID)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get identity %d: %w", userID, err)
	}
	return &identity, nil
}

// List returns every enrolled identity ordered by user ID.
func (r *IdentityRepository) List(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// Count returns the number of enrolled identities.
func (r *IdentityRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM identities").Scan(&count); err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// FindByEmail looks up an identity by email, case-insensitively.
func (r *IdentityRepository) FindByEmail(ctx context.Context, email string) (*database.Identity, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE LOWER(email) = LOWER($1) LIMIT 1`, email)
	identity, err := scanIdentity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find identity by email: %w", err)
	}
	return &identity, nil
}

// FindByName compares against the name normalized in Go at save time.
func (r *IdentityRepository) FindByName(ctx context.Context, name string) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE name_normalized = $1 ORDER BY user_id`,
		facematch.NormalizeName(name))
	if err != nil {
		return nil, fmt.Errorf("find identities by name: %w", err)
	}
	defer rows.Close()

	return scanIdentities(rows)
}

// Save upserts the identity, replacing any previous descriptor.
func (r *IdentityRepository) Save(ctx context.Context, identity database.Identity) error {
	if len(identity.Embedding) == 0 {
		return embedding.ErrEmpty
	}
	if identity.UpdatedAt.IsZero() {
		identity.UpdatedAt = time.Now()
	}

	query := `
		INSERT INTO identities (user_id, name, name_normalized, email, embedding, dim, source, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id) DO UPDATE SET
			name = EXCLUDED.name,
			name_normalized = EXCLUDED.name_normalized,
			email = EXCLUDED.email,
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			source = EXCLUDED.source,
			updated_at = EXCLUDED.updated_at
	`
	vec := pgvector.NewVector(identity.Embedding.Float32())
	_, err := r.pool.Exec(ctx, query,
		identity.UserID,
		identity.Name,
		facematch.NormalizeName(identity.Name),
		identity.Email,
		vec,
		len(identity.Embedding),
		identity.Source,
		identity.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save identity %d: %w", identity.UserID, err)
	}
	return nil
}

// Delete removes the identity of a user.
func (r *IdentityRepository) Delete(ctx context.Context, userID int64) error {
	result, err := r.pool.Exec(ctx, "DELETE FROM identities WHERE user_id = $1", userID)
	if err != nil {
		return fmt.Errorf("delete identity %d: %w", userID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrNotFound
	}
	return nil
}

func scanIdentity(scanner interface{ Scan(...any) error }) (database.Identity, error) {
	var (
		identity database.Identity
		vec      pgvector.Vector
	)
	err := scanner.Scan(
		&identity.UserID,
		&identity.Name,
		&identity.Email,
		&vec,
		&identity.Source,
		&identity.UpdatedAt,
	)
	if err != nil {
		return database.Identity{}, err
	}
	identity.Embedding = embedding.FromFloat32(vec.Slice())
	return identity, nil
}

func scanIdentities(rows *sql.Rows) ([]database.Identity, error) {
	var result []database.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		result = append(result, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return result, nil
}

var _ database.IdentityWriter = (*IdentityRepository)(nil)
