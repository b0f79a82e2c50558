package mariadb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/facegate/internal/backend"
)

const listUsersQuery = `
	SELECT id, name, email, COALESCE(gender, ''), COALESCE(face_embedding, '')
	FROM users
	ORDER BY id
`

// ListUsers returns every backend user with the face embedding kept in wire form.
// Rows with undecodable embeddings are returned as-is; callers decide whether to skip them.
func (p *Pool) ListUsers(ctx context.Context) ([]backend.User, error) {
	rows, err := p.db.QueryContext(ctx, listUsersQuery)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

func scanUsers(rows *sql.Rows) ([]backend.User, error) {
	var users []backend.User
	for rows.Next() {
		var u backend.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Gender, &u.FaceEmbedding); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
