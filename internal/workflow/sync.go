package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
	"github.com/kozaktomas/facegate/internal/logging"
)

// Source lists backend users with their encoded faces. Both the backend REST
// client and the MariaDB pool implement it.
type Source = UserLister

// SyncResult counts the users seen by an import.
type SyncResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
	Total    int `json:"total"`
}

// Importer copies faces from a Source into the identity store.
type Importer struct {
	source Source
	store  database.IdentityWriter
	dim    int
	logger *slog.Logger

	// OnProgress is called after each user with the number processed so far.
	OnProgress func(done, total int)
}

// NewImporter creates an importer. Faces whose length differs from dim are skipped.
func NewImporter(source Source, store database.IdentityWriter, dim int, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Importer{source: source, store: store, dim: dim, logger: logger}
}

// Sync imports every decodable face, overwriting stored ones. Users without a
// face or with an undecodable one are skipped.
func (i *Importer) Sync(ctx context.Context) (*SyncResult, error) {
	users, err := i.source.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	res := &SyncResult{Total: len(users)}
	for n, u := range users {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		v, err := embedding.DecodeDim(u.FaceEmbedding, i.dim)
		if err != nil {
			res.Skipped++
			i.logger.Debug("skipping user", "user_id", u.ID, "reason", err)
		} else {
			identity := database.Identity{
				UserID:    u.ID,
				Name:      u.Name,
				Email:     u.Email,
				Embedding: v,
				Source:    database.SourceSync,
				UpdatedAt: time.Now().UTC(),
			}
			if err := i.store.Save(ctx, identity); err != nil {
				return res, fmt.Errorf("save identity of user %d: %w", u.ID, err)
			}
			res.Imported++
		}

		if i.OnProgress != nil {
			i.OnProgress(n+1, len(users))
		}
	}

	i.logger.Info("face sync finished", "imported", res.Imported, "skipped", res.Skipped, "total", res.Total)
	return res, nil
}
