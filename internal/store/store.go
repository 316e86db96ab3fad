// Package store persists canonical startup records. Two backends share
// one interface: SQLite for local single-user runs and Postgres for
// shared deployments.
package store

import (
	"context"

	"github.com/sells-group/startup-finder/internal/merge"
	"github.com/sells-group/startup-finder/internal/model"
)

// Store defines the persistence interface for startup records. Save is
// an upsert keyed on the dedup key (trimmed, lowercased name): a
// re-saved record keeps its original created_at, advances updated_at,
// and updates fields rather than rows — an incoming empty field never
// clears a stored value, and source labels accumulate.
type Store interface {
	Save(ctx context.Context, s model.Startup) (*model.Startup, error)
	SaveAll(ctx context.Context, startups []model.Startup) (int, error)
	ReplaceAll(ctx context.Context, startups []model.Startup) (int, error)
	FindByName(ctx context.Context, name string) (*model.Startup, error)
	List(ctx context.Context, filter model.Filter) ([]model.Startup, error)

	Migrate(ctx context.Context) error
	Close() error
}

// reconcile folds an incoming record into the persisted one before the
// row is written, so a sparse update touches only the fields it
// carries. Same fold as a collection-run merge: non-empty incoming
// values win, empty ones leave the stored value alone, sources union.
func reconcile(existing, incoming model.Startup) model.Startup {
	return merge.Merge([]model.Startup{existing, incoming}, merge.Options{})[0]
}
