package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.ItemStore         = (*ItemRepo)(nil)
	_ driven.TaskAuthenticator = (*ItemRepo)(nil)
)

// ItemRepo is the SQLite implementation of the ItemStore and
// TaskAuthenticator port interfaces.
type ItemRepo struct {
	db *DB
}

// NewItemRepo creates a new ItemRepo backed by the given DB.
func NewItemRepo(db *DB) *ItemRepo {
	return &ItemRepo{db: db}
}

// SaveItem inserts or replaces an item.
func (r *ItemRepo) SaveItem(ctx context.Context, item model.Item) error {
	const query = `
		INSERT INTO items (full_name, kind, run_as) VALUES (?, ?, ?)
		ON CONFLICT(full_name) DO UPDATE SET
			kind = excluded.kind,
			run_as = excluded.run_as
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, item.FullName, string(item.Kind), item.RunAs); err != nil {
		return fmt.Errorf("save item %s: %w", item.FullName, err)
	}
	return nil
}

// GetItem retrieves an item by full name. Returns nil, nil if it does not exist.
func (r *ItemRepo) GetItem(ctx context.Context, fullName string) (*model.Item, error) {
	const query = `SELECT full_name, kind, run_as FROM items WHERE full_name = ?`

	var item model.Item
	var kind string
	err := r.db.Reader.QueryRowContext(ctx, query, fullName).Scan(&item.FullName, &kind, &item.RunAs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", fullName, err)
	}
	item.Kind = model.ItemKind(kind)
	return &item, nil
}

// DefaultAuthentication returns the principal item runs as. The registered
// run_as wins over the one carried by item; with neither, the task runs anonymously.
// Falling back to anonymous rather than the system principal is deliberate.
func (r *ItemRepo) DefaultAuthentication(ctx context.Context, item model.Item) (model.Principal, error) {
	stored, err := r.GetItem(ctx, item.FullName)
	if err != nil {
		return model.Principal{}, err
	}

	runAs := item.RunAs
	if stored != nil && stored.RunAs != "" {
		runAs = stored.RunAs
	}
	if runAs == "" {
		return model.AnonymousPrincipal(), nil
	}
	return model.Principal{Name: runAs}, nil
}
