package driven

import (
	"context"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// TaskAuthenticator resolves the identity a schedulable item runs as.
type TaskAuthenticator interface {
	// DefaultAuthentication returns the configured default principal of item.
	// Items without a configured identity resolve to model.AnonymousPrincipal.
	DefaultAuthentication(ctx context.Context, item model.Item) (model.Principal, error)
}

// ItemStore defines the driven port for item registration.
type ItemStore interface {
	// SaveItem inserts or replaces an item.
	SaveItem(ctx context.Context, item model.Item) error
	// GetItem returns the item with the given full name, or (nil, nil).
	GetItem(ctx context.Context, fullName string) (*model.Item, error)
}
