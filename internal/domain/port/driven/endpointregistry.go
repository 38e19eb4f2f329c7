package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// ErrEndpointNotFound indicates no endpoint is configured for the URL.
var ErrEndpointNotFound = errors.New("endpoint not found")

// EndpointRegistry defines the driven port for Bitbucket endpoint configuration.
type EndpointRegistry interface {
	// FindEndpoint returns the endpoint configured for url, compared after
	// normalization. Returns (nil, nil) when no endpoint matches.
	FindEndpoint(ctx context.Context, url string) (*model.Endpoint, error)

	// ListEndpoints returns configured endpoints, or the implicit Bitbucket
	// Cloud endpoint when none are configured.
	ListEndpoints(ctx context.Context) ([]model.Endpoint, error)

	// SaveEndpoint inserts or replaces the endpoint keyed by its normalized URL.
	SaveEndpoint(ctx context.Context, endpoint model.Endpoint) error

	// RemoveEndpoint deletes an endpoint. Returns ErrEndpointNotFound if absent.
	RemoveEndpoint(ctx context.Context, url string) error
}
