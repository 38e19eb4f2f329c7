package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EndpointRegistry = (*EndpointRepo)(nil)

// EndpointRepo is the SQLite implementation of the EndpointRegistry port interface.
// While the table is empty it reports the implicit Bitbucket Cloud endpoint.
type EndpointRepo struct {
	db *DB
}

// NewEndpointRepo creates a new EndpointRepo backed by the given DB.
func NewEndpointRepo(db *DB) *EndpointRepo {
	return &EndpointRepo{db: db}
}

// FindEndpoint returns the endpoint whose normalized URL equals the
// normalized url. Returns nil, nil when none matches.
func (r *EndpointRepo) FindEndpoint(ctx context.Context, url string) (*model.Endpoint, error) {
	if url == "" {
		return nil, nil
	}
	normalized := model.NormalizeServerURL(url)

	endpoints, err := r.ListEndpoints(ctx)
	if err != nil {
		return nil, err
	}
	for _, e := range endpoints {
		if e.ServerURL == normalized {
			return &e, nil
		}
	}
	return nil, nil
}

// ListEndpoints returns configured endpoints in insertion order, or the
// implicit cloud endpoint when none are configured.
func (r *EndpointRepo) ListEndpoints(ctx context.Context) ([]model.Endpoint, error) {
	const query = `
		SELECT server_url, type, display_name, manage_hooks, credentials_id, server_version
		FROM endpoints
		ORDER BY added_at, rowid
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []model.Endpoint
	for rows.Next() {
		var e model.Endpoint
		var endpointType string
		if err := rows.Scan(&e.ServerURL, &endpointType, &e.DisplayName, &e.ManageHooks,
			&e.CredentialsID, &e.ServerVersion); err != nil {
			return nil, fmt.Errorf("scan endpoint: %w", err)
		}
		e.Type = model.EndpointType(endpointType)
		endpoints = append(endpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate endpoints: %w", err)
	}

	if len(endpoints) == 0 {
		return []model.Endpoint{model.CloudEndpoint()}, nil
	}
	return endpoints, nil
}

// SaveEndpoint inserts or replaces the endpoint keyed by its normalized URL.
func (r *EndpointRepo) SaveEndpoint(ctx context.Context, endpoint model.Endpoint) error {
	const query = `
		INSERT INTO endpoints (server_url, type, display_name, manage_hooks, credentials_id, server_version)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(server_url) DO UPDATE SET
			type = excluded.type,
			display_name = excluded.display_name,
			manage_hooks = excluded.manage_hooks,
			credentials_id = excluded.credentials_id,
			server_version = excluded.server_version
	`

	serverURL := model.NormalizeServerURL(endpoint.ServerURL)
	credentialsID := endpoint.CredentialsID
	if !endpoint.ManageHooks {
		credentialsID = ""
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		serverURL, string(endpoint.Type), endpoint.DisplayName, endpoint.ManageHooks,
		credentialsID, endpoint.ServerVersion,
	)
	if err != nil {
		return fmt.Errorf("save endpoint %s: %w", serverURL, err)
	}
	return nil
}

// RemoveEndpoint deletes the endpoint for url.
func (r *EndpointRepo) RemoveEndpoint(ctx context.Context, url string) error {
	serverURL := model.NormalizeServerURL(url)

	result, err := r.db.Writer.ExecContext(ctx, `DELETE FROM endpoints WHERE server_url = ?`, serverURL)
	if err != nil {
		return fmt.Errorf("remove endpoint %s: %w", serverURL, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove endpoint %s: %w", serverURL, driven.ErrEndpointNotFound)
	}
	return nil
}
