// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// ErrEncryptionKeyNotSet is returned by CredentialStore operations that touch
// secret values when BBCREDS_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("encryption key not configured: set BBCREDS_SECRET_KEY")

// Sentinel errors returned by CredentialStore implementations.
var (
	// ErrCredentialNotFound indicates the credential does not exist in the given location.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrCredentialAlreadyExists indicates a credential with the same id exists in the location.
	ErrCredentialAlreadyExists = errors.New("credential already exists")

	// ErrDomainNotFound indicates a credential referenced an unknown domain.
	ErrDomainNotFound = errors.New("domain not found")
)

// CredentialStore defines the driven port for credential persistence and
// enumeration. The adapter is responsible for protecting secret values at
// rest; this interface operates on plaintext credentials at the domain boundary.
type CredentialStore interface {
	// Lookup returns the credentials visible to item when enumerated as
	// principal, restricted to domains that apply to reqs. Empty reqs impose
	// no restriction. The order of the result is the store's enumeration order.
	Lookup(ctx context.Context, item model.Item, principal model.Principal, reqs model.URIRequirements) ([]model.Credential, error)

	// Add stores a new credential. Returns ErrCredentialAlreadyExists if the id
	// is taken in the same location and ErrDomainNotFound for an unknown domain.
	Add(ctx context.Context, cred model.StoredCredential) error

	// Remove deletes a credential. Returns ErrCredentialNotFound if it does not exist.
	Remove(ctx context.Context, loc model.StoreLocation, id string) error

	// List returns the credentials stored in a single location.
	List(ctx context.Context, loc model.StoreLocation) ([]model.StoredCredential, error)
}

// DomainStore defines the driven port for credential domain persistence.
type DomainStore interface {
	// SaveDomain inserts or replaces a domain and its specifications.
	SaveDomain(ctx context.Context, domain model.Domain) error
	// GetDomain returns the domain with the given name, or (nil, nil).
	GetDomain(ctx context.Context, name string) (*model.Domain, error)
	ListDomains(ctx context.Context) ([]model.Domain, error)
}
