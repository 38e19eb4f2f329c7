// Package model holds the credential, matcher, item, domain and endpoint types
// shared by the application and its adapters.
package model

import (
	"strings"

	"github.com/google/uuid"
)

// CredentialScope controls where a credential may be used. Global credentials
// are available to items; system credentials are reserved for the platform
// itself and are never handed to an item.
type CredentialScope string

const (
	CredentialScopeGlobal CredentialScope = "global"
	CredentialScopeSystem CredentialScope = "system"
)

// Valid reports whether s is a known scope. The empty scope is valid and
// means global.
func (s CredentialScope) Valid() bool {
	switch s {
	case "", CredentialScopeGlobal, CredentialScopeSystem:
		return true
	}
	return false
}

// CredentialKind identifies the variant of a credential.
type CredentialKind string

const (
	CredentialKindUsernamePassword    CredentialKind = "username_password"
	CredentialKindPersonalAccessToken CredentialKind = "personal_access_token"
)

// Credential is an authentication artifact stored by the credential store.
// Implementations are immutable.
type Credential interface {
	ID() string
	Scope() CredentialScope
	Description() string
	Kind() CredentialKind
}

// baseCredential carries the fields shared by every credential variant.
type baseCredential struct {
	scope       CredentialScope
	id          string
	description string
}

// newBaseCredential applies the common construction rules: an empty scope
// becomes global and a blank id is replaced with a random UUID.
func newBaseCredential(scope CredentialScope, id, description string) baseCredential {
	if scope == "" {
		scope = CredentialScopeGlobal
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	return baseCredential{scope: scope, id: id, description: description}
}

func (c baseCredential) ID() string             { return c.id }
func (c baseCredential) Scope() CredentialScope { return c.scope }
func (c baseCredential) Description() string    { return c.description }

// UsernamePasswordCredential is the classic username and secret pair. Both
// Bitbucket Cloud (app passwords) and Bitbucket Server accept it.
type UsernamePasswordCredential struct {
	baseCredential
	username string
	password string
}

// NewUsernamePasswordCredential creates a UsernamePasswordCredential.
func NewUsernamePasswordCredential(scope CredentialScope, id, description, username, password string) *UsernamePasswordCredential {
	return &UsernamePasswordCredential{
		baseCredential: newBaseCredential(scope, id, description),
		username:       strings.TrimSpace(username),
		password:       password,
	}
}

func (c *UsernamePasswordCredential) Kind() CredentialKind { return CredentialKindUsernamePassword }

// Username returns the account name.
func (c *UsernamePasswordCredential) Username() string { return c.username }

// Password returns the secret half of the pair.
func (c *UsernamePasswordCredential) Password() string { return c.password }

// PersonalAccessTokenCredential holds a Bitbucket Server personal access
// token, sent as a bearer token by HTTP clients.
//
// See https://confluence.atlassian.com/bitbucketserver055/personal-access-tokens-940682155.html
type PersonalAccessTokenCredential struct {
	baseCredential
	token string
}

// NewPersonalAccessTokenCredential creates a PersonalAccessTokenCredential.
// Surrounding whitespace is stripped from token; a missing token is stored as
// the empty string. The token is not otherwise transformed.
func NewPersonalAccessTokenCredential(scope CredentialScope, id, description, token string) *PersonalAccessTokenCredential {
	return &PersonalAccessTokenCredential{
		baseCredential: newBaseCredential(scope, id, description),
		token:          strings.TrimSpace(token),
	}
}

func (c *PersonalAccessTokenCredential) Kind() CredentialKind {
	return CredentialKindPersonalAccessToken
}

// Token returns the normalized personal access token.
func (c *PersonalAccessTokenCredential) Token() string { return c.token }
