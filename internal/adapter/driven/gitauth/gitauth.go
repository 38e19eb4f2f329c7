// Package gitauth converts resolved credentials into go-git HTTP auth methods.
package gitauth

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// ErrUnsupportedCredential is returned for credential variants with no HTTP auth mapping.
var ErrUnsupportedCredential = errors.New("unsupported credential")

// AuthMethod returns the go-git auth method for cred. Username/password
// becomes HTTP basic auth; a personal access token is sent as a bearer token,
// which is how Bitbucket Server expects it.
func AuthMethod(cred model.Credential) (transport.AuthMethod, error) {
	switch c := cred.(type) {
	case *model.UsernamePasswordCredential:
		return &githttp.BasicAuth{Username: c.Username(), Password: c.Password()}, nil
	case *model.PersonalAccessTokenCredential:
		return &githttp.TokenAuth{Token: c.Token()}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnsupportedCredential)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCredential, cred.Kind())
	}
}

// SchemeName returns the go-git name of the auth method cred maps to, or ""
// when it has none. Safe to expose: it never carries the secret.
func SchemeName(cred model.Credential) string {
	m, err := AuthMethod(cred)
	if err != nil {
		return ""
	}
	return m.Name()
}
