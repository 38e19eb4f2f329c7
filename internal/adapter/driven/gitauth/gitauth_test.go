package gitauth

import (
	"testing"

	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

type otherCredential struct{}

func (otherCredential) ID() string                   { return "other" }
func (otherCredential) Scope() model.CredentialScope { return model.CredentialScopeGlobal }
func (otherCredential) Description() string          { return "" }
func (otherCredential) Kind() model.CredentialKind   { return "ssh_key" }

func TestAuthMethod_UsernamePassword(t *testing.T) {
	m, err := AuthMethod(model.NewUsernamePasswordCredential("", "id", "", "alice", "s3cret"))
	require.NoError(t, err)

	basic, ok := m.(*githttp.BasicAuth)
	require.True(t, ok)
	assert.Equal(t, "alice", basic.Username)
	assert.Equal(t, "s3cret", basic.Password)
	assert.NotContains(t, basic.String(), "s3cret")
}

func TestAuthMethod_PersonalAccessToken(t *testing.T) {
	m, err := AuthMethod(model.NewPersonalAccessTokenCredential("", "id", "", " tok "))
	require.NoError(t, err)

	token, ok := m.(*githttp.TokenAuth)
	require.True(t, ok)
	assert.Equal(t, "tok", token.Token)
}

func TestAuthMethod_Unsupported(t *testing.T) {
	_, err := AuthMethod(otherCredential{})
	assert.ErrorIs(t, err, ErrUnsupportedCredential)

	_, err = AuthMethod(nil)
	assert.ErrorIs(t, err, ErrUnsupportedCredential)
}

func TestSchemeName(t *testing.T) {
	assert.Equal(t, "http-basic-auth", SchemeName(model.NewUsernamePasswordCredential("", "id", "", "u", "p")))
	assert.Equal(t, "http-token-auth", SchemeName(model.NewPersonalAccessTokenCredential("", "id", "", "t")))
	assert.Equal(t, "", SchemeName(otherCredential{}))
}
