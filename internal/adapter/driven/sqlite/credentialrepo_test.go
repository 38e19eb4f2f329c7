package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

var system = model.SystemPrincipal("SYSTEM")

func addCred(t *testing.T, repo *CredentialRepo, loc model.StoreLocation, domain string, cred model.Credential) {
	t.Helper()
	require.NoError(t, repo.Add(context.Background(), model.StoredCredential{
		Location:   loc,
		Domain:     domain,
		Credential: cred,
	}))
}

func ids(creds []model.Credential) []string {
	out := make([]string, 0, len(creds))
	for _, c := range creds {
		out = append(out, c.ID())
	}
	return out
}

func TestCredentialRepo_AddAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)
	ctx := context.Background()

	addCred(t, repo, model.StoreLocation{}, "",
		model.NewUsernamePasswordCredential("", "bb-user", "cloud app password", "alice", "app-pass"))
	addCred(t, repo, model.StoreLocation{}, "",
		model.NewPersonalAccessTokenCredential(model.CredentialScopeGlobal, "bb-pat", "", "  tok  "))

	got, err := repo.List(ctx, model.StoreLocation{})
	require.NoError(t, err)
	require.Len(t, got, 2)

	up, ok := got[0].Credential.(*model.UsernamePasswordCredential)
	require.True(t, ok)
	assert.Equal(t, "bb-user", up.ID())
	assert.Equal(t, "alice", up.Username())
	assert.Equal(t, "app-pass", up.Password())
	assert.Equal(t, "cloud app password", up.Description())
	assert.Equal(t, model.CredentialScopeGlobal, up.Scope())

	pat, ok := got[1].Credential.(*model.PersonalAccessTokenCredential)
	require.True(t, ok)
	assert.Equal(t, "tok", pat.Token())
}

func TestCredentialRepo_SecretsSealedAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)
	ctx := context.Background()

	addCred(t, repo, model.StoreLocation{}, "",
		model.NewPersonalAccessTokenCredential("", "pat", "", "plain-token-value"))

	var stored string
	err := db.Reader.QueryRowContext(ctx, `SELECT secret FROM credentials WHERE credential_id = 'pat'`).Scan(&stored)
	require.NoError(t, err)
	assert.NotContains(t, stored, "plain-token-value")
}

func TestCredentialRepo_Add_Duplicate(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)

	cred := model.NewPersonalAccessTokenCredential("", "dup", "", "t")
	addCred(t, repo, model.StoreLocation{}, "", cred)

	err := repo.Add(context.Background(), model.StoredCredential{Credential: cred})
	assert.ErrorIs(t, err, driven.ErrCredentialAlreadyExists)

	// Same id in another location is fine.
	addCred(t, repo, model.StoreLocation{Folder: "team"}, "", cred)
}

func TestCredentialRepo_Add_UnknownDomain(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)

	err := repo.Add(context.Background(), model.StoredCredential{
		Domain:     "missing",
		Credential: model.NewPersonalAccessTokenCredential("", "x", "", "t"),
	})
	assert.ErrorIs(t, err, driven.ErrDomainNotFound)
}

func TestCredentialRepo_NoKey(t *testing.T) {
	db := setupTestDB(t)
	repo, err := NewCredentialRepo(db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	err = repo.Add(ctx, model.StoredCredential{Credential: model.NewPersonalAccessTokenCredential("", "x", "", "t")})
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestCredentialRepo_Remove(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)
	ctx := context.Background()

	addCred(t, repo, model.StoreLocation{}, "", model.NewPersonalAccessTokenCredential("", "gone", "", "t"))

	require.NoError(t, repo.Remove(ctx, model.StoreLocation{}, "gone"))

	got, err := repo.List(ctx, model.StoreLocation{})
	require.NoError(t, err)
	assert.Empty(t, got)

	err = repo.Remove(ctx, model.StoreLocation{}, "gone")
	assert.ErrorIs(t, err, driven.ErrCredentialNotFound)
}

func TestCredentialRepo_Lookup_SystemPrincipalOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)

	addCred(t, repo, model.StoreLocation{}, "", model.NewPersonalAccessTokenCredential("", "root", "", "t"))
	addCred(t, repo, model.StoreLocation{Folder: "team"}, "", model.NewPersonalAccessTokenCredential("", "team", "", "t"))
	addCred(t, repo, model.StoreLocation{Folder: "team/proj"}, "", model.NewPersonalAccessTokenCredential("", "proj", "", "t"))
	addCred(t, repo, model.StoreLocation{Folder: "other"}, "", model.NewPersonalAccessTokenCredential("", "other", "", "t"))
	addCred(t, repo, model.StoreLocation{Owner: "bob"}, "", model.NewPersonalAccessTokenCredential("", "bob", "", "t"))

	multibranch := model.Item{FullName: "team/proj", Kind: model.ItemKindMultibranch}
	got, err := repo.Lookup(context.Background(), multibranch, system, model.URIRequirements{})
	require.NoError(t, err)
	assert.Equal(t, []string{"proj", "team", "root"}, ids(got))

	job := model.Item{FullName: "team/proj/main", Kind: model.ItemKindJob}
	got, err = repo.Lookup(context.Background(), job, system, model.URIRequirements{})
	require.NoError(t, err)
	assert.Equal(t, []string{"proj", "team", "root"}, ids(got))
}

func TestCredentialRepo_Lookup_SystemScopeHidden(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)

	addCred(t, repo, model.StoreLocation{}, "",
		model.NewPersonalAccessTokenCredential(model.CredentialScopeSystem, "internal", "", "t"))

	got, err := repo.Lookup(context.Background(), model.Item{FullName: "job", Kind: model.ItemKindJob}, system, model.URIRequirements{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCredentialRepo_Lookup_UserPrincipal(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)
	ctx := context.Background()

	addCred(t, repo, model.StoreLocation{}, "", model.NewPersonalAccessTokenCredential("", "root", "", "t"))
	addCred(t, repo, model.StoreLocation{Owner: "bob"}, "", model.NewPersonalAccessTokenCredential("", "bobs", "", "t"))
	addCred(t, repo, model.StoreLocation{Owner: "carol"}, "", model.NewPersonalAccessTokenCredential("", "carols", "", "t"))

	item := model.Item{FullName: "job", Kind: model.ItemKindJob}

	got, err := repo.Lookup(ctx, item, model.Principal{Name: "bob"}, model.URIRequirements{})
	require.NoError(t, err)
	assert.Equal(t, []string{"bobs"}, ids(got))

	got, err = repo.Lookup(ctx, item, model.AnonymousPrincipal(), model.URIRequirements{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCredentialRepo_Lookup_DomainFiltering(t *testing.T) {
	db := setupTestDB(t)
	repo := setupCredentialRepo(t, db)
	domains := NewDomainRepo(db)
	ctx := context.Background()

	require.NoError(t, domains.SaveDomain(ctx, model.Domain{
		Name: "corp",
		Specifications: []model.DomainSpecification{
			model.HostnameSpecification{Includes: "*.corp.example.com"},
			model.SchemeSpecification{Schemes: "https"},
		},
	}))

	addCred(t, repo, model.StoreLocation{}, "corp", model.NewPersonalAccessTokenCredential("", "corp-pat", "", "t"))
	addCred(t, repo, model.StoreLocation{}, "", model.NewPersonalAccessTokenCredential("", "global-pat", "", "t"))

	item := model.Item{FullName: "folder", Kind: model.ItemKindFolder}

	got, err := repo.Lookup(ctx, item, system, model.RequirementsFromURI("https://git.corp.example.com/scm"))
	require.NoError(t, err)
	assert.Equal(t, []string{"corp-pat", "global-pat"}, ids(got))

	got, err = repo.Lookup(ctx, item, system, model.RequirementsFromURI("https://bitbucket.org"))
	require.NoError(t, err)
	assert.Equal(t, []string{"global-pat"}, ids(got))

	got, err = repo.Lookup(ctx, item, system, model.URIRequirements{})
	require.NoError(t, err)
	assert.Equal(t, []string{"corp-pat", "global-pat"}, ids(got), "no URL imposes no restriction")

	listed, err := repo.List(ctx, model.StoreLocation{})
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "corp", listed[0].Domain)
	assert.Equal(t, "", listed[1].Domain)
}
