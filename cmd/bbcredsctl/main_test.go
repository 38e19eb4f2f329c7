package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sqliteadapter "github.com/ericfisherdev/bbcreds/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

const testSecretKey = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

// seedDB creates a migrated database file holding a personal access token in
// the root store and a username/password credential in the "team" folder.
func seedDB(t *testing.T) string {
	t.Helper()
	t.Setenv("BBCREDS_SECRET_KEY", testSecretKey)
	t.Setenv("BBCREDS_SYSTEM_PRINCIPAL", "SYSTEM")
	t.Setenv("BBCREDS_LOG_LEVEL", "error")

	path := filepath.Join(t.TempDir(), "bbcreds.db")
	ctx := context.Background()

	db, err := sqliteadapter.NewDB(ctx, path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, sqliteadapter.RunMigrations(db.Writer))

	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	repo, err := sqliteadapter.NewCredentialRepo(db, key)
	require.NoError(t, err)

	require.NoError(t, repo.Add(ctx, model.StoredCredential{
		Credential: model.NewPersonalAccessTokenCredential("", "bb-pat", "server token", "tok"),
	}))
	require.NoError(t, repo.Add(ctx, model.StoredCredential{
		Location:   model.StoreLocation{Folder: "team"},
		Credential: model.NewUsernamePasswordCredential("", "bb-user", "", "alice", "app-pass"),
	}))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(context.Background())
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLookupCommand(t *testing.T) {
	path := seedDB(t)

	out, err := execute(t, "lookup", "--db", path, "--item", "team/proj", "--item-kind", "multibranch",
		"--id", "bb-pat", "--matcher", "server")
	require.NoError(t, err)
	assert.Contains(t, out, "kind:        personal_access_token")
	assert.Contains(t, out, "auth:        http-token-auth")
	assert.NotContains(t, out, "tok\n")

	_, err = execute(t, "lookup", "--db", path, "--item", "team/proj", "--item-kind", "multibranch",
		"--id", "bb-pat", "--matcher", "cloud")
	assert.ErrorIs(t, err, errCredentialNotFound)

	out, err = execute(t, "lookup", "--db", path, "--item", "team/proj", "--item-kind", "folder",
		"--id", "bb-user", "--url", "https://bitbucket.org")
	require.NoError(t, err)
	assert.Contains(t, out, "username:    alice")
	assert.NotContains(t, out, "app-pass")
}

func TestLookupCommand_TaskWithoutRunAsSeesNothing(t *testing.T) {
	path := seedDB(t)

	_, err := execute(t, "lookup", "--db", path, "--item", "team/proj/main", "--id", "bb-pat", "--matcher", "any")
	assert.ErrorIs(t, err, errCredentialNotFound)
}

func TestLookupCommand_RegisteredItemIgnoresItemKind(t *testing.T) {
	path := seedDB(t)
	ctx := context.Background()

	db, err := sqliteadapter.NewDB(ctx, path)
	require.NoError(t, err)
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i + 1)
	}
	repo, err := sqliteadapter.NewCredentialRepo(db, key)
	require.NoError(t, err)
	require.NoError(t, sqliteadapter.NewItemRepo(db).SaveItem(ctx,
		model.Item{FullName: "team/proj/main", Kind: model.ItemKindJob, RunAs: "bob"}))
	require.NoError(t, repo.Add(ctx, model.StoredCredential{
		Location:   model.StoreLocation{Owner: "bob"},
		Credential: model.NewPersonalAccessTokenCredential("", "bb-bob", "", "bob-tok"),
	}))
	require.NoError(t, db.Close())

	// The root token is only visible to the system principal.
	_, err = execute(t, "lookup", "--db", path, "--item", "team/proj/main", "--item-kind", "folder",
		"--id", "bb-pat", "--matcher", "any")
	assert.ErrorIs(t, err, errCredentialNotFound)

	out, err := execute(t, "lookup", "--db", path, "--item", "team/proj/main", "--item-kind", "folder",
		"--id", "bb-bob", "--matcher", "any")
	require.NoError(t, err)
	assert.Contains(t, out, "id:          bb-bob")
}

func TestLookupCommand_Validation(t *testing.T) {
	path := seedDB(t)

	_, err := execute(t, "lookup", "--db", path, "--id", "bb-pat")
	assert.EqualError(t, err, "no item specified")

	_, err = execute(t, "lookup", "--db", path, "--item", "team", "--id", "bb-pat", "--matcher", "gitlab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown matcher")
}

func TestMatcherCommand(t *testing.T) {
	path := seedDB(t)

	out, err := execute(t, "matcher", "--db", path, "https://bitbucket.org/")
	require.NoError(t, err)
	assert.Contains(t, out, "matcher cloud")

	out, err = execute(t, "matcher", "--db", path, "https://bb.example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "matcher any")
}

func TestValidateCommand(t *testing.T) {
	out, err := execute(t, "validate", "--kind", "personal_access_token", "--field", "token=abc")
	require.NoError(t, err)
	assert.Contains(t, out, "Bitbucket personal access token: ok")

	out, err = execute(t, "validate", "--kind", "personal_access_token")
	assert.ErrorIs(t, err, application.ErrInvalidCredential)
	assert.Contains(t, out, "Token is required")

	_, err = execute(t, "validate", "--kind", "ssh_key")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown credential kind")
}
