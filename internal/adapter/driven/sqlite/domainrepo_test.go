package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

func TestDomainRepo_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainRepo(db)
	ctx := context.Background()

	want := model.Domain{
		Name:        "server",
		Description: "self-hosted Bitbucket",
		Specifications: []model.DomainSpecification{
			model.SchemeSpecification{Schemes: "https,ssh"},
			model.HostnameSpecification{Includes: "bitbucket.example.com", Excludes: "old.example.com"},
			model.HostnamePortSpecification{Includes: "bitbucket.example.com:7990"},
			model.PathSpecification{Includes: "/scm/**", CaseSensitive: true},
		},
	}
	require.NoError(t, repo.SaveDomain(ctx, want))

	got, err := repo.GetDomain(ctx, "server")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestDomainRepo_SaveReplacesSpecifications(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveDomain(ctx, model.Domain{
		Name:           "d",
		Specifications: []model.DomainSpecification{model.SchemeSpecification{Schemes: "http"}},
	}))
	require.NoError(t, repo.SaveDomain(ctx, model.Domain{
		Name:           "d",
		Description:    "updated",
		Specifications: []model.DomainSpecification{model.HostnameSpecification{Includes: "a.example.com"}},
	}))

	got, err := repo.GetDomain(ctx, "d")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "updated", got.Description)
	assert.Equal(t, []model.DomainSpecification{model.HostnameSpecification{Includes: "a.example.com"}}, got.Specifications)
}

func TestDomainRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainRepo(db)

	got, err := repo.GetDomain(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDomainRepo_ListDomains(t *testing.T) {
	db := setupTestDB(t)
	repo := NewDomainRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveDomain(ctx, model.Domain{Name: "zeta"}))
	require.NoError(t, repo.SaveDomain(ctx, model.Domain{Name: "alpha"}))

	all, err := repo.ListDomains(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "zeta", all[1].Name)
}
