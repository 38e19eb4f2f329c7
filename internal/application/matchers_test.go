package application_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// mockEndpointRegistry implements driven.EndpointRegistry.
type mockEndpointRegistry struct {
	endpoint *model.Endpoint
	err      error
}

func (m *mockEndpointRegistry) FindEndpoint(_ context.Context, _ string) (*model.Endpoint, error) {
	return m.endpoint, m.err
}
func (m *mockEndpointRegistry) ListEndpoints(_ context.Context) ([]model.Endpoint, error) {
	return nil, nil
}
func (m *mockEndpointRegistry) SaveEndpoint(_ context.Context, _ model.Endpoint) error { return nil }
func (m *mockEndpointRegistry) RemoveEndpoint(_ context.Context, _ string) error       { return nil }

// acceptance reports which of the built-in variants a matcher accepts.
func acceptance(m model.CredentialMatcher) (up, pat bool) {
	return m.Matches(model.NewUsernamePasswordCredential("", "x", "", "u", "p")),
		m.Matches(model.NewPersonalAccessTokenCredential("", "x", "", "t"))
}

func TestMatcherForCloud(t *testing.T) {
	up, pat := acceptance(application.MatcherForCloud())
	assert.True(t, up)
	assert.False(t, pat)
}

func TestMatcherForServerAndAny(t *testing.T) {
	for name, m := range map[string]model.CredentialMatcher{
		"server": application.MatcherForServer(),
		"any":    application.MatcherForAny(),
	} {
		up, pat := acceptance(m)
		assert.True(t, up, name)
		assert.True(t, pat, name)
	}
}

func TestMatcherForURL(t *testing.T) {
	unknown := model.EndpointType("gitlab")

	tests := []struct {
		name     string
		registry *mockEndpointRegistry
		wantUP   bool
		wantPAT  bool
	}{
		{
			name:     "no endpoint",
			registry: &mockEndpointRegistry{},
			wantUP:   true,
			wantPAT:  true,
		},
		{
			name:     "cloud endpoint",
			registry: &mockEndpointRegistry{endpoint: &model.Endpoint{Type: model.EndpointTypeCloud, ServerURL: model.CloudServerURL}},
			wantUP:   true,
			wantPAT:  false,
		},
		{
			name:     "server endpoint",
			registry: &mockEndpointRegistry{endpoint: &model.Endpoint{Type: model.EndpointTypeServer, ServerURL: "https://bb.example.com"}},
			wantUP:   true,
			wantPAT:  true,
		},
		{
			name:     "endpoint type without descriptor",
			registry: &mockEndpointRegistry{endpoint: &model.Endpoint{Type: unknown, ServerURL: "https://gl.example.com"}},
			wantUP:   true,
			wantPAT:  true,
		},
		{
			name:     "registry error",
			registry: &mockEndpointRegistry{err: errors.New("db locked")},
			wantUP:   true,
			wantPAT:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := application.NewMatcherResolver(tt.registry, nil, slog.Default())

			up, pat := acceptance(resolver.MatcherForURL(context.Background(), "https://example.com"))
			assert.Equal(t, tt.wantUP, up)
			assert.Equal(t, tt.wantPAT, pat)
		})
	}
}

func TestMatcherForURL_NilRegistry(t *testing.T) {
	resolver := application.NewMatcherResolver(nil, nil, slog.Default())

	up, pat := acceptance(resolver.MatcherForURL(context.Background(), ""))
	assert.True(t, up)
	assert.True(t, pat)
	assert.Nil(t, resolver.FindEndpoint(context.Background(), "https://bitbucket.org"))
}

func TestMatcherResolver_Descriptor(t *testing.T) {
	resolver := application.NewMatcherResolver(&mockEndpointRegistry{}, nil, slog.Default())

	d, ok := resolver.Descriptor(model.EndpointTypeCloud)
	assert.True(t, ok)
	assert.Equal(t, "Bitbucket Cloud", d.DisplayName())

	d, ok = resolver.Descriptor(model.EndpointTypeServer)
	assert.True(t, ok)
	assert.Equal(t, "Bitbucket Server", d.DisplayName())

	_, ok = resolver.Descriptor("gitlab")
	assert.False(t, ok)
}
