package application

import (
	"context"
	"log/slog"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

// MatcherForCloud returns the matcher for credentials applicable to
// Bitbucket Cloud: username/password only.
func MatcherForCloud() model.CredentialMatcher {
	return model.InstanceOf(model.CredentialKindUsernamePassword)
}

// MatcherForServer returns the matcher for credentials applicable to
// Bitbucket Server: username/password or personal access token.
func MatcherForServer() model.CredentialMatcher {
	return model.AnyOf(
		model.InstanceOf(model.CredentialKindUsernamePassword),
		model.InstanceOf(model.CredentialKindPersonalAccessToken),
	)
}

// MatcherForAny returns the matcher for credentials applicable to either
// Bitbucket Cloud or Bitbucket Server. Used when the target type is unknown.
// It currently accepts the same variants as MatcherForServer.
func MatcherForAny() model.CredentialMatcher {
	return model.AnyOf(
		model.InstanceOf(model.CredentialKindUsernamePassword),
		model.InstanceOf(model.CredentialKindPersonalAccessToken),
	)
}

// EndpointDescriptor describes an endpoint type and the credentials it accepts.
type EndpointDescriptor interface {
	DisplayName() string
	CredentialsMatcher() model.CredentialMatcher
}

type cloudEndpointDescriptor struct{}

func (cloudEndpointDescriptor) DisplayName() string { return "Bitbucket Cloud" }

func (cloudEndpointDescriptor) CredentialsMatcher() model.CredentialMatcher {
	return MatcherForCloud()
}

type serverEndpointDescriptor struct{}

func (serverEndpointDescriptor) DisplayName() string { return "Bitbucket Server" }

func (serverEndpointDescriptor) CredentialsMatcher() model.CredentialMatcher {
	return MatcherForServer()
}

// DefaultEndpointDescriptors returns the descriptors for the built-in endpoint types.
func DefaultEndpointDescriptors() map[model.EndpointType]EndpointDescriptor {
	return map[model.EndpointType]EndpointDescriptor{
		model.EndpointTypeCloud:  cloudEndpointDescriptor{},
		model.EndpointTypeServer: serverEndpointDescriptor{},
	}
}

// MatcherResolver picks the credential matcher for a target URL from the
// endpoint configuration.
type MatcherResolver struct {
	endpoints   driven.EndpointRegistry
	descriptors map[model.EndpointType]EndpointDescriptor
	logger      *slog.Logger
}

// NewMatcherResolver creates a MatcherResolver. A nil descriptors map uses
// DefaultEndpointDescriptors.
func NewMatcherResolver(
	endpoints driven.EndpointRegistry,
	descriptors map[model.EndpointType]EndpointDescriptor,
	logger *slog.Logger,
) *MatcherResolver {
	if descriptors == nil {
		descriptors = DefaultEndpointDescriptors()
	}
	return &MatcherResolver{
		endpoints:   endpoints,
		descriptors: descriptors,
		logger:      logger,
	}
}

// MatcherForURL returns the matcher preferred by the endpoint configured for
// url. When no endpoint matches, or its type has no descriptor, MatcherForAny
// is returned. It never fails; registry errors are logged and treated as no
// endpoint.
func (r *MatcherResolver) MatcherForURL(ctx context.Context, url string) model.CredentialMatcher {
	endpoint := r.FindEndpoint(ctx, url)
	if endpoint == nil {
		return MatcherForAny()
	}
	if desc, ok := r.descriptors[endpoint.Type]; ok {
		return desc.CredentialsMatcher()
	}
	return MatcherForAny()
}

// FindEndpoint returns the endpoint configured for url, or nil. Registry
// errors are logged and reported as nil.
func (r *MatcherResolver) FindEndpoint(ctx context.Context, url string) *model.Endpoint {
	if r.endpoints == nil {
		return nil
	}
	endpoint, err := r.endpoints.FindEndpoint(ctx, url)
	if err != nil {
		r.logger.Warn("endpoint lookup failed, using permissive matcher", "url", url, "error", err)
		return nil
	}
	return endpoint
}

// Descriptor returns the descriptor registered for an endpoint type.
func (r *MatcherResolver) Descriptor(t model.EndpointType) (EndpointDescriptor, bool) {
	d, ok := r.descriptors[t]
	return d, ok
}
