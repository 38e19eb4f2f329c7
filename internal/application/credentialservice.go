package application

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

// CredentialService looks up credentials on behalf of items. It holds no
// mutable state and is safe for concurrent use as long as its collaborators are.
type CredentialService struct {
	store           driven.CredentialStore
	authenticator   driven.TaskAuthenticator
	systemPrincipal model.Principal
	logger          *slog.Logger
}

// NewCredentialService creates a CredentialService. systemPrincipal is used
// to enumerate credentials for items that are not tasks.
func NewCredentialService(
	store driven.CredentialStore,
	authenticator driven.TaskAuthenticator,
	systemPrincipal model.Principal,
	logger *slog.Logger,
) *CredentialService {
	return &CredentialService{
		store:           store,
		authenticator:   authenticator,
		systemPrincipal: systemPrincipal,
		logger:          logger,
	}
}

// Lookup returns the first credential visible to item whose id equals id and
// which matcher accepts, or nil. serverURL, when non-blank, restricts the
// candidates to credentials whose domain applies to it.
//
// A blank id, nil item or nil matcher returns nil without consulting the store. Every
// failure, including "not visible to this principal", also returns nil so
// callers cannot tell a hidden credential from a missing one.
func (s *CredentialService) Lookup(
	ctx context.Context,
	serverURL string,
	item *model.Item,
	id string,
	matcher model.CredentialMatcher,
) model.Credential {
	if strings.TrimSpace(id) == "" || item == nil || matcher == nil {
		return nil
	}

	principal, ok := s.principalFor(ctx, *item)
	if !ok {
		return nil
	}

	creds, err := s.store.Lookup(ctx, *item, principal, model.RequirementsFromURI(serverURL))
	if err != nil {
		s.logger.Warn("credential enumeration failed",
			"item", item.FullName,
			"principal", principal.Name,
			"error", err,
		)
		return nil
	}

	cred := model.FirstOrNil(creds, model.AllOf(model.WithID(id), matcher))
	if cred == nil {
		s.logger.Debug("no matching credential",
			"item", item.FullName,
			"id", id,
			"candidates", len(creds),
		)
	}
	return cred
}

// principalFor returns the identity used to enumerate credentials for item.
// Tasks use their configured default authentication so that job
// configuration cannot reach credentials the task identity could not.
func (s *CredentialService) principalFor(ctx context.Context, item model.Item) (model.Principal, bool) {
	if !item.IsTask() {
		return s.systemPrincipal, true
	}
	if s.authenticator == nil {
		return model.AnonymousPrincipal(), true
	}

	principal, err := s.authenticator.DefaultAuthentication(ctx, item)
	if err != nil {
		s.logger.Warn("resolve task authentication failed", "item", item.FullName, "error", err)
		return model.Principal{}, false
	}
	return principal, true
}
