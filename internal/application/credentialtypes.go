package application

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// ErrInvalidCredential is returned when submitted fields fail validation.
var ErrInvalidCredential = errors.New("invalid credential")

// ErrUnknownCredentialKind is returned for a kind with no registered descriptor.
var ErrUnknownCredentialKind = errors.New("unknown credential kind")

// Field names accepted by the built-in credential descriptors.
const (
	FieldUsername = "username"
	FieldPassword = "password"
	FieldToken    = "token"
)

// CredentialDescriptor describes a credential type to the user-facing layer
// and builds instances of it from submitted form fields.
type CredentialDescriptor interface {
	Kind() model.CredentialKind
	DisplayName() string
	// Validate checks submitted fields before a credential is saved.
	Validate(fields map[string]string) model.ValidationResult
	// New builds the credential. It does not validate; see CredentialTypeRegistry.New.
	New(scope model.CredentialScope, id, description string, fields map[string]string) model.Credential
}

// PersonalAccessTokenDescriptor describes PersonalAccessTokenCredential.
type PersonalAccessTokenDescriptor struct{}

func (PersonalAccessTokenDescriptor) Kind() model.CredentialKind {
	return model.CredentialKindPersonalAccessToken
}

func (PersonalAccessTokenDescriptor) DisplayName() string {
	return "Bitbucket personal access token"
}

func (PersonalAccessTokenDescriptor) Validate(fields map[string]string) model.ValidationResult {
	if strings.TrimSpace(fields[FieldToken]) == "" {
		return model.ValidationErrorResult("Token is required")
	}
	return model.ValidationOKResult()
}

func (PersonalAccessTokenDescriptor) New(scope model.CredentialScope, id, description string, fields map[string]string) model.Credential {
	return model.NewPersonalAccessTokenCredential(scope, id, description, fields[FieldToken])
}

// UsernamePasswordDescriptor describes UsernamePasswordCredential.
type UsernamePasswordDescriptor struct{}

func (UsernamePasswordDescriptor) Kind() model.CredentialKind {
	return model.CredentialKindUsernamePassword
}

func (UsernamePasswordDescriptor) DisplayName() string { return "Username with password" }

func (UsernamePasswordDescriptor) Validate(fields map[string]string) model.ValidationResult {
	if strings.TrimSpace(fields[FieldUsername]) == "" {
		return model.ValidationErrorResult("Username is required")
	}
	if fields[FieldPassword] == "" {
		return model.ValidationResult{Kind: model.ValidationWarning, Message: "Password is empty"}
	}
	return model.ValidationOKResult()
}

func (UsernamePasswordDescriptor) New(scope model.CredentialScope, id, description string, fields map[string]string) model.Credential {
	return model.NewUsernamePasswordCredential(scope, id, description, fields[FieldUsername], fields[FieldPassword])
}

// CredentialTypeRegistry holds the credential descriptors known to the
// application, in registration order.
type CredentialTypeRegistry struct {
	mu          sync.RWMutex
	order       []model.CredentialKind
	descriptors map[model.CredentialKind]CredentialDescriptor
}

// NewCredentialTypeRegistry creates a registry with the given descriptors registered.
func NewCredentialTypeRegistry(descriptors ...CredentialDescriptor) *CredentialTypeRegistry {
	r := &CredentialTypeRegistry{descriptors: make(map[model.CredentialKind]CredentialDescriptor)}
	for _, d := range descriptors {
		r.Register(d)
	}
	return r
}

// DefaultCredentialTypeRegistry returns a registry with the built-in descriptors.
func DefaultCredentialTypeRegistry() *CredentialTypeRegistry {
	return NewCredentialTypeRegistry(UsernamePasswordDescriptor{}, PersonalAccessTokenDescriptor{})
}

// Register adds or replaces the descriptor for d.Kind().
func (r *CredentialTypeRegistry) Register(d CredentialDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descriptors[d.Kind()]; !exists {
		r.order = append(r.order, d.Kind())
	}
	r.descriptors[d.Kind()] = d
}

// Get returns the descriptor for kind.
func (r *CredentialTypeRegistry) Get(kind model.CredentialKind) (CredentialDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[kind]
	return d, ok
}

// All returns every registered descriptor in registration order.
func (r *CredentialTypeRegistry) All() []CredentialDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]CredentialDescriptor, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.descriptors[k])
	}
	return out
}

// New validates fields with the descriptor for kind and builds the credential.
func (r *CredentialTypeRegistry) New(
	kind model.CredentialKind,
	scope model.CredentialScope,
	id, description string,
	fields map[string]string,
) (model.Credential, error) {
	d, ok := r.Get(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCredentialKind, kind)
	}
	if !scope.Valid() {
		return nil, fmt.Errorf("%w: unknown scope %q", ErrInvalidCredential, scope)
	}
	if res := d.Validate(fields); !res.OK() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCredential, res.Message)
	}
	return d.New(scope, id, description, fields), nil
}
