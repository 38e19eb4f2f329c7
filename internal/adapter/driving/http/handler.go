package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

// Named matchers accepted by the lookup endpoint.
const (
	matcherCloud  = "cloud"
	matcherServer = "server"
	matcherAny    = "any"
	matcherURL    = "url"
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	credentialSvc *application.CredentialService
	resolver      *application.MatcherResolver
	types         *application.CredentialTypeRegistry
	credStore     driven.CredentialStore
	domainStore   driven.DomainStore
	endpoints     driven.EndpointRegistry
	itemStore     driven.ItemStore
	sanitizer     *bluemonday.Policy
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	credentialSvc *application.CredentialService,
	resolver *application.MatcherResolver,
	types *application.CredentialTypeRegistry,
	credStore driven.CredentialStore,
	domainStore driven.DomainStore,
	endpoints driven.EndpointRegistry,
	itemStore driven.ItemStore,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		credentialSvc: credentialSvc,
		resolver:      resolver,
		types:         types,
		credStore:     credStore,
		domainStore:   domainStore,
		endpoints:     endpoints,
		itemStore:     itemStore,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/credential-types", h.ListCredentialTypes)
	mux.HandleFunc("POST /api/v1/credential-types/{kind}/validate", h.ValidateCredential)
	mux.HandleFunc("GET /api/v1/credentials", h.ListCredentials)
	mux.HandleFunc("POST /api/v1/credentials", h.CreateCredential)
	mux.HandleFunc("DELETE /api/v1/credentials/{id}", h.RemoveCredential)
	mux.HandleFunc("POST /api/v1/credentials/lookup", h.LookupCredential)
	mux.HandleFunc("GET /api/v1/endpoints", h.ListEndpoints)
	mux.HandleFunc("PUT /api/v1/endpoints", h.SaveEndpoint)
	mux.HandleFunc("DELETE /api/v1/endpoints", h.RemoveEndpoint)
	mux.HandleFunc("GET /api/v1/endpoints/matcher", h.EndpointMatcher)
	mux.HandleFunc("GET /api/v1/domains", h.ListDomains)
	mux.HandleFunc("POST /api/v1/domains", h.SaveDomain)
	mux.HandleFunc("PUT /api/v1/items", h.SaveItem)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListCredentialTypes returns the registered credential descriptors.
func (h *Handler) ListCredentialTypes(w http.ResponseWriter, _ *http.Request) {
	all := h.types.All()
	resp := make([]CredentialTypeResponse, 0, len(all))
	for _, d := range all {
		resp = append(resp, toCredentialTypeResponse(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ValidateCredential runs the form validation of a credential type against
// the submitted fields without saving anything.
func (h *Handler) ValidateCredential(w http.ResponseWriter, r *http.Request) {
	d, ok := h.types.Get(model.CredentialKind(r.PathValue("kind")))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown credential kind")
		return
	}

	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, toValidationResponse(d.Validate(fields)))
}

// ListCredentials returns the credentials of one store location, without secrets.
func (h *Handler) ListCredentials(w http.ResponseWriter, r *http.Request) {
	loc := locationFromQuery(r)

	stored, err := h.credStore.List(r.Context(), loc)
	if err != nil {
		h.writeStoreError(w, "failed to list credentials", err)
		return
	}

	resp := make([]CredentialResponse, 0, len(stored))
	for _, s := range stored {
		resp = append(resp, toStoredCredentialResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateCredential builds a credential through the type registry and stores it.
func (h *Handler) CreateCredential(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Folder != "" && req.Owner != "" {
		writeError(w, http.StatusBadRequest, "folder and owner are mutually exclusive")
		return
	}

	description := h.sanitizer.Sanitize(strings.TrimSpace(req.Description))

	cred, err := h.types.New(model.CredentialKind(req.Kind), model.CredentialScope(req.Scope),
		strings.TrimSpace(req.ID), description, req.Fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stored := model.StoredCredential{
		Location:   model.StoreLocation{Folder: req.Folder, Owner: req.Owner},
		Domain:     req.Domain,
		Credential: cred,
	}
	if err := h.credStore.Add(r.Context(), stored); err != nil {
		h.writeStoreError(w, "failed to add credential", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStoredCredentialResponse(stored))
}

// RemoveCredential deletes a credential from the location named by the
// folder or owner query parameter (root store when both are absent).
func (h *Handler) RemoveCredential(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.credStore.Remove(r.Context(), locationFromQuery(r), id); err != nil {
		h.writeStoreError(w, "failed to remove credential", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LookupCredential resolves a credential id for an item the way an SCM
// source does before cloning. A credential that does not exist and one the
// item may not see both answer 404.
func (h *Handler) LookupCredential(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	matcher, ok := h.namedMatcher(r, req.Matcher, req.ServerURL)
	if !ok {
		writeError(w, http.StatusBadRequest, "matcher must be one of cloud, server, any, url")
		return
	}

	var item *model.Item
	if req.Item != nil {
		resolved, err := h.resolveItem(r, *req.Item)
		if err != nil {
			h.logger.Error("failed to resolve item", "item", req.Item.FullName, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		item = resolved
	}

	cred := h.credentialSvc.Lookup(r.Context(), req.ServerURL, item, req.ID, matcher)
	if cred == nil {
		writeError(w, http.StatusNotFound, "credential not found")
		return
	}

	writeJSON(w, http.StatusOK, toCredentialResponse(cred))
}

// ListEndpoints returns the configured Bitbucket endpoints.
func (h *Handler) ListEndpoints(w http.ResponseWriter, r *http.Request) {
	endpoints, err := h.endpoints.ListEndpoints(r.Context())
	if err != nil {
		h.logger.Error("failed to list endpoints", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]EndpointResponse, 0, len(endpoints))
	for _, e := range endpoints {
		resp = append(resp, toEndpointResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveEndpoint adds or replaces an endpoint keyed by its server URL.
func (h *Handler) SaveEndpoint(w http.ResponseWriter, r *http.Request) {
	var req EndpointResponse
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	endpointType := model.EndpointType(req.Type)
	desc, ok := h.resolver.Descriptor(endpointType)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown endpoint type")
		return
	}

	endpoint := model.Endpoint{
		Type:          endpointType,
		ServerURL:     model.NormalizeServerURL(req.ServerURL),
		DisplayName:   h.sanitizer.Sanitize(strings.TrimSpace(req.DisplayName)),
		ManageHooks:   req.ManageHooks,
		CredentialsID: strings.TrimSpace(req.CredentialsID),
		ServerVersion: req.ServerVersion,
	}
	if endpointType == model.EndpointTypeCloud && endpoint.ServerURL == "" {
		endpoint.ServerURL = model.CloudServerURL
	}
	if endpoint.ServerURL == "" {
		writeError(w, http.StatusBadRequest, "server_url is required")
		return
	}
	if endpoint.DisplayName == "" {
		endpoint.DisplayName = desc.DisplayName()
	}

	if err := h.endpoints.SaveEndpoint(r.Context(), endpoint); err != nil {
		h.logger.Error("failed to save endpoint", "url", endpoint.ServerURL, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !endpoint.ManageHooks {
		endpoint.CredentialsID = ""
	}
	writeJSON(w, http.StatusOK, toEndpointResponse(endpoint))
}

// RemoveEndpoint deletes the endpoint named by the url query parameter.
func (h *Handler) RemoveEndpoint(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	if url == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if err := h.endpoints.RemoveEndpoint(r.Context(), url); err != nil {
		if errors.Is(err, driven.ErrEndpointNotFound) {
			writeError(w, http.StatusNotFound, "endpoint not found")
			return
		}
		h.logger.Error("failed to remove endpoint", "url", url, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EndpointMatcher reports which matcher a lookup against url would use.
func (h *Handler) EndpointMatcher(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	resp := MatcherResponse{URL: url, Matcher: matcherAny}

	if endpoint := h.resolver.FindEndpoint(r.Context(), url); endpoint != nil {
		resp.EndpointType = string(endpoint.Type)
		resp.DisplayName = endpoint.DisplayName
		if _, ok := h.resolver.Descriptor(endpoint.Type); ok {
			resp.Matcher = string(endpoint.Type)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListDomains returns every credential domain.
func (h *Handler) ListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := h.domainStore.ListDomains(r.Context())
	if err != nil {
		h.logger.Error("failed to list domains", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]DomainJSON, 0, len(domains))
	for _, d := range domains {
		resp = append(resp, toDomainJSON(d))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SaveDomain creates or replaces a credential domain.
func (h *Handler) SaveDomain(w http.ResponseWriter, r *http.Request) {
	var req DomainJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	domain, ok := toDomain(req)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown specification kind")
		return
	}
	domain.Description = h.sanitizer.Sanitize(domain.Description)

	if err := h.domainStore.SaveDomain(r.Context(), domain); err != nil {
		h.logger.Error("failed to save domain", "domain", domain.Name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toDomainJSON(domain))
}

// SaveItem registers an item and the principal it runs as.
func (h *Handler) SaveItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item := model.Item{
		FullName: strings.Trim(strings.TrimSpace(req.FullName), "/"),
		Kind:     model.ItemKind(req.Kind),
		RunAs:    strings.TrimSpace(req.RunAs),
	}
	if item.FullName == "" {
		writeError(w, http.StatusBadRequest, "full_name is required")
		return
	}
	if !isValidItemKind(item.Kind) {
		writeError(w, http.StatusBadRequest, "kind must be one of folder, multibranch, job")
		return
	}

	if err := h.itemStore.SaveItem(r.Context(), item); err != nil {
		h.logger.Error("failed to save item", "item", item.FullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ItemRequest{FullName: item.FullName, Kind: string(item.Kind), RunAs: item.RunAs})
}

// namedMatcher maps a matcher name to a matcher. An empty name means "url".
func (h *Handler) namedMatcher(r *http.Request, name, serverURL string) (model.CredentialMatcher, bool) {
	switch name {
	case matcherCloud:
		return application.MatcherForCloud(), true
	case matcherServer:
		return application.MatcherForServer(), true
	case matcherAny:
		return application.MatcherForAny(), true
	case matcherURL, "":
		return h.resolver.MatcherForURL(r.Context(), serverURL), true
	default:
		return nil, false
	}
}

// resolveItem builds the requesting item. A registered item always keeps its
// stored kind and run_as; request values only describe unregistered items,
// which default to jobs.
func (h *Handler) resolveItem(r *http.Request, req ItemRequest) (*model.Item, error) {
	item := &model.Item{
		FullName: strings.Trim(req.FullName, "/"),
		Kind:     model.ItemKind(req.Kind),
		RunAs:    req.RunAs,
	}

	stored, err := h.itemStore.GetItem(r.Context(), item.FullName)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		item.Kind = stored.Kind
		item.RunAs = stored.RunAs
	}
	if item.Kind == "" {
		item.Kind = model.ItemKindJob
	}
	return item, nil
}

// writeStoreError maps credential store errors to HTTP responses.
func (h *Handler) writeStoreError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, driven.ErrCredentialNotFound):
		writeError(w, http.StatusNotFound, "credential not found")
	case errors.Is(err, driven.ErrCredentialAlreadyExists):
		writeError(w, http.StatusConflict, "credential already exists")
	case errors.Is(err, driven.ErrDomainNotFound):
		writeError(w, http.StatusBadRequest, "domain not found")
	case errors.Is(err, driven.ErrEncryptionKeyNotSet):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func locationFromQuery(r *http.Request) model.StoreLocation {
	q := r.URL.Query()
	return model.StoreLocation{Folder: q.Get("folder"), Owner: q.Get("owner")}
}

func isValidItemKind(kind model.ItemKind) bool {
	switch kind {
	case model.ItemKindFolder, model.ItemKindMultibranch, model.ItemKindJob:
		return true
	}
	return false
}
