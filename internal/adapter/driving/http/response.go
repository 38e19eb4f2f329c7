package httphandler

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/bbcreds/internal/adapter/driven/gitauth"
	"github.com/ericfisherdev/bbcreds/internal/application"
	"github.com/ericfisherdev/bbcreds/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// CredentialTypeResponse is the JSON representation of a credential descriptor.
type CredentialTypeResponse struct {
	Kind        string `json:"kind"`
	DisplayName string `json:"display_name"`
}

// ValidationResponse is the JSON representation of a form validation result.
type ValidationResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
}

// CredentialResponse describes a credential without its secret.
type CredentialResponse struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Scope       string `json:"scope"`
	Description string `json:"description"`
	Username    string `json:"username,omitempty"`
	Folder      string `json:"folder,omitempty"`
	Owner       string `json:"owner,omitempty"`
	Domain      string `json:"domain,omitempty"`
	AuthScheme  string `json:"auth_scheme,omitempty"`
}

// CreateCredentialRequest is the JSON body for POST /api/v1/credentials.
type CreateCredentialRequest struct {
	Kind        string            `json:"kind"`
	Scope       string            `json:"scope"`
	ID          string            `json:"id"`
	Description string            `json:"description"`
	Folder      string            `json:"folder"`
	Owner       string            `json:"owner"`
	Domain      string            `json:"domain"`
	Fields      map[string]string `json:"fields"`
}

// ItemRequest identifies the item a lookup is performed for.
type ItemRequest struct {
	FullName string `json:"full_name"`
	Kind     string `json:"kind"`
	RunAs    string `json:"run_as,omitempty"`
}

// LookupRequest is the JSON body for POST /api/v1/credentials/lookup.
type LookupRequest struct {
	ServerURL string       `json:"server_url"`
	Item      *ItemRequest `json:"item"`
	ID        string       `json:"id"`
	Matcher   string       `json:"matcher"`
}

// EndpointResponse is the JSON representation of a configured endpoint.
type EndpointResponse struct {
	Type          string `json:"type"`
	ServerURL     string `json:"server_url"`
	DisplayName   string `json:"display_name"`
	ManageHooks   bool   `json:"manage_hooks"`
	CredentialsID string `json:"credentials_id,omitempty"`
	ServerVersion string `json:"server_version,omitempty"`
}

// MatcherResponse names the matcher applied to a URL.
type MatcherResponse struct {
	URL          string `json:"url"`
	Matcher      string `json:"matcher"`
	EndpointType string `json:"endpoint_type,omitempty"`
	DisplayName  string `json:"display_name,omitempty"`
}

// DomainSpecificationJSON is the wire form of a domain specification.
type DomainSpecificationJSON struct {
	Kind          string `json:"kind"`
	Schemes       string `json:"schemes,omitempty"`
	Includes      string `json:"includes,omitempty"`
	Excludes      string `json:"excludes,omitempty"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
}

// DomainJSON is the wire form of a credential domain.
type DomainJSON struct {
	Name           string                    `json:"name"`
	Description    string                    `json:"description"`
	Specifications []DomainSpecificationJSON `json:"specifications"`
}

func toCredentialTypeResponse(d application.CredentialDescriptor) CredentialTypeResponse {
	return CredentialTypeResponse{Kind: string(d.Kind()), DisplayName: d.DisplayName()}
}

func toValidationResponse(res model.ValidationResult) ValidationResponse {
	return ValidationResponse{Kind: string(res.Kind), Message: res.Message}
}

func toCredentialResponse(cred model.Credential) CredentialResponse {
	resp := CredentialResponse{
		ID:          cred.ID(),
		Kind:        string(cred.Kind()),
		Scope:       string(cred.Scope()),
		Description: cred.Description(),
		AuthScheme:  gitauth.SchemeName(cred),
	}
	if up, ok := cred.(*model.UsernamePasswordCredential); ok {
		resp.Username = up.Username()
	}
	return resp
}

func toStoredCredentialResponse(stored model.StoredCredential) CredentialResponse {
	resp := toCredentialResponse(stored.Credential)
	resp.Folder = stored.Location.Folder
	resp.Owner = stored.Location.Owner
	resp.Domain = stored.Domain
	return resp
}

func toEndpointResponse(e model.Endpoint) EndpointResponse {
	return EndpointResponse{
		Type:          string(e.Type),
		ServerURL:     e.ServerURL,
		DisplayName:   e.DisplayName,
		ManageHooks:   e.ManageHooks,
		CredentialsID: e.CredentialsID,
		ServerVersion: e.ServerVersion,
	}
}

func toDomainJSON(d model.Domain) DomainJSON {
	specs := make([]DomainSpecificationJSON, 0, len(d.Specifications))
	for _, spec := range d.Specifications {
		out := DomainSpecificationJSON{Kind: string(spec.Kind())}
		switch s := spec.(type) {
		case model.SchemeSpecification:
			out.Schemes = s.Schemes
		case model.HostnameSpecification:
			out.Includes, out.Excludes = s.Includes, s.Excludes
		case model.HostnamePortSpecification:
			out.Includes, out.Excludes = s.Includes, s.Excludes
		case model.PathSpecification:
			out.Includes, out.Excludes, out.CaseSensitive = s.Includes, s.Excludes, s.CaseSensitive
		}
		specs = append(specs, out)
	}
	return DomainJSON{Name: d.Name, Description: d.Description, Specifications: specs}
}

// toDomain converts the wire form back into a domain. ok is false when a
// specification kind is unknown.
func toDomain(d DomainJSON) (model.Domain, bool) {
	specs := make([]model.DomainSpecification, 0, len(d.Specifications))
	for _, s := range d.Specifications {
		switch model.SpecificationKind(s.Kind) {
		case model.SpecificationKindScheme:
			specs = append(specs, model.SchemeSpecification{Schemes: s.Schemes})
		case model.SpecificationKindHostname:
			specs = append(specs, model.HostnameSpecification{Includes: s.Includes, Excludes: s.Excludes})
		case model.SpecificationKindHostnamePort:
			specs = append(specs, model.HostnamePortSpecification{Includes: s.Includes, Excludes: s.Excludes})
		case model.SpecificationKindPath:
			specs = append(specs, model.PathSpecification{
				Includes:      s.Includes,
				Excludes:      s.Excludes,
				CaseSensitive: s.CaseSensitive,
			})
		default:
			return model.Domain{}, false
		}
	}
	return model.Domain{Name: d.Name, Description: d.Description, Specifications: specs}, true
}
