package model

import (
	"net/url"
	"strings"
)

// CloudServerURL is the URL of Bitbucket Cloud.
const CloudServerURL = "https://bitbucket.org"

// EndpointType distinguishes Bitbucket Cloud from self-hosted Bitbucket Server.
type EndpointType string

const (
	EndpointTypeCloud  EndpointType = "cloud"
	EndpointTypeServer EndpointType = "server"
)

// Endpoint is a configured Bitbucket instance.
type Endpoint struct {
	Type          EndpointType
	ServerURL     string // Normalized; see NormalizeServerURL.
	DisplayName   string
	ManageHooks   bool
	CredentialsID string // Credentials used to manage hooks; empty when ManageHooks is false.
	ServerVersion string // Bitbucket Server only.
}

// CloudEndpoint returns the implicit Bitbucket Cloud endpoint used when no
// endpoint has been configured.
func CloudEndpoint() Endpoint {
	return Endpoint{
		Type:        EndpointTypeCloud,
		ServerURL:   CloudServerURL,
		DisplayName: "Bitbucket Cloud",
	}
}

// NormalizeServerURL canonicalizes a server URL for comparison: scheme and
// host are lowercased, default ports and trailing slashes are dropped. An
// unparsable URL is returned trimmed but otherwise unchanged.
func NormalizeServerURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return strings.TrimRight(rawURL, "/")
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	u.Host = host
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""

	return u.String()
}
