package model

import (
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
)

// URIRequirements describe the target a credential is about to be used
// against. Zero fields impose no restriction.
type URIRequirements struct {
	Scheme   string
	Hostname string
	Port     int
	Path     string
}

// IsEmpty reports whether r restricts nothing.
func (r URIRequirements) IsEmpty() bool {
	return r == URIRequirements{}
}

var defaultPorts = map[string]int{
	"http":  80,
	"https": 443,
	"ssh":   22,
}

// RequirementsFromURI derives URI requirements from a server URL. A blank or
// unparsable URL yields empty requirements. When the URL has no explicit port
// the scheme's default port is used.
func RequirementsFromURI(rawURL string) URIRequirements {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return URIRequirements{}
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return URIRequirements{}
	}

	reqs := URIRequirements{
		Scheme:   strings.ToLower(u.Scheme),
		Hostname: strings.ToLower(u.Hostname()),
		Path:     u.EscapedPath(),
	}
	if p := u.Port(); p != "" {
		if port, err := strconv.Atoi(p); err == nil {
			reqs.Port = port
		}
	} else {
		reqs.Port = defaultPorts[reqs.Scheme]
	}
	return reqs
}

// SpecificationResult is the outcome of testing a domain specification.
type SpecificationResult int

const (
	// SpecificationUnknown means the specification has nothing to say about
	// the requirements.
	SpecificationUnknown SpecificationResult = iota
	SpecificationPositive
	SpecificationNegative
)

// SpecificationKind names a domain specification variant for persistence.
type SpecificationKind string

const (
	SpecificationKindScheme       SpecificationKind = "scheme"
	SpecificationKindHostname     SpecificationKind = "hostname"
	SpecificationKindHostnamePort SpecificationKind = "hostname_port"
	SpecificationKindPath         SpecificationKind = "path"
)

// DomainSpecification restricts the URIs a domain applies to.
type DomainSpecification interface {
	Kind() SpecificationKind
	Test(reqs URIRequirements) SpecificationResult
}

// Domain groups credentials that apply to a set of URIs. A credential outside
// any domain belongs to the global domain, which matches everything.
type Domain struct {
	Name           string
	Description    string
	Specifications []DomainSpecification
}

// Test reports whether the domain applies to reqs. Empty requirements always
// apply; otherwise the domain applies unless one of its specifications
// rejects the requirements.
func (d Domain) Test(reqs URIRequirements) bool {
	if reqs.IsEmpty() {
		return true
	}
	for _, spec := range d.Specifications {
		if spec.Test(reqs) == SpecificationNegative {
			return false
		}
	}
	return true
}

// SchemeSpecification limits a domain to a comma-separated list of URI schemes.
type SchemeSpecification struct {
	Schemes string
}

func (s SchemeSpecification) Kind() SpecificationKind { return SpecificationKindScheme }

func (s SchemeSpecification) Test(reqs URIRequirements) SpecificationResult {
	if reqs.Scheme == "" {
		return SpecificationUnknown
	}
	for _, scheme := range splitPatterns(s.Schemes) {
		if strings.EqualFold(scheme, reqs.Scheme) {
			return SpecificationPositive
		}
	}
	return SpecificationNegative
}

// HostnameSpecification limits a domain by comma-separated include and
// exclude hostname globs such as "*.example.com". Matching ignores case.
type HostnameSpecification struct {
	Includes string
	Excludes string
}

func (s HostnameSpecification) Kind() SpecificationKind { return SpecificationKindHostname }

func (s HostnameSpecification) Test(reqs URIRequirements) SpecificationResult {
	if reqs.Hostname == "" {
		return SpecificationUnknown
	}
	return includeExclude(strings.ToLower(s.Includes), strings.ToLower(s.Excludes), strings.ToLower(reqs.Hostname), false)
}

// HostnamePortSpecification limits a domain by "host:port" globs.
type HostnamePortSpecification struct {
	Includes string
	Excludes string
}

func (s HostnamePortSpecification) Kind() SpecificationKind {
	return SpecificationKindHostnamePort
}

func (s HostnamePortSpecification) Test(reqs URIRequirements) SpecificationResult {
	if reqs.Hostname == "" || reqs.Port == 0 {
		return SpecificationUnknown
	}
	target := net.JoinHostPort(strings.ToLower(reqs.Hostname), strconv.Itoa(reqs.Port))
	return includeExclude(strings.ToLower(s.Includes), strings.ToLower(s.Excludes), target, false)
}

// PathSpecification limits a domain by path globs. "*" stays within one path
// segment, "**" spans segments.
type PathSpecification struct {
	Includes      string
	Excludes      string
	CaseSensitive bool
}

func (s PathSpecification) Kind() SpecificationKind { return SpecificationKindPath }

func (s PathSpecification) Test(reqs URIRequirements) SpecificationResult {
	if reqs.Path == "" {
		return SpecificationUnknown
	}
	path := reqs.Path
	includes, excludes := s.Includes, s.Excludes
	if !s.CaseSensitive {
		path = strings.ToLower(path)
		includes, excludes = strings.ToLower(includes), strings.ToLower(excludes)
	}
	return includeExclude(includes, excludes, path, true)
}

// includeExclude applies include then exclude pattern lists to target. An
// empty include list includes everything.
func includeExclude(includes, excludes, target string, pathSeparators bool) SpecificationResult {
	if inc := splitPatterns(includes); len(inc) > 0 && !matchAny(inc, target, pathSeparators) {
		return SpecificationNegative
	}
	if matchAny(splitPatterns(excludes), target, pathSeparators) {
		return SpecificationNegative
	}
	return SpecificationPositive
}

func matchAny(patterns []string, target string, pathSeparators bool) bool {
	for _, pattern := range patterns {
		if pattern == target || globMatch(pattern, target, pathSeparators) {
			return true
		}
	}
	return false
}

// globMatch reports whether target matches pattern. Invalid patterns match nothing.
func globMatch(pattern, target string, pathSeparators bool) bool {
	var (
		g   glob.Glob
		err error
	)
	if pathSeparators {
		g, err = glob.Compile(pattern, '/')
	} else {
		g, err = glob.Compile(pattern)
	}
	if err != nil {
		return false
	}
	return g.Match(target)
}

func splitPatterns(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
