package model

// CredentialMatcher is a predicate over credentials.
type CredentialMatcher interface {
	Matches(c Credential) bool
}

// MatcherFunc adapts a plain function to the CredentialMatcher interface.
type MatcherFunc func(Credential) bool

// Matches calls f(c).
func (f MatcherFunc) Matches(c Credential) bool {
	return f(c)
}

// InstanceOf matches credentials whose kind is one of kinds.
func InstanceOf(kinds ...CredentialKind) CredentialMatcher {
	return MatcherFunc(func(c Credential) bool {
		if c == nil {
			return false
		}
		for _, k := range kinds {
			if c.Kind() == k {
				return true
			}
		}
		return false
	})
}

// WithID matches the credential whose id equals id exactly.
func WithID(id string) CredentialMatcher {
	return MatcherFunc(func(c Credential) bool {
		return c != nil && c.ID() == id
	})
}

// AllOf matches when every matcher matches. An empty AllOf matches everything.
func AllOf(matchers ...CredentialMatcher) CredentialMatcher {
	return MatcherFunc(func(c Credential) bool {
		for _, m := range matchers {
			if !m.Matches(c) {
				return false
			}
		}
		return true
	})
}

// AnyOf matches when at least one matcher matches. An empty AnyOf matches nothing.
func AnyOf(matchers ...CredentialMatcher) CredentialMatcher {
	return MatcherFunc(func(c Credential) bool {
		for _, m := range matchers {
			if m.Matches(c) {
				return true
			}
		}
		return false
	})
}

// FirstOrNil returns the first credential in creds accepted by matcher, or nil.
// Order of creds is preserved; no sorting is applied.
func FirstOrNil(creds []Credential, matcher CredentialMatcher) Credential {
	for _, c := range creds {
		if matcher.Matches(c) {
			return c
		}
	}
	return nil
}
