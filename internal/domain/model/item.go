package model

import "strings"

// ItemKind classifies an item in the platform's item tree.
type ItemKind string

const (
	ItemKindFolder      ItemKind = "folder"
	ItemKindMultibranch ItemKind = "multibranch"
	ItemKindJob         ItemKind = "job"
)

// Item is the entity requesting a credential, e.g. a pipeline job or the
// multibranch project that owns a Bitbucket SCM source. FullName is the
// slash-separated path from the root ("team/project/main").
type Item struct {
	FullName string
	Kind     ItemKind
	RunAs    string // Configured default identity; empty means none.
}

// IsTask reports whether the item is a schedulable unit of work.
func (i Item) IsTask() bool {
	return i.Kind == ItemKindJob
}

// Ancestors returns the full names of the folders containing the item,
// nearest first. The root is not included.
func (i Item) Ancestors() []string {
	parts := strings.Split(strings.Trim(i.FullName, "/"), "/")
	ancestors := make([]string, 0, len(parts))
	for n := len(parts) - 1; n > 0; n-- {
		ancestors = append(ancestors, strings.Join(parts[:n], "/"))
	}
	return ancestors
}

// Principal is the identity under which credentials are enumerated.
type Principal struct {
	Name   string
	System bool
}

const anonymousPrincipalName = "anonymous"

// SystemPrincipal returns the elevated platform identity with the given name.
func SystemPrincipal(name string) Principal {
	return Principal{Name: name, System: true}
}

// AnonymousPrincipal returns the identity used by tasks that have no
// configured default authentication.
func AnonymousPrincipal() Principal {
	return Principal{Name: anonymousPrincipalName}
}

// IsAnonymous reports whether p is the anonymous principal.
func (p Principal) IsAnonymous() bool {
	return !p.System && p.Name == anonymousPrincipalName
}

// StoreLocation identifies which store a credential lives in. The zero value
// is the root store. Folder names a folder store; Owner names a user store.
type StoreLocation struct {
	Folder string
	Owner  string
}

// StoredCredential is a credential together with its place in the store.
type StoredCredential struct {
	Location   StoreLocation
	Domain     string // Empty for the global domain.
	Credential Credential
}
