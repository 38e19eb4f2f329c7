package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port interface.
// Passwords and tokens are sealed with AES-256-GCM before write and opened after read.
//
// Visibility follows the store hierarchy: the system principal sees the
// item's own store (for folders), its ancestor folder stores and the root
// store; any other principal sees only its own user store. Credentials of
// system scope are never visible to an item.
type CredentialRepo struct {
	db      *DB
	domains *DomainRepo
	sealer  *sealer
}

// NewCredentialRepo creates a new CredentialRepo. key must be 32 bytes for AES-256-GCM,
// or nil to disable credential storage (operations touching secrets return ErrEncryptionKeyNotSet).
func NewCredentialRepo(db *DB, key []byte) (*CredentialRepo, error) {
	s, err := newSealer(key)
	if err != nil {
		return nil, err
	}
	return &CredentialRepo{db: db, domains: NewDomainRepo(db), sealer: s}, nil
}

// Add stores a new credential in its location.
func (r *CredentialRepo) Add(ctx context.Context, stored model.StoredCredential) error {
	cred := stored.Credential
	if cred == nil {
		return errors.New("add credential: nil credential")
	}

	username, secret, err := splitSecret(cred)
	if err != nil {
		return fmt.Errorf("add credential %q: %w", cred.ID(), err)
	}
	sealed, err := r.sealer.seal(secret)
	if err != nil {
		return err
	}

	domainID, err := r.domains.domainID(ctx, stored.Domain)
	if err != nil {
		return fmt.Errorf("add credential %q: %w", cred.ID(), err)
	}

	const query = `
		INSERT INTO credentials (credential_id, folder, owner, domain_id, scope, kind, description, username, secret)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Writer.ExecContext(ctx, query,
		cred.ID(), stored.Location.Folder, stored.Location.Owner, domainID,
		string(cred.Scope()), string(cred.Kind()), cred.Description(), username, sealed,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("add credential %q: %w", cred.ID(), driven.ErrCredentialAlreadyExists)
		}
		return fmt.Errorf("add credential %q: %w", cred.ID(), err)
	}
	return nil
}

// Remove deletes the credential with the given id from a location.
func (r *CredentialRepo) Remove(ctx context.Context, loc model.StoreLocation, id string) error {
	const query = `DELETE FROM credentials WHERE folder = ? AND owner = ? AND credential_id = ?`

	result, err := r.db.Writer.ExecContext(ctx, query, loc.Folder, loc.Owner, id)
	if err != nil {
		return fmt.Errorf("remove credential %q: %w", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("remove credential %q: %w", id, driven.ErrCredentialNotFound)
	}
	return nil
}

// List returns the credentials stored in a single location, in insertion order.
func (r *CredentialRepo) List(ctx context.Context, loc model.StoreLocation) ([]model.StoredCredential, error) {
	rows, err := r.queryLocation(ctx, loc, true)
	if err != nil {
		return nil, err
	}

	out := make([]model.StoredCredential, 0, len(rows))
	cache := make(map[int64]model.Domain)
	for _, row := range rows {
		cred, err := r.build(row)
		if err != nil {
			return nil, err
		}
		stored := model.StoredCredential{Location: loc, Credential: cred}
		if row.domainID.Valid {
			d, err := r.cachedDomain(ctx, cache, row.domainID.Int64)
			if err != nil {
				return nil, err
			}
			stored.Domain = d.Name
		}
		out = append(out, stored)
	}
	return out, nil
}

// Lookup returns the credentials visible to item under principal whose domain
// applies to reqs. User store first, then the nearest folder store out to
// the root store; insertion order within a store.
func (r *CredentialRepo) Lookup(
	ctx context.Context,
	item model.Item,
	principal model.Principal,
	reqs model.URIRequirements,
) ([]model.Credential, error) {
	var creds []model.Credential
	cache := make(map[int64]model.Domain)

	for _, loc := range visibleLocations(item, principal) {
		rows, err := r.queryLocation(ctx, loc, false)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if row.domainID.Valid {
				d, err := r.cachedDomain(ctx, cache, row.domainID.Int64)
				if err != nil {
					return nil, err
				}
				if !d.Test(reqs) {
					continue
				}
			}
			cred, err := r.build(row)
			if err != nil {
				return nil, err
			}
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

// visibleLocations lists the stores principal may enumerate for item, in
// enumeration order.
func visibleLocations(item model.Item, principal model.Principal) []model.StoreLocation {
	if !principal.System {
		if principal.Name == "" || principal.IsAnonymous() {
			return nil
		}
		return []model.StoreLocation{{Owner: principal.Name}}
	}

	var locs []model.StoreLocation
	if !item.IsTask() && item.FullName != "" {
		locs = append(locs, model.StoreLocation{Folder: item.FullName})
	}
	for _, folder := range item.Ancestors() {
		locs = append(locs, model.StoreLocation{Folder: folder})
	}
	return append(locs, model.StoreLocation{})
}

type credentialRow struct {
	credentialID string
	domainID     sql.NullInt64
	scope        string
	kind         string
	description  string
	username     string
	secret       string
}

func (r *CredentialRepo) queryLocation(ctx context.Context, loc model.StoreLocation, includeSystem bool) ([]credentialRow, error) {
	query := `
		SELECT credential_id, domain_id, scope, kind, description, username, secret
		FROM credentials
		WHERE folder = ? AND owner = ?`
	if !includeSystem {
		query += ` AND scope <> '` + string(model.CredentialScopeSystem) + `'`
	}
	query += ` ORDER BY id`

	rows, err := r.db.Reader.QueryContext(ctx, query, loc.Folder, loc.Owner)
	if err != nil {
		return nil, fmt.Errorf("list credentials in %s: %w", describeLocation(loc), err)
	}
	defer rows.Close()

	var out []credentialRow
	for rows.Next() {
		var row credentialRow
		if err := rows.Scan(&row.credentialID, &row.domainID, &row.scope, &row.kind,
			&row.description, &row.username, &row.secret); err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}
	return out, nil
}

func (r *CredentialRepo) cachedDomain(ctx context.Context, cache map[int64]model.Domain, id int64) (model.Domain, error) {
	if d, ok := cache[id]; ok {
		return d, nil
	}
	d, err := r.domains.domainByID(ctx, id)
	if err != nil {
		return model.Domain{}, err
	}
	cache[id] = d
	return d, nil
}

// build opens the sealed secret and reconstructs the credential variant.
func (r *CredentialRepo) build(row credentialRow) (model.Credential, error) {
	secret, err := r.sealer.open(row.secret)
	if err != nil {
		return nil, fmt.Errorf("decrypt credential %q: %w", row.credentialID, err)
	}

	scope := model.CredentialScope(row.scope)
	switch model.CredentialKind(row.kind) {
	case model.CredentialKindUsernamePassword:
		return model.NewUsernamePasswordCredential(scope, row.credentialID, row.description, row.username, secret), nil
	case model.CredentialKindPersonalAccessToken:
		return model.NewPersonalAccessTokenCredential(scope, row.credentialID, row.description, secret), nil
	default:
		return nil, fmt.Errorf("credential %q has unknown kind %q", row.credentialID, row.kind)
	}
}

// splitSecret separates the non-secret username from the value to seal.
func splitSecret(cred model.Credential) (username, secret string, err error) {
	switch c := cred.(type) {
	case *model.UsernamePasswordCredential:
		return c.Username(), c.Password(), nil
	case *model.PersonalAccessTokenCredential:
		return "", c.Token(), nil
	default:
		return "", "", fmt.Errorf("unsupported credential kind %q", cred.Kind())
	}
}

func describeLocation(loc model.StoreLocation) string {
	switch {
	case loc.Owner != "":
		return "user store " + loc.Owner
	case loc.Folder != "":
		return "folder store " + loc.Folder
	default:
		return "root store"
	}
}
