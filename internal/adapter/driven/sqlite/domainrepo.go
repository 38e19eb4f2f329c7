package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/bbcreds/internal/domain/model"
	"github.com/ericfisherdev/bbcreds/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DomainStore = (*DomainRepo)(nil)

// DomainRepo is the SQLite implementation of the DomainStore port interface.
type DomainRepo struct {
	db *DB
}

// NewDomainRepo creates a new DomainRepo backed by the given DB.
func NewDomainRepo(db *DB) *DomainRepo {
	return &DomainRepo{db: db}
}

// SaveDomain inserts or replaces a domain. Existing specifications are
// replaced; credentials already in the domain stay attached to it.
func (r *DomainRepo) SaveDomain(ctx context.Context, domain model.Domain) error {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save domain %q: %w", domain.Name, err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `
		INSERT INTO domains (name, description) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET description = excluded.description
		RETURNING id
	`
	var domainID int64
	if err := tx.QueryRowContext(ctx, upsert, domain.Name, domain.Description).Scan(&domainID); err != nil {
		return fmt.Errorf("save domain %q: %w", domain.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM domain_specifications WHERE domain_id = ?`, domainID); err != nil {
		return fmt.Errorf("clear specifications for domain %q: %w", domain.Name, err)
	}

	const insertSpec = `
		INSERT INTO domain_specifications (domain_id, kind, includes, excludes, case_sensitive)
		VALUES (?, ?, ?, ?, ?)
	`
	for _, spec := range domain.Specifications {
		includes, excludes, caseSensitive, err := flattenSpecification(spec)
		if err != nil {
			return fmt.Errorf("save domain %q: %w", domain.Name, err)
		}
		if _, err := tx.ExecContext(ctx, insertSpec, domainID, string(spec.Kind()), includes, excludes, caseSensitive); err != nil {
			return fmt.Errorf("insert %s specification for domain %q: %w", spec.Kind(), domain.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save domain %q: %w", domain.Name, err)
	}
	return nil
}

// GetDomain returns the domain with the given name. Returns (nil, nil) if it does not exist.
func (r *DomainRepo) GetDomain(ctx context.Context, name string) (*model.Domain, error) {
	const query = `SELECT id, name, description FROM domains WHERE name = ?`

	var id int64
	var d model.Domain
	err := r.db.Reader.QueryRowContext(ctx, query, name).Scan(&id, &d.Name, &d.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get domain %q: %w", name, err)
	}

	d.Specifications, err = r.specifications(ctx, id)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDomains returns all domains ordered by name.
func (r *DomainRepo) ListDomains(ctx context.Context) ([]model.Domain, error) {
	const query = `SELECT id, name, description FROM domains ORDER BY name`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	type row struct {
		id     int64
		domain model.Domain
	}
	var found []row
	for rows.Next() {
		var rw row
		if err := rows.Scan(&rw.id, &rw.domain.Name, &rw.domain.Description); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		found = append(found, rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}

	domains := make([]model.Domain, 0, len(found))
	for _, rw := range found {
		rw.domain.Specifications, err = r.specifications(ctx, rw.id)
		if err != nil {
			return nil, err
		}
		domains = append(domains, rw.domain)
	}
	return domains, nil
}

// domainByID loads a domain by primary key.
func (r *DomainRepo) domainByID(ctx context.Context, id int64) (model.Domain, error) {
	const query = `SELECT name, description FROM domains WHERE id = ?`

	var d model.Domain
	if err := r.db.Reader.QueryRowContext(ctx, query, id).Scan(&d.Name, &d.Description); err != nil {
		return model.Domain{}, fmt.Errorf("get domain %d: %w", id, err)
	}

	specs, err := r.specifications(ctx, id)
	if err != nil {
		return model.Domain{}, err
	}
	d.Specifications = specs
	return d, nil
}

// domainID resolves a domain name to its primary key. The empty name is the
// global domain and maps to a NULL id.
func (r *DomainRepo) domainID(ctx context.Context, name string) (sql.NullInt64, error) {
	if name == "" {
		return sql.NullInt64{}, nil
	}

	var id int64
	err := r.db.Reader.QueryRowContext(ctx, `SELECT id FROM domains WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return sql.NullInt64{}, fmt.Errorf("domain %q: %w", name, driven.ErrDomainNotFound)
	}
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("resolve domain %q: %w", name, err)
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func (r *DomainRepo) specifications(ctx context.Context, domainID int64) ([]model.DomainSpecification, error) {
	const query = `
		SELECT kind, includes, excludes, case_sensitive
		FROM domain_specifications
		WHERE domain_id = ?
		ORDER BY id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query, domainID)
	if err != nil {
		return nil, fmt.Errorf("list specifications for domain %d: %w", domainID, err)
	}
	defer rows.Close()

	var specs []model.DomainSpecification
	for rows.Next() {
		var kind, includes, excludes string
		var caseSensitive bool
		if err := rows.Scan(&kind, &includes, &excludes, &caseSensitive); err != nil {
			return nil, fmt.Errorf("scan specification: %w", err)
		}
		spec, err := buildSpecification(model.SpecificationKind(kind), includes, excludes, caseSensitive)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate specifications: %w", err)
	}
	return specs, nil
}

func flattenSpecification(spec model.DomainSpecification) (includes, excludes string, caseSensitive bool, err error) {
	switch s := spec.(type) {
	case model.SchemeSpecification:
		return s.Schemes, "", false, nil
	case model.HostnameSpecification:
		return s.Includes, s.Excludes, false, nil
	case model.HostnamePortSpecification:
		return s.Includes, s.Excludes, false, nil
	case model.PathSpecification:
		return s.Includes, s.Excludes, s.CaseSensitive, nil
	default:
		return "", "", false, fmt.Errorf("unsupported specification %T", spec)
	}
}

func buildSpecification(kind model.SpecificationKind, includes, excludes string, caseSensitive bool) (model.DomainSpecification, error) {
	switch kind {
	case model.SpecificationKindScheme:
		return model.SchemeSpecification{Schemes: includes}, nil
	case model.SpecificationKindHostname:
		return model.HostnameSpecification{Includes: includes, Excludes: excludes}, nil
	case model.SpecificationKindHostnamePort:
		return model.HostnamePortSpecification{Includes: includes, Excludes: excludes}, nil
	case model.SpecificationKindPath:
		return model.PathSpecification{Includes: includes, Excludes: excludes, CaseSensitive: caseSensitive}, nil
	default:
		return nil, fmt.Errorf("unknown specification kind %q", kind)
	}
}
