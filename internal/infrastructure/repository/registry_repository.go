package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/davidleathers/advice-risk-scorer/internal/domain/registry"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
	registrysvc "github.com/davidleathers/advice-risk-scorer/internal/service/registry"
)

const registryColumns = `reg_no, entity_name, category, contact_email, contact_phone, valid_from, valid_to`

// Querier is the subset of pgxpool.Pool used by the repository
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// registryRepository implements registry.Store using PostgreSQL
type registryRepository struct {
	db Querier
}

// NewRegistryRepository creates a new registry repository
func NewRegistryRepository(db Querier) registrysvc.Store {
	return &registryRepository{db: db}
}

// GetByRegNo retrieves an entry by registration number
func (r *registryRepository) GetByRegNo(ctx context.Context, regNo string) (*registry.Entry, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "registry_entries")
	defer span.End()

	query := `SELECT ` + registryColumns + `
		FROM registry_entries
		WHERE reg_no = $1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, registry.NormalizeRegNo(regNo)))
	if err != nil {
		if !IsNotFound(err) {
			telemetry.RecordError(span, err)
		}
		return nil, WrapRepositoryError(err, "get registry entry")
	}
	return entry, nil
}

// FindByNameContaining returns the lowest reg_no entry whose name contains name
func (r *registryRepository) FindByNameContaining(ctx context.Context, name string) (*registry.Entry, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "registry_entries")
	defer span.End()

	query := `SELECT ` + registryColumns + `
		FROM registry_entries
		WHERE entity_name ILIKE $1 ESCAPE '\'
		ORDER BY reg_no
		LIMIT 1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, containsPattern(name)))
	if err != nil {
		if !IsNotFound(err) {
			telemetry.RecordError(span, err)
		}
		return nil, WrapRepositoryError(err, "find registry entry by name")
	}
	return entry, nil
}

// ListCandidates returns up to limit entries outside excludeCategories,
// ordered by reg_no so the candidate set is stable between calls
func (r *registryRepository) ListCandidates(ctx context.Context, excludeCategories []string, limit int) ([]*registry.Entry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", ErrInvalidInput)
	}
	if excludeCategories == nil {
		excludeCategories = []string{}
	}

	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "registry_entries")
	defer span.End()

	query := `SELECT ` + registryColumns + `
		FROM registry_entries
		WHERE category <> ALL($1)
		ORDER BY reg_no
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, excludeCategories, limit)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, WrapRepositoryError(err, "list registry candidates")
	}
	defer rows.Close()

	entries := make([]*registry.Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, WrapRepositoryError(err, "scan registry candidate")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, WrapRepositoryError(err, "iterate registry candidates")
	}

	return entries, nil
}

// FindListedCompany returns the lowest reg_no listing whose name contains name
func (r *registryRepository) FindListedCompany(ctx context.Context, name string, categories []string) (*registry.Entry, error) {
	ctx, span := telemetry.StartDatabaseSpan(ctx, "SELECT", "registry_entries")
	defer span.End()

	query := `SELECT ` + registryColumns + `
		FROM registry_entries
		WHERE entity_name ILIKE $1 ESCAPE '\'
		  AND category = ANY($2)
		ORDER BY reg_no
		LIMIT 1`

	entry, err := scanEntry(r.db.QueryRow(ctx, query, containsPattern(name), categories))
	if err != nil {
		if !IsNotFound(err) {
			telemetry.RecordError(span, err)
		}
		return nil, WrapRepositoryError(err, "find listed company")
	}
	return entry, nil
}

// Ping checks database connectivity
func (r *registryRepository) Ping(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func scanEntry(row pgx.Row) (*registry.Entry, error) {
	var e registry.Entry
	err := row.Scan(
		&e.RegNo, &e.EntityName, &e.Category,
		&e.ContactEmail, &e.ContactPhone,
		&e.ValidFrom, &e.ValidTo,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// containsPattern builds an ILIKE pattern matching name as a literal substring
func containsPattern(name string) string {
	return "%" + escapeLike(strings.TrimSpace(name)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
