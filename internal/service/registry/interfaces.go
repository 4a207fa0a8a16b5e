package registry

import (
	"context"

	"github.com/davidleathers/advice-risk-scorer/internal/domain/registry"
)

// Store is the read side of the regulator registry. Single-entry lookups
// return registry.ErrNotFound when nothing matches.
type Store interface {
	// GetByRegNo finds an entry by its normalized registration number
	GetByRegNo(ctx context.Context, regNo string) (*registry.Entry, error)

	// FindByNameContaining returns the first entry whose name contains name,
	// case-insensitively
	FindByNameContaining(ctx context.Context, name string) (*registry.Entry, error)

	// ListCandidates returns up to limit entries outside the excluded categories
	ListCandidates(ctx context.Context, excludeCategories []string, limit int) ([]*registry.Entry, error)

	// FindListedCompany returns the first entry in one of the listing
	// categories whose name contains name, case-insensitively
	FindListedCompany(ctx context.Context, name string, categories []string) (*registry.Entry, error)

	// Ping checks store connectivity
	Ping(ctx context.Context) error
}
