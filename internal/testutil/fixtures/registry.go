package fixtures

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/davidleathers/advice-risk-scorer/internal/domain/registry"
)

var regSeq atomic.Int64

// Execer is satisfied by pgx pools, connections and transactions
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// EntryBuilder builds registry entries for tests
type EntryBuilder struct {
	entry registry.Entry
}

// NewEntryBuilder creates an active investment adviser with a unique
// registration number
func NewEntryBuilder() *EntryBuilder {
	return &EntryBuilder{entry: registry.Entry{
		RegNo:      fmt.Sprintf("INA%09d", regSeq.Add(1)),
		EntityName: "TEST ADVISER",
		Category:   "INVESTMENT_ADVISER",
	}}
}

// WithRegNo sets the registration number
func (b *EntryBuilder) WithRegNo(regNo string) *EntryBuilder {
	b.entry.RegNo = regNo
	return b
}

// WithName sets the registered entity name
func (b *EntryBuilder) WithName(name string) *EntryBuilder {
	b.entry.EntityName = name
	return b
}

// WithCategory sets the registry category
func (b *EntryBuilder) WithCategory(category string) *EntryBuilder {
	b.entry.Category = category
	return b
}

// WithEmail sets the contact email
func (b *EntryBuilder) WithEmail(email string) *EntryBuilder {
	b.entry.ContactEmail = &email
	return b
}

// WithValidity sets the validity window. Zero times leave a bound open.
func (b *EntryBuilder) WithValidity(from, to time.Time) *EntryBuilder {
	b.entry.ValidFrom, b.entry.ValidTo = nil, nil
	if !from.IsZero() {
		b.entry.ValidFrom = &from
	}
	if !to.IsZero() {
		b.entry.ValidTo = &to
	}
	return b
}

// Build returns a copy of the entry
func (b *EntryBuilder) Build() *registry.Entry {
	e := b.entry
	return &e
}

// InsertEntries writes entries into registry_entries
func InsertEntries(ctx context.Context, db Execer, entries ...*registry.Entry) error {
	const q = `
		INSERT INTO registry_entries
			(reg_no, entity_name, category, contact_email, contact_phone, valid_from, valid_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, e := range entries {
		if _, err := db.Exec(ctx, q, e.RegNo, e.EntityName, e.Category,
			e.ContactEmail, e.ContactPhone, e.ValidFrom, e.ValidTo); err != nil {
			return fmt.Errorf("insert %s: %w", e.RegNo, err)
		}
	}
	return nil
}
