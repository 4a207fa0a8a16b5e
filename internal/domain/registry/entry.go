package registry

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned by registry stores when no entry matches.
var ErrNotFound = errors.New("registry entry not found")

// Category tags used by the regulator registry. Advisor classes are free-form
// strings imported from the regulator; listing tags are fixed.
const (
	CategoryNSEListed = "NSE_LISTED"
	CategoryBSEListed = "BSE_LISTED"
)

// ListingCategories are the exchange-listing tags. Entries carrying them are
// companies, not advisors.
var ListingCategories = []string{CategoryNSEListed, CategoryBSEListed}

// Entry is a single regulator registry record. The registry store owns it;
// the scoring pipeline only reads it.
type Entry struct {
	RegNo        string     `json:"reg_no"`
	EntityName   string     `json:"entity_name"`
	Category     string     `json:"category,omitempty"`
	ContactEmail *string    `json:"contact_email,omitempty"`
	ContactPhone *string    `json:"contact_phone,omitempty"`
	ValidFrom    *time.Time `json:"valid_from,omitempty"`
	ValidTo      *time.Time `json:"valid_to,omitempty"`
}

// IsListing reports whether the entry is an exchange-listed company.
func (e *Entry) IsListing() bool {
	for _, c := range ListingCategories {
		if e.Category == c {
			return true
		}
	}
	return false
}

// ActiveAt reports whether at falls inside the entry's validity window.
// Open-ended bounds are treated as unbounded.
func (e *Entry) ActiveAt(at time.Time) bool {
	if e.ValidFrom != nil && at.Before(*e.ValidFrom) {
		return false
	}
	if e.ValidTo != nil && at.After(*e.ValidTo) {
		return false
	}
	return true
}

// NormalizeRegNo canonicalizes a registration number for lookups and cache keys.
func NormalizeRegNo(regNo string) string {
	return strings.ToUpper(strings.TrimSpace(regNo))
}
