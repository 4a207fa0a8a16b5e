package registry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
	"github.com/davidleathers/advice-risk-scorer/internal/domain/registry"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/cache"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/config"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/telemetry"
	"github.com/davidleathers/advice-risk-scorer/internal/metrics"
	"github.com/davidleathers/advice-risk-scorer/internal/service/similarity"
)

// Lookup kinds, used as metric and span attributes
const (
	lookupID         = "id"
	lookupName       = "name"
	lookupCandidates = "candidates"
	lookupCompany    = "company"
)

// How a name lookup was resolved
const (
	MatchContainment = "containment"
	MatchSimilarity  = "similarity"
)

// MaxSearchResults caps Search
const MaxSearchResults = 20

// LookupResult is the outcome of an advisor lookup. Negative results are
// cached like positive ones.
type LookupResult struct {
	Found           bool            `json:"found"`
	Entry           *registry.Entry `json:"entry,omitempty"`
	MatchConfidence *float64        `json:"matchConf,omitempty"`
	Match           string          `json:"match,omitempty"`
}

// CompanyListing is the outcome of an exchange-listing check
type CompanyListing struct {
	IsListed  bool    `json:"isListed"`
	Exchange  *string `json:"exchange"`
	ExactName *string `json:"exactName"`
}

// Candidate is a registry entry ranked against a searched name
type Candidate struct {
	Entry      *registry.Entry `json:"entry"`
	Confidence float64         `json:"confidence"`
}

// Lookup is a cache-aside reader over the registry store
type Lookup struct {
	store   Store
	cache   cache.Cache
	metrics *metrics.Registry
	logger  *zap.Logger

	idTTL          time.Duration
	nameTTL        time.Duration
	companyTTL     time.Duration
	candidateLimit int
	nameMatchMin   float64
}

// NewLookup creates a registry lookup. Zero values in cfg fall back to the
// cache package defaults. m may be nil.
func NewLookup(store Store, c cache.Cache, m *metrics.Registry, cfg config.RegistryConfig, logger *zap.Logger) *Lookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Lookup{
		store:          store,
		cache:          c,
		metrics:        m,
		logger:         logger,
		idTTL:          cfg.IDCacheTTL,
		nameTTL:        cfg.NameCacheTTL,
		companyTTL:     cfg.CompanyCacheTTL,
		candidateLimit: cfg.CandidateLimit,
		nameMatchMin:   cfg.NameMatchMin,
	}
	if l.idTTL <= 0 {
		l.idTTL = cache.RegistryIDTTL
	}
	if l.nameTTL <= 0 {
		l.nameTTL = cache.RegistryNameTTL
	}
	if l.companyTTL <= 0 {
		l.companyTTL = cache.RegistryCompanyTTL
	}
	if l.candidateLimit <= 0 {
		l.candidateLimit = 500
	}
	if l.nameMatchMin <= 0 {
		l.nameMatchMin = 0.7
	}
	return l
}

// ByID finds an advisor by registration number
func (l *Lookup) ByID(ctx context.Context, regNo string) (*LookupResult, error) {
	regNo = registry.NormalizeRegNo(regNo)
	if regNo == "" {
		return nil, domainErrors.NewValidationError("REG_ID_REQUIRED", "Registration ID is required")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "by_id", attribute.String("registry.reg_no", regNo))
	defer span.End()

	res, err := cacheAside(ctx, l, lookupID, cache.RegistryIDPrefix+regNo, l.idTTL,
		func(ctx context.Context) (*LookupResult, error) {
			entry, err := l.store.GetByRegNo(ctx, regNo)
			if errors.Is(err, registry.ErrNotFound) {
				return &LookupResult{Found: false}, nil
			}
			if err != nil {
				return nil, err
			}
			return &LookupResult{Found: true, Entry: entry}, nil
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("registry.found", res.Found))
	return res, nil
}

// ByName finds an advisor by name. A case-insensitive containment match
// wins outright with confidence 1. Otherwise every non-listing candidate is
// ranked by similarity and the best is reported, found only when its
// confidence clears the configured threshold.
func (l *Lookup) ByName(ctx context.Context, name string) (*LookupResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainErrors.NewValidationError("NAME_REQUIRED", "Advisor name is required")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "by_name")
	defer span.End()

	res, err := cacheAside(ctx, l, lookupName, cache.RegistryNamePrefix+strings.ToLower(name), l.nameTTL,
		func(ctx context.Context) (*LookupResult, error) {
			entry, err := l.store.FindByNameContaining(ctx, name)
			if err == nil {
				return &LookupResult{
					Found:           true,
					Entry:           entry,
					MatchConfidence: confidence(1.0),
					Match:           MatchContainment,
				}, nil
			}
			if !errors.Is(err, registry.ErrNotFound) {
				return nil, err
			}

			ranked, err := l.candidates(ctx, name)
			if err != nil {
				return nil, err
			}
			if len(ranked) == 0 {
				return &LookupResult{Found: false, Match: MatchSimilarity}, nil
			}
			best := ranked[0]
			return &LookupResult{
				Found:           best.Confidence > l.nameMatchMin,
				Entry:           best.Entry,
				MatchConfidence: confidence(best.Confidence),
				Match:           MatchSimilarity,
			}, nil
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("registry.found", res.Found))
	return res, nil
}

// VerifyCompanyListing reports whether a company is listed on NSE or BSE
func (l *Lookup) VerifyCompanyListing(ctx context.Context, companyName string) (*CompanyListing, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, domainErrors.NewValidationError("COMPANY_NAME_REQUIRED", "Company name is required")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "verify_company")
	defer span.End()

	res, err := cacheAside(ctx, l, lookupCompany, cache.RegistryCompanyPrefix+strings.ToLower(companyName), l.companyTTL,
		func(ctx context.Context) (*CompanyListing, error) {
			entry, err := l.store.FindListedCompany(ctx, companyName, registry.ListingCategories)
			if errors.Is(err, registry.ErrNotFound) {
				return &CompanyListing{IsListed: false}, nil
			}
			if err != nil {
				return nil, err
			}
			exchange, exactName := entry.Category, entry.EntityName
			return &CompanyListing{IsListed: true, Exchange: &exchange, ExactName: &exactName}, nil
		})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return res, nil
}

// Search returns up to limit advisors matching name. It resolves name with
// ByName first: a containment match is the only result, otherwise the ranked
// candidates cached by ByName are returned best first.
func (l *Lookup) Search(ctx context.Context, name string, limit int) ([]Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainErrors.NewValidationError("NAME_REQUIRED", "Search name is required")
	}
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "registry", "search")
	defer span.End()

	res, err := l.ByName(ctx, name)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if res.Match == MatchContainment && res.Entry != nil {
		return []Candidate{{Entry: res.Entry, Confidence: 1.0}}, nil
	}

	ranked, err := l.candidates(ctx, name)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	span.SetAttributes(attribute.Int("registry.results", len(ranked)))
	return ranked, nil
}

// candidates returns the best MaxSearchResults candidates for name, cached
// under the name TTL.
func (l *Lookup) candidates(ctx context.Context, name string) ([]Candidate, error) {
	return cacheAside(ctx, l, lookupCandidates, cache.RegistryCandidatesPrefix+strings.ToLower(name), l.nameTTL,
		func(ctx context.Context) ([]Candidate, error) {
			ranked, err := l.rank(ctx, name)
			if err != nil {
				return nil, err
			}
			if len(ranked) > MaxSearchResults {
				ranked = ranked[:MaxSearchResults]
			}
			return ranked, nil
		})
}

// rank scores every advisor candidate against name, best first. Ties keep
// store order.
func (l *Lookup) rank(ctx context.Context, name string) ([]Candidate, error) {
	entries, err := l.store.ListCandidates(ctx, registry.ListingCategories, l.candidateLimit)
	if err != nil {
		return nil, err
	}

	ranked := make([]Candidate, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, Candidate{Entry: e, Confidence: similarity.Similarity(name, e.EntityName)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Confidence > ranked[j].Confidence
	})
	return ranked, nil
}

// cacheAside serves key from the cache, or loads, stores and returns it.
// Read failures fail the lookup. Write failures are only logged.
func cacheAside[T any](ctx context.Context, l *Lookup, lookup, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T

	var cached T
	err := l.cache.GetJSON(ctx, key, &cached)
	switch {
	case err == nil:
		l.recordCache(ctx, lookup, true)
		return cached, nil
	case !cache.IsNotFound(err):
		l.recordError(ctx, lookup, "cache_read")
		l.logger.Error("registry cache read failed",
			zap.String("lookup", lookup),
			zap.String("key", key),
			zap.Error(err))
		return zero, unavailable(err)
	}
	l.recordCache(ctx, lookup, false)

	value, err := load(ctx)
	if err != nil {
		l.recordError(ctx, lookup, "store")
		l.logger.Error("registry store lookup failed",
			zap.String("lookup", lookup),
			zap.Error(err))
		return zero, unavailable(err)
	}

	if err := l.cache.SetJSON(ctx, key, value, ttl); err != nil {
		l.recordError(ctx, lookup, "cache_write")
		l.logger.Warn("registry cache write failed",
			zap.String("lookup", lookup),
			zap.String("key", key),
			zap.Error(err))
	}

	return value, nil
}

func (l *Lookup) recordCache(ctx context.Context, lookup string, hit bool) {
	if l.metrics != nil {
		l.metrics.RecordCacheLookup(ctx, lookup, hit)
	}
}

func (l *Lookup) recordError(ctx context.Context, lookup, stage string) {
	if l.metrics != nil {
		l.metrics.RecordRegistryError(ctx, lookup, stage)
	}
}

func unavailable(err error) error {
	var appErr *domainErrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return domainErrors.NewRegistryUnavailableError("registry lookup failed").WithCause(err)
}

func confidence(v float64) *float64 {
	return &v
}
