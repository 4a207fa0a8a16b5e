package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	domainErrors "github.com/davidleathers/advice-risk-scorer/internal/domain/errors"
	"github.com/davidleathers/advice-risk-scorer/internal/domain/registry"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/cache"
	"github.com/davidleathers/advice-risk-scorer/internal/infrastructure/config"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetByRegNo(ctx context.Context, regNo string) (*registry.Entry, error) {
	args := m.Called(ctx, regNo)
	if e := args.Get(0); e != nil {
		return e.(*registry.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) FindByNameContaining(ctx context.Context, name string) (*registry.Entry, error) {
	args := m.Called(ctx, name)
	if e := args.Get(0); e != nil {
		return e.(*registry.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) ListCandidates(ctx context.Context, exclude []string, limit int) ([]*registry.Entry, error) {
	args := m.Called(ctx, exclude, limit)
	if e := args.Get(0); e != nil {
		return e.([]*registry.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) FindListedCompany(ctx context.Context, name string, categories []string) (*registry.Entry, error) {
	args := m.Called(ctx, name, categories)
	if e := args.Get(0); e != nil {
		return e.(*registry.Entry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func setupLookup(t *testing.T) (*Lookup, *mockStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	logger := zaptest.NewLogger(t)

	c, err := cache.NewRedisCache(&config.RedisConfig{URL: mr.Addr()}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	store := &mockStore{}
	return NewLookup(store, c, nil, config.RegistryConfig{}, logger), store, mr
}

func entry(regNo, name, category string) *registry.Entry {
	return &registry.Entry{RegNo: regNo, EntityName: name, Category: category}
}

func TestLookup_ByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found and cached", func(t *testing.T) {
		l, store, mr := setupLookup(t)
		store.On("GetByRegNo", mock.Anything, "INA000000123").
			Return(entry("INA000000123", "JANE DOE", "INVESTMENT_ADVISER"), nil).Once()

		first, err := l.ByID(ctx, " ina000000123 ")
		require.NoError(t, err)
		assert.True(t, first.Found)
		assert.Equal(t, "JANE DOE", first.Entry.EntityName)
		assert.Nil(t, first.MatchConfidence)

		assert.True(t, mr.Exists("advice:registry:id:INA000000123"))
		assert.Equal(t, time.Hour, mr.TTL("advice:registry:id:INA000000123"))

		second, err := l.ByID(ctx, "INA000000123")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		store.AssertNumberOfCalls(t, "GetByRegNo", 1)
	})

	t.Run("negative result cached", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("GetByRegNo", mock.Anything, "INA999").Return(nil, registry.ErrNotFound).Once()

		res, err := l.ByID(ctx, "INA999")
		require.NoError(t, err)
		assert.False(t, res.Found)
		assert.Nil(t, res.Entry)

		res, err = l.ByID(ctx, "INA999")
		require.NoError(t, err)
		assert.False(t, res.Found)
		store.AssertNumberOfCalls(t, "GetByRegNo", 1)
	})

	t.Run("expired entry is reloaded", func(t *testing.T) {
		l, store, mr := setupLookup(t)
		store.On("GetByRegNo", mock.Anything, "INA1").Return(entry("INA1", "A", ""), nil).Twice()

		_, err := l.ByID(ctx, "INA1")
		require.NoError(t, err)
		mr.FastForward(time.Hour + time.Second)
		_, err = l.ByID(ctx, "INA1")
		require.NoError(t, err)
		store.AssertNumberOfCalls(t, "GetByRegNo", 2)
	})

	t.Run("store failure", func(t *testing.T) {
		l, store, mr := setupLookup(t)
		store.On("GetByRegNo", mock.Anything, "INA1").Return(nil, errors.New("connection refused"))

		_, err := l.ByID(ctx, "INA1")
		require.Error(t, err)
		assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeRegistryUnavailable))
		assert.False(t, mr.Exists("advice:registry:id:INA1"), "failures are not cached")
	})

	t.Run("cache read failure", func(t *testing.T) {
		l, store, mr := setupLookup(t)
		mr.Close()

		_, err := l.ByID(ctx, "INA1")
		require.Error(t, err)
		assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeRegistryUnavailable))
		store.AssertNotCalled(t, "GetByRegNo", mock.Anything, mock.Anything)
	})

	t.Run("blank id", func(t *testing.T) {
		l, _, _ := setupLookup(t)
		_, err := l.ByID(ctx, "  ")
		assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeValidation))
	})
}

func TestLookup_ByName(t *testing.T) {
	ctx := context.Background()

	t.Run("containment match", func(t *testing.T) {
		l, store, mr := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "Jane Doe").
			Return(entry("INA000000123", "JANE DOE", "INVESTMENT_ADVISER"), nil).Once()

		res, err := l.ByName(ctx, "  Jane Doe ")
		require.NoError(t, err)
		assert.True(t, res.Found)
		require.NotNil(t, res.MatchConfidence)
		assert.Equal(t, 1.0, *res.MatchConfidence)

		assert.Equal(t, 5*time.Minute, mr.TTL("advice:registry:name:jane doe"))
		store.AssertNotCalled(t, "ListCandidates", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("fuzzy match above threshold", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "J. Smith").Return(nil, registry.ErrNotFound)
		store.On("ListCandidates", mock.Anything, registry.ListingCategories, 500).Return([]*registry.Entry{
			entry("INA1", "ALPHA CAPITAL", "INVESTMENT_ADVISER"),
			entry("INA2", "JOHN SMITH", "INVESTMENT_ADVISER"),
		}, nil).Once()

		res, err := l.ByName(ctx, "J. Smith")
		require.NoError(t, err)
		assert.True(t, res.Found)
		assert.Equal(t, "INA2", res.Entry.RegNo)
		assert.InDelta(t, 0.91, *res.MatchConfidence, 1e-9)
	})

	t.Run("best candidate below threshold is still reported", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "Smith John").Return(nil, registry.ErrNotFound)
		store.On("ListCandidates", mock.Anything, registry.ListingCategories, 500).Return([]*registry.Entry{
			entry("INA2", "JOHN SMITH", "INVESTMENT_ADVISER"),
		}, nil)

		res, err := l.ByName(ctx, "Smith John")
		require.NoError(t, err)
		assert.False(t, res.Found)
		require.NotNil(t, res.Entry)
		assert.InDelta(t, 0.7, *res.MatchConfidence, 1e-9)
	})

	t.Run("empty registry is a cached miss", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "Nobody").Return(nil, registry.ErrNotFound).Once()
		store.On("ListCandidates", mock.Anything, registry.ListingCategories, 500).Return([]*registry.Entry{}, nil).Once()

		for i := 0; i < 2; i++ {
			res, err := l.ByName(ctx, "Nobody")
			require.NoError(t, err)
			assert.False(t, res.Found)
			assert.Nil(t, res.Entry)
		}
		store.AssertExpectations(t)
	})

	t.Run("candidate listing failure", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "X").Return(nil, registry.ErrNotFound)
		store.On("ListCandidates", mock.Anything, registry.ListingCategories, 500).Return(nil, errors.New("timeout"))

		_, err := l.ByName(ctx, "X")
		assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeRegistryUnavailable))
	})
}

func TestLookup_VerifyCompanyListing(t *testing.T) {
	ctx := context.Background()

	t.Run("listed", func(t *testing.T) {
		l, store, mr := setupLookup(t)
		store.On("FindListedCompany", mock.Anything, "Acme", registry.ListingCategories).
			Return(entry("NSE:ACME", "ACME INDUSTRIES LIMITED", registry.CategoryNSEListed), nil).Once()

		res, err := l.VerifyCompanyListing(ctx, "Acme")
		require.NoError(t, err)
		assert.True(t, res.IsListed)
		assert.Equal(t, registry.CategoryNSEListed, *res.Exchange)
		assert.Equal(t, "ACME INDUSTRIES LIMITED", *res.ExactName)
		assert.Equal(t, time.Hour, mr.TTL("advice:registry:company:acme"))

		again, err := l.VerifyCompanyListing(ctx, "ACME")
		require.NoError(t, err)
		assert.Equal(t, res, again)
		store.AssertNumberOfCalls(t, "FindListedCompany", 1)
	})

	t.Run("not listed", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("FindListedCompany", mock.Anything, "Shell Co", registry.ListingCategories).
			Return(nil, registry.ErrNotFound)

		res, err := l.VerifyCompanyListing(ctx, "Shell Co")
		require.NoError(t, err)
		assert.False(t, res.IsListed)
		assert.Nil(t, res.Exchange)
		assert.Nil(t, res.ExactName)
	})
}

func TestLookup_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("ranked candidates are cached", func(t *testing.T) {
		l, store, mr := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "Jon Smith").Return(nil, registry.ErrNotFound).Once()
		store.On("ListCandidates", mock.Anything, registry.ListingCategories, 500).Return([]*registry.Entry{
			entry("INA1", "ALPHA CAPITAL", "INVESTMENT_ADVISER"),
			entry("INA2", "JOHN SMITH", "INVESTMENT_ADVISER"),
			entry("INA3", "JOHN SMITHSON", "RESEARCH_ANALYST"),
		}, nil).Once()

		results, err := l.Search(ctx, "Jon Smith", 2)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "INA2", results[0].Entry.RegNo)
		assert.Equal(t, "INA3", results[1].Entry.RegNo)
		assert.GreaterOrEqual(t, results[0].Confidence, results[1].Confidence)
		assert.Equal(t, 5*time.Minute, mr.TTL("advice:registry:candidates:jon smith"))

		again, err := l.Search(ctx, " JON SMITH ", 3)
		require.NoError(t, err)
		require.Len(t, again, 3)
		assert.Equal(t, results, again[:2])

		store.AssertExpectations(t)
	})

	t.Run("containment match is the only result", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "Jane").
			Return(entry("INA000000123", "JANE DOE", "INVESTMENT_ADVISER"), nil).Once()

		results, err := l.Search(ctx, "Jane", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "INA000000123", results[0].Entry.RegNo)
		assert.Equal(t, 1.0, results[0].Confidence)

		_, err = l.Search(ctx, "jane", 5)
		require.NoError(t, err)
		store.AssertNumberOfCalls(t, "FindByNameContaining", 1)
		store.AssertNotCalled(t, "ListCandidates", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("store failure", func(t *testing.T) {
		l, store, _ := setupLookup(t)
		store.On("FindByNameContaining", mock.Anything, "X").Return(nil, errors.New("timeout"))

		_, err := l.Search(ctx, "X", 5)
		assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeRegistryUnavailable))
	})

	t.Run("blank name", func(t *testing.T) {
		l, _, _ := setupLookup(t)
		_, err := l.Search(ctx, "", 5)
		assert.True(t, domainErrors.IsType(err, domainErrors.ErrorTypeValidation))
	})
}
