package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/startup-finder/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testStartup(name string, mut func(*model.Startup)) model.Startup {
	s := model.NewStartup(name)
	if mut != nil {
		mut(&s)
	}
	return s
}

func TestSQLite_SaveAndFind(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	date := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	in := testStartup("Acme", func(s *model.Startup) {
		s.FundingAmount = "$5 million"
		s.FundingRound = "Seed"
		s.FundingDate = &date
		s.Investors = []string{"Fund I", "Fund II"}
		s.Industry = "Robotics"
		s.KeyPeople = []model.KeyPerson{{Name: "Jordan Lee", Title: "CEO"}}
		s.Source = "Perplexity API"
	})

	saved, err := st.Save(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Acme", saved.Name)
	assert.Equal(t, []string{"Fund I", "Fund II"}, saved.Investors)
	require.NotNil(t, saved.FundingDate)
	assert.True(t, saved.FundingDate.Equal(date))
	require.Len(t, saved.KeyPeople, 1)
	assert.Equal(t, "Jordan Lee", saved.KeyPeople[0].Name)

	found, err := st.FindByName(ctx, "  ACME  ")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Acme", found.Name)
}

func TestSQLite_FindMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	found, err := st.FindByName(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLite_SaveUpsertsByDedupKey(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := st.Save(ctx, testStartup("Acme", func(s *model.Startup) {
		s.Industry = "Robotics"
	}))
	require.NoError(t, err)

	second, err := st.Save(ctx, testStartup("acme", func(s *model.Startup) {
		s.Industry = "Logistics"
		s.Location = "Berlin"
	}))
	require.NoError(t, err)

	all, err := st.List(ctx, model.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Logistics", all[0].Industry)
	assert.Equal(t, "Berlin", all[0].Location)

	// created_at survives the upsert, updated_at advances.
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	assert.False(t, second.UpdatedAt.Before(first.UpdatedAt))
}

func TestSQLite_SaveKeepsStoredFieldsOnSparseUpdate(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.Save(ctx, testStartup("Acme Inc", func(s *model.Startup) {
		s.FundingAmount = "$1 million"
		s.Investors = []string{"Fund I"}
		s.Source = "Perplexity API"
	}))
	require.NoError(t, err)

	// Second sighting from another source knows the industry but not the
	// amount; the stored amount must survive.
	saved, err := st.Save(ctx, testStartup("Acme Inc", func(s *model.Startup) {
		s.Industry = "Fintech"
		s.Source = "Web Scraping"
	}))
	require.NoError(t, err)
	require.NotNil(t, saved)

	assert.Equal(t, "$1 million", saved.FundingAmount)
	assert.Equal(t, "Fintech", saved.Industry)
	assert.Equal(t, []string{"Fund I"}, saved.Investors)
	assert.Equal(t, "Perplexity API, Web Scraping", saved.Source)
}

func TestSQLite_SaveAppendsSourceOnce(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := st.Save(ctx, testStartup("Acme", func(s *model.Startup) {
			s.Source = "Web Scraping"
		}))
		require.NoError(t, err)
	}

	saved, err := st.FindByName(ctx, "Acme")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "Web Scraping", saved.Source)
}

func TestSQLite_SaveEmptyNameRejected(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.Save(context.Background(), model.Startup{Name: "   "})
	require.Error(t, err)
}

func TestSQLite_ListFilters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	recent := time.Now().UTC().AddDate(0, 0, -10)
	stale := time.Now().UTC().AddDate(0, 0, -200)

	_, err := st.Save(ctx, testStartup("Fresh Fintech", func(s *model.Startup) {
		s.Industry = "Fintech"
		s.FundingRound = "Seed"
		s.FundingDate = &recent
	}))
	require.NoError(t, err)
	_, err = st.Save(ctx, testStartup("Old Fintech", func(s *model.Startup) {
		s.Industry = "Fintech"
		s.FundingRound = "Series A"
		s.FundingDate = &stale
	}))
	require.NoError(t, err)
	_, err = st.Save(ctx, testStartup("Fresh Biotech", func(s *model.Startup) {
		s.Industry = "Biotech"
		s.FundingDate = &recent
	}))
	require.NoError(t, err)

	fintech, err := st.List(ctx, model.Filter{Industries: []string{"Fintech"}})
	require.NoError(t, err)
	assert.Len(t, fintech, 2)

	recentFintech, err := st.List(ctx, model.Filter{Industries: []string{"Fintech"}, MonthsBack: 3})
	require.NoError(t, err)
	require.Len(t, recentFintech, 1)
	assert.Equal(t, "Fresh Fintech", recentFintech[0].Name)

	seed, err := st.List(ctx, model.Filter{FundingRounds: []string{"Seed"}})
	require.NoError(t, err)
	require.Len(t, seed, 1)
	assert.Equal(t, "Fresh Fintech", seed[0].Name)

	limited, err := st.List(ctx, model.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSQLite_ListFiltersBySourceLabel(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.Save(ctx, testStartup("Acme", func(s *model.Startup) {
		s.Source = "Perplexity API, Web Scraping"
	}))
	require.NoError(t, err)
	_, err = st.Save(ctx, testStartup("Globex", func(s *model.Startup) {
		s.Source = "Web Scraping"
	}))
	require.NoError(t, err)

	got, err := st.List(ctx, model.Filter{Sources: []string{"Perplexity API"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Name)

	got, err = st.List(ctx, model.Filter{Sources: []string{"Web Scraping"}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLite_SaveAll(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.SaveAll(context.Background(), []model.Startup{
		testStartup("A", nil),
		testStartup("B", nil),
		testStartup("a", nil), // dedup of the first
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	all, err := st.List(context.Background(), model.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_ReplaceAll(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.Save(ctx, testStartup("Old", nil))
	require.NoError(t, err)

	n, err := st.ReplaceAll(ctx, []model.Startup{
		testStartup("New One", nil),
		testStartup("New Two", nil),
		{Name: "   "}, // skipped
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := st.List(ctx, model.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, s := range all {
		assert.NotEqual(t, "Old", s.Name)
	}
}
