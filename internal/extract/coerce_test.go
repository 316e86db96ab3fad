package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/startup-finder/internal/model"
)

var coerceNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestCoerceRecord_CanonicalKeys(t *testing.T) {
	s, ok := CoerceRecord(map[string]any{
		"company_name":   "Acme Inc",
		"description":    "Robotics platform",
		"funding_amount": "$10M",
		"funding_round":  "Series A",
		"funding_date":   "2024-05-01",
		"investors":      []any{"Sequoia", "a16z"},
		"industry":       "Robotics",
		"location":       "Berlin",
		"company_size":   "50-100",
		"company_website": "https://acme.example",
	}, coerceNow)
	require.True(t, ok)
	assert.Equal(t, "Acme Inc", s.Name)
	assert.Equal(t, "Robotics platform", s.Description)
	assert.Equal(t, "$10M", s.FundingAmount)
	assert.Equal(t, "Series A", s.FundingRound)
	require.NotNil(t, s.FundingDate)
	assert.Equal(t, []string{"Sequoia", "a16z"}, s.Investors)
	assert.Equal(t, "Robotics", s.Industry)
	assert.Equal(t, "Berlin", s.Location)
	assert.Equal(t, "50-100", s.CompanySize)
	assert.Equal(t, "https://acme.example", s.CompanyURL)
}

func TestCoerceRecord_VariantKeys(t *testing.T) {
	s, ok := CoerceRecord(map[string]any{
		"Company Name": "Acme",
		"Sector":       "Fintech",
		"startup-name": "ignored by first claim? no: same field",
		"Employees":    float64(250),
		"Round/Stage":  "Seed",
	}, coerceNow)
	require.True(t, ok)
	assert.Equal(t, "Fintech", s.Industry)
	assert.Equal(t, "250", s.CompanySize)
	assert.Equal(t, "Seed", s.FundingRound)
	assert.NotEmpty(t, s.Name)
}

func TestCoerceRecord_CompetingNameKeysAreDeterministic(t *testing.T) {
	rec := map[string]any{
		"company_name": "Acme Incorporated",
		"name":         "Acme",
	}

	// Both keys land on Name; the sorted traversal makes the later key
	// win every run instead of whichever the map yields last.
	for i := 0; i < 20; i++ {
		s, ok := CoerceRecord(rec, coerceNow)
		require.True(t, ok)
		assert.Equal(t, "Acme", s.Name)
	}
}

func TestCoerceRecord_MissingNameRejected(t *testing.T) {
	_, ok := CoerceRecord(map[string]any{"industry": "Fintech"}, coerceNow)
	assert.False(t, ok)
}

func TestCoerceRecord_DescriptionPlaceholder(t *testing.T) {
	s, ok := CoerceRecord(map[string]any{"name": "Acme"}, coerceNow)
	require.True(t, ok)
	assert.Equal(t, model.NoDescription, s.Description)
}

func TestCoerceRecord_UnresolvableDateLeftAbsent(t *testing.T) {
	s, ok := CoerceRecord(map[string]any{
		"name":         "Acme",
		"funding_date": "sometime soon",
	}, coerceNow)
	require.True(t, ok)
	assert.Nil(t, s.FundingDate)
}

func TestCoercePartial_KeepsOnlyRequiredFields(t *testing.T) {
	s, ok := CoercePartial(map[string]any{
		"name":           "Acme",
		"description":    "A robotics company",
		"funding_amount": "$10M",
		"industry":       "Robotics",
	}, coerceNow)
	require.True(t, ok)
	assert.Equal(t, "Acme", s.Name)
	assert.Equal(t, "A robotics company", s.Description)
	assert.Empty(t, s.FundingAmount)
	assert.Empty(t, s.Industry)
}

func TestCoercePartial_NoNameStillRejected(t *testing.T) {
	_, ok := CoercePartial(map[string]any{"description": "things"}, coerceNow)
	assert.False(t, ok)
}
