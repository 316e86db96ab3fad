// Package model defines the canonical data types shared across the
// collection pipeline.
package model

import (
	"strings"
	"time"
)

// NoDescription is the placeholder used when no description could be
// extracted for a startup.
const NoDescription = "No description available"

// KeyPerson is a founder or executive attached to a startup record.
type KeyPerson struct {
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	LinkedInURL string `json:"linkedin_url,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Startup is the canonical company-funding record all sources converge
// to. Name is required; every other field is best-effort and may be
// empty when extraction could not resolve it.
type Startup struct {
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	FundingAmount string      `json:"funding_amount,omitempty"`
	FundingRound  string      `json:"funding_round,omitempty"`
	FundingDate   *time.Time  `json:"funding_date,omitempty"`
	Investors     []string    `json:"investors,omitempty"`
	Industry      string      `json:"industry,omitempty"`
	Location      string      `json:"location,omitempty"`
	CompanySize   string      `json:"company_size,omitempty"`
	CompanyURL    string      `json:"company_url,omitempty"`
	LinkedInURL   string      `json:"linkedin_url,omitempty"`
	KeyPeople     []KeyPerson `json:"key_people,omitempty"`
	Source        string      `json:"source,omitempty"`
	SourceURL     string      `json:"source_url,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// DedupKey returns the normalized name used to decide whether two
// records describe the same company. Empty means the record cannot be
// reconciled and must be dropped before merging.
func (s Startup) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(s.Name))
}

// NewStartup creates a record with timestamps set and the description
// placeholder applied.
func NewStartup(name string) Startup {
	now := time.Now().UTC()
	return Startup{
		Name:        name,
		Description: NoDescription,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SourceDescriptor identifies one page the scraping adapter should
// visit.
type SourceDescriptor struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	URL  string `json:"url" yaml:"url" mapstructure:"url"`
}

// Filter narrows a collection or query run.
type Filter struct {
	MonthsBack    int      `json:"months_back"`
	Industries    []string `json:"industries,omitempty"`
	Locations     []string `json:"locations,omitempty"`
	FundingRounds []string `json:"funding_rounds,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	Limit         int      `json:"limit,omitempty"`
}

// Cutoff returns the oldest funding date the filter accepts. MonthsBack
// of zero falls back to three months, matching the collection default.
func (f Filter) Cutoff(now time.Time) time.Time {
	months := f.MonthsBack
	if months <= 0 {
		months = 3
	}
	return now.AddDate(0, 0, -30*months)
}
