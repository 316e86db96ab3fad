package extract

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var textNow = time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)

func TestParseText_NumberedList(t *testing.T) {
	var b strings.Builder
	b.WriteString("Recently funded startups:\n")
	for i := 1; i <= 8; i++ {
		fmt.Fprintf(&b, "\n%d. Startup%c raises $%dM in seed funding\n", i, 'A'+i-1, i)
	}

	startups := ParseText(b.String(), textNow)
	require.Len(t, startups, 8)
	assert.Equal(t, "StartupA", startups[0].Name)
	assert.Equal(t, "$1 million", startups[0].FundingAmount)
	assert.Equal(t, "Seed", startups[0].FundingRound)
}

func TestParseText_BoldHeaders(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 7; i++ {
		fmt.Fprintf(&b, "\n**Company%c** secures €%d million\nInvestors: Fund%c\n", 'A'+i, i+1, 'A'+i)
	}

	startups := ParseText(b.String(), textNow)
	require.Len(t, startups, 7)
	assert.Equal(t, "CompanyA", startups[0].Name)
	assert.Equal(t, "€1 million", startups[0].FundingAmount)
	assert.Equal(t, []string{"FundA"}, startups[0].Investors)
}

func TestParseText_ParagraphFallback(t *testing.T) {
	content := "Acme raises $5M in a seed round.\n\nGlobex secures $3M from angel investors."

	startups := ParseText(content, textNow)
	require.Len(t, startups, 2)
	assert.Equal(t, "Acme", startups[0].Name)
	assert.Equal(t, "Globex", startups[1].Name)
}

func TestParseText_CapsEntries(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 40; i++ {
		fmt.Fprintf(&b, "\n%d. Startup%d raises $1M\n", i, i)
	}

	startups := ParseText(b.String(), textNow)
	assert.Len(t, startups, 30)
}

func TestParseText_LabeledFields(t *testing.T) {
	content := strings.Join([]string{
		"**Acme Inc** raises $4M seed funding",
		"Description: Developer tooling for robots",
		"Industry: Robotics",
		"Location: Berlin",
		"Investors: Sequoia and a16z",
	}, "\n")

	// Single entry, below the pattern threshold: paragraph fallback.
	startups := ParseText(content, textNow)
	require.Len(t, startups, 1)
	s := startups[0]
	assert.Equal(t, "Acme Inc", s.Name)
	assert.Equal(t, "Developer tooling for robots", s.Description)
	assert.Equal(t, "Robotics", s.Industry)
	assert.Equal(t, "Berlin", s.Location)
	assert.Equal(t, []string{"Sequoia", "a16z"}, s.Investors)
}

func TestParseText_LabeledDate(t *testing.T) {
	content := "**Acme Inc** raises $4M seed funding\nDate: 2024-05-10"

	startups := ParseText(content, textNow)
	require.Len(t, startups, 1)
	require.NotNil(t, startups[0].FundingDate)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), startups[0].FundingDate.UTC())
}

func TestParseText_BareDateInProse(t *testing.T) {
	cases := map[string]string{
		"iso":         "Acme raises $5M in a seed round on 2024-05-10.",
		"month first": "Acme raises $5M in a seed round announced May 10, 2024.",
		"day first":   "Acme raises $5M in a seed round on 10 May 2024.",
	}
	want := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			startups := ParseText(content, textNow)
			require.Len(t, startups, 1)
			require.NotNil(t, startups[0].FundingDate)
			assert.Equal(t, want, startups[0].FundingDate.UTC())
		})
	}
}

func TestParseText_NoDateStaysAbsent(t *testing.T) {
	startups := ParseText("Acme raises $5M in a seed round.", textNow)
	require.Len(t, startups, 1)
	assert.Nil(t, startups[0].FundingDate)
}

func TestParseText_EmptyInput(t *testing.T) {
	assert.Empty(t, ParseText("", textNow))
	assert.Empty(t, ParseText("\n\n\n", textNow))
}
