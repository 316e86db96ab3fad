package extract

import (
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/model"
)

// maxEntries bounds how many segments the text parser will process from
// a single response.
const maxEntries = 30

// minPatternMatches is how many segments a split pattern must produce
// before it is trusted over the next one in priority order.
const minPatternMatches = 5

var segmentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\n\s*\d+\.\s+`),   // numbered list items
	regexp.MustCompile(`\n\s*\*\*[^*]+\*\*`), // bold-markup headers
	regexp.MustCompile(`\n\s*#{1,2}\s+`),  // markdown headers
}

// ParseText is the last-resort parser, used when JSON parsing fails
// entirely. It segments the response into entries and extracts each
// field through its own ordered pattern list. An entry that cannot yield
// a name is dropped; errors inside one entry never abort the rest.
func ParseText(content string, now time.Time) []model.Startup {
	entries := segment(content)
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}

	var startups []model.Startup
	for _, entry := range entries {
		s, ok := parseEntry(entry, now)
		if ok {
			startups = append(startups, s)
		}
	}
	return startups
}

// segment splits raw text into candidate entries using the first
// pattern, in priority order, that yields more than minPatternMatches
// matches. Blank-line paragraphs are the fallback.
func segment(content string) []string {
	for _, re := range segmentPatterns {
		locs := re.FindAllStringIndex(content, -1)
		if len(locs) <= minPatternMatches {
			continue
		}
		// Slice from each match start to the next so entries keep their
		// own headers (the bold or numbered lead carries the name).
		var entries []string
		for i, loc := range locs {
			end := len(content)
			if i+1 < len(locs) {
				end = locs[i+1][0]
			}
			if part := strings.TrimSpace(content[loc[0]:end]); part != "" {
				entries = append(entries, part)
			}
		}
		return entries
	}

	var entries []string
	for _, p := range strings.Split(content, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// listPrefixRe strips the numbered-item or header marker a segment
// starts with, leaving the name at the front of the entry.
var listPrefixRe = regexp.MustCompile(`^(?:\d+\.\s*|#{1,2}\s*)`)

// parseEntry converts one text segment into a Startup. Recovers from
// panics inside the regex plumbing so a pathological entry is skipped,
// not fatal.
func parseEntry(entry string, now time.Time) (s model.Startup, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("extract: entry parse panicked, skipping",
				zap.Any("panic", r),
			)
			s, ok = model.Startup{}, false
		}
	}()

	entry = listPrefixRe.ReplaceAllString(entry, "")

	name := CompanyName(entry)
	if name == "" {
		return model.Startup{}, false
	}

	s = model.NewStartup(name)
	if d := labeled(entry, "description"); d != "" {
		s.Description = d
	}
	s.FundingAmount = Amount(entry)
	s.FundingRound = Round(entry)
	if d := labeled(entry, "date"); d != "" {
		s.FundingDate = ParseDate(d, now)
	}
	if s.FundingDate == nil {
		s.FundingDate = bareDate(entry, now)
	}
	s.Investors = Investors(entry)
	s.Industry = labeled(entry, "industry")
	s.Location = labeled(entry, "location")

	return s, true
}

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December|` +
	`Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Oct|Nov|Dec`

// bareDateRes find dates sitting in running text without a label, in
// the same priority order the layouts are tried.
var bareDateRes = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`),
	regexp.MustCompile(`(?i)\b(?:` + monthNames + `)\s+\d{1,2},\s+\d{4}\b`),
	regexp.MustCompile(`(?i)\b\d{1,2}\s+(?:` + monthNames + `)\s+\d{4}\b`),
}

// bareDate scans an entry for an unlabeled date. Used only when no
// "Date:" line matched.
func bareDate(text string, now time.Time) *time.Time {
	for _, re := range bareDateRes {
		if m := re.FindString(text); m != "" {
			if d := ParseDate(m, now); d != nil {
				return d
			}
		}
	}
	return nil
}
