package extract

import (
	"regexp"
	"strings"
)

// Field extractors shared by the text and DOM parsers. Each works from
// an ordered pattern list; the first match wins and a field whose every
// pattern fails stays empty. Nothing here guesses.

var (
	symbolAmountRe = regexp.MustCompile(`(?i)([$€£])(\d+(?:\.\d+)?)\s*(million|billion|thousand|[mbk])?`)
	wordAmountRe   = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(million|billion|thousand|[mbk])?\s*(dollars|euros|pounds)`)

	labeledAmountRe = regexp.MustCompile(`(?i)(?:funding|raised|amount):\s*([^\n]+)`)
)

// Amount finds a funding amount and normalizes it to
// "<symbol><number> <unit>" (for example "$2.5 million"). It tries a
// currency-symbol-prefixed number first, then number-then-currency-word.
func Amount(text string) string {
	if m := symbolAmountRe.FindStringSubmatch(text); m != nil {
		return formatAmount(m[1], m[2], m[3])
	}
	if m := wordAmountRe.FindStringSubmatch(text); m != nil {
		return formatAmount(currencySymbol(m[3]), m[1], m[2])
	}
	if m := labeledAmountRe.FindStringSubmatch(text); m != nil {
		// Labeled amount lines carry the value verbatim; re-run the
		// normalizing patterns over just the label payload.
		if a := Amount(m[1]); a != "" {
			return a
		}
	}
	return ""
}

func formatAmount(symbol, number, unit string) string {
	switch strings.ToLower(unit) {
	case "million", "m":
		return symbol + number + " million"
	case "billion", "b":
		return symbol + number + " billion"
	case "thousand", "k":
		return symbol + number + " thousand"
	default:
		return symbol + number
	}
}

func currencySymbol(word string) string {
	switch strings.ToLower(word) {
	case "euros":
		return "€"
	case "pounds":
		return "£"
	default:
		return "$"
	}
}

// roundPattern pairs a whole-phrase regex with the canonical round name.
// Order matters: pre-seed must match before seed, and the spelled-out
// IPO phrase before the bare acronym.
type roundPattern struct {
	re   *regexp.Regexp
	name string
}

var roundPatterns = []roundPattern{
	{regexp.MustCompile(`(?i)\bpre-seed\b`), "Pre-Seed"},
	{regexp.MustCompile(`(?i)\bseed\s+(?:round|funding)\b`), "Seed"},
	{regexp.MustCompile(`(?i)\bseries\s+a\b`), "Series A"},
	{regexp.MustCompile(`(?i)\bseries\s+b\b`), "Series B"},
	{regexp.MustCompile(`(?i)\bseries\s+c\b`), "Series C"},
	{regexp.MustCompile(`(?i)\bseries\s+d\b`), "Series D"},
	{regexp.MustCompile(`(?i)\bseries\s+e\b`), "Series E"},
	{regexp.MustCompile(`(?i)\bseries\s+f\b`), "Series F"},
	{regexp.MustCompile(`(?i)\bgrowth\s+round\b`), "Growth"},
	{regexp.MustCompile(`(?i)\blate\s+stage\b`), "Late Stage"},
	{regexp.MustCompile(`(?i)\bangel\s+round\b`), "Angel"},
	{regexp.MustCompile(`(?i)\bequity\s+round\b`), "Equity"},
	{regexp.MustCompile(`(?i)\bconvertible\s+note\b`), "Convertible Note"},
	{regexp.MustCompile(`(?i)\bdebt\s+financing\b`), "Debt Financing"},
	{regexp.MustCompile(`(?i)\binitial\s+public\s+offering\b`), "IPO"},
	{regexp.MustCompile(`(?i)\bipo\b`), "IPO"},
	{regexp.MustCompile(`(?i)\bseed\b`), "Seed"},
}

// Round resolves text to a canonical funding-round name, or "" when no
// round vocabulary appears.
func Round(text string) string {
	for _, p := range roundPatterns {
		if p.re.MatchString(text) {
			return p.name
		}
	}
	return ""
}

var (
	investorsLabelRe = regexp.MustCompile(`(?i)(?:investors?|led by|backed by):?\s+([^\n]+)`)
	investorSplitRe  = regexp.MustCompile(`,|\band\b`)
)

// Investors pulls an investor list from labeled text, splitting on
// commas and the literal word "and". Mention order is preserved;
// duplicates within one entry are not collapsed here.
func Investors(text string) []string {
	m := investorsLabelRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	var out []string
	for _, part := range investorSplitRe.Split(m[1], -1) {
		if name := strings.TrimSpace(strings.Trim(strings.TrimSpace(part), ".")); name != "" {
			out = append(out, name)
		}
	}
	return out
}

var (
	boldNameRe    = regexp.MustCompile(`^\*\*([^*]+)\*\*`)
	labeledNameRe = regexp.MustCompile(`(?im)(?:Company|Name|Startup):\s*([^\n]+)`)
	leadClauseRe  = regexp.MustCompile(`^([^:\n.]+)`)
	fundingVerbRe = regexp.MustCompile(`(?i)^([^,]+?)\s+(?:raises|raised|secures|gets|closes)`)
)

// CompanyName extracts a company name from an entry or headline. The
// priority order is: bold-leading text, an explicit label, the clause
// before a funding verb, the clause before the first colon or dash, and
// finally the first five words.
func CompanyName(entry string) string {
	if m := boldNameRe.FindStringSubmatch(entry); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := labeledNameRe.FindStringSubmatch(entry); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := fundingVerbRe.FindStringSubmatch(entry); m != nil {
		return strings.TrimSpace(m[1])
	}

	firstLine := entry
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	for _, sep := range []string{":", " - "} {
		if parts := strings.SplitN(firstLine, sep, 2); len(parts) > 1 {
			if name := strings.TrimSpace(parts[0]); name != "" {
				return name
			}
		}
	}
	if m := leadClauseRe.FindStringSubmatch(firstLine); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			return truncateWords(name, 5)
		}
	}
	return truncateWords(strings.TrimSpace(firstLine), 5)
}

func truncateWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

var labeledFieldRes = map[string]*regexp.Regexp{
	"description": regexp.MustCompile(`(?i)(?:description|about):\s*([^\n]+)`),
	"industry":    regexp.MustCompile(`(?i)(?:industry|sector):\s*([^\n]+)`),
	"location":    regexp.MustCompile(`(?i)(?:location|based in|headquarters):\s*([^\n]+)`),
	"date":        regexp.MustCompile(`(?i)(?:date|announced):\s*([^\n]+)`),
}

// labeled returns the payload of a "Label: value" line, or "".
func labeled(text, field string) string {
	re, ok := labeledFieldRes[field]
	if !ok {
		return ""
	}
	if m := re.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
