package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are tried in order; the first layout that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"01/02/2006",
}

var relativeDateRe = regexp.MustCompile(`(?i)(\d+)\s+(day|days|week|weeks|month|months|year|years)\s+ago`)

// ParseDate resolves free date text to a calendar date. It tries the
// fixed layouts, then "today"/"yesterday", then "N <unit> ago" relative
// forms. A nil result means the date could not be resolved confidently
// and the field must stay absent.
func ParseDate(text string, now time.Time) *time.Time {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return &t
		}
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "today"):
		return &now
	case strings.Contains(lower, "yesterday"):
		t := now.AddDate(0, 0, -1)
		return &t
	}

	if m := relativeDateRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		var t time.Time
		switch strings.ToLower(m[2]) {
		case "day", "days":
			t = now.AddDate(0, 0, -n)
		case "week", "weeks":
			t = now.AddDate(0, 0, -7*n)
		case "month", "months":
			t = now.AddDate(0, 0, -30*n)
		case "year", "years":
			t = now.AddDate(0, 0, -365*n)
		}
		return &t
	}

	return nil
}
