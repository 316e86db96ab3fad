package extract

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/sells-group/startup-finder/internal/model"
)

// Class-token vocabularies for locating funding-news articles in
// arbitrary page markup. Matching is substring-based because sites
// suffix their class names freely (post-card, article__inner).
var (
	articleClassTokens = []string{"article", "post", "news", "funding", "startup"}
	titleClassTokens   = []string{"title", "heading", "headline"}
	dateClassTokens    = []string{"date", "time", "published", "posted"}
	excerptClassTokens = []string{"excerpt", "summary", "content", "description"}

	fundingKeywords = []string{"raise", "raised", "funding", "investment", "seed", "series", "venture", "capital"}
)

// ParseArticles runs the DOM heuristics over one fetched page and
// returns a record per funding-news article newer than cutoff. Articles
// whose heading carries no funding keyword are not funding news and are
// discarded; dated articles older than cutoff are rejected before any
// further extraction.
func ParseArticles(html, pageURL string, cutoff, now time.Time) []model.Startup {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		zap.L().Warn("extract: html parse failed", zap.String("url", pageURL), zap.Error(err))
		return nil
	}

	containers := findByClassTokens(doc.Selection, "article, div, section", articleClassTokens)
	if containers.Length() == 0 {
		containers = findByClassTokens(doc.Selection, "div", []string{"container"})
	}

	var startups []model.Startup
	containers.Each(func(_ int, article *goquery.Selection) {
		s, ok := parseArticle(article, pageURL, cutoff, now)
		if ok {
			startups = append(startups, s)
		}
	})
	return startups
}

func parseArticle(article *goquery.Selection, pageURL string, cutoff, now time.Time) (s model.Startup, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("extract: article parse panicked, skipping",
				zap.String("url", pageURL),
				zap.Any("panic", r),
			)
			s, ok = model.Startup{}, false
		}
	}()

	titleElem := findByClassTokens(article, "h1, h2, h3, h4, a", titleClassTokens).First()
	if titleElem.Length() == 0 {
		titleElem = article.Find("h1, h2, h3, h4, a").First()
	}
	if titleElem.Length() == 0 {
		return model.Startup{}, false
	}
	title := strings.TrimSpace(titleElem.Text())

	if !containsAny(strings.ToLower(title), fundingKeywords) {
		return model.Startup{}, false
	}

	// Cheap reject: bail on stale articles before extracting anything else.
	var fundingDate *time.Time
	if dateElem := findByClassTokens(article, "time, span, div, p", dateClassTokens).First(); dateElem.Length() > 0 {
		if d := ParseDate(strings.TrimSpace(dateElem.Text()), now); d != nil {
			if d.Before(cutoff) {
				return model.Startup{}, false
			}
			fundingDate = d
		}
	}

	name := CompanyName(title)
	if name == "" {
		return model.Startup{}, false
	}

	s = model.NewStartup(name)
	s.FundingDate = fundingDate

	if excerpt := findByClassTokens(article, "p, div", excerptClassTokens).First(); excerpt.Length() > 0 {
		if d := strings.TrimSpace(excerpt.Text()); d != "" {
			s.Description = d
		}
	}

	combined := title + " " + s.Description
	s.FundingAmount = Amount(combined)
	s.FundingRound = Round(combined)

	link := titleElem
	if !link.Is("a") {
		link = article.Find("a").First()
	}
	if href, exists := link.Attr("href"); exists {
		s.SourceURL = resolveURL(pageURL, href)
	}

	return s, true
}

// findByClassTokens selects elements matching the CSS selector whose
// class attribute contains any of the given tokens as a substring.
func findByClassTokens(root *goquery.Selection, selector string, tokens []string) *goquery.Selection {
	return root.Find(selector).FilterFunction(func(_ int, sel *goquery.Selection) bool {
		class, exists := sel.Attr("class")
		if !exists {
			return false
		}
		return containsAny(strings.ToLower(class), tokens)
	})
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// resolveURL makes an article link absolute against the scheme+host of
// the page it came from. Already-absolute links pass through.
func resolveURL(pageURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
