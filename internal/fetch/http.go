package fetch

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 2 << 20 // news listing pages; anything bigger is not an article index

const (
	maxAttempts = 3
	retryDelay  = 500 * time.Millisecond
)

// HTTPFetcher fetches pages with net/http, one rate limiter per host so
// a slow source cannot slow down requests to the others.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	perHost   rate.Limit
	burst     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent   string
	Timeout     time.Duration
	PerHostRate rate.Limit
	Burst       int
}

// NewHTTPFetcher creates an HTTPFetcher with per-host rate limiting.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (compatible; StartupFinderBot/1.0)"
	}
	if opts.PerHostRate == 0 {
		opts.PerHostRate = 2
	}
	if opts.Burst == 0 {
		opts.Burst = 2
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		perHost:   opts.PerHostRate,
		burst:     opts.Burst,
		limiters:  make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

// Fetch retrieves a page's HTML, waiting on the host's rate limiter
// first. Network errors and 5xx responses are retried up to
// maxAttempts; 4xx responses are not.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := f.limiter(target).Wait(ctx); err != nil {
			return "", eris.Wrap(err, "http: rate limit wait")
		}

		html, retryable, err := f.fetchOnce(ctx, target)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if !retryable {
			return "", err
		}

		zap.L().Debug("http: retrying fetch",
			zap.String("url", target),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return "", eris.Wrap(ctx.Err(), "http: fetch")
		}
	}
	return "", lastErr
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, target string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", false, eris.Wrap(err, "http: create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", true, eris.Wrap(err, "http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		return "", true, eris.Errorf("http: status %d for %s", resp.StatusCode, target)
	}
	if resp.StatusCode >= 400 {
		return "", false, eris.Errorf("http: status %d for %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", true, eris.Wrap(err, "http: read body")
	}
	if len(body) == 0 {
		return "", false, eris.Errorf("http: empty body for %s", target)
	}

	zap.L().Debug("http: fetched page",
		zap.String("url", target),
		zap.Int("bytes", len(body)),
	)
	return string(body), false, nil
}

func (f *HTTPFetcher) limiter(target string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(target); err == nil {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(f.perHost, f.burst)
		f.limiters[host] = l
	}
	return l
}
