package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// RenderedFetcher drives a remote render service (a headless browser
// behind an HTTP API) for pages that only populate after script
// execution. The service scrolls to the bottom of the page to trigger
// lazy-loaded content and waits a fixed settle interval before
// returning the final DOM.
//
// Browser renders are far heavier than plain fetches, so concurrent
// renders are bounded by their own semaphore, independent of the HTTP
// fetcher's rate limits.
type RenderedFetcher struct {
	baseURL  string
	apiKey   string
	settle   time.Duration
	http     *http.Client
	renderSl chan struct{}
}

// RenderedOptions configures the render-service fetcher.
type RenderedOptions struct {
	BaseURL       string
	APIKey        string
	Settle        time.Duration
	Timeout       time.Duration
	MaxConcurrent int
}

// NewRenderedFetcher creates a RenderedFetcher.
func NewRenderedFetcher(opts RenderedOptions) *RenderedFetcher {
	if opts.Settle == 0 {
		opts.Settle = 2 * time.Second
	}
	if opts.Timeout == 0 {
		opts.Timeout = 90 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	return &RenderedFetcher{
		baseURL:  opts.BaseURL,
		apiKey:   opts.APIKey,
		settle:   opts.Settle,
		http:     &http.Client{Timeout: opts.Timeout},
		renderSl: make(chan struct{}, opts.MaxConcurrent),
	}
}

func (f *RenderedFetcher) Name() string { return "rendered" }

type renderRequest struct {
	URL            string `json:"url"`
	ScrollToBottom bool   `json:"scroll_to_bottom"`
	WaitMS         int    `json:"wait_ms"`
}

type renderResponse struct {
	Success bool   `json:"success"`
	HTML    string `json:"html"`
	Error   string `json:"error,omitempty"`
}

// Fetch renders a page and returns its settled HTML.
func (f *RenderedFetcher) Fetch(ctx context.Context, target string) (string, error) {
	select {
	case f.renderSl <- struct{}{}:
		defer func() { <-f.renderSl }()
	case <-ctx.Done():
		return "", eris.Wrap(ctx.Err(), "rendered: acquire slot")
	}

	body, err := json.Marshal(renderRequest{
		URL:            target,
		ScrollToBottom: true,
		WaitMS:         int(f.settle.Milliseconds()),
	})
	if err != nil {
		return "", eris.Wrap(err, "rendered: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "rendered: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "rendered: send request")
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "rendered: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("rendered: status %d: %s", resp.StatusCode, string(respBody))
	}

	var result renderResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", eris.Wrap(err, "rendered: unmarshal response")
	}
	if !result.Success || result.HTML == "" {
		return "", eris.Errorf("rendered: render failed for %s: %s", target, result.Error)
	}

	zap.L().Debug("rendered: page settled",
		zap.String("url", target),
		zap.Int("bytes", len(result.HTML)),
	)
	return result.HTML, nil
}
