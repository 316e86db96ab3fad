package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetcher_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("User-Agent"), "StartupFinderBot")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})
	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", html)
}

func TestHTTPFetcher_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{})
	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPFetcher_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("<html>eventually</html>"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(HTTPOptions{PerHostRate: 100, Burst: 10})
	html, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>eventually</html>", html)
	assert.Equal(t, int32(3), calls.Load())
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	f := NewHTTPFetcher(HTTPOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, "http://127.0.0.1:0/never")
	assert.Error(t, err)
}

func TestRenderedFetcher_SendsScrollAndSettle(t *testing.T) {
	var got renderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(renderResponse{Success: true, HTML: "<html>rendered</html>"})
	}))
	defer srv.Close()

	f := NewRenderedFetcher(RenderedOptions{BaseURL: srv.URL, Settle: 1500 * time.Millisecond})
	html, err := f.Fetch(context.Background(), "https://news.example")
	require.NoError(t, err)

	assert.Equal(t, "<html>rendered</html>", html)
	assert.True(t, got.ScrollToBottom)
	assert.Equal(t, 1500, got.WaitMS)
	assert.Equal(t, "https://news.example", got.URL)
}

func TestRenderedFetcher_BoundsConcurrency(t *testing.T) {
	var inflight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := inflight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inflight.Add(-1)
		_ = json.NewEncoder(w).Encode(renderResponse{Success: true, HTML: "<html/>"})
	}))
	defer srv.Close()

	f := NewRenderedFetcher(RenderedOptions{BaseURL: srv.URL, MaxConcurrent: 2})

	done := make(chan struct{})
	for i := 0; i < 6; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_, _ = f.Fetch(context.Background(), "https://news.example")
		}()
	}
	for i := 0; i < 6; i++ {
		<-done
	}

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestRenderedFetcher_FailedRenderIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(renderResponse{Success: false, Error: "timeout"})
	}))
	defer srv.Close()

	f := NewRenderedFetcher(RenderedOptions{BaseURL: srv.URL})
	_, err := f.Fetch(context.Background(), "https://news.example")
	assert.Error(t, err)
}
