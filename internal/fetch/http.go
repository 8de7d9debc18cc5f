// Package fetch retrieves product page markup over plain HTTP.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"

	"git.home.luguber.info/inful/restockwatch/internal/config"
	"git.home.luguber.info/inful/restockwatch/internal/foundation/errors"
)

// Fetcher returns the markup of a target page.
type Fetcher interface {
	Fetch(ctx context.Context, target string) (string, error)
}

// HTTPFetcher issues one GET per target. It never retries.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	maxBodyBytes   int64
}

// NewHTTPFetcher builds a fetcher with a timeout, a redirect cap and proxy
// support from HTTP_PROXY/HTTPS_PROXY/NO_PROXY.
func NewHTTPFetcher(cfg config.FetchConfig) *HTTPFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}

	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
	return &HTTPFetcher{
		client:         client,
		userAgent:      cfg.UserAgent,
		acceptLanguage: cfg.AcceptLanguage,
		maxBodyBytes:   cfg.MaxBodyBytes,
	}
}

// WithClient swaps the underlying HTTP client.
func (f *HTTPFetcher) WithClient(c *http.Client) *HTTPFetcher {
	f.client = c
	return f
}

// Fetch returns the page body decoded to UTF-8 using the response charset.
// Bodies larger than the configured cap are truncated, not rejected.
func (f *HTTPFetcher) Fetch(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFetch, "build request").WithContext("target", target).Build()
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if f.acceptLanguage != "" {
		req.Header.Set("Accept-Language", f.acceptLanguage)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryNetwork, "request failed").
			NextRun().WithContext("target", target).WithContext("host", hostOf(target)).Build()
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		b := errors.FetchError(fmt.Sprintf("unexpected status %d", resp.StatusCode)).
			WithContext("target", target).
			WithContext("status", resp.StatusCode)
		if resp.StatusCode == http.StatusTooManyRequests {
			b = b.RateLimit()
		}
		return "", b.Build()
	}

	var body io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		body = io.LimitReader(body, f.maxBodyBytes)
	}
	decoded, err := charset.NewReader(body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFetch, "decode body").NextRun().WithContext("target", target).Build()
	}
	data, err := io.ReadAll(decoded)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryNetwork, "read body").NextRun().WithContext("target", target).Build()
	}
	return string(data), nil
}

func hostOf(target string) string {
	u, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
