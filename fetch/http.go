package fetch

import (
	"context"

	"github.com/aluiziolira/go-enrich-catalog/config"
	"github.com/go-resty/resty/v2"
)

// HTTPFetcher is a lightweight text fetch over a plain resty client.
type HTTPFetcher struct {
	client *resty.Client
}

// NewHTTPFetcher builds a resty client configured from cfg.
func NewHTTPFetcher(cfg *config.Config) *HTTPFetcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8").
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))
	return &HTTPFetcher{client: client}
}

// Client exposes the underlying resty client.
func (f *HTTPFetcher) Client() *resty.Client {
	return f.client
}

// Fetch issues a GET and returns the body, including for error statuses.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		body := ""
		if resp != nil {
			body = resp.String()
		}
		return body, classifyError(err, 0)
	}
	if resp.IsError() {
		return resp.String(), classifyError(nil, resp.StatusCode())
	}
	return resp.String(), nil
}
