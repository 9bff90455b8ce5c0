package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/aluiziolira/go-enrich-catalog/config"
	"github.com/gocolly/colly/v2"
)

// CollyFetcher is the lightweight text fetch built on a colly collector.
type CollyFetcher struct {
	collector *colly.Collector
}

// NewCollyFetcher builds a collector configured from cfg. Requests are
// issued one at a time; the pipeline owns pacing between items.
func NewCollyFetcher(cfg *config.Config) (*CollyFetcher, error) {
	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        16,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: 1,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	return &CollyFetcher{collector: collector}, nil
}

// WithTransport swaps the HTTP transport, shared by every fetch.
func (f *CollyFetcher) WithTransport(transport http.RoundTripper) {
	f.collector.WithTransport(transport)
}

// Fetch visits url and returns the response body. Error responses still
// return their body.
func (f *CollyFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// callbacks are per visit, so each fetch gets its own clone sharing the
	// parent's backend
	c := f.collector.Clone()

	var body []byte
	status := 0
	c.OnResponse(func(r *colly.Response) {
		body = r.Body
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r == nil {
			return
		}
		body = r.Body
		status = r.StatusCode
	})

	if err := c.Visit(url); err != nil {
		return string(body), classifyError(err, status)
	}
	return string(body), nil
}
