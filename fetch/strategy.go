package fetch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aluiziolira/go-enrich-catalog/config"
	"github.com/aluiziolira/go-enrich-catalog/parser"
)

// Result is what a strategy extracted for one item URL. Err holds the fetch
// error to report, even when something was still extracted.
type Result struct {
	ImageURL string
	Price    string
	Err      error
}

// Found reports whether an image or a price was extracted.
func (r Result) Found() bool {
	return r.ImageURL != "" || r.Price != ""
}

// Strategy decides which fetches feed which extractors.
type Strategy interface {
	Enrich(ctx context.Context, url string) Result
}

// Single runs both extractors on one fetch.
type Single struct {
	Fetcher Fetcher
}

// Enrich fetches url once. Extraction runs on whatever text came back,
// including error bodies.
func (s Single) Enrich(ctx context.Context, url string) Result {
	text, err := s.Fetcher.Fetch(ctx, url)
	res := Result{Err: err}
	if price, ok := parser.ExtractPrice(text); ok {
		res.Price = price
	}
	if image, ok := parser.ExtractImage(text, url); ok {
		res.ImageURL = image
	}
	return res
}

// Hybrid takes the price from a lightweight fetch and the image from a
// rendered one. The rendered page also supplies the price when the
// lightweight text had none.
type Hybrid struct {
	Light    Fetcher
	Rendered Fetcher
}

// Enrich performs both fetches for url. A rendered fetch error takes
// precedence over the lightweight one.
func (h Hybrid) Enrich(ctx context.Context, url string) Result {
	var res Result

	lightText, lightErr := h.Light.Fetch(ctx, url)
	if price, ok := parser.ExtractPrice(lightText); ok {
		res.Price = price
	}

	renderedText, renderErr := h.Rendered.Fetch(ctx, url)
	if image, ok := parser.ExtractImage(renderedText, url); ok {
		res.ImageURL = image
	}
	if res.Price == "" {
		if price, ok := parser.ExtractPrice(renderedText); ok {
			res.Price = price
		}
	}

	res.Err = renderErr
	if res.Err == nil {
		res.Err = lightErr
	}
	return res
}

// NewStrategy builds the strategy selected by cfg.FetchMode with every
// fetcher wrapped by Wrap. The returned close function releases the browser,
// if one was started.
func NewStrategy(cfg *config.Config, metrics *Metrics, logger *slog.Logger) (Strategy, func() error, error) {
	base, name, err := NewLight(cfg)
	if err != nil {
		return nil, nil, err
	}
	light, err := Wrap(name, base, cfg, metrics, logger)
	if err != nil {
		return nil, nil, err
	}

	switch cfg.FetchMode {
	case config.ModeSingle, "":
		return Single{Fetcher: light}, func() error { return nil }, nil
	case config.ModeHybrid:
		browser := NewRenderFetcher(cfg)
		rendered, err := Wrap("render", browser, cfg, metrics, logger)
		if err != nil {
			browser.Close()
			return nil, nil, err
		}
		return Hybrid{Light: light, Rendered: rendered}, browser.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported fetch mode: %s", cfg.FetchMode)
	}
}
