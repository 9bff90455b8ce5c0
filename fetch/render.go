package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-enrich-catalog/config"
	"github.com/chromedp/chromedp"
)

// ErrBrowserClosed is returned by Fetch after Close.
var ErrBrowserClosed = errors.New("browser closed")

// RenderFetcher loads pages in headless Chrome and returns the rendered
// document, so script-injected meta tags are visible to extraction. One
// browser serves every fetch; each fetch gets its own tab.
type RenderFetcher struct {
	cfg *config.Config

	cancelAlloc   context.CancelFunc
	browserCtx    context.Context
	cancelBrowser context.CancelFunc

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewRenderFetcher prepares the allocator and browser contexts. Chrome is
// started on the first fetch.
func NewRenderFetcher(cfg *config.Config) *RenderFetcher {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.NoSandbox,
		chromedp.UserAgent(cfg.UserAgent),
	)
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	return &RenderFetcher{
		cfg:           cfg,
		cancelAlloc:   cancelAlloc,
		browserCtx:    browserCtx,
		cancelBrowser: cancelBrowser,
	}
}

// start launches the browser once. Tabs derived from browserCtx before it
// has run would each allocate their own Chrome process.
func (f *RenderFetcher) start() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrBrowserClosed
	}
	if f.started {
		return nil
	}
	if err := chromedp.Run(f.browserCtx); err != nil {
		return fmt.Errorf("start browser: %w", err)
	}
	f.started = true
	return nil
}

// Fetch navigates a fresh tab to url, waits for the body and returns the
// outer HTML of the document.
func (f *RenderFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := f.start(); err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, f.cfg.Timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return html, ctxErr
		}
		return html, classifyError(err, 0)
	}
	return html, nil
}

// Close shuts the browser down. Later fetches return ErrBrowserClosed.
func (f *RenderFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true
	f.cancelBrowser()
	f.cancelAlloc()
	return nil
}
