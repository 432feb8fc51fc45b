package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// ChromeOptions configures the headless Chrome session.
type ChromeOptions struct {
	UserAgent string
	Proxy     string
	Headless  bool
}

// ChromeBrowser implements Browser on a single Chrome tab driven through the DevTools protocol.
type ChromeBrowser struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

// NewChromeBrowser launches Chrome and opens one tab. The session lives until Close.
func NewChromeBrowser(ctx context.Context, opts ChromeOptions) (*ChromeBrowser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1920, 1080),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}

	// The session must outlive the caller's request context, so it hangs off a detached parent.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	return &ChromeBrowser{tabCtx: tabCtx, tabCancel: tabCancel, allocCancel: allocCancel}, nil
}

// ChromeFactory returns a BrowserFactory producing ChromeBrowser sessions.
func ChromeFactory(opts ChromeOptions) BrowserFactory {
	return func(ctx context.Context) (Browser, error) {
		return NewChromeBrowser(ctx, opts)
	}
}

// Render navigates to url and returns the page once waitSelector is present in the DOM.
// The element does not have to be laid out or visible yet.
func (b *ChromeBrowser) Render(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error) {
	if b.tabCtx.Err() != nil {
		return "", ErrSessionLost
	}
	runCtx, cancel := context.WithTimeout(b.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var html string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady(waitSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	switch {
	case err == nil:
		return html, nil
	case ctx.Err() != nil:
		return "", ctx.Err()
	case b.tabCtx.Err() != nil:
		return "", fmt.Errorf("%w: %v", ErrSessionLost, err)
	case errors.Is(err, context.DeadlineExceeded):
		return "", fmt.Errorf("%w after %v", ErrRenderTimeout, timeout)
	default:
		return "", fmt.Errorf("render %s: %w", url, err)
	}
}

// Close shuts the tab and the browser process.
func (b *ChromeBrowser) Close() error {
	err := chromedp.Cancel(b.tabCtx)
	b.tabCancel()
	b.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}
