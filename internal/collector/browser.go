package collector

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrRenderTimeout means the results never appeared within the wait budget. The day is skipped.
	ErrRenderTimeout = errors.New("results did not render before timeout")
	// ErrSessionLost means the rendering session itself is gone. Collection stops with partial data.
	ErrSessionLost = errors.New("rendering session lost")
)

// Browser renders a results page and returns its HTML once waitSelector is present.
type Browser interface {
	Render(ctx context.Context, url, waitSelector string, timeout time.Duration) (string, error)
	Close() error
}

// BrowserFactory opens a rendering session for one collection pass.
type BrowserFactory func(ctx context.Context) (Browser, error)

// MockBrowser returns canned pages in call order, for development and testing.
// A call past the end of Pages behaves like a render timeout.
type MockBrowser struct {
	Pages  []string
	Errs   []error
	URLs   []string
	Closed int
}

func (m *MockBrowser) Render(ctx context.Context, url, _ string, _ time.Duration) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	i := len(m.URLs)
	m.URLs = append(m.URLs, url)
	if i < len(m.Errs) && m.Errs[i] != nil {
		return "", m.Errs[i]
	}
	if i < len(m.Pages) {
		return m.Pages[i], nil
	}
	return "", ErrRenderTimeout
}

func (m *MockBrowser) Close() error {
	m.Closed++
	return nil
}

// Factory returns a BrowserFactory that always hands out m.
func (m *MockBrowser) Factory() BrowserFactory {
	return func(context.Context) (Browser, error) { return m, nil }
}
