package hunt

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// jsShellThreshold is the body size below which a script-heavy page is
// assumed to be a client-rendered shell.
const jsShellThreshold = 2048

var spaMarkers = []string{
	"__next",
	`id="root"`,
	`id="app"`,
	"data-reactroot",
	"window.__apollo_state__",
}

// looksLikeJSShell decides whether a homepage needs browser rendering
// before identifier matching makes sense.
func looksLikeJSShell(html string) bool {
	if html == "" {
		return true
	}
	lower := strings.ToLower(html)
	if len(html) >= jsShellThreshold {
		return false
	}
	for _, marker := range spaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.Count(lower, "<script") > 3
}

// ChromeRenderer renders pages with headless Chrome via chromedp.
type ChromeRenderer struct {
	navTimeout  time.Duration
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromeRenderer starts a shared exec allocator for renders.
func NewChromeRenderer(navTimeout time.Duration) *ChromeRenderer {
	if navTimeout <= 0 {
		navTimeout = 25 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &ChromeRenderer{
		navTimeout:  navTimeout,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Close cancels the allocator context.
func (r *ChromeRenderer) Close() {
	r.allocCancel()
}

// Render navigates to the URL and returns the rendered DOM.
func (r *ChromeRenderer) Render(ctx context.Context, url string) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.navTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			taskCancel()
		case <-done:
		}
	}()
	defer close(done)

	var html string
	err := chromedp.Run(taskCtx,
		chromedp.Navigate(url),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", url, err)
	}
	return html, nil
}
