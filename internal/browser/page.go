// File: internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/internal/config"
)

// Page is one attached browser tab. It backs the session extractor's page
// state reads and the JS evaluation the automation surfaces build on.
type Page struct {
	tabCtx context.Context
	cancel context.CancelFunc
	cfg    config.BrowserConfig
	logger *zap.Logger
}

// Navigate loads a URL and waits the configured settle time so client-side
// rendering can finish before anything reads the page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := p.run(ctx, p.cfg.NavigationTimeout)
	defer cancel()

	p.logger.Debug("Navigating.", zap.String("url", url))
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}

	if p.cfg.PostLoadWait > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.cfg.PostLoadWait):
		}
	}
	return nil
}

// HTML returns the serialized current document.
func (p *Page) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := p.run(ctx, 0)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}
	return html, nil
}

// Cookies returns the tab's cookies for the current origin in document.cookie
// form.
func (p *Page) Cookies(ctx context.Context) (string, error) {
	runCtx, cancel := p.run(ctx, 0)
	defer cancel()

	var pairs []string
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := network.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		for _, c := range cookies {
			pairs = append(pairs, c.Name+"="+c.Value)
		}
		return nil
	}))
	if err != nil {
		return "", fmt.Errorf("reading cookies: %w", err)
	}
	return strings.Join(pairs, "; "), nil
}

// Location returns the tab's current URL.
func (p *Page) Location(ctx context.Context) (string, error) {
	runCtx, cancel := p.run(ctx, 0)
	defer cancel()

	var location string
	if err := chromedp.Run(runCtx, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("reading location: %w", err)
	}
	return location, nil
}

// Evaluate runs a JS expression in the page and decodes the result into out.
// Pass nil to ignore the result.
func (p *Page) Evaluate(ctx context.Context, expression string, out any) error {
	runCtx, cancel := p.run(ctx, 0)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Evaluate(expression, out)); err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}
	return nil
}

// Close releases the tab.
func (p *Page) Close() {
	p.cancel()
}

// run derives a chromedp-compatible context that honors both the caller's
// cancellation and an optional timeout.
func (p *Page) run(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx := p.tabCtx
	var cancels []context.CancelFunc

	if timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		cancels = append(cancels, cancel)
	}

	// Propagate the caller's cancellation into the tab-scoped context.
	runCtx, cancel := context.WithCancel(runCtx)
	cancels = append(cancels, cancel)
	stop := context.AfterFunc(ctx, cancel)

	return runCtx, func() {
		stop()
		for _, c := range cancels {
			c()
		}
	}
}
