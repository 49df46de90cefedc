// File: internal/browser/manager.go

// Package browser owns the Chrome process and exposes page surfaces to the
// rest of the application: serialized document state for the session
// extractor and DOM action primitives for the automation loops.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/internal/config"
)

// Manager handles the lifecycle of the browser process. All tab contexts are
// derived from its allocator context.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
}

// NewManager launches (or attaches to) a browser and verifies it responds.
// With RemoteURL set the manager attaches over the DevTools protocol instead
// of spawning a local process.
func NewManager(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Manager, error) {
	m := &Manager{logger: logger.Named("BrowserManager"), cfg: cfg}

	if cfg.RemoteURL != "" {
		m.logger.Info("Attaching to remote browser.", zap.String("url", cfg.RemoteURL))
		m.allocatorCtx, m.allocatorCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		m.allocatorCtx, m.allocatorCancel = chromedp.NewExecAllocator(ctx, m.buildAllocatorOptions()...)
	}

	// Verify the browser starts and responds before handing out tabs.
	testCtx, cancelTimeout := context.WithTimeout(m.allocatorCtx, 30*time.Second)
	testCtx, cancelTest := chromedp.NewContext(testCtx)
	defer cancelTest()
	defer cancelTimeout()

	if err := chromedp.Run(testCtx, chromedp.Navigate("about:blank")); err != nil {
		m.allocatorCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	m.logger.Info("Browser launched and responsive.")
	return m, nil
}

// buildAllocatorOptions assembles launch flags on top of the chromedp
// defaults. Later flags with the same name win, and a false bool flag is
// omitted from the command line entirely, which is how the automation
// banner gets suppressed.
func (m *Manager) buildAllocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", m.cfg.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", m.cfg.Headless),
	)

	for _, arg := range m.cfg.Args {
		parts := strings.SplitN(arg, "=", 2)
		name := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(name, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// NewPage opens a fresh tab. The caller owns the returned Page and must
// Close it.
func (m *Manager) NewPage() (*Page, error) {
	tabCtx, cancel := chromedp.NewContext(m.allocatorCtx)
	// Force tab creation eagerly so failures surface here, not on the
	// first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	return &Page{
		tabCtx: tabCtx,
		cancel: cancel,
		cfg:    m.cfg,
		logger: m.logger.Named("Page"),
	}, nil
}

// Shutdown terminates the browser process.
func (m *Manager) Shutdown() {
	if m.allocatorCancel != nil {
		m.logger.Info("Shutting down browser process.")
		m.allocatorCancel()
		<-m.allocatorCtx.Done()
	}
}
