// File: cmd/session.go
package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/browser"
	"github.com/xkilldash9x/socialgraph-cli/internal/config"
	"github.com/xkilldash9x/socialgraph-cli/internal/session"
)

// attachedSession bundles the live browser tab with the credentials scraped
// from it. Close releases the tab and the browser process.
type attachedSession struct {
	manager *browser.Manager
	page    *browser.Page
	creds   schemas.SessionCredentials
}

func (s *attachedSession) Close() {
	s.page.Close()
	s.manager.Shutdown()
}

// openSession launches the browser, loads the target origin, and extracts
// session credentials from the logged-in page. The browser must already hold
// an authenticated session (a user profile directory or a remote browser).
func openSession(ctx context.Context, cfg config.Interface, logger *zap.Logger) (*attachedSession, error) {
	manager, err := browser.NewManager(ctx, cfg.Browser(), logger)
	if err != nil {
		return nil, err
	}

	page, err := manager.NewPage()
	if err != nil {
		manager.Shutdown()
		return nil, err
	}

	if err := page.Navigate(ctx, cfg.Graph().BaseURL); err != nil {
		page.Close()
		manager.Shutdown()
		return nil, err
	}

	extractor := session.NewExtractor(page, logger)
	creds, err := extractor.Extract(ctx)
	if err != nil {
		page.Close()
		manager.Shutdown()
		return nil, fmt.Errorf("extracting session credentials (is the browser logged in?): %w", err)
	}

	logger.Info("Session attached.", zap.String("user_id", creds.UserID))
	return &attachedSession{manager: manager, page: page, creds: creds}, nil
}
