// File: internal/automator/cancel.go
package automator

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/internal/config"
)

// cancelScrollStep is how far the requests list is scrolled per round while
// loading every pending entry.
const cancelScrollStep = 1000

// RequestsPage is the DOM surface for the sent-requests dialog.
type RequestsPage interface {
	// OpenSentRequests finds and clicks the control that reveals the list
	// of outgoing requests. It reports false when the control is absent.
	OpenSentRequests(ctx context.Context) (bool, error)
	// ScrollOffset returns the list container's current scroll position.
	ScrollOffset(ctx context.Context) (int, error)
	// ScrollDown scrolls the list container down by the given amount.
	ScrollDown(ctx context.Context, pixels int) error
	// CancelButtons returns how many cancel controls are currently in the
	// list.
	CancelButtons(ctx context.Context) (int, error)
	// ClickCancel scrolls the i-th cancel control into view and clicks it.
	ClickCancel(ctx context.Context, i int) error
}

// CancelResult summarizes a finished cancel run.
type CancelResult struct {
	Cancelled int
	Total     int
}

// CancelController cancels every outgoing friend request: it opens the sent
// list, scrolls until the list stops growing, then clicks each cancel
// control in order.
type CancelController struct {
	page    RequestsPage
	cfg     config.CancelConfig
	control *Control
	logger  *zap.Logger

	onProgress Progress
}

// NewCancelController builds a controller over the given page.
func NewCancelController(page RequestsPage, cfg config.CancelConfig, control *Control, logger *zap.Logger) *CancelController {
	if control == nil {
		control = NewControl()
	}
	return &CancelController{
		page:    page,
		cfg:     cfg,
		control: control,
		logger:  logger.Named("CancelController"),
	}
}

// OnProgress registers a per-item progress callback. Must be set before Run.
func (c *CancelController) OnProgress(fn Progress) { c.onProgress = fn }

// Control returns the run's pause/resume/stop handle.
func (c *CancelController) Control() *Control { return c.control }

// Run cancels all outgoing requests. A stopped or cancelled run returns its
// partial CancelResult with the terminating error.
func (c *CancelController) Run(ctx context.Context) (CancelResult, error) {
	var res CancelResult

	opened, err := c.page.OpenSentRequests(ctx)
	if err != nil {
		return res, fmt.Errorf("opening sent requests: %w", err)
	}
	if !opened {
		c.logger.Info("No sent-requests control found; nothing to cancel.")
		return res, nil
	}
	if err := c.control.sleep(ctx, c.cfg.ScrollSettle); err != nil {
		return res, err
	}

	if err := c.scrollToEnd(ctx); err != nil {
		return res, err
	}

	total, err := c.page.CancelButtons(ctx)
	if err != nil {
		return res, fmt.Errorf("counting cancel buttons: %w", err)
	}
	res.Total = total
	c.logger.Info("Cancelling outgoing requests.", zap.Int("total", total))

	for i := 0; i < total; i++ {
		if err := c.control.checkpoint(ctx); err != nil {
			return res, err
		}
		if err := c.page.ClickCancel(ctx, i); err != nil {
			return res, fmt.Errorf("cancelling request %d of %d: %w", i+1, total, err)
		}
		res.Cancelled++
		if c.onProgress != nil {
			c.onProgress(res.Cancelled, res.Total,
				fmt.Sprintf("Cancelled request %d of %d.", res.Cancelled, res.Total))
		}
		if i < total-1 {
			if err := c.control.sleep(ctx, c.cfg.ItemDelay); err != nil {
				return res, err
			}
		}
	}

	return res, nil
}

// scrollToEnd scrolls the list until the scroll offset stops advancing,
// which means every pending request has been loaded.
func (c *CancelController) scrollToEnd(ctx context.Context) error {
	previous := -1
	for round := 0; round < c.cfg.MaxScrolls; round++ {
		if err := c.control.checkpoint(ctx); err != nil {
			return err
		}
		if err := c.page.ScrollDown(ctx, cancelScrollStep); err != nil {
			return fmt.Errorf("scrolling request list: %w", err)
		}
		if err := c.control.sleep(ctx, c.cfg.ScrollSettle); err != nil {
			return err
		}
		offset, err := c.page.ScrollOffset(ctx)
		if err != nil {
			return fmt.Errorf("reading scroll offset: %w", err)
		}
		if offset == previous {
			return nil
		}
		previous = offset
	}
	c.logger.Warn("Scroll cap reached before the list settled.",
		zap.Int("max_scrolls", c.cfg.MaxScrolls))
	return nil
}
