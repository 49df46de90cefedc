// File: internal/automator/automator.go
package automator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/internal/config"
)

// addFriendLabel is the exact (case-folded) label a clickable button must
// carry at click time.
const addFriendLabel = "add friend"

// excludedLabels disqualify a button whose text contains any of them, even
// when it also mentions adding a friend.
var excludedLabels = []string{"friends", "following", "message", "pending", "requested"}

// Candidate is one suggestion card with an actionable button, as observed on
// the page at scan time.
type Candidate struct {
	// Identity is the trimmed text of the enclosing card. Two cards with
	// the same text are treated as the same person across rescans.
	Identity string
	// ButtonLabel is the trimmed text of the action button.
	ButtonLabel string
	// CardText is the full card text, used for disqualifier checks.
	CardText string
	// Texts are the card's individual text fragments, used for keyword
	// matching.
	Texts []string
	// Visible reports whether the button was on screen at scan time.
	Visible bool
}

// SuggestionsPage is the DOM surface the friend-request loop runs against.
type SuggestionsPage interface {
	// FindCandidates returns a fresh snapshot of every suggestion card that
	// currently shows an action button.
	FindCandidates(ctx context.Context) ([]Candidate, error)
	// Click presses the action button inside the card identified by
	// identity. Implementations scroll the element into view first.
	Click(ctx context.Context, identity string) error
	// DismissConfirmation checks for a blocking confirmation dialog, clicks
	// its OK button when present, and reports whether one appeared.
	DismissConfirmation(ctx context.Context) (bool, error)
	// ScrollBy scrolls the page down by the given number of pixels.
	ScrollBy(ctx context.Context, pixels int) error
}

// Progress is invoked after every counted action and on skips that change
// the processed total.
type Progress func(sent, processed int, message string)

// Result summarizes a finished friend-request run.
type Result struct {
	Sent      int
	Processed int
	Skipped   int
}

// Automator walks the visible suggestion cards, filters them, and clicks the
// qualifying buttons until the action budget or the page is exhausted.
type Automator struct {
	page    SuggestionsPage
	cfg     config.AutomationConfig
	control *Control
	logger  *zap.Logger

	onProgress Progress
}

// New builds an Automator over the given page. control may be shared with a
// coordinator that relays pause/resume/stop commands.
func New(page SuggestionsPage, cfg config.AutomationConfig, control *Control, logger *zap.Logger) *Automator {
	if control == nil {
		control = NewControl()
	}
	return &Automator{
		page:    page,
		cfg:     cfg,
		control: control,
		logger:  logger.Named("Automator"),
	}
}

// OnProgress registers a progress callback. Must be set before Run.
func (a *Automator) OnProgress(fn Progress) { a.onProgress = fn }

// Control returns the run's pause/resume/stop handle.
func (a *Automator) Control() *Control { return a.control }

// Run executes the click loop until MaxActions requests have been sent, the
// page stops yielding new cards, or the run is stopped. A stopped or
// cancelled run returns its partial Result together with the terminating
// error.
func (a *Automator) Run(ctx context.Context) (Result, error) {
	var res Result

	if a.cfg.UseKeywordFilter && len(a.cfg.Keywords) == 0 {
		a.logger.Warn("Keyword filter enabled with no keywords; no cards will match.")
	}

	processed := make(map[string]struct{})
	batch := 0
	emptyRounds := 0

	for res.Sent < a.cfg.MaxActions {
		if err := a.control.checkpoint(ctx); err != nil {
			return res, err
		}

		candidates, err := a.page.FindCandidates(ctx)
		if err != nil {
			return res, fmt.Errorf("scanning suggestion cards: %w", err)
		}

		fresh := candidates[:0:0]
		for _, c := range candidates {
			if _, seen := processed[c.Identity]; !seen {
				fresh = append(fresh, c)
			}
		}

		before := len(processed)
		for _, c := range fresh {
			if res.Sent >= a.cfg.MaxActions {
				break
			}
			if err := a.control.checkpoint(ctx); err != nil {
				return res, err
			}

			prev := len(processed)
			counted, err := a.process(ctx, c, processed, &res)
			if err != nil {
				return res, err
			}
			if counted {
				a.report(res, fmt.Sprintf("Sent friend request (%d/%d).", res.Sent, a.cfg.MaxActions))
			}
			// Every handled card gets the same pacing, skips included.
			// Off-screen cards were deferred, not handled, and get none.
			if len(processed) > prev {
				if err := a.control.sleep(ctx, a.cfg.ActionDelay); err != nil {
					return res, err
				}
			}
		}
		if res.Sent >= a.cfg.MaxActions {
			break
		}

		// A pass that processed nothing, whether the page was empty or
		// every remaining card is off screen, means we need to scroll.
		if len(processed) == before {
			emptyRounds++
			if emptyRounds > a.cfg.MaxScrollRounds {
				a.logger.Info("No new suggestion cards after scrolling; finishing.",
					zap.Int("sent", res.Sent), zap.Int("processed", res.Processed))
				return res, nil
			}
			if err := a.scrollForMore(ctx, batch); err != nil {
				return res, err
			}
			batch++
			continue
		}
		emptyRounds = 0
	}

	a.logger.Info("Action budget reached.", zap.Int("sent", res.Sent))
	return res, nil
}

// process handles a single card. It reports whether a request was sent and
// counted toward the budget.
func (a *Automator) process(ctx context.Context, c Candidate, processed map[string]struct{}, res *Result) (bool, error) {
	if !c.Visible {
		// Off-screen cards are left unprocessed so a later scan, after
		// scrolling, can pick them up.
		return false, nil
	}

	if !a.matchesKeywords(c) {
		processed[c.Identity] = struct{}{}
		res.Processed++
		res.Skipped++
		return false, nil
	}

	// Revalidate against a fresh snapshot right before clicking; the card
	// may have changed since the scan.
	current, ok, err := a.refresh(ctx, c.Identity)
	if err != nil {
		return false, err
	}
	if !ok {
		processed[c.Identity] = struct{}{}
		res.Processed++
		res.Skipped++
		return false, nil
	}

	if !a.validButton(current) {
		a.logger.Debug("Card no longer actionable.",
			zap.String("button", current.ButtonLabel))
		processed[c.Identity] = struct{}{}
		res.Processed++
		res.Skipped++
		return false, nil
	}

	if err := a.page.Click(ctx, c.Identity); err != nil {
		return false, fmt.Errorf("clicking add-friend button: %w", err)
	}
	processed[c.Identity] = struct{}{}
	res.Processed++

	dialog, err := a.page.DismissConfirmation(ctx)
	if err != nil {
		return false, fmt.Errorf("checking confirmation dialog: %w", err)
	}
	if dialog {
		// A confirmation dialog means the click did not send a request.
		a.logger.Warn("Confirmation dialog appeared; action not counted.")
		res.Skipped++
		a.report(*res, "Dismissed confirmation dialog.")
		return false, nil
	}

	res.Sent++
	return true, nil
}

// refresh re-scans the page and returns the card's current state.
func (a *Automator) refresh(ctx context.Context, identity string) (Candidate, bool, error) {
	candidates, err := a.page.FindCandidates(ctx)
	if err != nil {
		return Candidate{}, false, fmt.Errorf("revalidating card: %w", err)
	}
	for _, c := range candidates {
		if c.Identity == identity {
			return c, true, nil
		}
	}
	return Candidate{}, false, nil
}

// matchesKeywords applies the configured keyword filter. With the filter off
// every card matches; with it on, at least one word of one keyword must
// appear as a substring of one of the card's text fragments.
func (a *Automator) matchesKeywords(c Candidate) bool {
	if !a.cfg.UseKeywordFilter {
		return true
	}
	if len(a.cfg.Keywords) == 0 {
		return false
	}
	for _, keyword := range a.cfg.Keywords {
		for _, word := range strings.Fields(strings.ToLower(keyword)) {
			for _, text := range c.Texts {
				if strings.Contains(strings.ToLower(text), word) {
					return true
				}
			}
		}
	}
	return false
}

// validButton reports whether the card's button still sends a friend request
// when clicked.
func (a *Automator) validButton(c Candidate) bool {
	label := strings.ToLower(strings.TrimSpace(c.ButtonLabel))
	if !strings.Contains(label, addFriendLabel) {
		return false
	}
	for _, excluded := range excludedLabels {
		if label != addFriendLabel && strings.Contains(label, excluded) {
			return false
		}
	}
	card := strings.ToLower(c.CardText)
	for _, phrase := range a.cfg.Disqualifiers {
		if strings.Contains(card, strings.ToLower(phrase)) {
			return false
		}
	}
	return true
}

// scrollForMore scrolls progressively further each batch and waits for the
// page to settle.
func (a *Automator) scrollForMore(ctx context.Context, batch int) error {
	pixels := 600 + batch*100
	a.logger.Debug("Scrolling for more suggestions.", zap.Int("pixels", pixels))
	if err := a.page.ScrollBy(ctx, pixels); err != nil {
		return fmt.Errorf("scrolling suggestions: %w", err)
	}
	return a.control.sleep(ctx, a.cfg.ScrollSettle)
}

func (a *Automator) report(res Result, message string) {
	if a.onProgress != nil {
		a.onProgress(res.Sent, res.Processed, message)
	}
}
