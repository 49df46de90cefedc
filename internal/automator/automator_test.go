// File: internal/automator/automator_test.go
package automator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/config"
)

func testAutomationConfig() config.AutomationConfig {
	return config.AutomationConfig{
		MaxActions:      10,
		ActionDelay:     0,
		ScrollSettle:    0,
		MaxScrollRounds: 2,
		Disqualifiers: []string{
			"already friends", "friends since", "following",
			"follows you", "friend request sent", "pending",
		},
	}
}

func card(identity string, texts ...string) Candidate {
	return Candidate{
		Identity:    identity,
		ButtonLabel: "Add Friend",
		CardText:    identity,
		Texts:       append([]string{identity}, texts...),
		Visible:     true,
	}
}

// fakePage is a scripted SuggestionsPage. Cards persist across scans the way
// a real suggestions surface keeps rendered cards around.
type fakePage struct {
	mu      sync.Mutex
	cards   []Candidate
	clicks  []string
	scrolls []int

	// dialogFor lists identities whose click triggers a confirmation
	// dialog on the next DismissConfirmation call.
	dialogFor     map[string]bool
	pendingDialog bool

	// afterClick runs synchronously after each click, under no lock.
	afterClick func(identity string)
	// onScroll can append cards when the page scrolls.
	onScroll func(pixels int)
}

func (f *fakePage) FindCandidates(ctx context.Context) ([]Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Candidate, len(f.cards))
	copy(out, f.cards)
	return out, nil
}

func (f *fakePage) Click(ctx context.Context, identity string) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, identity)
	if f.dialogFor[identity] {
		f.pendingDialog = true
	}
	cb := f.afterClick
	f.mu.Unlock()
	if cb != nil {
		cb(identity)
	}
	return nil
}

func (f *fakePage) DismissConfirmation(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pendingDialog {
		f.pendingDialog = false
		return true, nil
	}
	return false, nil
}

func (f *fakePage) ScrollBy(ctx context.Context, pixels int) error {
	f.mu.Lock()
	f.scrolls = append(f.scrolls, pixels)
	cb := f.onScroll
	f.mu.Unlock()
	if cb != nil {
		cb(pixels)
	}
	return nil
}

func (f *fakePage) clickCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.clicks)
}

func TestAutomatorStopsAtActionBudget(t *testing.T) {
	page := &fakePage{
		cards: []Candidate{card("Ann"), card("Ben"), card("Cam"), card("Dee"), card("Eli")},
	}
	cfg := testAutomationConfig()
	cfg.MaxActions = 3

	a := New(page, cfg, nil, zap.NewNop())
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Sent)
	assert.Equal(t, []string{"Ann", "Ben", "Cam"}, page.clicks)
	assert.Empty(t, page.scrolls, "budget reached before any scroll was needed")
}

func TestAutomatorNeverReclicksProcessedCards(t *testing.T) {
	page := &fakePage{cards: []Candidate{card("Ann"), card("Ben")}}
	cfg := testAutomationConfig()
	cfg.MaxActions = 10

	a := New(page, cfg, nil, zap.NewNop())
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	// Both cards stay on the page after being clicked; the run must end by
	// scroll exhaustion without touching them again.
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, []string{"Ann", "Ben"}, page.clicks)
	assert.Len(t, page.scrolls, cfg.MaxScrollRounds)
}

func TestAutomatorScrollDistanceGrowsPerBatch(t *testing.T) {
	page := &fakePage{}
	cfg := testAutomationConfig()
	cfg.MaxScrollRounds = 3

	a := New(page, cfg, nil, zap.NewNop())
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, res.Sent)
	assert.Equal(t, []int{600, 700, 800}, page.scrolls)
}

func TestAutomatorScrollLoadsMoreCards(t *testing.T) {
	page := &fakePage{cards: []Candidate{card("Ann")}}
	page.onScroll = func(int) {
		page.mu.Lock()
		defer page.mu.Unlock()
		if len(page.cards) == 1 {
			page.cards = append(page.cards, card("Ben"))
		}
	}
	cfg := testAutomationConfig()
	cfg.MaxActions = 2

	a := New(page, cfg, nil, zap.NewNop())
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, []string{"Ann", "Ben"}, page.clicks)
}

func TestAutomatorKeywordFilter(t *testing.T) {
	t.Run("matches any word of any keyword", func(t *testing.T) {
		ann := card("Ann")
		ann.Texts = []string{"Ann", "Works at Acme Hiking Club"}
		ben := card("Ben")
		ben.Texts = []string{"Ben", "Lives in Springfield"}

		page := &fakePage{cards: []Candidate{ann, ben}}
		cfg := testAutomationConfig()
		cfg.UseKeywordFilter = true
		cfg.Keywords = []string{"hiking trails"}

		a := New(page, cfg, nil, zap.NewNop())
		res, err := a.Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 1, res.Sent)
		assert.Equal(t, []string{"Ann"}, page.clicks)
		assert.Equal(t, 1, res.Skipped)
	})

	t.Run("filter disabled acts on every card", func(t *testing.T) {
		page := &fakePage{cards: []Candidate{card("Ann"), card("Ben")}}
		cfg := testAutomationConfig()
		cfg.UseKeywordFilter = false
		cfg.Keywords = []string{"nomatch"}

		a := New(page, cfg, nil, zap.NewNop())
		res, err := a.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, res.Sent)
	})

	t.Run("filter enabled with no keywords matches nothing", func(t *testing.T) {
		page := &fakePage{cards: []Candidate{card("Ann")}}
		cfg := testAutomationConfig()
		cfg.UseKeywordFilter = true

		a := New(page, cfg, nil, zap.NewNop())
		res, err := a.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.Sent)
		assert.Empty(t, page.clicks)
	})
}

func TestAutomatorSkipsDisqualifiedCards(t *testing.T) {
	pending := card("Ben")
	pending.CardText = "Ben\nFriend request sent"

	follower := card("Cam")
	follower.CardText = "Cam\nFollows you"

	page := &fakePage{cards: []Candidate{card("Ann"), pending, follower}}
	a := New(page, testAutomationConfig(), nil, zap.NewNop())

	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []string{"Ann"}, page.clicks)
	assert.Equal(t, 2, res.Skipped)
}

func TestAutomatorButtonRevalidation(t *testing.T) {
	t.Run("changed label is skipped at click time", func(t *testing.T) {
		page := &fakePage{cards: []Candidate{card("Ann")}}
		first := true
		// The card looks clickable on the scan but flips to a pending
		// state before the pre-click snapshot.
		find := func(ctx context.Context) ([]Candidate, error) {
			c := card("Ann")
			if !first {
				c.ButtonLabel = "Pending"
			}
			first = false
			return []Candidate{c}, nil
		}
		a := New(findFunc(find, page), testAutomationConfig(), nil, zap.NewNop())

		res, err := a.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.Sent)
		assert.Empty(t, page.clicks)
	})

	t.Run("card that disappears is skipped", func(t *testing.T) {
		page := &fakePage{cards: []Candidate{card("Ann")}}
		first := true
		find := func(ctx context.Context) ([]Candidate, error) {
			if first {
				first = false
				return []Candidate{card("Ann")}, nil
			}
			return nil, nil
		}
		a := New(findFunc(find, page), testAutomationConfig(), nil, zap.NewNop())

		res, err := a.Run(context.Background())
		require.NoError(t, err)
		assert.Zero(t, res.Sent)
		assert.Equal(t, 1, res.Skipped)
	})
}

// findFunc overrides FindCandidates on a fakePage.
type findOverride struct {
	*fakePage
	find func(ctx context.Context) ([]Candidate, error)
}

func findFunc(find func(ctx context.Context) ([]Candidate, error), page *fakePage) SuggestionsPage {
	return &findOverride{fakePage: page, find: find}
}

func (f *findOverride) FindCandidates(ctx context.Context) ([]Candidate, error) {
	return f.find(ctx)
}

func TestAutomatorConfirmationDialogNotCounted(t *testing.T) {
	page := &fakePage{
		cards:     []Candidate{card("Ann"), card("Ben")},
		dialogFor: map[string]bool{"Ann": true},
	}
	cfg := testAutomationConfig()
	cfg.MaxActions = 2

	a := New(page, cfg, nil, zap.NewNop())
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	// Both cards were clicked, but the dialog on Ann's click means only
	// Ben's counts toward the budget.
	assert.Equal(t, []string{"Ann", "Ben"}, page.clicks)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 1, res.Skipped)
}

func TestAutomatorInvisibleCardsLeftForLater(t *testing.T) {
	hidden := card("Ben")
	hidden.Visible = false

	page := &fakePage{cards: []Candidate{card("Ann"), hidden}}
	page.onScroll = func(int) {
		page.mu.Lock()
		defer page.mu.Unlock()
		page.cards[1].Visible = true
	}
	cfg := testAutomationConfig()
	cfg.MaxActions = 2

	a := New(page, cfg, nil, zap.NewNop())
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, []string{"Ann", "Ben"}, page.clicks)
}

func TestAutomatorStopMidRun(t *testing.T) {
	page := &fakePage{cards: []Candidate{card("Ann"), card("Ben"), card("Cam")}}
	control := NewControl()
	page.afterClick = func(identity string) {
		if identity == "Ann" {
			control.Stop()
		}
	}

	a := New(page, testAutomationConfig(), control, zap.NewNop())
	res, err := a.Run(context.Background())

	require.ErrorIs(t, err, ErrStopped)
	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, []string{"Ann"}, page.clicks)
	assert.Equal(t, schemas.PhaseStopping, control.Phase())
}

func TestAutomatorPauseAndResume(t *testing.T) {
	page := &fakePage{cards: []Candidate{card("Ann"), card("Ben")}}
	control := NewControl()
	page.afterClick = func(identity string) {
		if identity == "Ann" {
			control.Pause()
		}
	}
	cfg := testAutomationConfig()
	cfg.MaxActions = 2

	a := New(page, cfg, control, zap.NewNop())

	done := make(chan struct{})
	var res Result
	var runErr error
	go func() {
		defer close(done)
		res, runErr = a.Run(context.Background())
	}()

	require.Eventually(t, func() bool { return page.clickCount() == 1 },
		time.Second, 10*time.Millisecond)

	// While paused the second card must not be touched.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, page.clickCount())
	assert.Equal(t, schemas.PhasePaused, control.Phase())

	control.Resume()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish after resume")
	}

	require.NoError(t, runErr)
	assert.Equal(t, 2, res.Sent)
}

func TestAutomatorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := &fakePage{cards: []Candidate{card("Ann"), card("Ben")}}
	page.afterClick = func(identity string) {
		if identity == "Ann" {
			cancel()
		}
	}

	a := New(page, testAutomationConfig(), nil, zap.NewNop())
	res, err := a.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, res.Sent)
}

func TestAutomatorProgressCallback(t *testing.T) {
	page := &fakePage{cards: []Candidate{card("Ann"), card("Ben")}}
	cfg := testAutomationConfig()
	cfg.MaxActions = 2

	a := New(page, cfg, nil, zap.NewNop())
	var sent []int
	a.OnProgress(func(s, processed int, message string) {
		sent = append(sent, s)
		assert.NotEmpty(t, message)
	})

	_, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, sent)
}

func TestControlLifecycle(t *testing.T) {
	c := NewControl()
	assert.Equal(t, schemas.PhaseRunning, c.Phase())

	c.Resume() // no-op while running
	assert.Equal(t, schemas.PhaseRunning, c.Phase())

	c.Pause()
	c.Pause() // idempotent
	assert.Equal(t, schemas.PhasePaused, c.Phase())

	c.Stop()
	c.Stop() // idempotent, must not close twice
	assert.Equal(t, schemas.PhaseStopping, c.Phase())

	c.Resume() // stop is final
	assert.Equal(t, schemas.PhaseStopping, c.Phase())

	err := c.checkpoint(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}

func TestAutomatorPacesSkippedCards(t *testing.T) {
	pending := card("Ann")
	pending.CardText = "Ann\nFriend request sent"
	follower := card("Ben")
	follower.CardText = "Ben\nFollows you"

	page := &fakePage{cards: []Candidate{pending, follower}}
	cfg := testAutomationConfig()
	cfg.ActionDelay = 50 * time.Millisecond
	cfg.MaxScrollRounds = 0

	a := New(page, cfg, nil, zap.NewNop())
	start := time.Now()
	res, err := a.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 2, res.Skipped)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond,
		"each skipped card is paced like a sent one")
}
