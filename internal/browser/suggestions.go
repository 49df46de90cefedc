// File: internal/browser/suggestions.go
package browser

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/socialgraph-cli/internal/automator"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// scanCandidatesJS walks every button on the page, keeps the add-friend
// ones, and climbs six ancestors to reach the suggestion card that owns the
// button. The card's trimmed text doubles as the person's identity across
// rescans.
const scanCandidatesJS = `
(() => {
    const out = [];
    const buttons = document.querySelectorAll('div[role="button"], button, [aria-label]');
    for (const btn of buttons) {
        const label = ((btn.getAttribute('aria-label') || btn.textContent) || '').trim();
        if (!label.toLowerCase().includes('add friend')) continue;

        let card = btn;
        for (let i = 0; i < 6 && card.parentElement; i++) card = card.parentElement;
        const identity = (card.innerText || '').trim();
        if (!identity) continue;

        const rect = btn.getBoundingClientRect();
        const viewport = window.innerHeight || document.documentElement.clientHeight;
        const visible = rect.width > 0 && rect.height > 0 &&
            rect.top >= 0 && rect.bottom <= viewport;

        const texts = [];
        const walker = document.createTreeWalker(card, NodeFilter.SHOW_TEXT);
        while (walker.nextNode()) {
            const t = walker.currentNode.textContent.trim();
            if (t) texts.push(t);
        }

        out.push({
            identity: identity,
            button_label: label,
            card_text: identity,
            texts: texts,
            visible: visible,
        });
    }
    return JSON.stringify(out);
})()
`

// clickCandidateJSFmt clicks the add-friend button inside the card whose
// trimmed text equals the given identity. The identity is injected as a JSON
// string literal.
const clickCandidateJSFmt = `
(() => {
    const target = %s;
    const buttons = document.querySelectorAll('div[role="button"], button, [aria-label]');
    for (const btn of buttons) {
        const label = ((btn.getAttribute('aria-label') || btn.textContent) || '').trim();
        if (!label.toLowerCase().includes('add friend')) continue;
        let card = btn;
        for (let i = 0; i < 6 && card.parentElement; i++) card = card.parentElement;
        if ((card.innerText || '').trim() !== target) continue;
        btn.scrollIntoView({block: 'center'});
        btn.click();
        return true;
    }
    return false;
})()
`

// dismissConfirmationJS clicks the OK button of a blocking confirmation
// dialog when one is present.
const dismissConfirmationJS = `
(() => {
    const ok = document.querySelector('[aria-label="OK"]');
    if (!ok) return false;
    ok.click();
    return true;
})()
`

// SuggestionsSurface adapts a Page to the friend-request automator.
type SuggestionsSurface struct {
	page *Page
}

// NewSuggestionsSurface wraps an attached tab showing a suggestions feed.
func NewSuggestionsSurface(page *Page) *SuggestionsSurface {
	return &SuggestionsSurface{page: page}
}

var _ automator.SuggestionsPage = (*SuggestionsSurface)(nil)

type candidateDTO struct {
	Identity    string   `json:"identity"`
	ButtonLabel string   `json:"button_label"`
	CardText    string   `json:"card_text"`
	Texts       []string `json:"texts"`
	Visible     bool     `json:"visible"`
}

// FindCandidates scans the live page for suggestion cards.
func (s *SuggestionsSurface) FindCandidates(ctx context.Context) ([]automator.Candidate, error) {
	var raw string
	if err := s.page.Evaluate(ctx, scanCandidatesJS, &raw); err != nil {
		return nil, err
	}
	var dtos []candidateDTO
	if err := json.Unmarshal([]byte(raw), &dtos); err != nil {
		return nil, fmt.Errorf("decoding candidate scan: %w", err)
	}
	out := make([]automator.Candidate, 0, len(dtos))
	for _, d := range dtos {
		out = append(out, automator.Candidate{
			Identity:    d.Identity,
			ButtonLabel: d.ButtonLabel,
			CardText:    d.CardText,
			Texts:       d.Texts,
			Visible:     d.Visible,
		})
	}
	return out, nil
}

// Click presses the add-friend button in the identified card.
func (s *SuggestionsSurface) Click(ctx context.Context, identity string) error {
	literal, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encoding identity: %w", err)
	}
	var clicked bool
	if err := s.page.Evaluate(ctx, fmt.Sprintf(clickCandidateJSFmt, literal), &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("card %q no longer on page", identity)
	}
	return nil
}

// DismissConfirmation clears a confirmation dialog when one is showing.
func (s *SuggestionsSurface) DismissConfirmation(ctx context.Context) (bool, error) {
	var dismissed bool
	if err := s.page.Evaluate(ctx, dismissConfirmationJS, &dismissed); err != nil {
		return false, err
	}
	return dismissed, nil
}

// ScrollBy scrolls the window down.
func (s *SuggestionsSurface) ScrollBy(ctx context.Context, pixels int) error {
	expr := fmt.Sprintf(`window.scrollBy(0, %d); true`, pixels)
	var ok bool
	return s.page.Evaluate(ctx, expr, &ok)
}
