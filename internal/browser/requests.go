// File: internal/browser/requests.go
package browser

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/socialgraph-cli/internal/automator"
)

// openSentRequestsJS finds and clicks the control that expands the list of
// outgoing requests.
const openSentRequestsJS = `
(() => {
    const buttons = document.querySelectorAll('div[role="button"], a[role="link"]');
    for (const btn of buttons) {
        const text = (btn.textContent || '').trim().toLowerCase();
        if (text.includes('view sent requests')) {
            btn.scrollIntoView({block: 'center'});
            btn.click();
            return true;
        }
    }
    return false;
})()
`

// requestsContainerJS resolves the scrollable element that holds the request
// list: the dialog when one is open, otherwise the document itself.
const requestsContainerJS = `
(() => {
    const dialog = document.querySelector('div[role="dialog"]');
    if (dialog) {
        for (const el of dialog.querySelectorAll('div')) {
            if (el.scrollHeight > el.clientHeight) return el;
        }
    }
    return document.scrollingElement || document.documentElement;
})()
`

const scrollOffsetJS = `(` + requestsContainerJS + `).scrollTop`

const scrollDownJSFmt = `
(() => {
    const el = (` + requestsContainerJS + `);
    el.scrollTop = el.scrollTop + %d;
    return true;
})()
`

const countCancelButtonsJS = `document.querySelectorAll('div[aria-label="Cancel request"]').length`

const clickCancelJSFmt = `
(() => {
    const buttons = document.querySelectorAll('div[aria-label="Cancel request"]');
    if (%[1]d >= buttons.length) return false;
    const btn = buttons[%[1]d];
    btn.scrollIntoView({block: 'center'});
    btn.click();
    return true;
})()
`

// RequestsSurface adapts a Page to the cancel-outgoing controller.
type RequestsSurface struct {
	page *Page
}

// NewRequestsSurface wraps an attached tab showing the friends request view.
func NewRequestsSurface(page *Page) *RequestsSurface {
	return &RequestsSurface{page: page}
}

var _ automator.RequestsPage = (*RequestsSurface)(nil)

// OpenSentRequests reveals the outgoing request list.
func (r *RequestsSurface) OpenSentRequests(ctx context.Context) (bool, error) {
	var opened bool
	if err := r.page.Evaluate(ctx, openSentRequestsJS, &opened); err != nil {
		return false, err
	}
	return opened, nil
}

// ScrollOffset reads the list container's scroll position.
func (r *RequestsSurface) ScrollOffset(ctx context.Context) (int, error) {
	var offset float64
	if err := r.page.Evaluate(ctx, scrollOffsetJS, &offset); err != nil {
		return 0, err
	}
	return int(offset), nil
}

// ScrollDown advances the list container.
func (r *RequestsSurface) ScrollDown(ctx context.Context, pixels int) error {
	var ok bool
	return r.page.Evaluate(ctx, fmt.Sprintf(scrollDownJSFmt, pixels), &ok)
}

// CancelButtons counts the visible cancel controls.
func (r *RequestsSurface) CancelButtons(ctx context.Context) (int, error) {
	var count float64
	if err := r.page.Evaluate(ctx, countCancelButtonsJS, &count); err != nil {
		return 0, err
	}
	return int(count), nil
}

// ClickCancel cancels the i-th outgoing request.
func (r *RequestsSurface) ClickCancel(ctx context.Context, i int) error {
	var clicked bool
	if err := r.page.Evaluate(ctx, fmt.Sprintf(clickCancelJSFmt, i), &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("cancel button %d no longer on page", i)
	}
	return nil
}
