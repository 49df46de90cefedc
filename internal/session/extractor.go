// File: internal/session/extractor.go
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// ErrMissingCredentials indicates the live page did not expose everything the
// API clients need. Callers must treat this as a hard precondition failure
// and make no network requests.
var ErrMissingCredentials = errors.New("session: required credentials not present on page")

var (
	userCookieRe = regexp.MustCompile(`c_user=(\d+)`)
	dtsgScriptRe = regexp.MustCompile(`"DTSGInitialData"[^}]*"token":"([^"]+)"`)
	numericRe    = regexp.MustCompile(`^\d+$`)
)

// friendsCollectionSuffix is the fixed collection discriminator for the
// friends app collection. The full id is an opaque base64 handle built
// around the numeric user id.
const friendsCollectionSuffix = ":2356318349:2"

// PageState exposes the pieces of a live page the extractor reads. The
// production implementation is backed by an attached browser tab; tests
// supply fixtures.
type PageState interface {
	// HTML returns the current serialized document.
	HTML(ctx context.Context) (string, error)
	// Cookies returns the document cookie string for the current origin.
	Cookies(ctx context.Context) (string, error)
	// Location returns the page's current URL.
	Location(ctx context.Context) (string, error)
}

// Extractor scrapes ephemeral session credentials out of live page state.
type Extractor struct {
	page   PageState
	logger *zap.Logger
}

// NewExtractor wires an Extractor to a page. A nil logger is replaced with a
// no-op one.
func NewExtractor(page PageState, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{page: page, logger: logger.Named("SessionExtractor")}
}

// Extract reads the cookie jar, hidden form inputs and inline scripts of the
// current page and assembles a credential set. It fails without side effects
// when either the user id or the anti-forgery token cannot be found.
func (e *Extractor) Extract(ctx context.Context) (schemas.SessionCredentials, error) {
	var creds schemas.SessionCredentials

	cookies, err := e.page.Cookies(ctx)
	if err != nil {
		return creds, fmt.Errorf("session: reading cookies: %w", err)
	}
	creds.UserID = userIDFromCookies(cookies)
	creds.CookieHeader = cookies

	html, err := e.page.HTML(ctx)
	if err != nil {
		return creds, fmt.Errorf("session: reading document: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return creds, fmt.Errorf("session: parsing document: %w", err)
	}

	creds.CSRFToken = csrfToken(doc)
	creds.Jazoest = hiddenInput(doc, "jazoest")
	creds.LSD = hiddenInput(doc, "lsd")

	if creds.UserID == "" || creds.CSRFToken == "" {
		e.logger.Warn("Credential extraction incomplete.",
			zap.Bool("have_user_id", creds.UserID != ""),
			zap.Bool("have_csrf", creds.CSRFToken != ""))
		return schemas.SessionCredentials{}, ErrMissingCredentials
	}

	// Pages that render the friends collection carry its id in a hidden
	// input; only derive the handle when that input is absent.
	creds.CollectionID = hiddenInput(doc, "collection_id")
	if creds.CollectionID == "" {
		creds.CollectionID = FriendsCollectionID(creds.UserID)
	}

	location, err := e.page.Location(ctx)
	if err != nil {
		return schemas.SessionCredentials{}, fmt.Errorf("session: reading location: %w", err)
	}
	creds.ProfileID = profileIDFromURL(location, creds.UserID)
	creds.ExtractedAt = time.Now()

	e.logger.Debug("Session credentials extracted.",
		zap.String("user_id", creds.UserID),
		zap.String("profile_id", creds.ProfileID))
	return creds, nil
}

// FriendsCollectionID derives the opaque friends-collection handle for a user.
func FriendsCollectionID(userID string) string {
	raw := "app_collection:" + userID + friendsCollectionSuffix
	return base64.StdEncoding.EncodeToString([]byte(raw))
}

func userIDFromCookies(cookies string) string {
	m := userCookieRe.FindStringSubmatch(cookies)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// csrfToken prefers the hidden form input and falls back to scanning inline
// scripts for the bootstrap data blob.
func csrfToken(doc *goquery.Document) string {
	if v := hiddenInput(doc, "fb_dtsg"); v != "" {
		return v
	}
	var token string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		m := dtsgScriptRe.FindStringSubmatch(s.Text())
		if len(m) >= 2 {
			token = m[1]
			return false
		}
		return true
	})
	return token
}

func hiddenInput(doc *goquery.Document, name string) string {
	val, _ := doc.Find(`input[name="` + name + `"]`).First().Attr("value")
	return val
}

// profileIDFromURL picks the first purely numeric path segment of the current
// URL, falling back to the session's own user id for vanity URLs.
func profileIDFromURL(location, userID string) string {
	u, err := url.Parse(location)
	if err != nil {
		return userID
	}
	for _, seg := range strings.Split(u.Path, "/") {
		if seg != "" && numericRe.MatchString(seg) {
			return seg
		}
	}
	if id := u.Query().Get("id"); id != "" && numericRe.MatchString(id) {
		return id
	}
	return userID
}
