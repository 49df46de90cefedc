// File: internal/graphql/client.go

// Package graphql implements the form-encoded GraphQL clients used to pull
// friends, timeline posts and per-post engagement, plus the unfriend
// mutation. Responses are treated as hostile input: framing, field layout
// and nesting are all verified defensively.
package graphql

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/config"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Persisted query ids for each operation.
const (
	docIDFriendsList = "4965618120193091"
	docIDTimeline    = "4430909743683968"
	docIDComments    = "4401540983249473"
	docIDReactions   = "9515494628524128"
	docIDShares      = "3240549509368620"
	docIDUnfriend    = "23930708339886851"
)

const graphEndpoint = "/api/graphql/"

// Client is the shared transport for all GraphQL operations. Every request
// carries the session credentials and a monotonically increasing request
// counter, mirroring what the first-party web client sends.
type Client struct {
	http    *resty.Client
	creds   schemas.SessionCredentials
	cfg     config.GraphConfig
	limiter *rate.Limiter
	counter atomic.Int64
	logger  *zap.Logger
}

// NewClient builds a Client around the given credentials. The credentials
// must be complete; incomplete ones are rejected up front so no request is
// ever attempted with a missing token.
func NewClient(cfg config.GraphConfig, creds schemas.SessionCredentials, logger *zap.Logger) (*Client, error) {
	if !creds.Complete() {
		return nil, fmt.Errorf("graphql: refusing to build client: %w", ErrIncompleteCredentials)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json, text/plain, */*").
		SetHeader("Sec-Fetch-Dest", "empty").
		SetHeader("Sec-Fetch-Mode", "cors").
		SetHeader("Sec-Fetch-Site", "same-origin")
	if cfg.UserAgent != "" {
		httpClient.SetHeader("User-Agent", cfg.UserAgent)
	}
	if creds.CookieHeader != "" {
		httpClient.SetHeader("Cookie", creds.CookieHeader)
	}

	limit := rate.Inf
	if cfg.RequestsPerSec > 0 {
		limit = rate.Limit(cfg.RequestsPerSec)
	}

	return &Client{
		http:    httpClient,
		creds:   creds,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger.Named("GraphClient"),
	}, nil
}

// RequestCount returns how many requests this client has issued so far.
func (c *Client) RequestCount() int64 { return c.counter.Load() }

// post issues one form-encoded GraphQL request and returns the raw body.
// The body may contain several concatenated JSON documents; callers frame
// it themselves.
func (c *Client) post(ctx context.Context, friendlyName, docID string, variables any, headers map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("graphql: rate limit wait: %w", err)
	}

	varsJSON, err := json.Marshal(variables)
	if err != nil {
		return nil, fmt.Errorf("graphql: encoding variables for %s: %w", friendlyName, err)
	}

	seq := c.counter.Add(1)
	form := map[string]string{
		"av":                        c.creds.UserID,
		"__user":                    c.creds.UserID,
		"__a":                       "1",
		"__req":                     strconv.FormatInt(seq, 10),
		"__comet_req":               "15",
		"fb_dtsg":                   c.creds.CSRFToken,
		"fb_api_caller_class":       "RelayModern",
		"fb_api_req_friendly_name":  friendlyName,
		"server_timestamps":         "true",
		"doc_id":                    docID,
		"variables":                 string(varsJSON),
	}
	if c.creds.Jazoest != "" {
		form["jazoest"] = c.creds.Jazoest
	}
	if c.creds.LSD != "" {
		form["lsd"] = c.creds.LSD
	}

	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded;charset=utf-8").
		SetHeader("Referer", c.cfg.BaseURL+"/"+c.creds.UserID+"/").
		SetFormData(form)
	for k, v := range headers {
		req.SetHeader(k, v)
	}

	resp, err := req.Post(graphEndpoint)
	if err != nil {
		return nil, fmt.Errorf("graphql: %s request failed: %w", friendlyName, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("graphql: %s returned status %d", friendlyName, resp.StatusCode())
	}

	c.logger.Debug("GraphQL request completed.",
		zap.String("operation", friendlyName),
		zap.Int64("req", seq),
		zap.Int("body_bytes", len(resp.Body())))
	return resp.Body(), nil
}

// checkGraphErrors surfaces a top-level errors array as a Go error.
func checkGraphErrors(doc map[string]any, operation string) error {
	raw, ok := doc["errors"].([]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(raw))
	for _, e := range raw {
		if m, ok := e.(map[string]any); ok {
			if s, ok := m["message"].(string); ok {
				msgs = append(msgs, s)
				continue
			}
		}
		msgs = append(msgs, "unknown error")
	}
	return fmt.Errorf("graphql: %s reported errors: %s", operation, joinMessages(msgs))
}

func joinMessages(msgs []string) string {
	out := ""
	for i, m := range msgs {
		if i > 0 {
			out += "; "
		}
		out += m
	}
	return out
}
