// File: internal/graphql/posts.go
package graphql

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/collector"
)

// PostsClient pages through a profile's timeline feed.
type PostsClient struct {
	client *Client
	logger *zap.Logger
}

// NewPostsClient wraps a shared transport.
func NewPostsClient(client *Client, logger *zap.Logger) *PostsClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostsClient{client: client, logger: logger.Named("PostsClient")}
}

// PostsPage is one parsed timeline page. FeedbackIDs carries, per post, the
// engagement handle needed for the follow-up comment/reaction/share queries;
// an empty string marks a post whose handle could not be found.
type PostsPage struct {
	Posts       []schemas.Post
	FeedbackIDs []string
	PageInfo    schemas.PageInfo
}

type timelineVariables struct {
	CommentsKey     string  `json:"UFI2CommentsProvider_commentsKey"`
	Count           int     `json:"count"`
	Cursor          *string `json:"cursor"`
	FeedLocation    string  `json:"feedLocation"`
	FeedbackSource  int     `json:"feedbackSource"`
	OmitPinnedPost  bool    `json:"omitPinnedPost"`
	RenderLocation  string  `json:"renderLocation"`
	Scale           float64 `json:"scale"`
	StreamCount     int     `json:"stream_count"`
	UseDefaultActor bool    `json:"useDefaultActor"`
	ID              string  `json:"id"`
}

// FetchPage retrieves and parses one timeline page for the session's profile.
func (p *PostsClient) FetchPage(ctx context.Context, cursor string, count int) (PostsPage, error) {
	streamCount := count * 3
	if streamCount > 50 {
		streamCount = 50
	}
	vars := timelineVariables{
		CommentsKey:    "ProfileCometTimelineRoute",
		Count:          count,
		FeedLocation:   "TIMELINE",
		OmitPinnedPost: true,
		RenderLocation: "timeline",
		Scale:          1.5,
		StreamCount:    streamCount,
		ID:             p.client.creds.ProfileID,
	}
	if cursor != "" {
		vars.Cursor = &cursor
	}

	body, err := p.client.post(ctx, "ProfileCometTimelineFeedRefetchQuery", docIDTimeline, vars, nil)
	if err != nil {
		return PostsPage{}, err
	}
	return ParsePostsPage(body, p.client.cfg.ParseDepth)
}

// ParsePostsPage decodes one timeline response. The body may be framed into
// several documents; the deferred page_info, when present, is merged before
// the feed units are read. Parsing is pure and idempotent.
func ParsePostsPage(body []byte, parseDepth int) (PostsPage, error) {
	var page PostsPage

	doc, err := DecodeFramedResponse(body, "data", "node", "timeline_list_feed_units")
	if err != nil {
		return page, err
	}
	if err := checkGraphErrors(doc, "timeline query"); err != nil {
		return page, err
	}

	edges := digEdges(doc, "data", "node", "timeline_list_feed_units")
	for _, edge := range edges {
		node := dig(edge, "node")
		if node == nil {
			continue
		}
		post := schemas.Post{
			ID:       digString(node, "id"),
			Text:     findText(node, parseDepth),
			MediaURL: findMediaURL(node, parseDepth),
			URL:      digString(node, "url"),
		}
		if post.URL == "" {
			post.URL = digString(node, "wwwURL")
		}
		if ct, ok := dig(node, "creation_time").(float64); ok {
			post.CreatedAt = int64(ct)
		}
		post.AuthorID, post.AuthorName = findAuthor(node)
		if post.ID == "" {
			continue
		}

		page.Posts = append(page.Posts, post)
		page.FeedbackIDs = append(page.FeedbackIDs, digString(node, "feedback", "id"))
	}

	page.PageInfo = pageInfoAt(doc, "data", "node", "timeline_list_feed_units")
	return page, nil
}

// CollectAll drains the timeline into a flat post list, honoring the usual
// trim and pacing options.
func (p *PostsClient) CollectAll(ctx context.Context, pageSize int, opts collector.Options) ([]schemas.Post, error) {
	fetch := func(ctx context.Context, cursor string) (collector.Page[schemas.Post], error) {
		page, err := p.FetchPage(ctx, cursor, pageSize)
		if err != nil {
			return collector.Page[schemas.Post]{}, err
		}
		return collector.Page[schemas.Post]{Items: page.Posts, PageInfo: page.PageInfo}, nil
	}
	return collector.Collect(ctx, fetch, opts, p.logger)
}
