// File: internal/graphql/engagement.go
package graphql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/collector"
)

// reactionIDMap translates opaque feedback reaction ids to their kind.
var reactionIDMap = map[string]schemas.ReactionType{
	"1635855486666999": schemas.ReactionLike,
	"1678524932434102": schemas.ReactionLove,
	"115940658764963":  schemas.ReactionWow,
	"478547315650144":  schemas.ReactionHaha,
	"613557422527858":  schemas.ReactionAngry,
	"310221169069506":  schemas.ReactionCare,
	"908563776549649":  schemas.ReactionSad,
}

// MapReactionID resolves a feedback reaction id to its type, defaulting to
// UNKNOWN for ids the map has never seen.
func MapReactionID(id string) schemas.ReactionType {
	if t, ok := reactionIDMap[id]; ok {
		return t
	}
	return schemas.ReactionUnknown
}

// EngagementClient pulls the comments, reactions and shares attached to a
// post's feedback object. Each interaction kind is its own paginated
// connection; all three reuse the shared pagination engine.
type EngagementClient struct {
	client *Client
	logger *zap.Logger
}

// NewEngagementClient wraps a shared transport.
func NewEngagementClient(client *Client, logger *zap.Logger) *EngagementClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngagementClient{client: client, logger: logger.Named("EngagementClient")}
}

// -- Comments --

type commentsVariables struct {
	FeedbackID     string  `json:"feedbackID"`
	After          *string `json:"after"`
	IsComet        bool    `json:"isComet"`
	IsInitialFetch bool    `json:"isInitialFetch"`
	IsPaginating   bool    `json:"isPaginating"`
	IncludeNested  bool    `json:"includeNestedComments"`
}

// FetchCommentsPage retrieves one page of a post's comment stream.
func (e *EngagementClient) FetchCommentsPage(ctx context.Context, postID, feedbackID, cursor string) (collector.Page[schemas.Comment], error) {
	vars := commentsVariables{
		FeedbackID:     feedbackID,
		IsComet:        true,
		IsInitialFetch: cursor == "",
		IsPaginating:   cursor != "",
		IncludeNested:  true,
	}
	if cursor != "" {
		vars.After = &cursor
	}

	body, err := e.client.post(ctx, "CommentsListComponentsPaginationQuery", docIDComments, vars, nil)
	if err != nil {
		return collector.Page[schemas.Comment]{}, err
	}
	return ParseCommentsPage(body, postID)
}

// ParseCommentsPage decodes one comments response body.
func ParseCommentsPage(body []byte, postID string) (collector.Page[schemas.Comment], error) {
	var page collector.Page[schemas.Comment]

	doc, err := DecodeFramedResponse(body, "data", "feedback", "display_comments")
	if err != nil {
		return page, err
	}
	if err := checkGraphErrors(doc, "comments query"); err != nil {
		return page, err
	}

	for _, edge := range digEdges(doc, "data", "feedback", "display_comments") {
		node := dig(edge, "node")
		if node == nil {
			node = edge
		}
		comment := schemas.Comment{
			ID:         digString(node, "id"),
			PostID:     postID,
			AuthorID:   digString(node, "author", "id"),
			AuthorName: digString(node, "author", "name"),
			Text:       digString(node, "body", "text"),
		}
		if comment.AuthorName == "" {
			comment.AuthorName = digString(node, "author", "short_name")
		}
		if comment.Text == "" {
			comment.Text = digString(node, "message", "text")
		}
		if comment.ID == "" && comment.AuthorID == "" {
			continue
		}
		page.Items = append(page.Items, comment)
	}

	page.PageInfo = pageInfoAt(doc, "data", "feedback", "display_comments")
	return page, nil
}

// -- Reactions --

type reactionsVariables struct {
	Count            int     `json:"count"`
	Cursor           *string `json:"cursor"`
	FeedbackTargetID string  `json:"feedbackTargetID"`
	ID               string  `json:"id"`
	ReactionType     string  `json:"reactionType"`
}

// FetchReactionsPage retrieves one page of a post's reactor list.
func (e *EngagementClient) FetchReactionsPage(ctx context.Context, postID, feedbackID, cursor string) (collector.Page[schemas.Reaction], error) {
	vars := reactionsVariables{
		Count:            50,
		FeedbackTargetID: feedbackID,
		ID:               feedbackID,
		ReactionType:     "NONE",
	}
	if cursor != "" {
		vars.Cursor = &cursor
	}

	body, err := e.client.post(ctx, "CometUFIReactionsDialogTabContentRefetchQuery", docIDReactions, vars, nil)
	if err != nil {
		return collector.Page[schemas.Reaction]{}, err
	}
	return ParseReactionsPage(body, postID)
}

// ParseReactionsPage decodes one reactors response body. Each edge pairs the
// reacting actor with a feedback_reaction_info whose id encodes the kind.
func ParseReactionsPage(body []byte, postID string) (collector.Page[schemas.Reaction], error) {
	var page collector.Page[schemas.Reaction]

	doc, err := DecodeFramedResponse(body, "data", "node", "reactors")
	if err != nil {
		return page, err
	}
	if err := checkGraphErrors(doc, "reactions query"); err != nil {
		return page, err
	}

	for _, edge := range digEdges(doc, "data", "node", "reactors") {
		reaction := schemas.Reaction{
			PostID:    postID,
			ActorID:   digString(edge, "node", "id"),
			ActorName: digString(edge, "node", "name"),
			Type:      MapReactionID(digString(edge, "feedback_reaction_info", "id")),
		}
		if reaction.ActorID == "" {
			continue
		}
		page.Items = append(page.Items, reaction)
	}

	page.PageInfo = pageInfoAt(doc, "data", "node", "reactors")
	return page, nil
}

// -- Shares --

type sharesVariables struct {
	FeedbackID     string  `json:"feedbackID"`
	FeedbackSource int     `json:"feedbackSource"`
	FeedLocation   string  `json:"feedLocation"`
	RenderLocation string  `json:"renderLocation"`
	CommentsKey    string  `json:"UFI2CommentsProvider_commentsKey"`
	After          *string `json:"after,omitempty"`
	First          *int    `json:"first,omitempty"`
}

// FetchSharesPage retrieves one page of a post's reshare list.
func (e *EngagementClient) FetchSharesPage(ctx context.Context, postID, feedbackID, cursor string) (collector.Page[schemas.Share], error) {
	vars := sharesVariables{
		FeedbackID:     feedbackID,
		FeedbackSource: 1,
		FeedLocation:   "SHARE_OVERLAY",
		RenderLocation: "reshares_dialog",
		CommentsKey:    "CometResharesDialogQuery",
	}
	if cursor != "" {
		first := 50
		vars.After = &cursor
		vars.First = &first
	}

	body, err := e.client.post(ctx, "CometResharesDialogQuery", docIDShares, vars, nil)
	if err != nil {
		return collector.Page[schemas.Share]{}, err
	}
	return ParseSharesPage(body, postID)
}

// sharesConnectionPaths are tried in order; different server rollouts hang
// the reshare list off different fields.
var sharesConnectionPaths = [][]string{
	{"data", "feedback", "reshares"},
	{"data", "feedback", "shares"},
	{"data", "feedback", "share_attachment", "all_shares_aggregate_story"},
}

// ParseSharesPage decodes one reshares response body.
func ParseSharesPage(body []byte, postID string) (collector.Page[schemas.Share], error) {
	var page collector.Page[schemas.Share]

	doc, err := DecodeFramedResponse(body)
	if err != nil {
		return page, err
	}
	if err := checkGraphErrors(doc, "shares query"); err != nil {
		return page, err
	}

	var connPath []string
	for _, path := range sharesConnectionPaths {
		if len(digEdges(doc, path...)) > 0 || dig(doc, path...) != nil {
			connPath = path
			break
		}
	}
	if connPath == nil {
		return page, nil
	}

	for _, edge := range digEdges(doc, connPath...) {
		node := dig(edge, "node")
		if node == nil {
			node = edge
		}
		actorID, actorName := findAuthor(node)
		if actorID == "" {
			// Reshare stories sometimes nest the actor another level down.
			if story, ok := dig(node, "attached_story").(map[string]any); ok {
				actorID, actorName = findAuthor(story)
			}
		}
		if actorID == "" {
			continue
		}
		page.Items = append(page.Items, schemas.Share{
			PostID:    postID,
			ActorID:   actorID,
			ActorName: actorName,
		})
	}

	page.PageInfo = pageInfoAt(doc, connPath...)
	return page, nil
}

// -- Aggregation --

// CollectPostEngagement drains all three interaction connections for one
// post. A missing feedback id yields an empty engagement rather than an
// error, since posts without a feedback object simply have no interactions
// to fetch.
func (e *EngagementClient) CollectPostEngagement(ctx context.Context, post schemas.Post, feedbackID string, opts collector.Options) (schemas.PostEngagement, error) {
	engagement := schemas.PostEngagement{Post: post}
	if feedbackID == "" {
		return engagement, nil
	}

	comments, err := collector.Collect(ctx, func(ctx context.Context, cursor string) (collector.Page[schemas.Comment], error) {
		return e.FetchCommentsPage(ctx, post.ID, feedbackID, cursor)
	}, opts, e.logger)
	if err != nil {
		return engagement, fmt.Errorf("collecting comments for post %s: %w", post.ID, err)
	}
	engagement.Comments = comments

	reactions, err := collector.Collect(ctx, func(ctx context.Context, cursor string) (collector.Page[schemas.Reaction], error) {
		return e.FetchReactionsPage(ctx, post.ID, feedbackID, cursor)
	}, opts, e.logger)
	if err != nil {
		return engagement, fmt.Errorf("collecting reactions for post %s: %w", post.ID, err)
	}
	engagement.Reactions = reactions

	shares, err := collector.Collect(ctx, func(ctx context.Context, cursor string) (collector.Page[schemas.Share], error) {
		return e.FetchSharesPage(ctx, post.ID, feedbackID, cursor)
	}, opts, e.logger)
	if err != nil {
		return engagement, fmt.Errorf("collecting shares for post %s: %w", post.ID, err)
	}
	engagement.Shares = shares

	return engagement, nil
}

// CollectPostsWithEngagement walks the timeline and enriches every post with
// its full interaction lists. Posts collected before a mid-run failure are
// returned alongside the error.
func (e *EngagementClient) CollectPostsWithEngagement(ctx context.Context, posts *PostsClient, pageSize int, postOpts, subOpts collector.Options, onProgress collector.ProgressFunc) ([]schemas.PostEngagement, error) {
	var out []schemas.PostEngagement

	cursor := ""
	for {
		page, err := posts.FetchPage(ctx, cursor, pageSize)
		if err != nil {
			return out, err
		}
		for i, post := range page.Posts {
			engagement, err := e.CollectPostEngagement(ctx, post, page.FeedbackIDs[i], subOpts)
			if err != nil {
				return out, err
			}
			out = append(out, engagement)
			if postOpts.MaxItems > 0 && len(out) >= postOpts.MaxItems {
				return out[:postOpts.MaxItems], nil
			}
			if onProgress != nil {
				onProgress(len(out), 0)
			}
		}
		if !page.PageInfo.HasNextPage || page.PageInfo.EndCursor == "" || page.PageInfo.EndCursor == cursor {
			return out, nil
		}
		cursor = page.PageInfo.EndCursor

		if postOpts.PageDelay > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(postOpts.PageDelay):
			}
		}
	}
}
