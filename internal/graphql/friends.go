// File: internal/graphql/friends.go
package graphql

import (
	"context"

	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/collector"
)

// FriendsClient pages through the account's friends collection.
type FriendsClient struct {
	client *Client
}

// NewFriendsClient wraps a shared transport.
func NewFriendsClient(client *Client) *FriendsClient {
	return &FriendsClient{client: client}
}

type friendsVariables struct {
	ID     string  `json:"id"`
	Count  int     `json:"count"`
	Cursor *string `json:"cursor"`
	Search *string `json:"search"`
}

// FetchPage retrieves one page of the friends collection. An empty cursor
// requests the first page.
func (f *FriendsClient) FetchPage(ctx context.Context, cursor string) (collector.Page[schemas.Friend], error) {
	vars := friendsVariables{
		ID:    f.client.creds.CollectionID,
		Count: f.client.cfg.FriendPageSize,
	}
	if cursor != "" {
		vars.Cursor = &cursor
	}

	body, err := f.client.post(ctx,
		"ProfileCometAppCollectionListRendererPaginationQuery",
		docIDFriendsList, vars, nil)
	if err != nil {
		return collector.Page[schemas.Friend]{}, err
	}
	return ParseFriendsPage(body)
}

// ParseFriendsPage decodes one friends response body. Parsing is pure:
// calling it twice on the same body yields the same page.
func ParseFriendsPage(body []byte) (collector.Page[schemas.Friend], error) {
	var page collector.Page[schemas.Friend]

	doc, err := DecodeFramedResponse(body, "data", "node", "pageItems")
	if err != nil {
		return page, err
	}
	if err := checkGraphErrors(doc, "friends query"); err != nil {
		return page, err
	}

	edges := digEdges(doc, "data", "node", "pageItems")
	for _, edge := range edges {
		friend := schemas.Friend{
			ID:         digString(edge, "node", "node", "id"),
			Name:       digString(edge, "node", "title", "text"),
			ProfileURL: digString(edge, "node", "url"),
			ImageURL:   digString(edge, "node", "image", "uri"),
		}
		if friend.ID == "" {
			continue // entries without an identity are dead weight downstream
		}
		page.Items = append(page.Items, friend)
	}

	page.PageInfo = pageInfoAt(doc, "data", "node", "pageItems")
	return page, nil
}

// CollectAll drains the whole friends collection through the shared
// pagination engine.
func (f *FriendsClient) CollectAll(ctx context.Context, opts collector.Options, logger *zap.Logger) ([]schemas.Friend, error) {
	return collector.Collect(ctx, f.FetchPage, opts, logger)
}
