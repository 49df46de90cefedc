// File: internal/graphql/unfriend.go
package graphql

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// UnfriendResult records the outcome for one friend edge.
type UnfriendResult struct {
	FriendID   string `json:"friend_id"`
	FriendName string `json:"friend_name,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type unfriendInput struct {
	Source           string `json:"source"`
	UnfriendedUserID string `json:"unfriended_user_id"`
	ActorID          string `json:"actor_id"`
	ClientMutationID string `json:"client_mutation_id"`
}

type unfriendVariables struct {
	Input unfriendInput `json:"input"`
	Scale int           `json:"scale"`
}

// Unfriend removes a single friend edge. A 2xx response alone is not
// success: the mutation payload must name the removed person, otherwise the
// server silently refused and the caller gets ErrUnfriendUnconfirmed.
func (c *Client) Unfriend(ctx context.Context, friendID string) error {
	vars := unfriendVariables{
		Input: unfriendInput{
			Source:           "bd_profile_button",
			UnfriendedUserID: friendID,
			ActorID:          c.creds.UserID,
			ClientMutationID: "1",
		},
		Scale: 1,
	}

	body, err := c.post(ctx, "FriendingCometUnfriendMutation", docIDUnfriend,
		vars, map[string]string{"X-FB-Friendly-Name": "FriendingCometUnfriendMutation"})
	if err != nil {
		return err
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("graphql: decoding unfriend response: %w", err)
	}
	if err := checkGraphErrors(doc, "unfriend mutation"); err != nil {
		return err
	}

	removedID := digString(doc, "data", "friend_remove", "unfriended_person", "id")
	if removedID == "" {
		return fmt.Errorf("%w (friend %s)", ErrUnfriendUnconfirmed, friendID)
	}

	c.logger.Info("Friend removed.",
		zap.String("friend_id", friendID),
		zap.String("confirmed_id", removedID))
	return nil
}

// UnfriendBatch removes a list of friend edges sequentially with a pause
// between requests. One failure does not abort the batch; every outcome is
// reported.
func (c *Client) UnfriendBatch(ctx context.Context, friendIDs []string, delay time.Duration, onProgress func(done, total int, last UnfriendResult)) ([]UnfriendResult, error) {
	results := make([]UnfriendResult, 0, len(friendIDs))

	for i, id := range friendIDs {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("graphql: unfriend batch interrupted: %w", err)
		}

		result := UnfriendResult{FriendID: id, Success: true}
		if err := c.Unfriend(ctx, id); err != nil {
			result.Success = false
			result.Error = err.Error()
			c.logger.Warn("Unfriend failed.", zap.String("friend_id", id), zap.Error(err))
		}
		results = append(results, result)

		if onProgress != nil {
			onProgress(i+1, len(friendIDs), result)
		}
		if delay > 0 && i < len(friendIDs)-1 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return results, fmt.Errorf("graphql: unfriend batch interrupted: %w", ctx.Err())
			}
		}
	}
	return results, nil
}
