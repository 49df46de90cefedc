// File: cmd/unfriend.go
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/graphql"
	"github.com/xkilldash9x/socialgraph-cli/internal/observability"
	"github.com/xkilldash9x/socialgraph-cli/internal/reporting"
)

func newUnfriendCmd() *cobra.Command {
	var delay time.Duration

	unfriendCmd := &cobra.Command{
		Use:   "unfriend <friend-id>...",
		Short: "Removes one or more friends by their numeric id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := getConfig()
			runID := uuid.NewString()

			sess, err := openSession(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			client, err := graphql.NewClient(cfg.Graph(), sess.creds, logger)
			if err != nil {
				return err
			}

			coord, kv, err := openCoordinator(cfg, logger)
			if err != nil {
				return err
			}
			defer kv.Close()

			var results []graphql.UnfriendResult
			var batchErr error
			runOnBus(ctx, coord, schemas.CommandUnfriend,
				func(ctx context.Context, cmd schemas.Command) (any, error) {
					results, batchErr = client.UnfriendBatch(ctx, args, delay,
						func(done, total int, last graphql.UnfriendResult) {
							logger.Info("Unfriend progress.",
								zap.Int("done", done),
								zap.Int("total", total),
								zap.String("friend_id", last.FriendID),
								zap.Bool("success", last.Success))
						})
					return results, batchErr
				})
			if batchErr != nil {
				return batchErr
			}

			failed := 0
			for _, r := range results {
				if !r.Success {
					failed++
				}
			}

			doc := reporting.NewDocument(reporting.KindUnfriend, runID, results)
			if writeErr := writeReport(doc); writeErr != nil {
				return writeErr
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d removals not confirmed", failed, len(results))
			}
			return nil
		},
	}

	unfriendCmd.Flags().DurationVar(&delay, "delay", 2*time.Second, "pause between removals")
	return unfriendCmd
}
