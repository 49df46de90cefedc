// File: cmd/cancel.go
package cmd

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/automator"
	"github.com/xkilldash9x/socialgraph-cli/internal/browser"
	"github.com/xkilldash9x/socialgraph-cli/internal/observability"
	"github.com/xkilldash9x/socialgraph-cli/internal/reporting"
)

func newCancelCmd() *cobra.Command {
	var targetURL string

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancels every outgoing friend request",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := getConfig()
			runID := uuid.NewString()

			coord, kv, err := openCoordinator(cfg, logger)
			if err != nil {
				return err
			}
			defer kv.Close()

			sess, err := openSession(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer sess.Close()

			if targetURL == "" {
				targetURL = cfg.Graph().BaseURL + "/friends/requests"
			}
			if err := sess.page.Navigate(ctx, targetURL); err != nil {
				return err
			}

			control := automator.NewControl()
			registerRunControls(coord, control)

			controller := automator.NewCancelController(
				browser.NewRequestsSurface(sess.page), cfg.Cancel(), control, logger)
			controller.OnProgress(func(done, total int, message string) {
				coord.Progress(schemas.ProgressUpdate{
					RunID:     runID,
					Phase:     control.Phase(),
					Processed: done,
					Total:     total,
					Message:   message,
					At:        time.Now(),
				})
			})

			go func() {
				<-ctx.Done()
				control.Stop()
			}()

			var (
				result automator.CancelResult
				runErr error
			)
			runOnBus(ctx, coord, schemas.CommandCancelOutgoing,
				func(ctx context.Context, cmd schemas.Command) (any, error) {
					result, runErr = controller.Run(ctx)
					return result, runErr
				})
			coord.Finish(runID, ignoreStop(runErr))

			logger.Info("Cancel run finished.",
				zap.Int("cancelled", result.Cancelled),
				zap.Int("total", result.Total))

			doc := reporting.NewDocument(reporting.KindCancel, runID, result)
			if err := writeReport(doc); err != nil {
				return err
			}
			return ignoreStop(runErr)
		},
	}

	cancelCmd.Flags().StringVar(&targetURL, "url", "", "friends page holding the sent-requests control (default <base-url>/friends/requests)")
	return cancelCmd
}
