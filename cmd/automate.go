// File: cmd/automate.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/automator"
	"github.com/xkilldash9x/socialgraph-cli/internal/browser"
	"github.com/xkilldash9x/socialgraph-cli/internal/config"
	"github.com/xkilldash9x/socialgraph-cli/internal/coordinator"
	"github.com/xkilldash9x/socialgraph-cli/internal/observability"
	"github.com/xkilldash9x/socialgraph-cli/internal/reporting"
	"github.com/xkilldash9x/socialgraph-cli/internal/store"
)

// stateStaleAfter is how long a run replica may go silent before watchers
// treat it as dead.
const stateStaleAfter = 2 * time.Minute

func newAutomateCmd() *cobra.Command {
	var (
		targetURL  string
		maxActions int
		keywords   []string
		useFilter  bool
	)

	automateCmd := &cobra.Command{
		Use:   "automate",
		Short: "Sends friend requests from a suggestions page, with filtering and pacing",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg := getConfig()
			runID := uuid.NewString()

			if cmd.Flags().Changed("max-actions") {
				cfg.SetAutomationMaxActions(maxActions)
			}
			if cmd.Flags().Changed("keyword") {
				cfg.SetAutomationKeywords(keywords)
			}
			if cmd.Flags().Changed("keyword-filter") {
				cfg.SetAutomationUseKeywordFilter(useFilter)
			}
			autoCfg := cfg.Automation()
			if err := autoCfg.Validate(); err != nil {
				return err
			}

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
				targetURL = cfg.Graph().BaseURL + "/friends/suggestions"
			}
			if err := sess.page.Navigate(ctx, targetURL); err != nil {
				return err
			}

			control := automator.NewControl()
			registerRunControls(coord, control)
			stopLogging := logEvents(coord, logger)
			defer stopLogging()

			runner := automator.New(
				browser.NewSuggestionsSurface(sess.page), autoCfg, control, logger)
			runner.OnProgress(func(sent, processed int, message string) {
				coord.Progress(schemas.ProgressUpdate{
					RunID:     runID,
					Phase:     control.Phase(),
					Processed: processed,
					Total:     autoCfg.MaxActions,
					Message:   message,
					At:        time.Now(),
				})
			})

			// A second interrupt while stopping falls through to context
			// cancellation; the first one requests a clean stop.
			go func() {
				<-ctx.Done()
				control.Stop()
			}()

			var (
				result automator.Result
				runErr error
			)
			runOnBus(ctx, coord, schemas.CommandStartAutomation,
				func(ctx context.Context, cmd schemas.Command) (any, error) {
					result, runErr = runner.Run(ctx)
					return result, runErr
				})
			coord.Finish(runID, ignoreStop(runErr))

			if err := kv.Set(context.Background(), "last_automation_run", runID); err != nil {
				logger.Warn("Could not record run bookmark.", zap.Error(err))
			}

			logger.Info("Automation run finished.",
				zap.Int("sent", result.Sent),
				zap.Int("processed", result.Processed),
				zap.Int("skipped", result.Skipped))

			doc := reporting.NewDocument(reporting.KindAutomation, runID, result)
			if err := writeReport(doc); err != nil {
				return err
			}
			return ignoreStop(runErr)
		},
	}

	automateCmd.Flags().StringVar(&targetURL, "url", "", "suggestions page to work from (default <base-url>/friends/suggestions)")
	automateCmd.Flags().IntVar(&maxActions, "max-actions", 0, "friend requests to send before stopping")
	automateCmd.Flags().StringSliceVar(&keywords, "keyword", nil, "keywords a card must match (repeatable)")
	automateCmd.Flags().BoolVar(&useFilter, "keyword-filter", false, "only act on cards matching a keyword")
	return automateCmd
}

// openCoordinator opens the shared key-value store and builds the command
// coordinator on top of it.
func openCoordinator(cfg config.Interface, logger *zap.Logger) (*coordinator.Coordinator, *store.Store, error) {
	kv, err := store.Open(cfg.Store(), logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening key-value store: %w", err)
	}
	return coordinator.New(kv, stateStaleAfter, logger), kv, nil
}

// runOnBus registers the operation's handler under its command type and
// invokes it through the router, so every declared variant answers on the
// same bus an attached surface would use.
func runOnBus(ctx context.Context, coord *coordinator.Coordinator, t schemas.CommandType, h coordinator.Handler) schemas.Reply {
	coord.Handle(t, h)
	return coord.Dispatch(ctx, schemas.Command{Type: t})
}

// registerRunControls maps the lifecycle commands onto the run's control
// handle so an attached surface can pause, resume, or stop it.
func registerRunControls(coord *coordinator.Coordinator, control *automator.Control) {
	coord.Handle(schemas.CommandPauseAutomation, func(ctx context.Context, cmd schemas.Command) (any, error) {
		control.Pause()
		return string(control.Phase()), nil
	})
	coord.Handle(schemas.CommandResumeAutomation, func(ctx context.Context, cmd schemas.Command) (any, error) {
		control.Resume()
		return string(control.Phase()), nil
	})
	coord.Handle(schemas.CommandStopAutomation, func(ctx context.Context, cmd schemas.Command) (any, error) {
		control.Stop()
		return string(control.Phase()), nil
	})
}

// logEvents subscribes to the coordinator's broadcast stream and mirrors it
// into the log until the returned stop function is called.
func logEvents(coord *coordinator.Coordinator, logger *zap.Logger) func() {
	events, cancel := coord.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range events {
			if evt.Type == schemas.EventProgress && evt.Progress != nil {
				logger.Info("Progress.",
					zap.String("run_id", evt.RunID),
					zap.Int("processed", evt.Progress.Processed),
					zap.String("message", evt.Progress.Message))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

// ignoreStop converts an operator-requested stop into a clean exit.
func ignoreStop(err error) error {
	if errors.Is(err, automator.ErrStopped) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
