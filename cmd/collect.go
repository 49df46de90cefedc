// File: cmd/collect.go
package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
	"github.com/xkilldash9x/socialgraph-cli/internal/collector"
	"github.com/xkilldash9x/socialgraph-cli/internal/engagement"
	"github.com/xkilldash9x/socialgraph-cli/internal/graphql"
	"github.com/xkilldash9x/socialgraph-cli/internal/observability"
	"github.com/xkilldash9x/socialgraph-cli/internal/reporting"
)

// newCollectCmd groups the data-collection subcommands.
func newCollectCmd() *cobra.Command {
	collectCmd := &cobra.Command{
		Use:   "collect",
		Short: "Collects friends and engagement data through the attached session",
	}

	collectCmd.PersistentFlags().Int("max-items", 0, "stop after collecting this many items (0 = everything)")
	collectCmd.PersistentFlags().Duration("page-delay", 0, "delay between page fetches")

	collectCmd.AddCommand(newCollectFriendsCmd(), newCollectEngagementCmd())
	return collectCmd
}

// applyCollectFlags folds the collect-level flags into the config.
func applyCollectFlags(cmd *cobra.Command) {
	cfg := getConfig()
	if cmd.Flags().Changed("max-items") {
		maxItems, _ := cmd.Flags().GetInt("max-items")
		cfg.SetCollectorMaxItems(maxItems)
	}
	if cmd.Flags().Changed("page-delay") {
		delay, _ := cmd.Flags().GetDuration("page-delay")
		cfg.SetCollectorPageDelay(delay)
	}
}

func collectorOptionsFromConfig(logger *zap.Logger, label string) collector.Options {
	cfg := getConfig().Collector()
	return collector.Options{
		MaxItems:  cfg.MaxItems,
		PageDelay: cfg.PageDelay,
		MaxPages:  cfg.MaxPages,
		OnProgress: func(collected, pages int) {
			logger.Info("Collection progress.",
				zap.String("what", label),
				zap.Int("collected", collected),
				zap.Int("pages", pages))
		},
	}
}

func newCollectFriendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "friends",
		Short: "Collects the full friends list",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			applyCollectFlags(cmd)
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

			var friends []schemas.Friend
			var collectErr error
			runOnBus(ctx, coord, schemas.CommandCollectFriends,
				func(ctx context.Context, cmd schemas.Command) (any, error) {
					friends, collectErr = graphql.NewFriendsClient(client).CollectAll(
						ctx, collectorOptionsFromConfig(logger, "friends"), logger)
					return friends, collectErr
				})
			if err := collectErr; err != nil {
				// Partial results still get reported before the error
				// surfaces.
				if len(friends) > 0 {
					logger.Warn("Collection ended early; writing partial results.",
						zap.Int("collected", len(friends)), zap.Error(err))
					if writeErr := writeReport(reporting.FriendsDocument(runID, friends)); writeErr != nil {
						return writeErr
					}
				}
				return err
			}

			logger.Info("Friends collection complete.", zap.Int("count", len(friends)))
			return writeReport(reporting.FriendsDocument(runID, friends))
		},
	}
}

func newCollectEngagementCmd() *cobra.Command {
	var postLimit int

	engagementCmd := &cobra.Command{
		Use:   "engagement",
		Short: "Ranks friends by how much they engage with your posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			applyCollectFlags(cmd)
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

			var report schemas.EngagementReport
			reply := runOnBus(ctx, coord, schemas.CommandCollectEngagement,
				func(ctx context.Context, cmd schemas.Command) (any, error) {
					// The friends list and the timeline walk are independent
					// request streams; run them concurrently.
					var (
						friends     []schemas.Friend
						engagements []schemas.PostEngagement
					)
					group, groupCtx := errgroup.WithContext(ctx)

					group.Go(func() error {
						var err error
						friends, err = graphql.NewFriendsClient(client).CollectAll(
							groupCtx, collectorOptionsFromConfig(logger, "friends"), logger)
						return err
					})
					group.Go(func() error {
						postOpts := collectorOptionsFromConfig(logger, "posts")
						if postLimit > 0 {
							postOpts.MaxItems = postLimit
						}
						subOpts := collector.Options{PageDelay: cfg.Collector().PageDelay}
						var err error
						engagements, err = graphql.NewEngagementClient(client, logger).CollectPostsWithEngagement(
							groupCtx, graphql.NewPostsClient(client, logger),
							cfg.Graph().FriendPageSize, postOpts, subOpts, nil)
						return err
					})
					if err := group.Wait(); err != nil {
						return nil, err
					}

					report = engagement.Report(engagement.Merge(friends, engagements))
					logger.Info("Engagement ranking complete.",
						zap.Int("friends", len(friends)),
						zap.Int("posts", len(engagements)),
						zap.Int("active", report.Summary.ActiveCount),
						zap.Int("silent", report.Summary.SilentCount))
					return report, nil
				})
			if !reply.OK {
				return fmt.Errorf("collecting engagement data: %s", reply.Error)
			}

			return writeReport(reporting.EngagementDocument(runID, report))
		},
	}

	engagementCmd.Flags().IntVar(&postLimit, "posts", 0, "cap the number of timeline posts examined (0 = all)")
	return engagementCmd
}

// writeReport renders one document with the configured reporter.
func writeReport(doc reporting.Document) error {
	report := getConfig().Report()
	reporter, err := reporting.New(report.Format, report.Output)
	if err != nil {
		return err
	}
	if err := reporter.Write(doc); err != nil {
		reporter.Close()
		return err
	}
	return reporter.Close()
}
