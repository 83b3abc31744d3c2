package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lyzr/lineage/common/bootstrap"
	"github.com/lyzr/lineage/common/clients"
	"github.com/lyzr/lineage/common/config"
	"github.com/lyzr/lineage/common/logger"
	"github.com/spf13/cobra"
)

// cli holds flag values and the components shared by every subcommand
type cli struct {
	cacheBackend string
	sqlitePath   string
	baseURL      string
	weeks        int
	timeout      time.Duration
	logLevel     string
	noNames      bool

	components *bootstrap.Components
	extra      []bootstrap.Option
}

func newRootCmd(opts ...bootstrap.Option) *cobra.Command {
	app := &cli{extra: opts}

	root := &cobra.Command{
		Use:   "lineagectl",
		Short: "Trace how fantasy league assets changed hands",
		Long: `lineagectl resolves league timelines and asset provenance chains
against the Sleeper API, caching every upstream response locally.`,
		SilenceUsage:      true,
		PersistentPreRunE: app.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.components == nil {
				return nil
			}
			return app.components.Shutdown(context.Background())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.cacheBackend, "cache", "", "cache backend: memory, sqlite, redis or postgres (default from CACHE_BACKEND)")
	flags.StringVar(&app.sqlitePath, "cache-path", "", "sqlite cache file (default from CACHE_SQLITE_PATH)")
	flags.StringVar(&app.baseURL, "base-url", "", "upstream API base url (default from UPSTREAM_BASE_URL)")
	flags.IntVar(&app.weeks, "weeks", 0, "transaction weeks fetched per season (default from WEEKS_PER_SEASON)")
	flags.DurationVar(&app.timeout, "timeout", 0, "overall deadline for the command (default from REQUEST_TIMEOUT)")
	flags.StringVar(&app.logLevel, "log-level", "warn", "log level written to stderr")
	flags.BoolVar(&app.noNames, "no-player-names", false, "skip loading the player directory")

	root.AddCommand(
		app.timelineCmd(),
		app.transactionsCmd(),
		app.chainCmd(),
		app.lifecycleCmd(),
	)
	return root
}

// setup loads config, applies flag overrides and bootstraps components
func (a *cli) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load("lineagectl")
	if err != nil {
		return err
	}

	if a.cacheBackend != "" {
		cfg.Cache.Backend = a.cacheBackend
	}
	if a.sqlitePath != "" {
		cfg.Cache.SQLitePath = a.sqlitePath
	}
	if a.baseURL != "" {
		cfg.Upstream.BaseURL = a.baseURL
	}
	if a.weeks > 0 {
		cfg.Upstream.WeeksPerSeason = a.weeks
	}
	if a.timeout > 0 {
		cfg.Service.RequestTimeout = a.timeout
	}
	if a.noNames {
		cfg.Upstream.PlayerNames = false
	}
	// inbound rate limiting is an API concern
	cfg.RateLimit.Enabled = false

	opts := []bootstrap.Option{
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(logger.NewWithWriter(os.Stderr, a.logLevel, cfg.Service.LogFormat)),
		bootstrap.WithoutTelemetry(),
	}
	opts = append(opts, a.extra...)

	a.components, err = bootstrap.Setup(cmd.Context(), "lineagectl", opts...)
	return err
}

// commandContext tags the run with a trace id and bounds it by the request timeout
func (a *cli) commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	traceID := uuid.NewString()
	ctx = logger.WithTraceID(ctx, traceID)
	ctx = clients.WithRequestID(ctx, traceID)

	return context.WithTimeout(ctx, a.components.Config.Service.RequestTimeout)
}

func (a *cli) timelineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <league_id>",
		Short: "List every season linked to a league, earliest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			timeline, err := a.components.Engine.ResolveTimeline(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, timeline)
		},
	}
}

func (a *cli) transactionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transactions <league_id>",
		Short: "Dump the league's completed transactions across all seasons",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			engine := a.components.Engine
			timeline, err := engine.ResolveTimeline(ctx, args[0])
			if err != nil {
				return err
			}
			idx, err := engine.BuildIndex(ctx, timeline)
			if err != nil {
				return err
			}
			return printJSON(cmd, idx.Transactions())
		},
	}
}

func (a *cli) chainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain <league_id> <roster_id> <asset_id>",
		Short: "Resolve the provenance tree of an asset held by a roster",
		Long: `Resolve how roster_id acquired asset_id and every downstream trade it fed.
asset_id is a player id or a draft pick id of the form season_round_originalRoster.`,
		Example: "  lineagectl chain 1048 3 4046\n  lineagectl chain 1048 3 2024_1_7",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rosterID, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("roster_id must be an integer: %q", args[1])
			}

			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			engine := a.components.Engine
			timeline, err := engine.ResolveTimeline(ctx, args[0])
			if err != nil {
				return err
			}
			chain, err := engine.ResolveChain(ctx, timeline, rosterID, args[2])
			if err != nil {
				return err
			}
			return printJSON(cmd, chain)
		},
	}
}

func (a *cli) lifecycleCmd() *cobra.Command {
	var rosterID int
	cmd := &cobra.Command{
		Use:     "lifecycle <league_id> <asset_id>",
		Short:   "List the draft and every transaction that moved an asset, oldest first",
		Example: "  lineagectl lifecycle 1048 4046\n  lineagectl lifecycle 1048 4046 --roster 3",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.commandContext(cmd)
			defer cancel()

			engine := a.components.Engine
			timeline, err := engine.ResolveTimeline(ctx, args[0])
			if err != nil {
				return err
			}
			lc, err := engine.Lifecycle(ctx, timeline, args[1], rosterID)
			if err != nil {
				return err
			}
			return printJSON(cmd, lc)
		},
	}
	cmd.Flags().IntVar(&rosterID, "roster", 0, "only keep events involving this roster")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
