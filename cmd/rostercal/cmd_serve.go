package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	appLog "rostercal/internal/log"
	"rostercal/internal/scheduler"
	"rostercal/internal/shift"
	"rostercal/internal/source"
	"rostercal/internal/web"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the upload UI/API and, when inbox_dir is set, the inbox exporter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, listen)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(parent context.Context, opts *rootOptions, listen string) error {
	if parent == nil {
		parent = context.Background()
	}
	appLog.Info("rostercal starting", "version", version)

	conf, err := opts.loadConfig()
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", opts.configPath)
		return err
	}
	// CLI --listen overrides config file listen if provided.
	if listen != "" {
		conf.Listen = listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"policy", conf.Policy.Preset,
		"custom_policy", conf.Policy.Custom != nil,
		"inbox_dir", conf.InboxDir,
		"output_dir", conf.OutputDir,
		"refresh", conf.RefreshCron,
		"sources", len(conf.Sources),
	)

	gen, err := newGenerator(conf)
	if err != nil {
		return err
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	// Inbox setup can fail; do it before anything runs in the group.
	var sched *scheduler.Scheduler
	if conf.InboxDir != "" {
		if err := os.MkdirAll(conf.InboxDir, 0o755); err != nil {
			return err
		}
		loc, err := shift.LoadZone(conf.Timezone)
		if err != nil {
			return err
		}

		exporter := scheduler.NewExporter(conf.InboxDir, conf.OutputDir, conf.RosterPolicy(), gen)
		var fetcher *source.Fetcher
		if len(conf.Sources) > 0 {
			fetcher = source.NewFetcher(conf.InboxDir, conf.CacheDir)
		}
		sched = scheduler.New(conf.RefreshCron, loc, exporter, fetcher, source.FromConfig(conf.Sources))
	} else {
		appLog.Info("inbox_dir not set; inbox exporter disabled")
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return web.StartServer(egCtx, conf, gen)
	})
	if sched != nil {
		eg.Go(func() error {
			defer sched.Stop()
			return sched.Start(egCtx)
		})
	}

	err = eg.Wait()
	appLog.Info("rostercal exiting")
	return err
}
