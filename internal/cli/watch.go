package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/cartsync/internal/scheduler"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	MetricsAddr string
	For         time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the cart refreshed and print count changes",
		Long: `Refresh the cart on every identity change and on the poll interval,
printing the item count whenever it changes. Serves Prometheus metrics on
--metrics-addr (empty disables).

Examples:
  cartsync watch
  cartsync watch --metrics-addr :9464
  cartsync watch --for 30s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "metrics listen address (default from config)")
	cmd.Flags().DurationVar(&opts.For, "for", 0, "stop after this long (0 = until interrupted)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	f := opts.formatter(cmd)
	w := cmd.OutOrStdout()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if opts.For > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.For)
		defer cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	rt, err := openRuntime(ctx, opts.RootOptions)
	if err != nil {
		return f.Fail(GetExitCode(err), "failed to start", err)
	}
	defer rt.Close()
	log := rt.Logger

	go func() {
		select {
		case sig := <-sigChan:
			log.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	stopCount := rt.Sync.OnCountChange(func(count int) {
		fmt.Fprintf(w, "count: %d\n", count)
	})
	defer stopCount()

	addr := opts.MetricsAddr
	if !cmd.Flags().Changed("metrics-addr") {
		addr = rt.Config.MetricsAddr
	}

	sched := scheduler.New(rt.Provider, rt.Resolver, rt.Sync,
		scheduler.WithInterval(rt.Config.PollInterval),
		scheduler.WithLogger(log),
	)

	g, gctx := errgroup.WithContext(ctx)
	if addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(rt.Registry, promhttp.HandlerOpts{}))
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	fmt.Fprintf(w, "Watching cart (every %s). Press Ctrl-C to stop.\n", rt.Config.PollInterval)
	if err := sched.Start(gctx); err != nil {
		cancel()
		_ = g.Wait()
		return f.Fail(ExitFailure, "failed to start scheduler", err)
	}

	<-gctx.Done()
	sched.Stop()
	if err := g.Wait(); err != nil {
		return f.Fail(ExitFailure, "metrics server error", err)
	}

	log.Info("watch stopped")
	return nil
}
