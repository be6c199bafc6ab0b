package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/trustlog/internal/member"
	"github.com/roach88/trustlog/internal/publisher"
	"github.com/roach88/trustlog/internal/store"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	PollInterval time.Duration
	MetricsAddr  string
}

// SnapshotEvent is printed for every published snapshot.
type SnapshotEvent struct {
	Version     uint64    `json:"version"`
	LastSeq     int64     `json:"last_seq"`
	Members     int       `json:"members"`
	Applied     int       `json:"applied"`
	Dropped     int       `json:"dropped"`
	PublishedAt time.Time `json:"published_at"`
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the log and publish snapshots as it grows",
		Long: `Fold the log, then poll it for new operations and publish a new
snapshot for every batch until interrupted. One line is printed per
snapshot (a JSON object per line with --format json).

With --metrics-addr, Prometheus metrics are served on /metrics.

Examples:
  trustlog watch --db ./trustlog.db
  trustlog watch --poll 100ms --metrics-addr :9464`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.PollInterval, "poll", 0, "poll interval (default $TRUSTLOG_POLL_INTERVAL or 500ms)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	return cmd
}

func runWatch(opts *WatchOptions, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	interval := opts.PollInterval
	if interval <= 0 {
		interval = opts.Config.PollInterval
	}
	if interval <= 0 {
		interval = store.DefaultPollInterval
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	pub := opts.newPublisher(publisher.WithRegisterer(reg))
	src := store.NewSource(st,
		store.WithPollInterval(interval),
		store.WithSourceLogger(opts.logger()),
	)

	versions, unsubscribe := pub.Subscribe()
	defer unsubscribe()

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer stop()
		return pub.Run(ctx, src)
	})

	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case _, ok := <-versions:
				if !ok {
					return nil
				}
				if err := printSnapshot(opts, cmd, pub.Current()); err != nil {
					return err
				}
			}
		}
	})

	if opts.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: opts.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			opts.logger().Info("serving metrics", "addr", opts.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitCommandError, "watch failed", err)
	}
	return nil
}

func printSnapshot(opts *WatchOptions, cmd *cobra.Command, snap *member.Snapshot) error {
	event := SnapshotEvent{
		Version:     snap.Version,
		LastSeq:     snap.LastSeq(),
		Members:     snap.MemberCount(),
		Applied:     snap.Applied(),
		Dropped:     snap.Dropped(),
		PublishedAt: snap.PublishedAt,
	}
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		return json.NewEncoder(w).Encode(event)
	}
	_, err := fmt.Fprintf(w, "version %d: last seq %d, %d member(s), %d applied, %d dropped\n",
		event.Version, event.LastSeq, event.Members, event.Applied, event.Dropped)
	return err
}
