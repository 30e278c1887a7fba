package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"socialcal/internal/config"
	"socialcal/internal/ics"
	appLog "socialcal/internal/log"
	"socialcal/internal/refresh"
	"socialcal/internal/store"
	"socialcal/internal/web"
)

const (
	shutdownTimeout = 10 * time.Second
	fetchTimeout    = 30 * time.Second
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	appLog.Info("socialcal starting", "version", "0.1.0")

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"calendars", len(conf.Calendars),
		"subscriptions", len(conf.Subscriptions),
		"public_events", len(conf.PublicEvents),
		"once", flags.once,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, conf, flags.once); err != nil {
		appLog.Error("socialcal stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("socialcal exiting")
}

func run(ctx context.Context, conf *config.Config, once bool) error {
	state := store.New(conf.Seed(), store.WithMaxCalendars(conf.MaxCalendars))
	fetcher := ics.NewFetcher(conf.CacheDir, &http.Client{Timeout: fetchTimeout})
	refresher := refresh.New(fetcher, state, conf.Location())

	if once {
		rep := refresher.Run(ctx)
		if len(rep.Errors) > 0 {
			return errors.Errorf("%d of %d feeds failed", len(rep.Errors), rep.Feeds)
		}
		return nil
	}

	scheduler, err := refresher.Schedule(ctx, conf.RefreshCron)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              conf.Listen,
		Handler:           web.NewServer(conf, state, refresher).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		// Initial fill so followed feeds are populated before the first tick.
		refresher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		appLog.Info("starting HTTP server", "listen", "http://"+conf.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		appLog.Info("shutting down")

		<-scheduler.Stop().Done()

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./socialcal.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Refresh subscription feeds once and exit")

	flag.Parse()

	return cfg
}
