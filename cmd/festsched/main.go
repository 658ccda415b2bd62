package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"festsched/internal/capture"
	"festsched/internal/config"
	"festsched/internal/festival"
	appLog "festsched/internal/log"
	"festsched/internal/model"
	"festsched/internal/schedule"
	"festsched/internal/timefmt"
	"festsched/internal/web"
)

const version = "0.3.0"

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	snapshot   string
	at         float64
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file and environment.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Configure(appLog.Config{
		Level:  appLog.ParseLevel(conf.LogLevel),
		Format: conf.LogFormat,
	})
	appLog.Info("festsched starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"schedule_path", conf.SchedulePath,
		"watch_schedule", conf.WatchSchedule,
		"past_policy", conf.PastPolicy,
		"time_style", conf.TimeStyle,
		"once", flags.once,
		"snapshot", flags.snapshot,
	)

	// A schedule that cannot be loaded at startup is fatal.
	store, err := festival.Open(conf.SchedulePath)
	if err != nil {
		appLog.Error("failed to load festival schedule", err, "schedule_path", conf.SchedulePath)
		os.Exit(1)
	}

	policy, err := schedule.ParsePastPolicy(conf.PastPolicy)
	if err != nil {
		appLog.Error("invalid past policy", err)
		os.Exit(1)
	}

	// One formatter for the whole process; read-only after this point.
	formatter := timefmt.New(conf.Timezone, timefmt.Style(conf.TimeStyle))

	var refresherOpts []schedule.Option
	if flags.at != 0 {
		fixed := model.Instant(flags.at).Time()
		refresherOpts = append(refresherOpts, schedule.WithClock(func() time.Time { return fixed }))
	}
	refresher, err := schedule.NewRefresher(store, conf.RefreshCron, schedule.BoardOptions{
		Policy:    policy,
		Formatter: formatter,
	}, refresherOpts...)
	if err != nil {
		appLog.Error("failed to create refresher", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	store.OnReload(func(*model.Festival) { refresher.Refresh() })

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if flags.once {
		if err := runOnce(ctx, conf, store, refresher, flags); err != nil {
			appLog.Error("single-shot run failed", err)
			os.Exit(1)
		}
		return
	}

	server := web.NewServer(conf, store, refresher)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Serve(gctx) })
	g.Go(func() error { return refresher.Run(gctx) })
	if conf.WatchSchedule {
		g.Go(func() error { return store.Watch(gctx) })
	}

	if err := g.Wait(); err != nil {
		appLog.Error("festsched stopped with error", err)
		os.Exit(1)
	}
	appLog.Info("festsched exiting")
}

// runOnce prints the current board as JSON, or with -snapshot serves the
// board locally just long enough to capture it as a PNG.
func runOnce(ctx context.Context, conf *config.Config, store *festival.Store, refresher *schedule.Refresher, flags flagConfig) error {
	if flags.snapshot == "" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(refresher.Current())
	}

	// The local capture server never requires auth.
	local := *conf
	local.BasicAuth = nil
	local.RateLimitPerMinute = 0
	server := web.NewServer(&local, store, refresher)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- server.Serve(serveCtx) }()

	target, err := boardURL(local.Listen, flags.at)
	if err != nil {
		return err
	}
	if err := waitForListener(ctx, local.Listen, 5*time.Second); err != nil {
		return err
	}

	appLog.Info("capturing board", "url", target, "output", flags.snapshot)
	captureErr := capture.BoardPNG(ctx, capture.Options{
		URL:        target,
		OutputPath: flags.snapshot,
	})

	cancel()
	if err := <-errCh; err != nil {
		return err
	}
	return captureErr
}

// boardURL builds a loopback URL for the listen address, pinning the board
// to the -at instant when one is given.
func boardURL(listen string, at float64) (string, error) {
	host, port, err := net.SplitHostPort(listen)
	if err != nil {
		return "", fmt.Errorf("invalid listen address %q: %w", listen, err)
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	u := url.URL{Scheme: "http", Host: net.JoinHostPort(host, port), Path: "/"}
	if at != 0 {
		u.RawQuery = url.Values{"at": {model.Instant(at).String()}}.Encode()
	}
	return u.String(), nil
}

func waitForListener(ctx context.Context, listen string, timeout time.Duration) error {
	target, err := boardURL(listen, 0)
	if err != nil {
		return err
	}
	u, _ := url.Parse(target)
	deadline := time.Now().Add(timeout)
	for {
		conn, err := net.DialTimeout("tcp", u.Host, 250*time.Millisecond)
		if err == nil {
			return conn.Close()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("server on %s did not come up: %w", listen, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/festsched/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Build one board, print it (or capture it with -snapshot) and exit")
	flag.StringVar(&cfg.snapshot, "snapshot", "", "With -once, write a PNG of the board page to this path")
	flag.Float64Var(&cfg.at, "at", 0, "Pin the board clock to this epoch-seconds instant")

	flag.Parse()

	return cfg
}
