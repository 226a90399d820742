package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/brian-pennington/festwiz/internal/catalog"
	"github.com/brian-pennington/festwiz/internal/config"
	"github.com/brian-pennington/festwiz/internal/store"
	"github.com/brian-pennington/festwiz/internal/web"

	appLog "github.com/brian-pennington/festwiz/internal/log"
)

// flagConfig holds CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	once       bool
	verbose    bool
}

func main() {
	appLog.Info("festwiz starting", "version", "0.3.0")

	flags := parseFlags()
	if flags.verbose {
		appLog.SetLevel(appLog.LevelDebug)
	}

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides config file listen if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"days", len(conf.Days),
		"day_start_hour", conf.DayStartHour,
		"refresh", conf.RefreshCron,
		"state_path", conf.StatePath,
		"clusters", len(conf.Clusters),
		"once", flags.once,
	)

	st, err := store.Open(conf.StatePath)
	if err != nil {
		appLog.Error("failed to open state", err, "state_path", conf.StatePath)
		os.Exit(1)
	}

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	loader := catalog.NewLoader(conf, st)
	if err := loader.Refresh(ctx); err != nil {
		// A festival app with no catalog is still usable for user-added
		// events and imports, so a failed initial load is not fatal.
		appLog.Error("initial catalog refresh failed", err)
	}

	if flags.once {
		appLog.Info("single refresh completed, exiting", "events", st.Len())
		appLog.Sync()
		return
	}

	// Periodic catalog refresh. The cron runner stops with the root
	// context, so no refresh fires after shutdown begins.
	c := cron.New()
	if _, err := c.AddFunc(conf.RefreshCron, func() {
		if err := loader.Refresh(ctx); err != nil {
			appLog.Error("scheduled catalog refresh failed", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh cron spec", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	c.Start()
	defer c.Stop()

	if err := web.StartServer(ctx, conf, st, loader); err != nil {
		appLog.Error("HTTP server stopped", err)
	}

	appLog.Info("festwiz exiting")
	appLog.Sync()
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/festwiz/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.BoolVar(&cfg.once, "once", false, "Run one catalog refresh and exit")
	flag.BoolVar(&cfg.verbose, "verbose", false, "Enable debug logging")

	flag.Parse()

	return cfg
}
