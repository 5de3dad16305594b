package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/storysite/internal/cms"
	"git.home.luguber.info/inful/storysite/internal/config"
	serrors "git.home.luguber.info/inful/storysite/internal/errors"
	"git.home.luguber.info/inful/storysite/internal/metrics"
	"git.home.luguber.info/inful/storysite/internal/navigation"
	"git.home.luguber.info/inful/storysite/internal/refresh"
	"git.home.luguber.info/inful/storysite/internal/routes"
	"git.home.luguber.info/inful/storysite/internal/seo"
	"git.home.luguber.info/inful/storysite/internal/server/httpserver"
	"git.home.luguber.info/inful/storysite/internal/site"
	"git.home.luguber.info/inful/storysite/internal/sitemap"
	"git.home.luguber.info/inful/storysite/internal/store"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"config.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Serve struct {
	} `cmd:"" help:"Serve the content API and admin endpoints"`

	Sitemap struct {
		Output string `short:"o" help:"Write the sitemap to a file instead of stdout"`
	} `cmd:"" help:"Generate the sitemap XML document"`

	Routes struct {
		Output string `short:"o" help:"Write the route list to a file instead of stdout"`
	} `cmd:"" help:"Generate the static route list"`

	Nav struct {
	} `cmd:"" help:"Print the derived navigation tree as JSON"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	adapter := serrors.NewCLIErrorAdapter(CLI.Verbose, logger)

	switch ctx.Command() {
	case "serve":
		runOrExit(adapter, runServe)
	case "sitemap":
		runOrExit(adapter, func(cfg *config.Config) error {
			return runSitemap(cfg, CLI.Sitemap.Output)
		})
	case "routes":
		runOrExit(adapter, func(cfg *config.Config) error {
			return runRoutes(cfg, CLI.Routes.Output)
		})
	case "nav":
		runOrExit(adapter, runNav)
	case "init":
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			adapter.HandleError(serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityError,
				"initialize configuration"))
			os.Exit(adapter.ExitCodeFor(err))
		}
		slog.Info("Configuration written", "path", CLI.Config)
	}
}

// runOrExit loads the configuration, runs the command, and exits with the
// error-category-derived code on failure.
func runOrExit(adapter *serrors.CLIErrorAdapter, run func(*config.Config) error) {
	cfg, err := config.Load(CLI.Config)
	if err != nil {
		wrapped := serrors.Wrap(err, serrors.CategoryConfig, serrors.SeverityFatal, "load configuration")
		adapter.HandleError(wrapped)
		os.Exit(adapter.ExitCodeFor(wrapped))
	}
	if err := run(cfg); err != nil {
		adapter.HandleError(err)
		os.Exit(adapter.ExitCodeFor(err))
	}
}

// pipeline bundles the derivation collaborators built from one config.
type pipeline struct {
	client   cms.Client
	recorder metrics.Recorder
	nav      *navigation.Builder
	deriver  *seo.Deriver
	sitemap  *sitemap.Generator
	routes   *routes.Generator
	version  string
}

func newPipeline(cfg *config.Config, recorder metrics.Recorder) *pipeline {
	logger := slog.Default()
	client := cms.NewAPIClient(cfg.CMS.BaseURL, cfg.CMS.Token,
		cms.WithRecorder(recorder),
		cms.WithRetryPolicy(cfg.CMS.RetryPolicy()),
		cms.WithTimeout(cfg.CMS.Timeout.AsDuration()))
	return &pipeline{
		client:   client,
		recorder: recorder,
		nav:      navigation.NewBuilder(client, recorder, logger),
		deriver: seo.NewDeriver(seo.Site{
			Name:           cfg.Site.Name,
			Description:    cfg.Site.Description,
			BaseURL:        cfg.Site.BaseURL,
			DefaultOGImage: cfg.Site.DefaultOGImage,
			LogoPath:       cfg.Site.LogoPath,
			SameAs:         cfg.Site.SameAs,
		}),
		sitemap: sitemap.NewGenerator(client, cfg.Site.BaseURL,
			sitemap.WithRecorder(recorder), sitemap.WithLogger(logger),
			sitemap.WithPerPage(cfg.CMS.PerPage)),
		routes: routes.NewGenerator(client,
			routes.WithLogger(logger), routes.WithPerPage(cfg.CMS.PerPage)),
		version: cfg.CMS.EffectiveVersion(),
	}
}

func runServe(cfg *config.Config) error {
	logger := slog.Default()
	registry := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(registry)
	p := newPipeline(cfg, recorder)

	storePath := cfg.Store.Path
	if storePath == "" {
		storePath = ":memory:"
	}
	st, err := store.NewSQLiteStore(storePath, cfg.Store.TTL.AsDuration(), store.WithRecorder(recorder))
	if err != nil {
		return err
	}
	defer func() {
		_ = st.Close()
	}()

	var pub refresh.Publisher
	if cfg.Events.Enabled {
		natsPub, err := refresh.NewNATSPublisher(cfg.Events.NATSURL, cfg.Events.Subject, logger)
		if err != nil {
			return serrors.Wrap(err, serrors.CategoryNetwork, serrors.SeverityError,
				"connect refresh event publisher")
		}
		defer natsPub.Close()
		pub = natsPub
	}

	refresher := refresh.NewService(p.nav, p.sitemap, p.routes, st, recorder, pub, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Warm the snapshots before accepting traffic.
	refresher.Run(ctx, p.version)

	if cfg.Refresh.Enabled {
		scheduler, err := refresh.NewScheduler(refresher, p.version, cfg.Refresh.Interval.AsDuration(), logger)
		if err != nil {
			return serrors.Wrap(err, serrors.CategoryRuntime, serrors.SeverityError,
				"create refresh scheduler")
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("Scheduler shutdown failed", "error", err)
			}
		}()
	}

	watcher, err := config.NewWatcher(CLI.Config, func(updated *config.Config) {
		logger.Info("Configuration reloaded, refreshing snapshots")
		refreshCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		refresher.Run(refreshCtx, updated.CMS.EffectiveVersion())
	})
	if err != nil {
		logger.Warn("Config watcher unavailable", "error", err)
	} else {
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Config watcher failed to start", "error", err)
		}
		defer func() {
			_ = watcher.Stop()
		}()
	}

	svc := site.NewService(p.client, p.nav, p.deriver, logger)
	srv := httpserver.New(cfg, httpserver.Deps{
		Site:           svc,
		Sitemap:        p.sitemap,
		Routes:         p.routes,
		Store:          st,
		Refresh:        refresher,
		Version:        p.version,
		MetricsHandler: metrics.HTTPHandler(registry),
	}, logger)

	if err := srv.Start(ctx); err != nil {
		return serrors.Wrap(err, serrors.CategoryRuntime, serrors.SeverityFatal, "start HTTP servers")
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runSitemap(cfg *config.Config, output string) error {
	p := newPipeline(cfg, metrics.NoopRecorder{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	doc := p.sitemap.Generate(ctx, p.version)
	if output == "" {
		_, err := os.Stdout.Write(doc)
		return err
	}
	if err := os.WriteFile(output, doc, 0o644); err != nil {
		return serrors.Wrap(err, serrors.CategoryRuntime, serrors.SeverityError,
			fmt.Sprintf("write sitemap to %s", output))
	}
	slog.Info("Sitemap written", "path", output)
	return nil
}

func runRoutes(cfg *config.Config, output string) error {
	p := newPipeline(cfg, metrics.NoopRecorder{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if output == "" {
		output = cfg.Routes.Output
	}
	if output != "" {
		return p.routes.WriteFile(ctx, p.version, output)
	}

	routeList, err := p.routes.Generate(ctx, p.version)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(routeList)
}

func runNav(cfg *config.Config) error {
	p := newPipeline(cfg, metrics.NoopRecorder{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	nav := p.nav.Build(ctx, p.version)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(nav)
}
