// Command redim repaints a site's pure-black dark theme into the navy Dim
// palette by driving a Chrome tab over the DevTools protocol.
//
// Usage:
//
//	redim -config redim.yaml            # run the restyling daemon
//	redim -url https://x.com/home       # daemon against a single URL
//	redim -enable | -disable            # flip the stored preference and exit
//	redim -palette                      # print the palette and exit
//	redim -audit page.html              # correct a saved page offline
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-rod/rod"
	"github.com/joho/godotenv"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hazyhaar/redim/internal/browser"
	"github.com/hazyhaar/redim/palette"
	"github.com/hazyhaar/redim/prefs"
	"github.com/hazyhaar/redim/restyle"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

func main() {
	configPath := flag.String("config", "", "path to redim.yaml config file")
	pageURL := flag.String("url", "", "page URL (overrides config)")
	enable := flag.Bool("enable", false, "set the enabled preference to true and exit")
	disable := flag.Bool("disable", false, "set the enabled preference to false and exit")
	showPalette := flag.Bool("palette", false, "print the palette and exit")
	auditPath := flag.String("audit", "", "correct a saved HTML file offline and exit")
	serveMCP := flag.Bool("mcp", false, "also serve MCP control tools on stdio")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	// Optional .env for CHROME_REMOTE_URL style local overrides.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath, *pageURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case *showPalette:
		fmt.Print(palette.Default().Preview())
		return
	case *auditPath != "":
		err = runAudit(logger, *auditPath)
	case *enable || *disable:
		err = setEnabled(ctx, cfg, logger, *enable)
	default:
		err = runDaemon(ctx, cfg, logger, *serveMCP)
	}
	if err != nil {
		logger.Error("redim: fatal", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, pageURL string) (*restyle.Config, error) {
	cfg := restyle.DefaultConfig()
	if path != "" {
		var err error
		cfg, err = restyle.LoadConfigFile(path)
		if err != nil {
			return nil, err
		}
	}
	if pageURL != "" {
		cfg.Page.URL = pageURL
	}
	if remote := os.Getenv("CHROME_REMOTE_URL"); remote != "" && cfg.Browser.Remote == "" {
		cfg.Browser.Remote = remote
	}
	return cfg, nil
}

func newLogger(cfg *restyle.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var out io.Writer = os.Stderr
	if cfg.Log.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
		}
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
}

// setEnabled writes the preference and exits; a running daemon picks the
// change up through its store watcher.
func setEnabled(ctx context.Context, cfg *restyle.Config, logger *slog.Logger, enabled bool) error {
	store, err := prefs.Open(cfg.Prefs.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetEnabled(ctx, enabled); err != nil {
		return err
	}
	fmt.Printf("enabled = %v\n", enabled)
	return nil
}

func runAudit(logger *slog.Logger, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	defer f.Close()

	res, err := restyle.AuditHTML(f, os.Stdout, palette.Default(), logger)
	if err != nil {
		return err
	}
	logger.Info("audit: done", "candidates", res.Candidates, "corrected", res.Corrected)
	return nil
}

func runDaemon(ctx context.Context, cfg *restyle.Config, logger *slog.Logger, serveMCP bool) error {
	store, err := prefs.Open(cfg.Prefs.DBPath, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.RecordInstalledVersion(ctx, version); err != nil {
		logger.Warn("redim: record version failed", "error", err)
	}

	headless := cfg.Browser.Mode == "headless"
	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		Headless:        &headless,
		RecycleInterval: cfg.Browser.RecycleInterval,
		Logger:          logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		return err
	}
	defer mgr.Close()

	tab, err := browser.OpenTab(ctx, mgr, cfg.Page.URL, true)
	if err != nil {
		return err
	}
	defer tab.Close()

	pal := palette.Default()
	newSurface := func(page *rod.Page) restyle.Surface {
		return restyle.NewPageSurface(restyle.PageSurfaceConfig{
			Page:      page,
			Palette:   pal,
			Window:    cfg.Debounce.Window,
			MaxBuffer: cfg.Debounce.MaxBuffer,
			Logger:    logger,
		})
	}
	ryl := restyle.New(newSurface(tab.Page), store, logger)

	// A recycled Chrome takes its tab with it; reopen and rebind.
	mgr.SetRecycleCallback(&browser.RecycleCallback{
		AfterRecycle: func(*rod.Browser) {
			fresh, err := browser.OpenTab(ctx, mgr, cfg.Page.URL, true)
			if err != nil {
				logger.Error("redim: reopen tab after recycle failed", "error", err)
				return
			}
			if err := ryl.Rebind(ctx, newSurface(fresh.Page)); err != nil {
				logger.Error("redim: rebind after recycle failed", "error", err)
			}
		},
	})

	if err := ryl.Sync(ctx); err != nil {
		return fmt.Errorf("initial sync: %w", err)
	}

	watcher := prefs.NewWatcher(store, prefs.WatchOptions{Logger: logger})
	go watcher.Run(ctx, func(ev prefs.Event) { ryl.OnPrefChange(ctx, ev) })

	srv := &http.Server{
		Addr:              cfg.HTTP.Listen,
		Handler:           restyle.NewRouter(ryl, store, pal, version),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("redim: control API listening", "addr", cfg.HTTP.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("redim: http server", "error", err)
		}
	}()

	if serveMCP {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "redim", Version: version}, nil)
		restyle.RegisterMCP(mcpSrv, ryl, store, pal, version)
		go func() {
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil {
				logger.Error("redim: mcp server", "error", err)
			}
		}()
	}

	logger.Info("redim: running", "url", cfg.Page.URL, "version", version)
	<-ctx.Done()

	// Restore the page before tearing anything down.
	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ryl.Shutdown(shutCtx)
	_ = srv.Shutdown(shutCtx)
	return nil
}
