package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/automaxprocs/maxprocs"

	publipostage "github.com/jlllyfish/ink-publipostage-grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/config"
	"github.com/jlllyfish/ink-publipostage-grist/internal/grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/logging"
	"github.com/jlllyfish/ink-publipostage-grist/internal/store"
	"github.com/jlllyfish/ink-publipostage-grist/internal/web"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		port        int
		workers     int
		timeout     time.Duration
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "path to YAML config file")
	flag.IntVar(&port, "port", 0, "HTTP port (overrides config)")
	flag.IntVar(&workers, "workers", 0, "renderer pool size (overrides config)")
	flag.DurationVar(&timeout, "timeout", 0, "per-render timeout (overrides config)")
	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(Version)
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Port = port
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if timeout > 0 {
		cfg.RenderTimeout = timeout
	}

	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	// Error ignored: maxprocs.Set only fails on an invalid GOMAXPROCS env,
	// in which case Go runtime defaults apply and the program continues.
	_, _ = maxprocs.Set(maxprocs.Logger(func(format string, args ...interface{}) {
		slog.Debug(fmt.Sprintf(format, args...))
	}))

	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for template storage")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	templates, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer templates.Close()

	fontCSS := publipostage.LoadFontCSS(cfg.FontsDir)
	if fontCSS == "" {
		slog.Warn("no fonts loaded, documents fall back to system fonts", "dir", cfg.FontsDir)
	}

	poolSize := publipostage.ResolvePoolSize(cfg.Workers)
	pool := publipostage.NewRendererPool(poolSize, func() publipostage.DocumentRenderer {
		return publipostage.NewRodRenderer(
			publipostage.WithTimeout(cfg.RenderTimeout),
			publipostage.WithFontCSS(fontCSS),
		)
	})
	defer pool.Close()

	server := web.NewServer(web.Options{
		Grist:         grist.NewClient(cfg.GristServer),
		Store:         templates,
		Pool:          pool,
		FilterColumn:  cfg.FilterColumn,
		FontCSS:       fontCSS,
		RenderTimeout: cfg.RenderTimeout,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening",
			"port", cfg.Port,
			"workers", poolSize,
			"filter_column", cfg.FilterColumn,
			"version", Version,
		)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
