package serve

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/httpcontroller"
	"github.com/tphakala/labelgrid/internal/logger"
	"github.com/tphakala/labelgrid/internal/observability"
	"github.com/tphakala/labelgrid/internal/previewcache"
	"github.com/tphakala/labelgrid/internal/telemetry"
)

// defaultShutdownTimeout applies when webserver.shutdowntimeout is unset.
const defaultShutdownTimeout = 10 * time.Second

// GetLogger returns the serve module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("serve")
}

// Command creates the serve command that runs the dashboard.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the preview dashboard",
		Long:  "Index the configured dataset roots on demand and serve the image-label dashboard over HTTP.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), afero.NewOsFs(), settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		GetLogger().Warn("failed to bind serve flags", logger.Error(err))
	}

	return cmd
}

// setupFlags configures flags specific to the serve command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Host, "host", viper.GetString("webserver.host"), "Listen host, empty for all interfaces")
	cmd.Flags().StringVarP(&settings.WebServer.Port, "port", "p", viper.GetString("webserver.port"), "Listen port")
	cmd.Flags().BoolVar(&settings.Cache.Watch, "watch", viper.GetBool("cache.watch"), "Reindex when a dataset root changes")
	cmd.Flags().BoolVar(&settings.Metrics.Enabled, "metrics", viper.GetBool("metrics.enabled"), "Serve Prometheus metrics on /metrics")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// Run serves the dashboard until ctx is cancelled or SIGINT/SIGTERM arrives,
// then drains in-flight requests. SIGHUP reopens the log files.
func Run(ctx context.Context, fs afero.Fs, settings *conf.Settings) error {
	log := GetLogger()

	if !settings.WebServer.Enabled {
		log.Info("webserver disabled, nothing to serve")
		return nil
	}

	flush, err := telemetry.Init(&settings.Sentry, settings.Main.Version)
	if err != nil {
		log.Warn("error reporting unavailable", logger.Error(err))
	}
	defer flush()

	roots, err := conf.ResolveRootDirs(fs, &settings.Dataset)
	if err != nil {
		return err
	}
	for _, version := range roots.Versions() {
		root, _ := roots.Root(version)
		log.Info("dataset root configured",
			logger.String("version", version.String()),
			logger.String("root", root))
	}

	var (
		cacheOpts  []previewcache.Option
		serverOpts []httpcontroller.Option
	)
	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return err
		}
		cacheOpts = append(cacheOpts, previewcache.WithMetrics(m.Dataset, m.Cache))
		serverOpts = append(serverOpts, httpcontroller.WithMetrics(m))
	}
	previews := previewcache.New(fs, roots, &settings.Cache, cacheOpts...)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go reopenOnHangup(ctx, hup, logger.Global())

	if settings.Cache.Watch {
		stopWatch, err := previews.Watch(ctx)
		if err != nil {
			log.Warn("dataset watching unavailable, use POST /api/v1/reindex after changes", logger.Error(err))
		} else {
			defer stopWatch()
		}
	}

	server, err := httpcontroller.New(settings, previews, serverOpts...)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := settings.WebServer.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	log.Info("shutting down", logger.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", logger.Error(err))
		return err
	}
	return <-errCh
}

type reopener interface {
	Reopen() error
}

// reopenOnHangup reopens log files for each signal on hup until ctx ends.
func reopenOnHangup(ctx context.Context, hup <-chan os.Signal, files reopener) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := files.Reopen(); err != nil {
				GetLogger().Error("failed to reopen log files", logger.Error(err))
				continue
			}
			GetLogger().Info("log files reopened")
		}
	}
}
