package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/terraincognita07/dosekeeper/internal/api"
	"github.com/terraincognita07/dosekeeper/internal/config"
	"github.com/terraincognita07/dosekeeper/internal/services"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var errInsecureSecret = errors.New("SECRET_KEY still uses the default placeholder; generate one with `dosekeeper secret`")

func newServeCommand(options *rootOptions) *cobra.Command {
	var maintenanceInterval time.Duration

	command := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, glucose polling and automatic backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := options.loadConfig()
			if err != nil {
				return err
			}
			logger, err := options.logger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger, maintenanceInterval)
		},
	}
	command.Flags().DurationVar(&maintenanceInterval, "maintenance-interval", api.DefaultMaintenanceInterval, "how often to retry due glucose captures and check the automatic backup")
	return command
}

func runServe(ctx context.Context, cfg config.Config, logger *zap.Logger, maintenanceInterval time.Duration) error {
	if cfg.AuthEnabled && cfg.UsesDefaultSecret() {
		return errInsecureSecret
	}

	rt, err := openRuntime(cfg, logger, runtimeOptions{polling: true})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("close runtime failed", zap.Error(err))
		}
	}()

	handler, err := api.NewHandler(api.HandlerOptions{
		Store:       rt.store,
		Sync:        rt.sync,
		Snapshots:   rt.snapshots,
		I18n:        rt.i18n,
		SecretKey:   cfg.SecretKey,
		AuthEnabled: cfg.AuthEnabled,
		Revisions:   rt.revisions,
		Logger:      logger.Named("api"),
	})
	if err != nil {
		return fmt.Errorf("handler init failed: %w", err)
	}
	app := api.NewApp(handler)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("dosekeeper listening",
			zap.String("addr", ":"+cfg.Port),
			zap.String("data_dir", cfg.DataDir),
			zap.String("storage", cfg.StorageDriver),
			zap.String("tz", cfg.Timezone),
			zap.Bool("auth", cfg.AuthEnabled),
		)
		if err := app.Listen(":" + cfg.Port); err != nil {
			return fmt.Errorf("server exited: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		return handler.RunMaintenance(groupCtx, maintenanceInterval)
	})
	if cfg.CatalogPath != "" {
		watcher := services.NewCatalogWatcher(cfg.CatalogPath, func(rows []services.CatalogRow) {
			handler.ApplyCatalog(rows)
		}, logger.Named("catalog"))
		group.Go(func() error {
			return watcher.Run(groupCtx)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info("dosekeeper stopped")
		return nil
	})

	return group.Wait()
}
