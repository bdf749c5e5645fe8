package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	core "deepbook-indexer/core"
	"deepbook-indexer/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "indexer",
		Short: "DeepBook checkpoint indexer and margin pool poller",
	}
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(latestCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv reads an optional .env, then the process environment.
func loadEnv() (*config.Config, *logrus.Logger, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(cfg)
	return cfg, log, nil
}

func newLogger(cfg *config.Config) *logrus.Logger {
	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(level)
	}
	if strings.EqualFold(cfg.Logging.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	return log
}

func indexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "run migrations, ingestion pipelines, the poller and the metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}

			env, err := core.ParseEnvironment(cfg.Env)
			if err != nil {
				return err
			}
			if overrideCore, overrideMargin := cfg.OverridePackages(); len(overrideCore) > 0 || len(overrideMargin) > 0 {
				if err := core.InitPackageOverride(overrideCore, overrideMargin); err != nil {
					return err
				}
				log.WithFields(logrus.Fields{
					"core": overrideCore, "margin": overrideMargin,
				}).Info("sandbox package override active")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics := core.NewMetrics()

			store, err := core.NewStore(ctx, cfg.Database.URL, cfg.Database.MaxConns, log)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.RunMigrations(ctx); err != nil {
				return err
			}

			source, err := buildSource(ctx, cfg, log, metrics)
			if err != nil {
				return err
			}

			runtime := core.NewRuntime(source, store, metrics, log)
			for _, h := range core.AllHandlers(env) {
				runtime.AddPipeline(h, core.DefaultPipelineConfig())
			}

			server := core.NewMetricsServer(cfg.Metrics.Address, metrics, log)
			go func() {
				if err := server.Start(); err != nil {
					log.WithError(err).Error("metrics server failed")
				}
			}()
			defer func() { _ = server.Shutdown(context.Background()) }()

			// Connection-pool gauges refresh on a slow tick.
			go func() {
				ticker := time.NewTicker(15 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						metrics.UpdatePoolStats(store.Stats())
					}
				}
			}()

			pollerErr := make(chan error, 1)
			if marginPkg, err := core.MarginPackage(env); err == nil {
				reader := core.NewSimulationClient(cfg.Poller.RPCURL, marginPkg, log)
				poller := core.NewPoller(store, reader, metrics, log,
					time.Duration(cfg.Poller.PollIntervalSecs)*time.Second)
				go func() { pollerErr <- poller.Run(ctx) }()
			} else {
				log.WithError(err).Info("margin poller disabled")
			}

			runErr := runtime.Run(ctx)
			stop()
			select {
			case <-pollerErr:
			default:
			}
			if runErr != nil && ctx.Err() == nil {
				return runErr
			}
			return nil
		},
	}
}

func latestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "print the latest checkpoint available from the configured source",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadEnv()
			if err != nil {
				return err
			}
			metrics := core.NewMetrics()
			source, err := buildSource(cmd.Context(), cfg, log, metrics)
			if err != nil {
				return err
			}
			seq, ok, err := source.Latest(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("no checkpoints available")
				return nil
			}
			fmt.Println(seq)
			return nil
		},
	}
}

// buildSource selects the checkpoint backend from configuration.
func buildSource(ctx context.Context, cfg *config.Config, log *logrus.Logger, metrics *core.Metrics) (core.CheckpointSource, error) {
	switch cfg.Checkpoints.Storage {
	case "walrus":
		var cache *core.BlobCache
		if cfg.Walrus.CacheEnabled && cfg.Walrus.CacheMaxSizeGB > 0 {
			maxBytes := int64(cfg.Walrus.CacheMaxSizeGB) * 1024 * 1024 * 1024
			var err error
			cache, err = core.NewBlobCache(cfg.Walrus.CacheDir, maxBytes, log, metrics)
			if err != nil {
				return nil, err
			}
		}
		source := core.NewWalrusCheckpointSource(
			cfg.Walrus.ArchivalURL, cfg.Walrus.AggregatorURL, cache, log)
		if err := source.Initialize(ctx); err != nil {
			return nil, err
		}
		return source, nil
	default:
		base := cfg.Checkpoints.RemoteStoreURL
		if base == "" {
			env, err := core.ParseEnvironment(cfg.Env)
			if err != nil {
				return nil, err
			}
			base = env.RemoteStoreURL()
		}
		return core.NewSuiCheckpointSource(base, log), nil
	}
}
