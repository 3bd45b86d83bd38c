// Package main provides the photocards-server binary.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/photocards/pkg/photocards/backend"
	"github.com/mikepea/photocards/pkg/photocards/backend/gormstore"
	"github.com/mikepea/photocards/pkg/photocards/backend/objectstore"
	"github.com/mikepea/photocards/pkg/photocards/collection"
	"github.com/mikepea/photocards/pkg/photocards/config"
	"github.com/mikepea/photocards/pkg/photocards/database"
	"github.com/mikepea/photocards/pkg/photocards/importexport"
	"github.com/mikepea/photocards/pkg/photocards/logging"
	"github.com/mikepea/photocards/pkg/photocards/metrics"
	"github.com/mikepea/photocards/pkg/photocards/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const (
	Version = "0.1.0"
	appName = "photocards-server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Photocard collection tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides config")

	cmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the web server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath, logLevel)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import groups, members and cards from a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath, logLevel)
			if err != nil {
				return err
			}
			return runImport(cmd.Context(), cfg, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s\n", appName, Version)
		},
	})

	return cmd
}

// setup loads configuration and installs the default logger
func setup(configPath, logLevel string) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logging.SetupWithLevel(logging.ParseLevel(cfg.Log.Level))
	return cfg, nil
}

func openObjects(cfg *config.Config) (backend.ObjectStore, *objectstore.Disk, error) {
	switch cfg.Storage.Backend {
	case config.StorageS3:
		s3, err := objectstore.NewS3(objectstore.S3Config{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.S3.Region,
			Endpoint:        cfg.Storage.S3.Endpoint,
			PublicBaseURL:   cfg.Storage.S3.PublicBaseURL,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	default:
		disk, err := objectstore.NewDisk(cfg.Storage.Dir, cfg.Storage.Bucket, cfg.Server.BaseURL)
		if err != nil {
			return nil, nil, err
		}
		return disk, disk, nil
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close(db)
	slog.Info("Database ready", "path", cfg.Database.Path)

	objects, disk, err := openObjects(cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	slog.Info("Photo storage ready", "backend", cfg.Storage.Backend, "bucket", cfg.Storage.Bucket)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctl := collection.New(gormstore.New(db), objects,
		collection.WithRecorder(metrics.New(reg)),
		collection.WithLogger(slog.Default()),
	)
	if err := ctl.Init(ctx); err != nil {
		// the page still renders; a later tab change retries
		slog.Warn("Initial load failed", "error", err)
	}

	opts := server.Options{
		DB:            db,
		Controller:    ctl,
		Logger:        slog.Default(),
		Gatherer:      reg,
		StorageBucket: cfg.Storage.Bucket,
	}
	if disk != nil {
		dir, err := filepath.Abs(disk.Dir())
		if err != nil {
			return fmt.Errorf("resolve storage dir: %w", err)
		}
		opts.StorageDir = dir
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := server.New(opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Run(ctx, ":"+cfg.Server.Port, router, 10*time.Second)
}

func runImport(ctx context.Context, cfg *config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import file: %w", err)
	}
	doc, err := importexport.Parse(data)
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close(db)

	result, err := importexport.Import(ctx, db, doc)
	if err != nil {
		return err
	}
	for _, msg := range result.Errors {
		slog.Warn("Skipped entry", "reason", msg)
	}
	slog.Info("Import complete",
		"groups", result.Groups,
		"members", result.Members,
		"imported", result.Imported,
		"skipped", result.Skipped)
	return nil
}
