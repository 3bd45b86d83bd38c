// Package server assembles the HTTP router and runs it.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/photocards/pkg/photocards/catalog"
	"github.com/mikepea/photocards/pkg/photocards/collection"
	"github.com/mikepea/photocards/pkg/photocards/importexport"
	"github.com/mikepea/photocards/pkg/photocards/middleware"
	"github.com/mikepea/photocards/pkg/photocards/web"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Options holds the dependencies the router is built from
type Options struct {
	DB         *gorm.DB
	Controller *collection.Controller
	Logger     *slog.Logger

	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil
	Gatherer prometheus.Gatherer

	// StorageBucket and StorageDir serve disk-backed photos at
	// /storage/<bucket>/. Leave StorageDir empty for remote storage.
	StorageBucket string
	StorageDir    string
}

// New builds the gin engine with every route registered
func New(opts Options) (*gin.Engine, error) {
	if opts.DB == nil || opts.Controller == nil {
		return nil, errors.New("server requires a database and a controller")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	tmpl, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(opts.Logger), gin.Recovery())
	r.SetHTMLTemplate(tmpl)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	if opts.StorageDir != "" {
		r.Static("/storage/"+opts.StorageBucket, opts.StorageDir)
	}

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status":  "ok",
				"service": "photocards",
			})
		})

		catalog.NewHandler(opts.DB).RegisterRoutes(api)

		importExportHandler := importexport.NewHandler(opts.DB)
		importExportHandler.AfterImport = opts.Controller.Init
		importExportHandler.RegisterRoutes(api)
	}

	web.NewHandler(opts.Controller).RegisterRoutes(r)

	return r, nil
}

// Run serves handler on addr until ctx is cancelled, then drains
// in-flight requests for up to shutdownTimeout.
func Run(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting photocards server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}
