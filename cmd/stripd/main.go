// stripd serves the strip exporter over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	htmlstrip "github.com/porticus-lab/go-html-strip"
	cfgpkg "github.com/porticus-lab/go-html-strip/internal/config"
	logpkg "github.com/porticus-lab/go-html-strip/internal/logger"
	"github.com/porticus-lab/go-html-strip/internal/metrics"
	"github.com/porticus-lab/go-html-strip/internal/server"
	"github.com/porticus-lab/go-html-strip/internal/storage"
	"github.com/porticus-lab/go-html-strip/internal/store"
	"github.com/porticus-lab/go-html-strip/printer"
)

func main() {
	cfg, err := cfgpkg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load .env")
	}

	// Init logging
	logger, err := logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		Service:      "htmlstrip",
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomFlush:   cfg.Axiom.FlushInterval,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init logger")
	}
	defer logpkg.Close()

	metrics.Init()

	// Browser
	opts := []htmlstrip.Option{
		htmlstrip.WithLogger(logger),
		htmlstrip.WithObserver(metrics.Observer{}),
		htmlstrip.WithTimeout(cfg.Browser.Timeout),
		htmlstrip.WithViewportWidth(cfg.Browser.ViewportWidth),
		htmlstrip.WithScale(cfg.Strip.Scale),
		htmlstrip.WithPreviewScale(cfg.Strip.PreviewScale),
		htmlstrip.WithMaxSegments(cfg.Strip.MaxSegments),
	}
	chromePath := cfg.Browser.ChromePath
	if chromePath == "" && !cfg.Browser.AutoDownload {
		if p, ok := htmlstrip.LookBrowser(); ok {
			chromePath = p
		} else {
			log.Warn().Msg("no local Chrome found; set CHROME_PATH or CHROME_AUTO_DOWNLOAD")
		}
	}
	if chromePath != "" {
		opts = append(opts, htmlstrip.WithChromePath(chromePath))
	}
	if cfg.Browser.NoSandbox {
		opts = append(opts, htmlstrip.WithNoSandbox())
	}
	if cfg.Browser.AutoDownload {
		opts = append(opts, htmlstrip.WithAutoDownload())
	}
	conv, err := htmlstrip.NewConverter(opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start browser")
	}
	defer conv.Close()

	// Status store
	var st store.Store = store.NewMemory(cfg.Store.TTL)
	if cfg.Store.RedisURL != "" {
		rs, err := store.NewRedisStatus(context.Background(), cfg.Store.RedisURL, cfg.Store.TTL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init redis status store")
		}
		st = rs
	}
	defer st.Close()

	deps := server.Dependencies{
		Backend:      conv,
		Status:       st,
		Logger:       logger,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Metrics:      metrics.Handler(),
	}

	// Print service (optional)
	printOpts := []printer.Option{
		printer.WithAPIKey(cfg.Printer.APIKey),
		printer.WithTimeout(cfg.Printer.Timeout),
		printer.WithLogger(logger),
	}
	if cfg.Printer.AllowRemote {
		printOpts = append(printOpts, printer.WithAllowRemote())
	}
	if pc, err := printer.New(cfg.Printer.Endpoint, printOpts...); err != nil {
		log.Warn().Err(err).Msg("printing disabled")
	} else {
		deps.Printer = pc
	}

	// Artifact upload (optional)
	if cfg.Storage.Enabled() {
		up, err := storage.NewS3Uploader(context.Background(), storage.Config{
			Bucket:    cfg.Storage.Bucket,
			Region:    cfg.Storage.Region,
			Endpoint:  cfg.Storage.Endpoint,
			Prefix:    cfg.Storage.Prefix,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to init S3 uploader")
		}
		deps.Uploader = up
	}

	mux := http.NewServeMux()
	server.New(deps).RegisterRoutes(mux)
	srv := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}

	go func() {
		log.Info().Msgf("HTTP server listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info().Msg("shutdown complete")
}
