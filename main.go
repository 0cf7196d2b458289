package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/blob"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/config"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/db"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/handler"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/logging"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/notify"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/oxidb"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/repository"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/router"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/scheduler"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/service"
	"github.com/emaildaana-cell/amarallegal-website-sub000/internal/telemetry"
)

const shutdownTimeout = 20 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, closeLog := logging.New(logging.Options{
		Level:    cfg.LogLevel,
		Format:   cfg.LogFormat,
		GelfAddr: cfg.GelfAddr,
	}, os.Stderr)

	err = run(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("server exited")
	}
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "sponsordocs", cfg.OTelEndpoint, cfg.OTelEnabled)
	if err != nil {
		log.Warn().Err(err).Msg("tracing disabled")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn().Err(err).Msg("tracer shutdown")
		}
	}()

	// Records
	gdb, err := db.Open(cfg.DBDriver, cfg.DBDSN, log)
	if err != nil {
		return err
	}
	defer db.Close(gdb)
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database ready")

	// Blobs
	signer := blob.NewSigner(cfg.JWTSecret, cfg.PublicBaseURL)
	store, closeStore, err := openBlobStore(ctx, cfg, signer, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// Notifications
	var sender notify.Sender = notify.NewLogSender(log)
	if cfg.Notify.SMTPHost != "" {
		smtp, err := notify.NewSMTP(notify.SMTPConfig{
			Host:     cfg.Notify.SMTPHost,
			Port:     cfg.Notify.SMTPPort,
			Username: cfg.Notify.SMTPUsername,
			Password: cfg.Notify.SMTPPassword,
			From:     cfg.Notify.From,
		})
		if err != nil {
			return fmt.Errorf("smtp: %w", err)
		}
		sender = smtp
	} else {
		log.Info().Msg("SMTP_HOST not set, notifications go to the log")
	}
	notifier := notify.NewDispatcher(sender, cfg.Notify.Timeout, log)
	defer notifier.Wait()

	// Repositories
	userRepo := repository.NewUserRepo(gdb)
	subRepo := repository.NewSubmissionRepo(gdb)
	docRepo := repository.NewDocumentRepo(gdb)
	linkRepo := repository.NewShareLinkRepo(gdb)
	exportRepo := repository.NewExportRepo(gdb)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTTTL, log)
	subSvc := service.NewSubmissionService(subRepo, docRepo, store, notifier, service.SubmissionConfig{
		StaffRecipients: cfg.Notify.To,
		PublicBaseURL:   cfg.PublicBaseURL,
		DownloadURLTTL:  cfg.DownloadURLTTL,
	}, log)
	docSvc := service.NewDocumentService(subRepo, docRepo, store, cfg.DownloadURLTTL, cfg.Blob.Timeout, log)
	shareSvc := service.NewShareService(subRepo, docRepo, linkRepo, store, cfg.DownloadURLTTL, log)
	exportSvc := service.NewExportService(subRepo, docRepo, exportRepo, store, service.ExportConfig{
		TTL:         cfg.ExportTTL,
		BlobTimeout: cfg.Blob.Timeout,
	}, log)
	searchSvc := service.NewSearchService(subRepo, log)
	dashSvc := service.NewDashboardService(subRepo, docRepo, linkRepo, log)

	if err := authSvc.SeedAdmin(ctx, cfg.AdminEmail, cfg.AdminPass); err != nil {
		log.Warn().Err(err).Msg("failed to seed admin")
	}

	r := router.New(router.Config{
		JWTSecret:       cfg.JWTSecret,
		PublicRateLimit: cfg.PublicRateLimit,
		CORSOrigins:     cfg.CORSOrigins,
	}, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Submission: handler.NewSubmissionHandler(subSvc),
		Document:   handler.NewDocumentHandler(docSvc, signer),
		Share:      handler.NewShareHandler(shareSvc),
		Export:     handler.NewExportHandler(exportSvc),
		Search:     handler.NewSearchHandler(searchSvc),
		Dashboard:  handler.NewDashboardHandler(dashSvc),
	}, log)

	sched, err := scheduler.New(cfg.ExportSweepSpec, exportSvc, 4*time.Minute, log)
	if err != nil {
		return err
	}
	sched.Start()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("blob_backend", cfg.Blob.Backend).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warn().Err(err).Msg("http shutdown")
	}
	sched.Stop(sctx)
	return nil
}

// openBlobStore returns the configured backend and a closer for any
// connections it holds.
func openBlobStore(ctx context.Context, cfg *config.Config, signer *blob.Signer, log zerolog.Logger) (blob.Store, func(), error) {
	nop := func() {}
	switch cfg.Blob.Backend {
	case "s3":
		store, err := blob.NewS3(ctx, cfg.Blob.AWSRegion, cfg.Blob.AWSEndpoint, cfg.Blob.S3Bucket)
		if err != nil {
			return nil, nop, fmt.Errorf("s3: %w", err)
		}
		log.Info().Str("bucket", cfg.Blob.S3Bucket).Msg("using S3 blob store")
		return store, nop, nil
	case "oxidb":
		pool, err := oxidb.NewPool(cfg.Blob.OxiDBHost, cfg.Blob.OxiDBPort, cfg.Blob.OxiDBPoolSize, log)
		if err != nil {
			return nil, nop, fmt.Errorf("oxidb: %w", err)
		}
		store, err := blob.NewOxiDB(ctx, pool, cfg.Blob.OxiDBBucket, signer)
		if err != nil {
			pool.Close()
			return nil, nop, fmt.Errorf("oxidb: %w", err)
		}
		log.Info().
			Str("host", cfg.Blob.OxiDBHost).
			Int("port", cfg.Blob.OxiDBPort).
			Int("pool", cfg.Blob.OxiDBPoolSize).
			Msg("connected to OxiDB blob store")
		return store, pool.Close, nil
	default:
		log.Warn().Msg("using in-memory blob store, uploads are lost on restart")
		return blob.NewMemory(signer), nop, nil
	}
}
