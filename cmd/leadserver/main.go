package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/propertylead/internal/app"
	"github.com/joelkehle/propertylead/internal/config"
	"github.com/joelkehle/propertylead/internal/httpapi"
	"github.com/joelkehle/propertylead/internal/intake"
	"github.com/joelkehle/propertylead/internal/leads"
	"github.com/joelkehle/propertylead/internal/telemetry"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(logger); err != nil {
		logger.Fatal("leadserver exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "leadserver", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	store, err := leads.OpenSQLStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	archive, err := app.Archive(cfg)
	if err != nil {
		return err
	}
	appraiser, err := app.Appraiser(ctx, cfg, logger)
	if err != nil {
		return err
	}
	mailer, err := app.Mailer(cfg, logger)
	if err != nil {
		return err
	}

	svc := intake.NewService(intake.Deps{
		Captcha:           app.Captcha(cfg, logger),
		Store:             store,
		Archive:           archive,
		Provider:          app.Provider(cfg, logger),
		Appraiser:         appraiser,
		Mailer:            mailer,
		InternalRecipient: cfg.InternalRecipient,
		Logger:            logger.Named("intake"),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewServer(svc, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("leadserver listening",
		zap.String("addr", cfg.Addr),
		zap.String("db_driver", cfg.DatabaseDriver),
		zap.String("property_provider", cfg.PropertyProvider),
		zap.String("llm_provider", cfg.LLMProvider),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
