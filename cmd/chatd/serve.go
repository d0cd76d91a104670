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

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/suPer8Hu/gemini-chat/internal/auth"
	"github.com/suPer8Hu/gemini-chat/internal/db"
	"github.com/suPer8Hu/gemini-chat/internal/email"
	"github.com/suPer8Hu/gemini-chat/internal/httpapi"
	"github.com/suPer8Hu/gemini-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/gemini-chat/internal/prompt"
	"github.com/suPer8Hu/gemini-chat/internal/store/rabbitmq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "auto-migrate the schema before serving")
	return cmd
}

func runServe(ctx context.Context, migrate bool) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	if migrate {
		if err := db.AutoMigrate(a.db); err != nil {
			return err
		}
	}

	signer := auth.NewSigner(cfg.JWTSecret, cfg.TokenTTL)
	policy := auth.NewEmailAllowList(cfg.AdminEmails)

	var notifier auth.Notifier
	smtpCfg := email.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		From: cfg.SMTPFrom,
	}
	if smtpCfg.Enabled() {
		notifier = email.NewWelcomeMailer(smtpCfg, logger.Named("email"))
	}

	h := &handlers.Handler{
		Auth:         auth.NewService(auth.NewRepo(a.db), signer, notifier, logger.Named("auth")),
		Chat:         a.chat,
		Dispatcher:   a.dispatcher,
		Prompts:      prompt.NewService(prompt.NewRepo(a.db)),
		ServiceName:  "gemini-chat",
		ExposeDetail: !cfg.IsProduction(),
		Logger:       logger.Named("http"),
	}
	if a.provider != nil {
		h.Catalog = a.provider
		h.Models = a.resolver
	}
	if cfg.RabbitURL != "" {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			return err
		}
		defer pub.Close()
		h.Jobs = pub
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h, signer, policy, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(sctx)
	})

	if cfg.ModelCacheResetCron != "" && a.resolver != nil {
		c := cron.New()
		if _, err := c.AddFunc(cfg.ModelCacheResetCron, func() {
			a.resolver.Invalidate()
			logger.Info("model cache reset")
		}); err != nil {
			return fmt.Errorf("MODEL_CACHE_RESET_CRON: %w", err)
		}
		g.Go(func() error {
			c.Start()
			<-gctx.Done()
			<-c.Stop().Done()
			return nil
		})
	}

	return g.Wait()
}
