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

	gorillahandlers "github.com/gorilla/handlers"
	"go.uber.org/zap"

	"github.com/mosquitoalert/mosquito-alert-api/api"
	"github.com/mosquitoalert/mosquito-alert-api/api/handlers"
	"github.com/mosquitoalert/mosquito-alert-api/api/scheduler"
	"github.com/mosquitoalert/mosquito-alert-api/config"
	"github.com/mosquitoalert/mosquito-alert-api/notify"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()
	defer zap.S().Sync() //nolint:errcheck

	if err := a.Initialize(); err != nil { //initialize database and router
		zap.S().Fatalw("failed to initialize", "error", err)
	}

	var digest *scheduler.Scheduler
	if a.Config.Digest.SendGridAPIKey != "" {
		mailer := notify.NewSendGridMailer(a.Config.Digest.SendGridAPIKey, a.Config.Digest.From)
		digest = scheduler.NewScheduler(a.Config.Digest, a.Analytics(), a.Accounts(), mailer)
		if err := digest.Start(); err != nil {
			zap.S().Errorw("digest scheduler not started", "error", err)
			digest = nil
		}
	} else {
		zap.S().Info("SENDGRID_API_KEY not set, admin digest disabled")
	}

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins(a.Config.AllowedOrigins),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		gorillahandlers.AllowCredentials(),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%v", a.Config.Port),
		Handler:           cors(api.TimeoutMiddleware(a.Config.RequestTimeout)(a.Router)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		zap.S().Infow("mosquito-alert-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server stopped", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	zap.S().Info("shutting down gracefully")

	if digest != nil {
		digest.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zap.S().Errorw("error shutting down server", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		zap.S().Errorw("error disconnecting from database", "error", err)
	}
}
