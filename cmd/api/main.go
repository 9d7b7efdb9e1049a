package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"jobmarket/internal/app"
	"jobmarket/internal/config"
	jwtsvc "jobmarket/internal/pkg/jwt"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.RunChangeFeed(ctx)

	scheduler := cron.New()
	if _, err := a.Cleanup.Schedule(ctx, scheduler, cfg.NotificationCleanupCron); err != nil {
		log.Fatal(err)
	}
	scheduler.Start()

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(j),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		log.Printf("jobmarket api listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	<-scheduler.Stop().Done()
	if err := a.Close(); err != nil {
		log.Printf("close: %v", err)
	}
	log.Println("Server exited")
}
