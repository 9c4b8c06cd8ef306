package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/avoronov/ticket-directory/internal/collection"
	"github.com/avoronov/ticket-directory/internal/config"
	"github.com/avoronov/ticket-directory/internal/database"
	"github.com/avoronov/ticket-directory/internal/handler"
	"github.com/avoronov/ticket-directory/internal/repository"
	"github.com/avoronov/ticket-directory/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:      cfg.DBMaxConns,
		MaxIdle:      cfg.DBMaxIdle,
		ConnLifetime: time.Duration(cfg.DBConnTTLMin) * time.Minute,
	})
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("ensure schema: %v", err)
	}

	store := collection.NewStore(repository.NewTicketRepo(db), db)
	if err := store.Reload(ctx); err != nil {
		cancel()
		log.Fatalf("load collection: %v", err)
	}
	cancel()
	log.Printf("collection loaded, %d tickets", store.Size())

	users := repository.NewUserRepo(db)
	auth := handler.NewAuthHandler(cfg, users)
	cmd := handler.NewCommandHandler(store)
	adm := handler.NewAdminHandler(store)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable, rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, auth)
	router.RegisterCommands(e, cmd, adm, auth, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb)

	addr := ":" + cfg.Port
	go func() {
		log.Printf("listening on %s (env=%s)", addr, cfg.Env)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server: %v", err)
		}
	}()

	// Drain in-flight commands on SIGINT/SIGTERM, then release the
	// backing store.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("close store: %v", err)
	}
	log.Printf("server stopped")
}
