package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tasksync-backend/internal/config"
	"tasksync-backend/internal/feed"
	"tasksync-backend/internal/identity"
	"tasksync-backend/internal/server"
	"tasksync-backend/internal/store"
	"tasksync-backend/internal/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid startup configuration: ", err)
	}

	st, err := openStore(cfg)
	if err != nil {
		log.Fatal("failed to open store: ", err)
	}
	defer st.Close()

	log.Printf("store ready (driver=%s)", cfg.Driver)

	collection := task.CollectionPath(cfg.AppID)
	hub := feed.NewHub(collection, st)
	ids := identity.New([]byte(cfg.JWTSecret), cfg.Tokens)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// With a shared database, mutations from other processes arrive as
	// NOTIFY events and have to be bridged into local broadcasts.
	if cfg.Driver == config.DriverPostgres {
		listener, err := feed.NewListener(cfg.ConnString(), hub, func(err error) {
			log.Print("feed bridge lost: ", err)
		})
		if err != nil {
			log.Fatal("failed to start feed bridge: ", err)
		}
		go listener.Run(ctx)
	}

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.New(ids, hub, cfg.DurableToken).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("serving %s on %s", collection, cfg.Listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal(err)
	}
}

func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return store.OpenSQLite(cfg.SQLitePath)
	case config.DriverPostgres:
		return store.OpenPostgres(cfg.ConnString())
	default:
		return store.NewMemory(), nil
	}
}
