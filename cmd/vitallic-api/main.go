// Command vitallic-api serves the call archive read API.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitallic/vitallic-core/core/store"
	"github.com/vitallic/vitallic-core/core/store/memory"
	"github.com/vitallic/vitallic-core/core/store/postgres"
	"github.com/vitallic/vitallic-core/internal/api"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := os.Getenv("VITALLIC_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	gateway, cleanup, err := openStore(ctx)
	if err != nil {
		log.Fatalf("store error: %v", err)
	}
	defer cleanup()

	server := &http.Server{
		Addr:              addr,
		Handler:           api.NewRouter(&api.Handler{Store: gateway}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown error: %v", err)
		}
	}()

	log.Printf("vitallic-api listening on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

func openStore(ctx context.Context) (store.Gateway, func(), error) {
	databaseURL, ok := os.LookupEnv("DATABASE_URL")
	if !ok {
		log.Println("DATABASE_URL not set; serving the in-process store")
		return memory.New(), func() {}, nil
	}

	if err := postgres.Migrate(ctx, databaseURL); err != nil {
		return nil, nil, err
	}
	pg, err := postgres.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
