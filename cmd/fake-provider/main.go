// Command fake-provider serves a synthetic profile API for local development.
// Point STATWATCH_PROVIDER_BASE_URL at it to run the tracker without touching
// the real provider.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/statwatch/internal/fakeprovider"
)

const (
	defaultPlayers     = 5
	defaultMutateEvery = 30 * time.Second
	readHeaderTimeout  = 5 * time.Second
)

func main() {
	var (
		addr        = flag.String("addr", ":9090", "Listen address")
		players     = flag.Int("players", defaultPlayers, "Number of synthetic players")
		mutateEvery = flag.Duration("mutate", defaultMutateEvery, "How often a random player's stats change (0 disables)")
		seed        = flag.Int64("seed", 1, "Dataset seed")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fake := fakeprovider.New(fakeprovider.Config{
		Players:     *players,
		MutateEvery: *mutateEvery,
		Seed:        *seed,
	})
	go fake.Run(ctx, *mutateEvery)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		os.Stderr.WriteString("fake provider failed: " + err.Error() + "\n")
	}
}
