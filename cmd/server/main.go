package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/balllder/holiday-wheel/internal/auth"
	"github.com/balllder/holiday-wheel/internal/config"
	"github.com/balllder/holiday-wheel/internal/game"
	"github.com/balllder/holiday-wheel/internal/server"
	"github.com/balllder/holiday-wheel/internal/store"
	"github.com/balllder/holiday-wheel/internal/store/postgres"
	"github.com/balllder/holiday-wheel/internal/store/sqlite"
	"github.com/balllder/holiday-wheel/internal/utils"
	"github.com/balllder/holiday-wheel/internal/websocket"
)

func main() {
	cfg := config.Load()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open store")
	}
	defer st.Close()

	if err := st.SeedDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to seed default puzzles")
	}
	if cfg.PuzzleCSV != "" {
		if err := importCSV(ctx, st, cfg.PuzzleCSV, cfg.PuzzleCSVPack); err != nil {
			log.Fatal().Err(err).Str("path", cfg.PuzzleCSV).Msg("failed to import puzzle csv")
		}
	}

	registry := game.NewRegistry(st)
	defer registry.Close()

	hub := websocket.NewHub()
	svc := game.NewService(registry, st, hub, game.Options{
		HostCode:      cfg.HostCode,
		RevealEvery:   cfg.TossupReveal,
		CountdownTick: cfg.FinalTick,
	})
	authn := auth.New(st, auth.Options{
		Secret:      cfg.JWTSecret,
		ExpiresDays: cfg.JWTExpiresDays,
		CookieName:  cfg.CookieName,
		Secure:      cfg.Production(),
	})
	if cfg.JWTSecret == "dev" && cfg.Production() {
		log.Warn().Msg("JWT_SECRET is the development default")
	}

	srv := server.New(server.Deps{
		Game:        svc,
		Store:       st,
		Auth:        authn,
		WS:          websocket.NewHandler(hub, svc, authn.UserIDFromRequest),
		CORSOrigins: cfg.CORSOrigins,
	})
	httpServer := srv.HTTPServer(cfg.Port)

	done := make(chan struct{})
	go gracefulShutdown(ctx, httpServer, done)

	log.Info().Str("port", cfg.Port).Str("driver", cfg.DBDriver).Msg("starting holiday-wheel server")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("server exited")
	}

	<-done
	log.Info().Strs("rooms", registry.RoomIDs()).Msg("graceful shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		st, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required for the postgres driver")
		}
		st, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "memory":
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q", cfg.DBDriver)
	}
}

// importCSV loads a category,answer file into the named pack unless the pack
// already has puzzles.
func importCSV(ctx context.Context, st store.PuzzleStore, path, packName string) error {
	packs, err := st.ListPacks(ctx)
	if err != nil {
		return err
	}
	for _, p := range packs {
		if p.Name == packName && p.PuzzleCount > 0 {
			log.Info().Str("pack", packName).Int("puzzles", p.PuzzleCount).Msg("csv pack already loaded, skipping")
			return nil
		}
	}

	lines, err := utils.ReadPuzzleCSVFile(path)
	if err != nil {
		return err
	}
	if len(lines) == 0 {
		return fmt.Errorf("no puzzles in %s", path)
	}
	packID, err := st.EnsurePack(ctx, packName)
	if err != nil {
		return err
	}
	n, err := st.AddPuzzles(ctx, &packID, lines)
	if err != nil {
		return err
	}
	log.Info().Str("pack", packName).Int("added", n).Msg("imported puzzle csv")
	return nil
}

func gracefulShutdown(ctx context.Context, srv *http.Server, done chan<- struct{}) {
	<-ctx.Done()
	log.Info().Msg("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	close(done)
}
