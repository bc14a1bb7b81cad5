package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"pushflow/internal/api"
	"pushflow/internal/auth"
	"pushflow/internal/config"
	"pushflow/internal/dispatch"
	"pushflow/internal/push"
	"pushflow/internal/schedule"
	"pushflow/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})

	cfg := config.Load()
	if cfg.Auth.Secret == "" {
		log.Fatal().Msg("AUTH_SECRET must be set")
	}
	if len(cfg.Auth.Audiences) == 0 {
		log.Fatal().Msg("AUTH_AUDIENCES must be set")
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", cfg.Database.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("open db")
	}
	defer db.Close()
	db.SetMaxOpenConns(1) // SQLite single writer

	if err := store.EnsureSchema(db); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	repo := store.NewSQLiteRepo(db)
	verifier := auth.NewJWTVerifier(cfg.Auth.Secret, cfg.Auth.Audiences)
	svc := schedule.NewService(verifier, repo)

	ctx, cancel := context.WithCancel(context.Background())
	sender := push.NewHTTPSender(cfg.Dispatch.SendTimeout)
	dispatcher := dispatch.NewService(repo, sender, cfg.Dispatch.Workers, cfg.Dispatch.Interval)
	go dispatcher.Start(ctx)

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: api.NewServerWithDebug(svc, cfg.Server.Debug)}
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info().Msg("shutting down")
	cancel()
	ctxTimeout, cancelTimeout := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelTimeout()
	_ = srv.Shutdown(ctxTimeout)
}
