package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/danielhkuo/ankor-api/auth"
	"github.com/danielhkuo/ankor-api/cliparse"
	"github.com/danielhkuo/ankor-api/db"
	"github.com/danielhkuo/ankor-api/logging"
	"github.com/danielhkuo/ankor-api/router"
	"github.com/danielhkuo/ankor-api/storage"
	"github.com/danielhkuo/ankor-api/supabase"
)

func main() {
	// A missing .env is fine; the environment may already be set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("failed to load .env")
	}

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		logging.Error().Err(err).Msg("error parsing flags")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	dbConn, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logging.Error().Err(err).Msg("database connection failed")
		os.Exit(1)
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(20)
	dbConn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	err = dbConn.PingContext(pingCtx)
	cancel()
	if err != nil {
		logging.Error().Err(err).Msg("database ping failed")
		os.Exit(1)
	}

	if cfg.CreateSchema {
		if err := db.CreateSchema(dbConn); err != nil {
			logging.Error().Err(err).Msg("schema creation failed")
			os.Exit(1)
		}
		logging.Info().Msg("reference schema ready")
	}

	service := supabase.NewClient(supabase.Options{
		BaseURL: cfg.SupabaseURL,
		APIKey:  cfg.ServiceRoleKey,
		Name:    "supabase-admin",
		RPS:     20,
		Burst:   10,
	})
	if cfg.SupabaseURL == "" {
		logging.Warn().Msg("running without Supabase; admin and storage calls will fail")
	}

	deps := router.Deps{
		Config:   cfg,
		Store:    db.NewStore(dbConn),
		Verifier: auth.NewVerifier(cfg.JWTSecret, gotrueClient(cfg)),
		Admin:    auth.NewAdmin(service),
		Objects:  storage.New(service),
	}

	server := http.Server{
		Handler:           router.NewRouter(deps),
		Addr:              ":" + strconv.Itoa(cfg.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// signal.Notify requires the channel to be buffered
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	logging.Info().Int("port", cfg.Port).Msg("listening")
	if err := serve(&server, stop); err != nil {
		logging.Error().Err(err).Msg("server failed")
		dbConn.Close()
		os.Exit(1)
	}
	logging.Info().Msg("server closed")
}

// gotrueClient verifies tokens with the anon key only; without one there is
// no GoTrue client and tokens can only be checked against the JWT secret
func gotrueClient(cfg cliparse.Config) *supabase.Client {
	if cfg.SupabaseURL == "" || cfg.AnonKey == "" {
		return nil
	}
	return supabase.NewClient(supabase.Options{BaseURL: cfg.SupabaseURL, APIKey: cfg.AnonKey, Name: "supabase-auth"})
}

// serve runs server until it fails or a signal arrives on stop, then drains
// open requests. Only a listen or serve failure is returned.
func serve(server *http.Server, stop <-chan os.Signal) error {
	errs := make(chan error, 1)
	go func() {
		errs <- server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logging.Error().Err(err).Msg("graceful shutdown failed")
		server.Close()
	}
	if err := <-errs; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
