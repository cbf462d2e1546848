package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/formden/formden/app"
	"github.com/formden/formden/config"
	"github.com/formden/formden/database"
	"github.com/formden/formden/httpx"
	"github.com/formden/formden/log"
	"github.com/formden/formden/routes"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatal("main.db.open:", err)
	}
	defer db.Close()

	store := database.NewStore(db)
	if err := seedMaster(store, cfg); err != nil {
		log.Fatal("main.seed_master:", err)
	}

	app := app.App{
		DB:           db,
		Store:        store,
		BearerServer: httpx.NewBearerServer(db, cfg),
		Config:       cfg,
	}

	handler := routes.Wire(app)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func seedMaster(store *database.Store, cfg config.Config) error {
	if cfg.MasterUsername == "" {
		return nil
	}
	if cfg.MasterPassword == "" {
		return errors.New("missing parameter -master-password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.MasterPassword), 12)
	if err != nil {
		return err
	}
	id, err := routes.NewAccountID()
	if err != nil {
		return err
	}
	return store.EnsureMaster(context.Background(), id, cfg.MasterUsername, string(hash))
}

func runServer(cfg config.Config, handler http.Handler) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Info("Listening on " + cfg.Url())
	return srv.ListenAndServe()
}
