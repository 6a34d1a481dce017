package main

import (
	"context"
	"errors"
	"flag"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/mbolis/festreg/app"
	"github.com/mbolis/festreg/catalog"
	"github.com/mbolis/festreg/config"
	"github.com/mbolis/festreg/database"
	"github.com/mbolis/festreg/journal"
	"github.com/mbolis/festreg/log"
	"github.com/mbolis/festreg/routes"
	"github.com/mbolis/festreg/sheets"
)

func main() {
	cfg, err := config.Parse(os.Args[1:], nil)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		log.Fatal("main.config:", err)
	}
	if err := log.SetFormat(cfg.LogFormat); err != nil {
		log.Fatal("main.config:", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	events, err := loadCatalog(cfg)
	if err != nil {
		log.Fatal("main.catalog:", err)
	}
	log.Infof("loaded %d events", events.Len())

	a := app.App{
		Config:  cfg,
		Catalog: events,
		Sink: sheets.NewSink(sheets.Google(sheets.Credentials{
			JSON: cfg.CredentialsJSON,
			File: cfg.CredentialsFile,
		})),
	}

	if !cfg.RegistrationEnabled() {
		log.Warn("no spreadsheet configured, registrations will be refused")
	}

	if cfg.DBUrl != "" {
		db, err := database.Open(cfg.DBUrl)
		if err != nil {
			log.Fatal("main.db.open:", err)
		}
		defer db.Close()
		a.Journal = journal.New(db)
	}

	if cfg.AdminEnabled() {
		a.TokenAuth = jwtauth.New("HS256", []byte(cfg.TokenSecret), nil)
	} else {
		log.Info("no token secret, admin API disabled")
	}

	handler := routes.Wire(a)

	err = runServer(cfg, handler)
	if !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("main.server:", err)
	}
}

func loadCatalog(cfg config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog == "" {
		return catalog.Default(), nil
	}
	data, err := os.ReadFile(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	return catalog.Parse(data)
}

func runServer(cfg config.Config, handler http.Handler) error {
	errorLog := log.Writer(log.WarnLevel)
	defer errorLog.Close()

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorLog:     stdlog.New(errorLog, "", 0),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("main.server.shutdown:", err)
		}
	}()

	log.Info("Listening on " + cfg.Url())
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		<-done
	}
	return err
}
