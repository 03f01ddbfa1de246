package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

type AppProvider interface {
	Run(args []string) error
	Execute(ctx context.Context, args []string) error
	Clean()
}

type App struct {
	logger   *zap.Logger
	config   *Config
	clock    Clocker
	books    *BookClient
	updater  *Updater
	tokens   *TokenProvider
	store    TokenStore
	out      io.Writer
	cleanups []func() error
}

// NewApp loads the configuration, sets up logging and the session store
// and provides a ready to run App.
func NewApp(configFile, envFile string, out io.Writer) (AppProvider, error) {
	config, err := LoadAndInitConfigs(configFile, envFile, GitCommit, GitTag, BuildTime)
	if err != nil {
		return nil, fmt.Errorf("failed to setup app configuration: %s", err)
	}

	clock := NewClock(config.IsProduction)
	logWriter := NewRSyncWriter(config, clock)
	logger, flusher := SetupLogging(config, logWriter, NewTickClock(clock))

	store, err := OpenTokenStore(logger, config, clock)
	if err != nil {
		_ = logWriter.Close()
		return nil, fmt.Errorf("failed to open %s session store: %s", config.Session.Store, err)
	}

	app, err := newApp(logger, config, clock, store, out)
	if err != nil {
		_ = store.Close()
		_ = logWriter.Close()
		return nil, err
	}
	app.cleanups = append(app.cleanups, store.Close, flusher, logWriter.Close)
	return app, nil
}

// newApp wires the access layer onto already built collaborators.
func newApp(logger *zap.Logger, config *Config, clock Clocker, store TokenStore, out io.Writer) (*App, error) {
	transport := NewTransport(logger, &config.Catalog, NewIDsHandler())
	books, err := NewBookClient(logger, &config.Catalog, transport)
	if err != nil {
		return nil, err
	}
	tokens, err := NewTokenProvider(logger, &config.Catalog, transport)
	if err != nil {
		return nil, err
	}
	return &App{
		logger:  logger,
		config:  config,
		clock:   clock,
		books:   books,
		updater: NewUpdater(logger, books),
		tokens:  tokens,
		store:   store,
		out:     out,
	}, nil
}

// OpenTokenStore connects to the configured session store.
func OpenTokenStore(logger *zap.Logger, config *Config, clock Clocker) (TokenStore, error) {
	if config.Session.Store == SessionStoreRedis {
		client, err := GetRedisClient(config)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return NewRedisTokenStore(logger, config, clock, client), nil
	}
	db, err := GetBoltDBClient(config)
	if err != nil {
		return nil, err
	}
	return NewBoltTokenStore(logger, &config.BoltDB, db), nil
}

// Run executes the command described by args. An interrupt or termination
// signal cancels the in-flight request.
func (app *App) Run(args []string) error {
	defer app.Clean()
	nCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := app.Execute(nCtx, args)
	if err != nil {
		app.logger.Error("command failed", zap.Strings("args", args), zap.Error(err))
		return err
	}
	app.logger.Debug("command done", zap.Strings("args", args))
	return nil
}

// Clean calls all registered cleanups functions.
func (app *App) Clean() {
	for _, f := range app.cleanups {
		if err := f(); err != nil {
			fmt.Fprintln(os.Stderr, "error during cleanup:", err)
		}
	}
	app.cleanups = nil
}
