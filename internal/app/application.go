// Package app wires the components together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"swipee/internal/api"
	"swipee/internal/channel"
	"swipee/internal/config"
	"swipee/internal/database"
	"swipee/internal/engine"
	"swipee/internal/outbox"
	dbconfig "swipee/pkg/database"
)

// Application holds every component. Initialization follows dependency
// order: Store → Broker → Engine → Outbox → API → HTTP.
type Application struct {
	config     *config.Config
	store      *database.Store
	broker     *channel.Broker
	engine     *engine.Engine
	outbox     *outbox.Outbox
	apiServer  *api.Server
	httpServer *http.Server
}

func NewApplication(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := database.NewStore(&dbconfig.Config{
		DatabasePath:    cfg.Database.Path,
		MaxConnections:  cfg.Database.MaxConnections,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	broker := channel.NewBroker(channel.BrokerConfig{
		BufferSize:   cfg.Channel.BufferSize,
		PingInterval: cfg.Channel.PingInterval,
		ReadTimeout:  cfg.Channel.ReadTimeout,
		WriteTimeout: cfg.Channel.WriteTimeout,
	})

	gameEngine := engine.New(store, engine.WithPublisher(broker, cfg.Channel.Namespace))

	scoreOutbox := outbox.New(gameEngine, outbox.Config{
		QueueSize:   cfg.Outbox.QueueSize,
		MaxAttempts: cfg.Outbox.MaxAttempts,
		RetryDelay:  cfg.Outbox.RetryDelay,
	})

	apiServer := api.NewServer(gameEngine, store, broker, scoreOutbox)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      apiServer,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		config:     cfg,
		store:      store,
		broker:     broker,
		engine:     gameEngine,
		outbox:     scoreOutbox,
		apiServer:  apiServer,
		httpServer: httpServer,
	}, nil
}

// Start launches the outbox drain loop and the HTTP server, returning
// once the server is accepting connections.
func (app *Application) Start(ctx context.Context) error {
	log.Printf("Starting swipee on %s", app.httpServer.Addr)

	app.outbox.Start(ctx)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		app.outbox.Close()
		return err
	case <-time.After(100 * time.Millisecond):
		log.Printf("Started: addr=%s namespace=%s", app.httpServer.Addr, app.config.Channel.Namespace)
		return nil
	case <-ctx.Done():
		app.outbox.Close()
		return ctx.Err()
	}
}

// Stop shuts components down in reverse dependency order:
// HTTP → Broker → Outbox → Store. The outbox flushes queued scores
// before the store closes.
func (app *Application) Stop(ctx context.Context) error {
	log.Printf("Shutting down swipee")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: err=%v", err)
	}
	if err := app.broker.Close(); err != nil {
		log.Printf("Broker shutdown error: err=%v", err)
	}
	if err := app.outbox.Close(); err != nil {
		log.Printf("Outbox shutdown error: err=%v", err)
	}
	if err := app.store.Close(); err != nil {
		log.Printf("Store shutdown error: err=%v", err)
	}

	log.Printf("Shutdown complete")
	return nil
}

// Addr returns the HTTP listen address.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}
