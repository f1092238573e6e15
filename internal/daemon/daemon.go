// Package daemon wires the store, translation client, poller and HTTP
// surface into one runtime.
package daemon

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yangguang01/vibesub/internal/api"
	"github.com/yangguang01/vibesub/internal/auth"
	"github.com/yangguang01/vibesub/internal/clock"
	"github.com/yangguang01/vibesub/internal/command"
	"github.com/yangguang01/vibesub/internal/config"
	"github.com/yangguang01/vibesub/internal/remote"
	"github.com/yangguang01/vibesub/internal/store"
	"github.com/yangguang01/vibesub/internal/task"
)

// Daemon holds every engine component.
type Daemon struct {
	Config     *config.Config
	Store      *store.Store
	Client     *remote.Client
	Hub        *task.Hub
	Poller     *task.Poller
	Manager    *task.Manager
	Dispatcher *command.Dispatcher
	JWT        *auth.JWTService
}

// New opens the configured store and wires the engine on the wall clock.
func New(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	if cfg.Store.Backend == "" || cfg.Store.Backend == "sqlite" {
		if err := os.MkdirAll(cfg.Store.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	st, err := store.Open(ctx, store.Options{
		Backend:   cfg.Store.Backend,
		Driver:    cfg.Store.Driver,
		Path:      cfg.Store.DBPath,
		RedisAddr: cfg.Store.RedisAddr,
		RedisTTL:  cfg.Store.RedisTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// A credential saved through the settings API wins over the config file.
	session := st.Setting(ctx, task.SettingSessionCookie, cfg.Remote.SessionCookie)
	client := remote.NewClient(cfg.Remote.BaseURL, session)
	if session == "" {
		log.Printf("[daemon] WARNING: no session cookie configured, submissions will be rejected until one is set")
	}

	hub := task.NewHub()
	poller := task.NewPoller(task.Config{
		FirstCheckDelay: cfg.Poll.FirstCheckDelay,
		Interval:        cfg.Poll.Interval,
		MaxPolls:        cfg.Poll.MaxPolls,
		MaxErrors:       cfg.Poll.MaxErrors,
	}, task.NewRegistry(), client, st, hub, clock.Real{})
	manager := task.NewManager(poller, client, st, cfg.Submit.DefaultLanguage)

	return &Daemon{
		Config:     cfg,
		Store:      st,
		Client:     client,
		Hub:        hub,
		Poller:     poller,
		Manager:    manager,
		Dispatcher: command.NewDispatcher(manager, poller),
		JWT:        auth.NewJWTService(cfg.Server.JWTSecret),
	}, nil
}

// Handler builds the HTTP router over the daemon's components.
func (d *Daemon) Handler(version string) http.Handler {
	return api.NewRouter(api.Deps{
		Config:          d.Config,
		JWT:             d.JWT,
		Store:           d.Store,
		Poller:          d.Poller,
		Hub:             d.Hub,
		Dispatcher:      d.Dispatcher,
		Version:         version,
		OnSettingChange: d.settingChanged,
	})
}

func (d *Daemon) settingChanged(key, value string) {
	if key == task.SettingSessionCookie {
		d.Client.SetSession(value)
		log.Printf("[daemon] session cookie updated")
	}
}

// Serve starts the HTTP server and blocks until ctx is done or a signal
// arrives.
func (d *Daemon) Serve(ctx context.Context, version string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", d.Config.Server.Host, d.Config.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           d.Handler(version),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		// No WriteTimeout: /api/events streams indefinitely.
	}

	// Graceful shutdown on signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case <-sigCh:
			log.Println("[daemon] shutting down...")
		case <-ctx.Done():
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		d.Poller.Shutdown()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("[daemon] vibesub %s serving on http://%s", version, addr)
	log.Printf("[daemon] store: %s, translation service: %s", d.Config.Store.Backend, d.Config.Remote.BaseURL)

	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close stops polling and releases the store.
func (d *Daemon) Close() error {
	d.Poller.Shutdown()
	return d.Store.Close()
}
