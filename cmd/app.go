package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kozaktomas/attendance/internal/attendance"
	"github.com/kozaktomas/attendance/internal/config"
	"github.com/kozaktomas/attendance/internal/database"
	"github.com/kozaktomas/attendance/internal/database/postgres"
	"github.com/kozaktomas/attendance/internal/users"
)

// loadConfig loads the configuration and applies the --data-dir flag.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if dataDir != "" {
		cfg.Storage.DataDir = dataDir
	}
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return cfg, nil
}

// app is an opened attendance service running in the background.
type app struct {
	cfg  *config.Config
	svc  *attendance.Service
	pool *postgres.Pool

	cancel context.CancelFunc
	done   chan struct{}
}

// openApp opens the stores and starts the service. When DATABASE_URL is set
// the database mirror is attached; a database that cannot be reached only
// prints a warning.
func openApp(cfg *config.Config) (*app, error) {
	svc, err := attendance.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening attendance data: %w", err)
	}

	a := &app{cfg: cfg, svc: svc, done: make(chan struct{})}
	if cfg.Database.URL != "" {
		if err := a.attachDatabase(); err != nil {
			fmt.Printf("Warning: database mirror disabled: %v\n", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	go func() {
		defer close(a.done)
		svc.Run(ctx)
	}()
	return a, nil
}

// startApp loads the configuration and opens the service.
func startApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openApp(cfg)
}

func (a *app) attachDatabase() error {
	pool, err := postgres.Initialize(&a.cfg.Database)
	if err != nil {
		return err
	}
	ctx := context.Background()
	mirror, err := database.GetMirror(ctx)
	if err != nil {
		pool.Close()
		return err
	}
	templates, err := database.GetTemplateStore(ctx)
	if err != nil {
		pool.Close()
		return err
	}
	a.pool = pool
	a.svc.UseDatabase(mirror, templates)
	return nil
}

// requireDatabase fails when the mirror is not attached.
func (a *app) requireDatabase() error {
	if a.pool == nil {
		if a.cfg.Database.URL == "" {
			return errors.New("DATABASE_URL environment variable is required")
		}
		return database.ErrNotInitialized
	}
	return nil
}

// Close stops the service and closes the database.
func (a *app) Close() {
	a.cancel()
	<-a.done
	if a.pool != nil {
		a.pool.Close()
	}
}

// openUsers opens the login accounts, seeding the defaults on first run.
func openUsers(cfg *config.Config) (*users.Store, error) {
	seed := make([]users.Account, len(cfg.Seed.Users))
	for i, u := range cfg.Seed.Users {
		seed[i] = users.Account{Username: u.Username, Password: u.Password, Role: u.Role, Name: u.Name}
	}
	store, err := users.Open(cfg.Storage.UsersPath(), seed)
	if err != nil {
		return nil, fmt.Errorf("opening users: %w", err)
	}
	return store, nil
}
