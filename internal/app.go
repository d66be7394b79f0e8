// Package internal contains core application functionality
package internal

import (
	"fmt"

	"github.com/karloscodes/cartridge"

	"phishly/internal/config"
	"phishly/internal/database"
	"phishly/internal/jobs"
	"phishly/internal/links"
	"phishly/internal/mailer"
	"phishly/internal/pkg/geo"
)

// Application wraps cartridge.Application with the service's own components.
type Application struct {
	*cartridge.Application
	DBManager *database.DBManager
	Resolver  *geo.Resolver
}

// NewApp creates a new application instance with default settings
func NewApp() (*Application, error) {
	cfg := config.GetConfig()
	return NewAppWithConfig(cfg)
}

// NewAppWithConfig creates a new application with the provided config
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := cartridge.NewLogger(cfg, nil)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	jobsManager, err := jobs.NewScheduler(dbManager, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs: %w", err)
	}

	resolver := geo.NewResolver(cfg, logger)
	generator := links.NewGenerator(cfg, logger, mailer.NewMailer(cfg, logger))

	app, err := cartridge.NewApplication(cartridge.ApplicationOptions{
		Config:            cfg,
		Logger:            logger,
		DBManager:         dbManager,
		RouteMountFunc:    MountAppRoutes(resolver, generator),
		BackgroundWorkers: []cartridge.BackgroundWorker{jobsManager},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	return &Application{
		Application: app,
		DBManager:   dbManager,
		Resolver:    resolver,
	}, nil
}
