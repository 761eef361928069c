package commands

import (
	"context"
	"fmt"

	"github.com/upb/membership-backend/auth"
	"github.com/upb/membership-backend/config"
	"github.com/upb/membership-backend/repositories"
	"github.com/upb/membership-backend/repositories/postgres"
	"go.uber.org/zap"
)

type Globals struct {
	Debug   bool
	Version string
}

// Logger returns a console logger honouring --debug
func (g *Globals) Logger() (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	if !g.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// store is an open database plus everything the commands need on top of it
type store struct {
	cfg     *config.Config
	factory *postgres.RepositoryFactory
	repos   *repositories.Repositories
	tx      repositories.TransactionManager
	logger  *zap.Logger
}

func openStore(ctx context.Context, globals *Globals) (*store, error) {
	logger, err := globals.Logger()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	cfg, err := config.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	factory, err := postgres.NewRepositoryFactory(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &store{
		cfg:     cfg,
		factory: factory,
		repos:   factory.NewRepositories(),
		tx:      factory.GetTransactionManager(),
		logger:  logger,
	}, nil
}

func (s *store) seeder() *Seeder {
	return NewSeeder(s.repos, s.tx, auth.NewHasher(s.cfg.Auth.BcryptCost), s.logger)
}

func (s *store) Close() {
	_ = s.factory.Close()
	_ = s.logger.Sync()
}
