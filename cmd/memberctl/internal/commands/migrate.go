package commands

import (
	"context"
	"fmt"

	"github.com/upb/membership-backend/config"
	"github.com/upb/membership-backend/repositories/postgres"
	"go.uber.org/zap"
)

type MigrateCmd struct {
	Direction string `arg:"" enum:"up,down" default:"up" help:"Migration direction (up or down)"`
}

func (m *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	logger, err := globals.Logger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info("running migrations",
		zap.String("direction", m.Direction),
		zap.String("database", cfg.Database.LogString()))

	return postgres.Migrate(cfg.Database.DSN(), m.Direction, logger)
}
