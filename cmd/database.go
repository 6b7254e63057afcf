package cmd

import (
	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/logger"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runDatabaseCmd = &cobra.Command{
	Use:   "database",
	Short: "Create the configured database if needed and run all migrations",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		defer l.Sync() //nolint:errcheck

		pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)
		pgConfig.CreateDbIfNotExists = true

		pg, err := postgres.NewPostgres(pgConfig)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup postgres connection", zap.Error(err))
		}

		grm, err := postgres.NewGormFromPostgresConnection(pg.Db)
		if err != nil {
			l.Sugar().Fatalw("Failed to create gorm instance", zap.Error(err))
		}

		migrator := migrations.NewMigrator(pg.Db, grm, l, cfg)
		if err := migrator.MigrateAll(); err != nil {
			l.Sugar().Fatalw("Failed to run database migrations", zap.Error(err))
		}

		l.Sugar().Infow("Database is up to date",
			zap.String("database", cfg.DatabaseConfig.DbName),
		)
	},
}
