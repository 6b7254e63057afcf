package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/logger"
	"github.com/alchemix-finance/alchemist-indexer/internal/metrics"
	"github.com/alchemix-finance/alchemist-indexer/internal/version"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	"github.com/alchemix-finance/alchemist-indexer/pkg/clients/ethereum"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractCaller/multicallCaller"
	"github.com/alchemix-finance/alchemist-indexer/pkg/fetcher"
	"github.com/alchemix-finance/alchemist-indexer/pkg/pipeline"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres/migrations"
	pgStorage "github.com/alchemix-finance/alchemist-indexer/pkg/storage/postgres"
	"github.com/alchemix-finance/alchemist-indexer/pkg/transactionLogParser"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the indexer",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.NewConfig()

		l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})
		defer l.Sync() //nolint:errcheck

		l.Sugar().Infow("alchemist-indexer run",
			zap.String("version", version.GetVersion()),
			zap.String("commit", version.GetCommit()),
			zap.String("chain", string(cfg.Chain)),
		)

		if _, err := config.ParseChain(string(cfg.Chain)); err != nil {
			l.Sugar().Fatalw("Invalid chain", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		msink, err := metrics.NewMetricsClient(cfg, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to setup metrics client", zap.Error(err))
		}
		if cfg.PrometheusConfig.Enabled {
			metrics.StartMetricsServer(cfg, l)
		}

		client, err := ethereum.NewClient(ctx, &ethereum.EthereumClientConfig{
			BaseUrl:             cfg.EthereumRpcConfig.BaseUrl,
			UseGetBlockReceipts: cfg.EthereumRpcConfig.UseGetBlockReceipts,
		}, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to connect to ethereum node", zap.Error(err))
		}

		pgConfig := postgres.PostgresConfigFromDbConfig(&cfg.DatabaseConfig)

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

		blockStore := pgStorage.NewPostgresBlockStore(grm, l, cfg)

		cc, err := multicallCaller.NewMulticallCaller(client, cfg, msink, l)
		if err != nil {
			l.Sugar().Fatalw("Failed to create contract caller", zap.Error(err))
		}

		asm := stateManager.NewAlchemistStateManager(msink, l, grm)
		if err := alchemistState.LoadAlchemistStateModels(asm, grm, cc, l, cfg); err != nil {
			l.Sugar().Fatalw("Failed to load state models", zap.Error(err))
		}

		tlp, err := transactionLogParser.NewTransactionLogParser(l, cfg)
		if err != nil {
			l.Sugar().Fatalw("Failed to create log parser", zap.Error(err))
		}

		f := fetcher.NewFetcher(client, l)

		p := pipeline.NewPipeline(f, tlp, blockStore, asm, cfg, msink, grm, l)

		if err := p.Run(ctx); err != nil && ctx.Err() == nil {
			l.Sugar().Fatalw("Pipeline exited with an error", zap.Error(err))
		}

		l.Sugar().Infow("Shutting down")
	},
}
