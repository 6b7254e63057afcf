package yieldTokens

import (
	"context"
	"os"
	"testing"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/logger"
	"github.com/alchemix-finance/alchemist-indexer/internal/tests"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/types"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setup() (
	string,
	*gorm.DB,
	*zap.Logger,
	*config.Config,
	error,
) {
	cfg := config.NewConfig()
	cfg.Debug = os.Getenv(config.Debug) == "true"
	cfg.Chain = config.Chain_Mainnet
	cfg.DatabaseConfig = *tests.GetDbConfigFromEnv()

	l, _ := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Debug})

	dbname, _, grm, err := postgres.GetTestPostgresDatabase(cfg.DatabaseConfig, cfg, l)
	if err != nil {
		return dbname, nil, nil, nil, err
	}

	return dbname, grm, l, cfg, nil
}

func Test_YieldTokens(t *testing.T) {
	dbName, grm, l, cfg, err := setup()

	if err != nil {
		t.Fatal(err)
	}

	asm := stateManager.NewAlchemistStateManager(nil, l, grm)

	model, err := NewYieldTokenModel(asm, grm, l, cfg)
	assert.Nil(t, err)

	alchemist := cfg.GetContractsMapForChain().Alchemists[0]

	log := &storage.TransactionLog{
		TransactionHash: "0x6cd797a3a59a67c8ee209a87cf4659fddb8a8bd5e131ea3f05de0643cfae1a05",
		BlockNumber:     uint64(14265600),
		Address:         alchemist,
		Arguments:       `[{"Name": "yieldToken", "Type": "address", "Value": "0xa354F35829Ae975e850e23e9615b11Da1B3dC4DE", "Indexed": true}]`,
		EventName:       "AddYieldToken",
		LogIndex:        uint64(4),
		OutputData:      `{}`,
	}

	t.Run("Should recognize AddYieldToken logs from an alchemist", func(t *testing.T) {
		assert.True(t, model.IsInterestingLog(log))

		otherEvent := *log
		otherEvent.EventName = "Deposit"
		assert.False(t, model.IsInterestingLog(&otherEvent))

		otherAddress := *log
		otherAddress.Address = "0x1111111111111111111111111111111111111111"
		assert.False(t, model.IsInterestingLog(&otherAddress))
	})

	t.Run("Should insert a yield token", func(t *testing.T) {
		change, err := model.HandleTransactionLog(context.Background(), log, grm)
		assert.Nil(t, err)
		assert.NotNil(t, change)

		token := change.(*types.YieldToken)
		assert.Equal(t, "0xa354f35829ae975e850e23e9615b11da1b3dc4de", token.TokenAddress)
		assert.Equal(t, "mainnet", token.Network)

		tokens := make([]*types.YieldToken, 0)
		res := grm.Raw(`select * from yield_tokens`).Scan(&tokens)
		assert.Nil(t, res.Error)
		assert.Equal(t, 1, len(tokens))
	})

	t.Run("Should ignore a replayed AddYieldToken log", func(t *testing.T) {
		_, err := model.HandleTransactionLog(context.Background(), log, grm)
		assert.Nil(t, err)

		tokens := make([]*types.YieldToken, 0)
		res := grm.Raw(`select * from yield_tokens`).Scan(&tokens)
		assert.Nil(t, res.Error)
		assert.Equal(t, 1, len(tokens))
	})

	t.Cleanup(func() {
		postgres.TeardownTestDatabase(dbName, cfg, grm, l)
	})
}
