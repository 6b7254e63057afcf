package yieldTokens

import (
	"context"
	"fmt"
	"strings"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/base"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/types"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// YieldTokenModel registers yield tokens from AddYieldToken events. The
// insert is idempotent, so replaying a log is a no-op.
type YieldTokenModel struct {
	base.BaseAlchemistState
	DB           *gorm.DB
	logger       *zap.Logger
	globalConfig *config.Config
}

func NewYieldTokenModel(
	asm *stateManager.AlchemistStateManager,
	grm *gorm.DB,
	logger *zap.Logger,
	globalConfig *config.Config,
) (*YieldTokenModel, error) {
	model := &YieldTokenModel{
		BaseAlchemistState: base.BaseAlchemistState{
			Logger: logger,
		},
		DB:           grm,
		logger:       logger,
		globalConfig: globalConfig,
	}

	asm.RegisterState(model, 0)
	return model, nil
}

func (yt *YieldTokenModel) GetModelName() string {
	return "YieldTokenModel"
}

func (yt *YieldTokenModel) getContractAddressesForEnvironment() map[string][]string {
	contracts := yt.globalConfig.GetContractsMapForChain()
	interesting := make(map[string][]string)
	for _, alchemist := range contracts.Alchemists {
		interesting[alchemist] = []string{
			"AddYieldToken",
		}
	}
	return interesting
}

func (yt *YieldTokenModel) IsInterestingLog(log *storage.TransactionLog) bool {
	addresses := yt.getContractAddressesForEnvironment()
	return yt.BaseAlchemistState.IsInterestingLog(addresses, log)
}

func (yt *YieldTokenModel) handleAddYieldTokenEvent(log *storage.TransactionLog) (*types.YieldToken, error) {
	arguments, err := yt.ParseLogArguments(log)
	if err != nil {
		return nil, err
	}
	if len(arguments) < 1 {
		return nil, fmt.Errorf("AddYieldToken log %s_%d has no arguments", log.TransactionHash, log.LogIndex)
	}

	tokenAddress, ok := arguments[0].Value.(string)
	if !ok || tokenAddress == "" {
		return nil, fmt.Errorf("AddYieldToken log %s_%d has an invalid yieldToken argument", log.TransactionHash, log.LogIndex)
	}

	return &types.YieldToken{
		TokenAddress:    strings.ToLower(tokenAddress),
		Network:         string(yt.globalConfig.Chain),
		BlockNumber:     log.BlockNumber,
		TransactionHash: log.TransactionHash,
		LogIndex:        log.LogIndex,
	}, nil
}

func (yt *YieldTokenModel) HandleTransactionLog(ctx context.Context, log *storage.TransactionLog, tx *gorm.DB) (interface{}, error) {
	token, err := yt.handleAddYieldTokenEvent(log)
	if err != nil {
		return nil, err
	}

	res := tx.Model(&types.YieldToken{}).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token_address"}, {Name: "network"}},
			DoNothing: true,
		}).
		Create(&token)
	if res.Error != nil {
		yt.logger.Sugar().Errorw("Failed to insert yield token",
			zap.Error(res.Error),
			zap.String("tokenAddress", token.TokenAddress),
			zap.Uint64("blockNumber", log.BlockNumber),
		)
		return nil, res.Error
	}

	return token, nil
}
