package alchemistState

import (
	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/depositors"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/donations"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/harvests"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/yieldTokens"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractCaller"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// LoadAlchemistStateModels registers every state model with the manager.
// Registration order matters: harvest and donation handlers read the
// depositor rows the deposit handler writes.
func LoadAlchemistStateModels(
	asm *stateManager.AlchemistStateManager,
	grm *gorm.DB,
	cc contractCaller.IAlchemistCaller,
	l *zap.Logger,
	cfg *config.Config,
) error {
	if _, err := yieldTokens.NewYieldTokenModel(asm, grm, l, cfg); err != nil {
		l.Sugar().Errorw("Failed to create YieldTokenModel", zap.Error(err))
		return err
	}
	if _, err := depositors.NewDepositorModel(asm, grm, l, cfg); err != nil {
		l.Sugar().Errorw("Failed to create DepositorModel", zap.Error(err))
		return err
	}
	if _, err := harvests.NewHarvestModel(asm, grm, cc, l, cfg); err != nil {
		l.Sugar().Errorw("Failed to create HarvestModel", zap.Error(err))
		return err
	}
	if _, err := donations.NewDonationModel(asm, grm, cc, l, cfg); err != nil {
		l.Sugar().Errorw("Failed to create DonationModel", zap.Error(err))
		return err
	}

	return nil
}
