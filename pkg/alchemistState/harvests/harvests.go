package harvests

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/base"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/types"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractCaller"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres"
	"github.com/alchemix-finance/alchemist-indexer/pkg/shareCalculator"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"github.com/alchemix-finance/alchemist-indexer/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HarvestModel records Harvest events and distributes the post-fee yield
// pro rata across every depositor of the harvested token. Share balances and
// protocol parameters are read from the chain at the event's block, so a
// depositor's slice reflects their position at harvest time rather than at
// indexing time.
type HarvestModel struct {
	base.BaseAlchemistState
	DB             *gorm.DB
	logger         *zap.Logger
	globalConfig   *config.Config
	contractCaller contractCaller.IAlchemistCaller
}

func NewHarvestModel(
	asm *stateManager.AlchemistStateManager,
	grm *gorm.DB,
	cc contractCaller.IAlchemistCaller,
	logger *zap.Logger,
	globalConfig *config.Config,
) (*HarvestModel, error) {
	model := &HarvestModel{
		BaseAlchemistState: base.BaseAlchemistState{
			Logger: logger,
		},
		DB:             grm,
		logger:         logger,
		globalConfig:   globalConfig,
		contractCaller: cc,
	}

	asm.RegisterState(model, 2)
	return model, nil
}

func (h *HarvestModel) GetModelName() string {
	return "HarvestModel"
}

type harvestOutputData struct {
	MinimumAmountOut json.Number `json:"minimumAmountOut"`
	TotalHarvested   json.Number `json:"totalHarvested"`
	Credit           json.Number `json:"credit"`
}

func parseHarvestOutputData(outputDataStr string) (*harvestOutputData, error) {
	outputData := &harvestOutputData{}
	decoder := json.NewDecoder(strings.NewReader(outputDataStr))
	decoder.UseNumber()

	err := decoder.Decode(&outputData)
	if err != nil {
		return nil, err
	}

	return outputData, err
}

func (h *HarvestModel) getContractAddressesForEnvironment() map[string][]string {
	contracts := h.globalConfig.GetContractsMapForChain()
	interesting := make(map[string][]string)
	for _, alchemist := range contracts.Alchemists {
		interesting[alchemist] = []string{
			"Harvest",
		}
	}
	return interesting
}

func (h *HarvestModel) IsInterestingLog(log *storage.TransactionLog) bool {
	addresses := h.getContractAddressesForEnvironment()
	return h.BaseAlchemistState.IsInterestingLog(addresses, log)
}

func (h *HarvestModel) handleHarvestEvent(log *storage.TransactionLog) (*types.HarvestEvent, error) {
	arguments, err := h.ParseLogArguments(log)
	if err != nil {
		return nil, err
	}
	if len(arguments) < 1 {
		return nil, fmt.Errorf("Harvest log %s_%d is missing indexed arguments", log.TransactionHash, log.LogIndex)
	}

	yieldToken, ok := arguments[0].Value.(string)
	if !ok || yieldToken == "" {
		return nil, fmt.Errorf("Harvest log %s_%d has an invalid yieldToken argument", log.TransactionHash, log.LogIndex)
	}

	outputData, err := parseHarvestOutputData(log.OutputData)
	if err != nil {
		return nil, err
	}

	totalHarvested, success := new(big.Int).SetString(outputData.TotalHarvested.String(), 10)
	if !success {
		return nil, fmt.Errorf("Harvest log %s_%d has an unparseable totalHarvested '%s'", log.TransactionHash, log.LogIndex, outputData.TotalHarvested.String())
	}
	credit, success := new(big.Int).SetString(outputData.Credit.String(), 10)
	if !success {
		return nil, fmt.Errorf("Harvest log %s_%d has an unparseable credit '%s'", log.TransactionHash, log.LogIndex, outputData.Credit.String())
	}

	return &types.HarvestEvent{
		Id:                string(base.NewSlotID(log.TransactionHash, log.LogIndex)),
		YieldTokenAddress: strings.ToLower(yieldToken),
		TotalHarvested:    totalHarvested.String(),
		Credit:            credit.String(),
		BlockNumber:       log.BlockNumber,
		TransactionHash:   log.TransactionHash,
		LogIndex:          log.LogIndex,
		Network:           string(h.globalConfig.Chain),
	}, nil
}

func (h *HarvestModel) listDepositorsForYieldToken(tx *gorm.DB, yieldToken string) ([]*types.Depositor, error) {
	depositors := make([]*types.Depositor, 0)
	res := tx.Model(&types.Depositor{}).
		Where("yield_token_address = ? and network = ?", yieldToken, string(h.globalConfig.Chain)).
		Find(&depositors)
	if res.Error != nil {
		return nil, res.Error
	}
	return depositors, nil
}

func (h *HarvestModel) HandleTransactionLog(ctx context.Context, log *storage.TransactionLog, tx *gorm.DB) (interface{}, error) {
	event, err := h.handleHarvestEvent(log)
	if err != nil {
		return nil, err
	}

	res := tx.Model(&types.HarvestEvent{}).Create(&event)
	if res.Error != nil {
		if postgres.IsDuplicateKeyError(res.Error) {
			h.logger.Sugar().Errorw("Duplicate harvest event, log was delivered twice",
				zap.String("harvestEventId", event.Id),
				zap.Uint64("blockNumber", log.BlockNumber),
			)
		}
		return nil, res.Error
	}

	depositors, err := h.listDepositorsForYieldToken(tx, event.YieldTokenAddress)
	if err != nil {
		return nil, err
	}
	if len(depositors) == 0 {
		return event, nil
	}

	alchemist := strings.ToLower(log.Address)

	params, err := h.contractCaller.GetYieldTokenParameters(ctx, alchemist, event.YieldTokenAddress, log.BlockNumber)
	if err != nil {
		return nil, err
	}
	protocolFee, err := h.contractCaller.GetProtocolFee(ctx, alchemist, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	owners := utils.Map(depositors, func(d *types.Depositor, i uint64) string {
		return d.DepositorAddress
	})
	positions, err := h.contractCaller.GetPositions(ctx, alchemist, event.YieldTokenAddress, owners, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	totalHarvested, success := new(big.Int).SetString(event.TotalHarvested, 10)
	if !success {
		return nil, fmt.Errorf("harvest event %s has an unparseable totalHarvested '%s'", event.Id, event.TotalHarvested)
	}

	shareRecords := make([]*types.UserHarvestShare, 0, len(depositors))
	for _, depositor := range depositors {
		shares, ok := positions[depositor.DepositorAddress]
		if !ok {
			return nil, fmt.Errorf("no position returned for depositor '%s' on harvest %s", depositor.DepositorAddress, event.Id)
		}

		earnings, err := shareCalculator.HarvestEarnings(totalHarvested, protocolFee, shares, params.TotalShares, params.Decimals)
		if err != nil {
			if errors.Is(err, shareCalculator.ErrZeroTotalShares) {
				h.logger.Sugar().Warnw("Yield token has zero total shares, skipping share records",
					zap.String("harvestEventId", event.Id),
					zap.String("yieldTokenAddress", event.YieldTokenAddress),
					zap.Uint64("blockNumber", log.BlockNumber),
				)
				return event, nil
			}
			return nil, err
		}

		shareRecords = append(shareRecords, &types.UserHarvestShare{
			Id:                   uuid.New().String(),
			HarvestEventId:       event.Id,
			DepositorAddress:     depositor.DepositorAddress,
			YieldTokenAddress:    event.YieldTokenAddress,
			Shares:               shares.String(),
			TotalAlchemistShares: params.TotalShares.String(),
			Earnings:             earnings,
			BlockNumber:          log.BlockNumber,
			Network:              string(h.globalConfig.Chain),
		})
	}

	res = tx.Model(&types.UserHarvestShare{}).Create(&shareRecords)
	if res.Error != nil {
		h.logger.Sugar().Errorw("Failed to insert user harvest shares",
			zap.Error(res.Error),
			zap.String("harvestEventId", event.Id),
		)
		return nil, res.Error
	}

	for _, record := range shareRecords {
		res = tx.Model(&types.Depositor{}).
			Where("depositor_address = ? and yield_token_address = ? and network = ?",
				record.DepositorAddress, record.YieldTokenAddress, record.Network).
			Updates(map[string]interface{}{
				"total_underlying_token_earned": gorm.Expr("total_underlying_token_earned + ?", record.Earnings),
				"updated_at":                    gorm.Expr("current_timestamp"),
			})
		if res.Error != nil {
			h.logger.Sugar().Errorw("Failed to accumulate depositor earnings",
				zap.Error(res.Error),
				zap.String("depositorAddress", record.DepositorAddress),
				zap.String("harvestEventId", event.Id),
			)
			return nil, res.Error
		}
	}

	return event, nil
}

// ListUserHarvestShares returns the audit trail records for a harvest event.
func (h *HarvestModel) ListUserHarvestShares(harvestEventId string) ([]*types.UserHarvestShare, error) {
	shares := make([]*types.UserHarvestShare, 0)
	res := h.DB.Model(&types.UserHarvestShare{}).
		Where("harvest_event_id = ?", harvestEventId).
		Order("depositor_address asc").
		Find(&shares)
	if res.Error != nil {
		return nil, res.Error
	}
	return shares, nil
}
