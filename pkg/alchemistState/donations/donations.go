package donations

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

// DonationModel records Donate events and distributes the burned debt tokens
// pro rata across every depositor of the yield token. Unlike harvests there
// is no protocol fee, and the burned amount is always an 18-decimal debt
// token regardless of the yield token's own precision.
type DonationModel struct {
	base.BaseAlchemistState
	DB             *gorm.DB
	logger         *zap.Logger
	globalConfig   *config.Config
	contractCaller contractCaller.IAlchemistCaller
}

func NewDonationModel(
	asm *stateManager.AlchemistStateManager,
	grm *gorm.DB,
	cc contractCaller.IAlchemistCaller,
	logger *zap.Logger,
	globalConfig *config.Config,
) (*DonationModel, error) {
	model := &DonationModel{
		BaseAlchemistState: base.BaseAlchemistState{
			Logger: logger,
		},
		DB:             grm,
		logger:         logger,
		globalConfig:   globalConfig,
		contractCaller: cc,
	}

	asm.RegisterState(model, 3)
	return model, nil
}

func (d *DonationModel) GetModelName() string {
	return "DonationModel"
}

type donateOutputData struct {
	Amount json.Number `json:"amount"`
}

func parseDonateOutputData(outputDataStr string) (*donateOutputData, error) {
	outputData := &donateOutputData{}
	decoder := json.NewDecoder(strings.NewReader(outputDataStr))
	decoder.UseNumber()

	err := decoder.Decode(&outputData)
	if err != nil {
		return nil, err
	}

	return outputData, err
}

func (d *DonationModel) getContractAddressesForEnvironment() map[string][]string {
	contracts := d.globalConfig.GetContractsMapForChain()
	interesting := make(map[string][]string)
	for _, alchemist := range contracts.Alchemists {
		interesting[alchemist] = []string{
			"Donate",
		}
	}
	return interesting
}

func (d *DonationModel) IsInterestingLog(log *storage.TransactionLog) bool {
	addresses := d.getContractAddressesForEnvironment()
	return d.BaseAlchemistState.IsInterestingLog(addresses, log)
}

func (d *DonationModel) handleDonateEvent(log *storage.TransactionLog) (*types.DonateEvent, error) {
	arguments, err := d.ParseLogArguments(log)
	if err != nil {
		return nil, err
	}
	if len(arguments) < 2 {
		return nil, fmt.Errorf("Donate log %s_%d is missing indexed arguments", log.TransactionHash, log.LogIndex)
	}

	sender, ok := arguments[0].Value.(string)
	if !ok || sender == "" {
		return nil, fmt.Errorf("Donate log %s_%d has an invalid sender argument", log.TransactionHash, log.LogIndex)
	}
	yieldToken, ok := arguments[1].Value.(string)
	if !ok || yieldToken == "" {
		return nil, fmt.Errorf("Donate log %s_%d has an invalid yieldToken argument", log.TransactionHash, log.LogIndex)
	}

	outputData, err := parseDonateOutputData(log.OutputData)
	if err != nil {
		return nil, err
	}

	amount, success := new(big.Int).SetString(outputData.Amount.String(), 10)
	if !success {
		return nil, fmt.Errorf("Donate log %s_%d has an unparseable amount '%s'", log.TransactionHash, log.LogIndex, outputData.Amount.String())
	}

	return &types.DonateEvent{
		Id:                string(base.NewSlotID(log.TransactionHash, log.LogIndex)),
		SenderAddress:     strings.ToLower(sender),
		YieldTokenAddress: strings.ToLower(yieldToken),
		DebtTokensBurned:  amount.String(),
		BlockNumber:       log.BlockNumber,
		TransactionHash:   log.TransactionHash,
		LogIndex:          log.LogIndex,
		Network:           string(d.globalConfig.Chain),
	}, nil
}

func (d *DonationModel) listDepositorsForYieldToken(tx *gorm.DB, yieldToken string) ([]*types.Depositor, error) {
	depositors := make([]*types.Depositor, 0)
	res := tx.Model(&types.Depositor{}).
		Where("yield_token_address = ? and network = ?", yieldToken, string(d.globalConfig.Chain)).
		Find(&depositors)
	if res.Error != nil {
		return nil, res.Error
	}
	return depositors, nil
}

func (d *DonationModel) HandleTransactionLog(ctx context.Context, log *storage.TransactionLog, tx *gorm.DB) (interface{}, error) {
	event, err := d.handleDonateEvent(log)
	if err != nil {
		return nil, err
	}

	res := tx.Model(&types.DonateEvent{}).Create(&event)
	if res.Error != nil {
		if postgres.IsDuplicateKeyError(res.Error) {
			d.logger.Sugar().Errorw("Duplicate donate event, log was delivered twice",
				zap.String("donateEventId", event.Id),
				zap.Uint64("blockNumber", log.BlockNumber),
			)
		}
		return nil, res.Error
	}

	depositors, err := d.listDepositorsForYieldToken(tx, event.YieldTokenAddress)
	if err != nil {
		return nil, err
	}
	if len(depositors) == 0 {
		return event, nil
	}

	alchemist := strings.ToLower(log.Address)

	params, err := d.contractCaller.GetYieldTokenParameters(ctx, alchemist, event.YieldTokenAddress, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	owners := utils.Map(depositors, func(dep *types.Depositor, i uint64) string {
		return dep.DepositorAddress
	})
	positions, err := d.contractCaller.GetPositions(ctx, alchemist, event.YieldTokenAddress, owners, log.BlockNumber)
	if err != nil {
		return nil, err
	}

	debtTokensBurned, success := new(big.Int).SetString(event.DebtTokensBurned, 10)
	if !success {
		return nil, fmt.Errorf("donate event %s has an unparseable debtTokensBurned '%s'", event.Id, event.DebtTokensBurned)
	}

	shareRecords := make([]*types.UserDonateShare, 0, len(depositors))
	for _, depositor := range depositors {
		shares, ok := positions[depositor.DepositorAddress]
		if !ok {
			return nil, fmt.Errorf("no position returned for depositor '%s' on donation %s", depositor.DepositorAddress, event.Id)
		}

		donation, err := shareCalculator.DonationShare(debtTokensBurned, shares, params.TotalShares)
		if err != nil {
			if errors.Is(err, shareCalculator.ErrZeroTotalShares) {
				d.logger.Sugar().Warnw("Yield token has zero total shares, skipping share records",
					zap.String("donateEventId", event.Id),
					zap.String("yieldTokenAddress", event.YieldTokenAddress),
					zap.Uint64("blockNumber", log.BlockNumber),
				)
				return event, nil
			}
			return nil, err
		}

		shareRecords = append(shareRecords, &types.UserDonateShare{
			Id:                   uuid.New().String(),
			DonateEventId:        event.Id,
			DepositorAddress:     depositor.DepositorAddress,
			YieldTokenAddress:    event.YieldTokenAddress,
			Shares:               shares.String(),
			TotalAlchemistShares: params.TotalShares.String(),
			DonationReceived:     donation,
			BlockNumber:          log.BlockNumber,
			Network:              string(d.globalConfig.Chain),
		})
	}

	res = tx.Model(&types.UserDonateShare{}).Create(&shareRecords)
	if res.Error != nil {
		d.logger.Sugar().Errorw("Failed to insert user donate shares",
			zap.Error(res.Error),
			zap.String("donateEventId", event.Id),
		)
		return nil, res.Error
	}

	for _, record := range shareRecords {
		res = tx.Model(&types.Depositor{}).
			Where("depositor_address = ? and yield_token_address = ? and network = ?",
				record.DepositorAddress, record.YieldTokenAddress, record.Network).
			Updates(map[string]interface{}{
				"total_donation_received": gorm.Expr("total_donation_received + ?", record.DonationReceived),
				"updated_at":              gorm.Expr("current_timestamp"),
			})
		if res.Error != nil {
			d.logger.Sugar().Errorw("Failed to accumulate depositor donations",
				zap.Error(res.Error),
				zap.String("depositorAddress", record.DepositorAddress),
				zap.String("donateEventId", event.Id),
			)
			return nil, res.Error
		}
	}

	return event, nil
}

// ListUserDonateShares returns the audit trail records for a donate event.
func (d *DonationModel) ListUserDonateShares(donateEventId string) ([]*types.UserDonateShare, error) {
	shares := make([]*types.UserDonateShare, 0)
	res := d.DB.Model(&types.UserDonateShare{}).
		Where("donate_event_id = ?", donateEventId).
		Order("depositor_address asc").
		Find(&shares)
	if res.Error != nil {
		return nil, res.Error
	}
	return shares, nil
}
