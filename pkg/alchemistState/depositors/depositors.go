package depositors

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
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

// DepositorModel maintains the running position of each user in each yield
// token from Deposit events. A first deposit creates the row; later deposits
// add to the accumulated amount in the database, not in handler memory.
type DepositorModel struct {
	base.BaseAlchemistState
	DB           *gorm.DB
	logger       *zap.Logger
	globalConfig *config.Config
}

func NewDepositorModel(
	asm *stateManager.AlchemistStateManager,
	grm *gorm.DB,
	logger *zap.Logger,
	globalConfig *config.Config,
) (*DepositorModel, error) {
	model := &DepositorModel{
		BaseAlchemistState: base.BaseAlchemistState{
			Logger: logger,
		},
		DB:           grm,
		logger:       logger,
		globalConfig: globalConfig,
	}

	asm.RegisterState(model, 1)
	return model, nil
}

func (d *DepositorModel) GetModelName() string {
	return "DepositorModel"
}

type depositOutputData struct {
	Amount    json.Number `json:"amount"`
	Recipient string      `json:"recipient"`
}

func parseDepositOutputData(outputDataStr string) (*depositOutputData, error) {
	outputData := &depositOutputData{}
	decoder := json.NewDecoder(strings.NewReader(outputDataStr))
	decoder.UseNumber()

	err := decoder.Decode(&outputData)
	if err != nil {
		return nil, err
	}

	return outputData, err
}

func (d *DepositorModel) getContractAddressesForEnvironment() map[string][]string {
	contracts := d.globalConfig.GetContractsMapForChain()
	interesting := make(map[string][]string)
	for _, alchemist := range contracts.Alchemists {
		interesting[alchemist] = []string{
			"Deposit",
		}
	}
	return interesting
}

func (d *DepositorModel) IsInterestingLog(log *storage.TransactionLog) bool {
	addresses := d.getContractAddressesForEnvironment()
	return d.BaseAlchemistState.IsInterestingLog(addresses, log)
}

func (d *DepositorModel) handleDepositEvent(log *storage.TransactionLog) (*types.Depositor, error) {
	arguments, err := d.ParseLogArguments(log)
	if err != nil {
		return nil, err
	}
	if len(arguments) < 2 {
		return nil, fmt.Errorf("Deposit log %s_%d is missing indexed arguments", log.TransactionHash, log.LogIndex)
	}

	sender, ok := arguments[0].Value.(string)
	if !ok || sender == "" {
		return nil, fmt.Errorf("Deposit log %s_%d has an invalid sender argument", log.TransactionHash, log.LogIndex)
	}
	yieldToken, ok := arguments[1].Value.(string)
	if !ok || yieldToken == "" {
		return nil, fmt.Errorf("Deposit log %s_%d has an invalid yieldToken argument", log.TransactionHash, log.LogIndex)
	}

	outputData, err := parseDepositOutputData(log.OutputData)
	if err != nil {
		return nil, err
	}

	amount, success := new(big.Int).SetString(outputData.Amount.String(), 10)
	if !success {
		return nil, fmt.Errorf("Deposit log %s_%d has an unparseable amount '%s'", log.TransactionHash, log.LogIndex, outputData.Amount.String())
	}

	return &types.Depositor{
		DepositorAddress:  strings.ToLower(sender),
		YieldTokenAddress: strings.ToLower(yieldToken),
		Network:           string(d.globalConfig.Chain),
		YieldTokenAmount:  amount.String(),
	}, nil
}

func (d *DepositorModel) HandleTransactionLog(ctx context.Context, log *storage.TransactionLog, tx *gorm.DB) (interface{}, error) {
	depositor, err := d.handleDepositEvent(log)
	if err != nil {
		return nil, err
	}

	// The accumulation runs inside the database so that two handlers
	// touching the same row can never lose an update.
	res := tx.Model(&types.Depositor{}).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "depositor_address"},
				{Name: "yield_token_address"},
				{Name: "network"},
			},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"yield_token_amount": gorm.Expr("depositors.yield_token_amount + ?::numeric", depositor.YieldTokenAmount),
				"updated_at":         gorm.Expr("current_timestamp"),
			}),
		}).
		Create(&depositor)
	if res.Error != nil {
		d.logger.Sugar().Errorw("Failed to upsert depositor",
			zap.Error(res.Error),
			zap.String("depositorAddress", depositor.DepositorAddress),
			zap.String("yieldTokenAddress", depositor.YieldTokenAddress),
			zap.Uint64("blockNumber", log.BlockNumber),
		)
		return nil, res.Error
	}

	return depositor, nil
}
