package pipeline

import (
	"context"
	"math/big"
	"os"
	"testing"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/logger"
	"github.com/alchemix-finance/alchemist-indexer/internal/tests"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	stateTypes "github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/types"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractAbi"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractCaller"
	"github.com/alchemix-finance/alchemist-indexer/pkg/fetcher"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres"
	pgStorage "github.com/alchemix-finance/alchemist-indexer/pkg/storage/postgres"
	"github.com/alchemix-finance/alchemist-indexer/pkg/transactionLogParser"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
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

type fakeAlchemistCaller struct {
	params      *contractCaller.YieldTokenParams
	protocolFee *big.Int
	positions   map[string]*big.Int
	err         error
}

func (f *fakeAlchemistCaller) GetYieldTokenParameters(ctx context.Context, alchemist string, yieldToken string, blockNumber uint64) (*contractCaller.YieldTokenParams, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.params, nil
}

func (f *fakeAlchemistCaller) GetProtocolFee(ctx context.Context, alchemist string, blockNumber uint64) (*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.protocolFee, nil
}

func (f *fakeAlchemistCaller) GetPositions(ctx context.Context, alchemist string, yieldToken string, owners []string, blockNumber uint64) (map[string]*big.Int, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.positions, nil
}

// harvestBlock builds a fetched block holding one Harvest log emitted by the
// given alchemist.
func harvestBlock(t *testing.T, l *zap.Logger, blockNumber uint64, alchemist string, yieldToken string) *fetcher.FetchedBlock {
	a, err := contractAbi.AlchemistV2Abi(l)
	assert.Nil(t, err)

	event := a.Events["Harvest"]
	totalHarvested, _ := new(big.Int).SetString("1000000000000000000000", 10)
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(0), totalHarvested, big.NewInt(42))
	assert.Nil(t, err)

	txHash := common.HexToHash("0xeee5000000000000000000000000000000000000000000000000000000000005")
	block := types.NewBlockWithHeader(&types.Header{
		Number: new(big.Int).SetUint64(blockNumber),
		Time:   1700000000,
	})
	receipt := &types.Receipt{
		TxHash:           txHash,
		TransactionIndex: 0,
		BlockNumber:      new(big.Int).SetUint64(blockNumber),
		Logs: []*types.Log{
			{
				Address: common.HexToAddress(alchemist),
				Topics: []common.Hash{
					event.ID,
					common.BytesToHash(common.HexToAddress(yieldToken).Bytes()),
				},
				Data:   data,
				Index:  7,
				TxHash: txHash,
			},
		},
	}

	return &fetcher.FetchedBlock{
		Block:    block,
		Receipts: []*types.Receipt{receipt},
	}
}

func Test_Pipeline(t *testing.T) {
	dbName, grm, l, cfg, err := setup()

	if err != nil {
		t.Fatal(err)
	}

	alchemist := cfg.GetContractsMapForChain().Alchemists[0]
	yieldToken := "0xa354f35829ae975e850e23e9615b11da1b3dc4de"
	depositor := "0x1000000000000000000000000000000000000001"
	blockNumber := uint64(14280000)

	row := &stateTypes.Depositor{
		DepositorAddress:  depositor,
		YieldTokenAddress: yieldToken,
		Network:           "mainnet",
		YieldTokenAmount:  "300",
	}
	if err := grm.Model(&stateTypes.Depositor{}).Create(&row).Error; err != nil {
		t.Fatal(err)
	}

	caller := &fakeAlchemistCaller{
		err: errors.New("rpc timeout"),
	}

	asm := stateManager.NewAlchemistStateManager(nil, l, grm)
	if err := alchemistState.LoadAlchemistStateModels(asm, grm, caller, l, cfg); err != nil {
		t.Fatal(err)
	}

	tlp, err := transactionLogParser.NewTransactionLogParser(l, cfg)
	assert.Nil(t, err)

	blockStore := pgStorage.NewPostgresBlockStore(grm, l, cfg)
	p := NewPipeline(nil, tlp, blockStore, asm, cfg, nil, grm, l)

	block := harvestBlock(t, l, blockNumber, alchemist, yieldToken)

	t.Run("Should leave no trace of a block whose handler fails", func(t *testing.T) {
		err := p.RunForFetchedBlock(context.Background(), block)
		assert.NotNil(t, err)

		count := -1
		res := grm.Raw(`select count(*) from blocks`).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 0, count)

		res = grm.Raw(`select count(*) from transaction_logs`).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 0, count)

		res = grm.Raw(`select count(*) from harvest_events`).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 0, count)
	})

	t.Run("Should resume at the failed block after a restart", func(t *testing.T) {
		start, err := p.getStartBlock()
		assert.Nil(t, err)
		assert.Equal(t, cfg.GetGenesisBlockNumber(), start)
	})

	t.Run("Should index the block fully once the fetch succeeds", func(t *testing.T) {
		caller.err = nil
		caller.params = &contractCaller.YieldTokenParams{
			Decimals:    18,
			TotalShares: big.NewInt(300),
			Enabled:     true,
		}
		caller.protocolFee = big.NewInt(1000)
		caller.positions = map[string]*big.Int{
			depositor: big.NewInt(300),
		}

		err := p.RunForFetchedBlock(context.Background(), block)
		assert.Nil(t, err)

		count := -1
		res := grm.Raw(`select count(*) from blocks where number = ?`, blockNumber).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 1, count)

		res = grm.Raw(`select count(*) from transaction_logs where block_number = ?`, blockNumber).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 1, count)

		var share stateTypes.UserHarvestShare
		res = grm.Raw(`select * from user_harvest_shares where depositor_address = ?`, depositor).Scan(&share)
		assert.Nil(t, res.Error)
		assert.InDelta(t, 900.0, share.Earnings, 1e-9)

		var earned float64
		res = grm.Raw(`select total_underlying_token_earned from depositors where depositor_address = ?`, depositor).Scan(&earned)
		assert.Nil(t, res.Error)
		assert.InDelta(t, 900.0, earned, 1e-9)

		start, err := p.getStartBlock()
		assert.Nil(t, err)
		assert.Equal(t, blockNumber+1, start)
	})

	t.Cleanup(func() {
		postgres.TeardownTestDatabase(dbName, cfg, grm, l)
	})
}
