package harvests

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"testing"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/logger"
	"github.com/alchemix-finance/alchemist-indexer/internal/tests"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/depositors"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/donations"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/stateManager"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/types"
	"github.com/alchemix-finance/alchemist-indexer/pkg/contractCaller"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
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

func createDepositor(grm *gorm.DB, depositor string, yieldToken string, amount string) error {
	row := &types.Depositor{
		DepositorAddress:  depositor,
		YieldTokenAddress: yieldToken,
		Network:           "mainnet",
		YieldTokenAmount:  amount,
	}
	return grm.Model(&types.Depositor{}).Create(&row).Error
}

func harvestLog(alchemist string, yieldToken string, txHash string, logIndex uint64) *storage.TransactionLog {
	return &storage.TransactionLog{
		TransactionHash: txHash,
		BlockNumber:     uint64(14280000),
		Address:         alchemist,
		Arguments:       `[{"Name": "yieldToken", "Type": "address", "Value": "` + yieldToken + `", "Indexed": true}, {"Name": "minimumAmountOut", "Type": "uint256", "Value": null, "Indexed": false}, {"Name": "totalHarvested", "Type": "uint256", "Value": null, "Indexed": false}, {"Name": "credit", "Type": "uint256", "Value": null, "Indexed": false}]`,
		EventName:       "Harvest",
		LogIndex:        logIndex,
		OutputData:      `{"minimumAmountOut": 0, "totalHarvested": 1000000000000000000000, "credit": 42}`,
	}
}

func Test_Harvests(t *testing.T) {
	dbName, grm, l, cfg, err := setup()

	if err != nil {
		t.Fatal(err)
	}

	alchemist := cfg.GetContractsMapForChain().Alchemists[0]
	yieldToken := "0xa354f35829ae975e850e23e9615b11da1b3dc4de"

	depositorA := "0x1000000000000000000000000000000000000001"
	depositorB := "0x2000000000000000000000000000000000000002"

	if err := createDepositor(grm, depositorA, yieldToken, "300"); err != nil {
		t.Fatal(err)
	}
	if err := createDepositor(grm, depositorB, yieldToken, "700"); err != nil {
		t.Fatal(err)
	}

	t.Run("Should distribute the post-fee harvest across depositors", func(t *testing.T) {
		caller := &fakeAlchemistCaller{
			params: &contractCaller.YieldTokenParams{
				Decimals:    18,
				TotalShares: big.NewInt(1000),
				Enabled:     true,
			},
			protocolFee: big.NewInt(1000),
			positions: map[string]*big.Int{
				depositorA: big.NewInt(300),
				depositorB: big.NewInt(700),
			},
		}

		asm := stateManager.NewAlchemistStateManager(nil, l, grm)
		model, err := NewHarvestModel(asm, grm, caller, l, cfg)
		assert.Nil(t, err)

		log := harvestLog(alchemist, yieldToken, "0xaaa1000000000000000000000000000000000000000000000000000000000001", 7)
		assert.True(t, model.IsInterestingLog(log))

		err = asm.HandleLogStateChange(context.Background(), log, nil)
		assert.Nil(t, err)

		var event types.HarvestEvent
		res := grm.Raw(`select * from harvest_events`).Scan(&event)
		assert.Nil(t, res.Error)
		assert.Equal(t, log.TransactionHash+"_7", event.Id)
		assert.Equal(t, "1000000000000000000000", event.TotalHarvested)
		assert.Equal(t, "42", event.Credit)

		shares, err := model.ListUserHarvestShares(event.Id)
		assert.Nil(t, err)
		assert.Equal(t, 2, len(shares))

		// Net harvest after the 10% fee is 900, split 300/700.
		assert.Equal(t, depositorA, shares[0].DepositorAddress)
		assert.InDelta(t, 270.0, shares[0].Earnings, 1e-9)
		assert.Equal(t, "300", shares[0].Shares)
		assert.Equal(t, "1000", shares[0].TotalAlchemistShares)

		assert.Equal(t, depositorB, shares[1].DepositorAddress)
		assert.InDelta(t, 630.0, shares[1].Earnings, 1e-9)

		var depositor types.Depositor
		res = grm.Raw(`select * from depositors where depositor_address = ?`, depositorA).Scan(&depositor)
		assert.Nil(t, res.Error)
		assert.InDelta(t, 270.0, depositor.TotalUnderlyingTokenEarned, 1e-9)
	})

	t.Run("Should fail on a replayed harvest log", func(t *testing.T) {
		caller := &fakeAlchemistCaller{
			params: &contractCaller.YieldTokenParams{
				Decimals:    18,
				TotalShares: big.NewInt(1000),
				Enabled:     true,
			},
			protocolFee: big.NewInt(1000),
			positions: map[string]*big.Int{
				depositorA: big.NewInt(300),
				depositorB: big.NewInt(700),
			},
		}

		asm := stateManager.NewAlchemistStateManager(nil, l, grm)
		_, err := NewHarvestModel(asm, grm, caller, l, cfg)
		assert.Nil(t, err)

		log := harvestLog(alchemist, yieldToken, "0xaaa1000000000000000000000000000000000000000000000000000000000001", 7)

		err = asm.HandleLogStateChange(context.Background(), log, nil)
		assert.NotNil(t, err)
		assert.True(t, postgres.IsDuplicateKeyError(err))
	})

	t.Run("Should roll back the event row when the aux state fetch fails", func(t *testing.T) {
		caller := &fakeAlchemistCaller{
			err: errors.New("rpc timeout"),
		}

		asm := stateManager.NewAlchemistStateManager(nil, l, grm)
		_, err := NewHarvestModel(asm, grm, caller, l, cfg)
		assert.Nil(t, err)

		log := harvestLog(alchemist, yieldToken, "0xbbb2000000000000000000000000000000000000000000000000000000000002", 3)

		err = asm.HandleLogStateChange(context.Background(), log, nil)
		assert.NotNil(t, err)

		count := 0
		res := grm.Raw(`select count(*) from harvest_events where id = ?`, log.TransactionHash+"_3").Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 0, count)
	})

	t.Run("Should skip share records when total shares is zero", func(t *testing.T) {
		caller := &fakeAlchemistCaller{
			params: &contractCaller.YieldTokenParams{
				Decimals:    18,
				TotalShares: big.NewInt(0),
				Enabled:     true,
			},
			protocolFee: big.NewInt(1000),
			positions: map[string]*big.Int{
				depositorA: big.NewInt(0),
				depositorB: big.NewInt(0),
			},
		}

		asm := stateManager.NewAlchemistStateManager(nil, l, grm)
		_, err := NewHarvestModel(asm, grm, caller, l, cfg)
		assert.Nil(t, err)

		log := harvestLog(alchemist, yieldToken, "0xccc3000000000000000000000000000000000000000000000000000000000003", 9)

		err = asm.HandleLogStateChange(context.Background(), log, nil)
		assert.Nil(t, err)

		eventId := log.TransactionHash + "_9"

		count := 0
		res := grm.Raw(`select count(*) from harvest_events where id = ?`, eventId).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 1, count)

		res = grm.Raw(`select count(*) from user_harvest_shares where harvest_event_id = ?`, eventId).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 0, count)
	})

	t.Run("Should persist the event when the token has no depositors", func(t *testing.T) {
		caller := &fakeAlchemistCaller{
			err: errors.New("should not be called"),
		}

		asm := stateManager.NewAlchemistStateManager(nil, l, grm)
		_, err := NewHarvestModel(asm, grm, caller, l, cfg)
		assert.Nil(t, err)

		emptyToken := "0x7f5c764cbc14f9669b88837ca1490cca17c31607"
		log := harvestLog(alchemist, emptyToken, "0xddd4000000000000000000000000000000000000000000000000000000000004", 1)

		err = asm.HandleLogStateChange(context.Background(), log, nil)
		assert.Nil(t, err)

		count := 0
		res := grm.Raw(`select count(*) from harvest_events where yield_token_address = ?`, emptyToken).Scan(&count)
		assert.Nil(t, res.Error)
		assert.Equal(t, 1, count)
	})

	t.Cleanup(func() {
		postgres.TeardownTestDatabase(dbName, cfg, grm, l)
	})
}

func sequenceDepositLog(alchemist string, sender string, yieldToken string, amount string, logIndex uint64) *storage.TransactionLog {
	return &storage.TransactionLog{
		TransactionHash: "0xeee5000000000000000000000000000000000000000000000000000000000005",
		BlockNumber:     uint64(14300000),
		Address:         alchemist,
		Arguments: fmt.Sprintf(
			`[{"Name": "sender", "Type": "address", "Value": "%s", "Indexed": true}, {"Name": "yieldToken", "Type": "address", "Value": "%s", "Indexed": true}, {"Name": "amount", "Type": "uint256", "Value": null, "Indexed": false}, {"Name": "recipient", "Type": "address", "Value": null, "Indexed": false}]`,
			sender, yieldToken,
		),
		EventName:  "Deposit",
		LogIndex:   logIndex,
		OutputData: fmt.Sprintf(`{"amount": %s, "recipient": "%s"}`, amount, sender),
	}
}

func sequenceDonateLog(alchemist string, sender string, yieldToken string, amount string, logIndex uint64) *storage.TransactionLog {
	return &storage.TransactionLog{
		TransactionHash: "0xfff7000000000000000000000000000000000000000000000000000000000007",
		BlockNumber:     uint64(14300000),
		Address:         alchemist,
		Arguments:       `[{"Name": "sender", "Type": "address", "Value": "` + sender + `", "Indexed": true}, {"Name": "yieldToken", "Type": "address", "Value": "` + yieldToken + `", "Indexed": true}, {"Name": "amount", "Type": "uint256", "Value": null, "Indexed": false}]`,
		EventName:       "Donate",
		LogIndex:        logIndex,
		OutputData:      fmt.Sprintf(`{"amount": %s}`, amount),
	}
}

func Test_DepositorTotalsAreCumulative(t *testing.T) {
	dbName, grm, l, cfg, err := setup()

	if err != nil {
		t.Fatal(err)
	}

	alchemist := cfg.GetContractsMapForChain().Alchemists[0]
	yieldToken := "0xb000000000000000000000000000000000000b0b"
	sender := "0x3000000000000000000000000000000000000003"

	caller := &fakeAlchemistCaller{
		params: &contractCaller.YieldTokenParams{
			Decimals:    18,
			TotalShares: big.NewInt(500),
			Enabled:     true,
		},
		protocolFee: big.NewInt(1000),
		positions: map[string]*big.Int{
			sender: big.NewInt(500),
		},
	}

	asm := stateManager.NewAlchemistStateManager(nil, l, grm)
	if _, err := depositors.NewDepositorModel(asm, grm, l, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := NewHarvestModel(asm, grm, caller, l, cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := donations.NewDonationModel(asm, grm, caller, l, cfg); err != nil {
		t.Fatal(err)
	}

	readDepositor := func() types.Depositor {
		var row types.Depositor
		res := grm.Raw(
			`select * from depositors where depositor_address = ? and yield_token_address = ?`,
			sender, yieldToken,
		).Scan(&row)
		assert.Nil(t, res.Error)
		return row
	}

	t.Run("Should never shrink a depositor's totals across mixed events", func(t *testing.T) {
		logs := []*storage.TransactionLog{
			sequenceDepositLog(alchemist, sender, yieldToken, "500", 1),
			harvestLog(alchemist, yieldToken, "0xfff6000000000000000000000000000000000000000000000000000000000006", 2),
			sequenceDonateLog(alchemist, sender, yieldToken, "300000000000000000000", 3),
			sequenceDepositLog(alchemist, sender, yieldToken, "250", 4),
		}

		prev := types.Depositor{YieldTokenAmount: "0"}
		for _, log := range logs {
			err := asm.HandleLogStateChange(context.Background(), log, nil)
			assert.Nil(t, err)

			row := readDepositor()

			prevAmount, ok := new(big.Int).SetString(prev.YieldTokenAmount, 10)
			assert.True(t, ok)
			amount, ok := new(big.Int).SetString(row.YieldTokenAmount, 10)
			assert.True(t, ok)
			assert.True(t, amount.Cmp(prevAmount) >= 0)

			assert.GreaterOrEqual(t, row.TotalUnderlyingTokenEarned, prev.TotalUnderlyingTokenEarned)
			assert.GreaterOrEqual(t, row.TotalDonationReceived, prev.TotalDonationReceived)

			prev = row
		}

		final := readDepositor()
		assert.Equal(t, "750", final.YieldTokenAmount)
		assert.InDelta(t, 900.0, final.TotalUnderlyingTokenEarned, 1e-9)
		assert.InDelta(t, 300.0, final.TotalDonationReceived, 1e-9)
	})

	t.Cleanup(func() {
		postgres.TeardownTestDatabase(dbName, cfg, grm, l)
	})
}
