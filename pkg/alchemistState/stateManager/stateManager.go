package stateManager

import (
	"context"
	"sort"

	"github.com/alchemix-finance/alchemist-indexer/internal/metrics/metricsTypes"
	"github.com/alchemix-finance/alchemist-indexer/pkg/alchemistState/types"
	"github.com/alchemix-finance/alchemist-indexer/pkg/postgres/helpers"
	"github.com/alchemix-finance/alchemist-indexer/pkg/storage"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AlchemistStateManager owns the registered state models and routes each
// stored transaction log to the models that handle it. Handlers run inside
// the caller's transaction when one is supplied; otherwise each (model, log)
// pair gets its own transaction.
type AlchemistStateManager struct {
	StateModels map[int]types.IAlchemistStateModel

	DB          *gorm.DB
	logger      *zap.Logger
	metricsSink metricsTypes.IMetricsClient
}

func NewAlchemistStateManager(msink metricsTypes.IMetricsClient, logger *zap.Logger, grm *gorm.DB) *AlchemistStateManager {
	return &AlchemistStateManager{
		StateModels: make(map[int]types.IAlchemistStateModel),
		DB:          grm,
		logger:      logger,
		metricsSink: msink,
	}
}

// RegisterState adds a state model at the given index. Models run in index
// order, so models whose writes depend on another model's rows register with
// a higher index.
func (s *AlchemistStateManager) RegisterState(model types.IAlchemistStateModel, index int) {
	if m, ok := s.StateModels[index]; ok {
		s.logger.Sugar().Fatalf("Registering model at index %d failed, model '%s' already exists", index, m.GetModelName())
	}
	s.StateModels[index] = model
}

func (s *AlchemistStateManager) GetSortedModelIndexes() []int {
	indexes := make([]int, 0, len(s.StateModels))
	for i := range s.StateModels {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	return indexes
}

// HandleLogStateChange hands the log to every interested model in
// registration order. With a nil outerTx each model's handler runs inside its
// own transaction, committed on success and rolled back on error. With a
// non-nil outerTx every handler joins that transaction and the caller owns
// commit and rollback, which lets the pipeline make a whole block atomic.
func (s *AlchemistStateManager) HandleLogStateChange(ctx context.Context, log *storage.TransactionLog, outerTx *gorm.DB) error {
	for _, index := range s.GetSortedModelIndexes() {
		model := s.StateModels[index]
		if !model.IsInterestingLog(log) {
			continue
		}

		s.logger.Sugar().Debugw("Handling log state change",
			zap.String("model", model.GetModelName()),
			zap.String("eventName", log.EventName),
			zap.String("transactionHash", log.TransactionHash),
			zap.Uint64("logIndex", log.LogIndex),
		)

		_, err := helpers.WrapTxAndCommit(func(tx *gorm.DB) (interface{}, error) {
			return model.HandleTransactionLog(ctx, log, tx)
		}, s.DB, outerTx)
		if err != nil {
			s.emitLogMetric(metricsTypes.Metric_Incr_HandlerFailure, model, log)
			s.logger.Sugar().Errorw("Failed to handle log state change",
				zap.Error(err),
				zap.String("model", model.GetModelName()),
				zap.String("transactionHash", log.TransactionHash),
				zap.Uint64("logIndex", log.LogIndex),
			)
			return err
		}
		s.emitLogMetric(metricsTypes.Metric_Incr_LogProcessed, model, log)
	}
	return nil
}

func (s *AlchemistStateManager) emitLogMetric(name string, model types.IAlchemistStateModel, log *storage.TransactionLog) {
	if s.metricsSink == nil {
		return
	}
	_ = s.metricsSink.Incr(name, []metricsTypes.MetricsLabel{
		{Name: "model", Value: model.GetModelName()},
		{Name: "event_name", Value: log.EventName},
	}, 1)
}
