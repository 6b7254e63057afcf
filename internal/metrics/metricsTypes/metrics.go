package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
	Flush()
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_BlockProcessed = "blockProcessed"
	Metric_Incr_LogProcessed   = "logProcessed"
	Metric_Incr_HandlerFailure = "handlerFailure"

	Metric_Gauge_CurrentBlockHeight = "currentBlockHeight"

	Metric_Timing_BlockProcessDuration  = "block.process.duration"
	Metric_Timing_AuxStateFetchDuration = "auxState.fetch.duration"
)

var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_BlockProcessed,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_LogProcessed,
			Labels: []string{
				"model",
				"event_name",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Incr_HandlerFailure,
			Labels: []string{
				"model",
				"event_name",
			},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_CurrentBlockHeight,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name: Metric_Timing_BlockProcessDuration,
			Labels: []string{
				"hasError",
			},
		},
		MetricsTypeConfig{
			Name: Metric_Timing_AuxStateFetchDuration,
			Labels: []string{
				"alchemist",
			},
		},
	},
}
