package monitor

import (
	"context"
	"time"
)

// Source names. The aggregator uses them to route an outcome to its field group.
const (
	SourceSentiment = "sentiment"
	SourceLedger    = "ledger"
	SourcePool      = "pool"
)

// Metric and label keys carried by outcomes.
const (
	MetricHashrate          = "hashrate"
	MetricConfirmedReward   = "confirmed_reward"
	MetricUnconfirmedReward = "unconfirmed_reward"
	MetricOKWorkers         = "ok_workers"
	MetricLowWorkers        = "low_workers"
	MetricOffWorkers        = "off_workers"
	MetricBTCBalance        = "btc_balance"
	MetricUSDBalance        = "usd_balance"
	MetricBTCPrice          = "btc_price"
	MetricSentimentIndex    = "sentiment_index"

	LabelSentimentColor = "color"
	LabelSentimentIcon  = "icon"
	LabelSentimentClass = "classification"
)

// Source defines the interface that all data sources must implement.
// To add a new data source, create a struct that implements this
// interface and register it with the Registry.
type Source interface {
	// Name returns a unique identifier for this source (e.g., "pool").
	Name() string

	// Fetch performs one best-effort read of the upstream. It never returns
	// a raw error: every failure is reported as an Unavailable outcome.
	Fetch(ctx context.Context, creds Credentials) Outcome
}

// Reason explains why a source produced no data this cycle.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonNetwork  Reason = "network_error"
	ReasonHTTP     Reason = "http_error"
	ReasonDecode   Reason = "decode_error"
	ReasonDisabled Reason = "disabled"
	ReasonInternal Reason = "internal_error"
)

// Outcome is the per-cycle result of one source: either a set of metrics or
// a reason why there are none.
type Outcome struct {
	Source    string             `json:"source"`
	Reason    Reason             `json:"reason,omitempty"`
	Err       error              `json:"-"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
	Labels    map[string]string  `json:"labels,omitempty"`
	FetchedAt time.Time          `json:"fetched_at"`
}

// Success builds a successful outcome.
func Success(source string, metrics map[string]float64, labels map[string]string) Outcome {
	return Outcome{
		Source:    source,
		Metrics:   metrics,
		Labels:    labels,
		FetchedAt: time.Now(),
	}
}

// Unavailable builds an outcome that carries no data.
func Unavailable(source string, reason Reason, err error) Outcome {
	return Outcome{
		Source:    source,
		Reason:    reason,
		Err:       err,
		FetchedAt: time.Now(),
	}
}

// OK reports whether the outcome carries data.
func (o Outcome) OK() bool { return o.Reason == ReasonNone }

// Status is the low-cardinality label used for logs and metrics.
func (o Outcome) Status() string {
	if o.OK() {
		return "success"
	}
	return string(o.Reason)
}
