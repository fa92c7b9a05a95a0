package sources

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

const fngAPI = "https://api.alternative.me/fng/"

// FearGreed reads the alternative.me crypto fear & greed index.
type FearGreed struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewFearGreed(tracer trace.Tracer, baseURL string, timeout time.Duration) *FearGreed {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = fngAPI
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("sources")
	}
	return &FearGreed{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		tracer:  tracer,
	}
}

func (f *FearGreed) Name() string { return monitor.SourceSentiment }

type fngResponse struct {
	Data []struct {
		Value               flexNumber `json:"value"`
		ValueClassification string     `json:"value_classification"`
	} `json:"data"`
}

// Fetch needs no credential; the index is public.
func (f *FearGreed) Fetch(ctx context.Context, _ monitor.Credentials) monitor.Outcome {
	ctx, span := f.tracer.Start(ctx, "feargreed.fetch-latest")
	defer span.End()

	index, class, err := f.fetchLatest(ctx)
	if err != nil {
		span.RecordError(err)
		return unavailable(f.Name(), err)
	}

	bucket := monitor.SentimentBucket(index)
	return monitor.Success(f.Name(),
		map[string]float64{monitor.MetricSentimentIndex: float64(index)},
		map[string]string{
			monitor.LabelSentimentColor: bucket.Color,
			monitor.LabelSentimentIcon:  bucket.Icon,
			monitor.LabelSentimentClass: class,
		})
}

// fetchLatest returns the most recent index value. Entries are newest first.
func (f *FearGreed) fetchLatest(ctx context.Context) (int, string, error) {
	var fng fngResponse
	if err := getJSON(ctx, f.client, f.baseURL, nil, &fng); err != nil {
		return 0, "", fmt.Errorf("fear & greed API: %w", err)
	}
	if len(fng.Data) == 0 {
		return 0, "", decodeErr(fmt.Errorf("no fear & greed data"))
	}

	row := fng.Data[0]
	if !row.Value.valid {
		return 0, "", decodeErr(fmt.Errorf("fear & greed entry has no value"))
	}
	v := row.Value.Float()
	if v != float64(int(v)) || v < 0 || v > 100 {
		return 0, "", decodeErr(fmt.Errorf("fear & greed value %s out of range", row.Value))
	}
	return int(v), row.ValueClassification, nil
}
