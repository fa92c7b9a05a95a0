package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

const (
	poolProfileAPI     = "https://slushpool.com/accounts/profile/json/btc/"
	defaultPoolHeader  = "SlushPool-Auth-Token"
	defaultPoolCoin    = "btc"
	hashrateScaleToTHs = 1000
)

// Pool reads the account profile of a Braiins (Slush) pool user.
type Pool struct {
	client     *http.Client
	baseURL    string
	authHeader string
	coin       string
	tracer     trace.Tracer
}

// PoolOption customises a Pool source.
type PoolOption func(*Pool)

func WithPoolURL(u string) PoolOption {
	return func(p *Pool) {
		if u = strings.TrimSpace(u); u != "" {
			p.baseURL = u
		}
	}
}

func WithPoolAuthHeader(h string) PoolOption {
	return func(p *Pool) {
		if h = strings.TrimSpace(h); h != "" {
			p.authHeader = h
		}
	}
}

func WithPoolCoin(c string) PoolOption {
	return func(p *Pool) {
		if c = strings.TrimSpace(c); c != "" {
			p.coin = strings.ToLower(c)
		}
	}
}

func NewPool(tracer trace.Tracer, timeout time.Duration, opts ...PoolOption) *Pool {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("sources")
	}
	p := &Pool{
		client:     &http.Client{Timeout: timeout},
		baseURL:    poolProfileAPI,
		authHeader: defaultPoolHeader,
		coin:       defaultPoolCoin,
		tracer:     tracer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Pool) Name() string { return monitor.SourcePool }

type poolProfile struct {
	ConfirmedReward   *flexNumber `json:"confirmed_reward"`
	UnconfirmedReward *flexNumber `json:"unconfirmed_reward"`
	HashRateScoring   *flexNumber `json:"hash_rate_scoring"`
	OKWorkers         flexNumber  `json:"ok_workers"`
	LowWorkers        flexNumber  `json:"low_workers"`
	OffWorkers        flexNumber  `json:"off_workers"`
}

func (p *Pool) Fetch(ctx context.Context, creds monitor.Credentials) monitor.Outcome {
	if creds.PoolAPIKey == "" {
		return monitor.Unavailable(p.Name(), monitor.ReasonDisabled, nil)
	}

	ctx, span := p.tracer.Start(ctx, "pool.fetch-profile")
	defer span.End()

	profile, err := p.fetchProfile(ctx, creds.PoolAPIKey)
	if err != nil {
		span.RecordError(err)
		return unavailable(p.Name(), err)
	}

	return monitor.Success(p.Name(), map[string]float64{
		monitor.MetricHashrate:          profile.HashRateScoring.Float() / hashrateScaleToTHs,
		monitor.MetricConfirmedReward:   profile.ConfirmedReward.Float(),
		monitor.MetricUnconfirmedReward: profile.UnconfirmedReward.Float(),
		monitor.MetricOKWorkers:         profile.OKWorkers.Float(),
		monitor.MetricLowWorkers:        profile.LowWorkers.Float(),
		monitor.MetricOffWorkers:        profile.OffWorkers.Float(),
	}, nil)
}

func (p *Pool) fetchProfile(ctx context.Context, apiKey string) (*poolProfile, error) {
	header := http.Header{}
	header.Set(p.authHeader, apiKey)

	var raw map[string]json.RawMessage
	if err := getJSON(ctx, p.client, p.baseURL, header, &raw); err != nil {
		return nil, fmt.Errorf("pool profile: %w", err)
	}

	body, ok := raw[p.coin]
	if !ok {
		return nil, decodeErr(fmt.Errorf("pool profile has no %q key", p.coin))
	}

	var profile poolProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, decodeErr(fmt.Errorf("decode pool profile: %w", err))
	}
	if profile.ConfirmedReward == nil || profile.UnconfirmedReward == nil || profile.HashRateScoring == nil {
		return nil, decodeErr(fmt.Errorf("pool profile missing reward or hashrate fields"))
	}
	return &profile, nil
}
