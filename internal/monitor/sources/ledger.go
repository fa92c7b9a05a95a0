package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

const (
	blockchainBalanceAPI = "https://blockchain.info/balance"
	satoshiExponent      = -8
)

// Ledger reports the wallet balance and its value at the current BTC price.
// Balance and price are fetched concurrently and published together or not
// at all.
type Ledger struct {
	client  *http.Client
	baseURL string
	price   PriceFeed
	tracer  trace.Tracer
}

func NewLedger(tracer trace.Tracer, baseURL string, price PriceFeed, timeout time.Duration) *Ledger {
	if baseURL = strings.TrimSpace(baseURL); baseURL == "" {
		baseURL = blockchainBalanceAPI
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("sources")
	}
	if price == nil {
		price = NewBlockchainTicker("", "", timeout)
	}
	return &Ledger{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		price:   price,
		tracer:  tracer,
	}
}

func (l *Ledger) Name() string { return monitor.SourceLedger }

type addressBalance struct {
	FinalBalance *int64 `json:"final_balance"`
}

func (l *Ledger) Fetch(ctx context.Context, creds monitor.Credentials) monitor.Outcome {
	addr := creds.WalletAddress
	if addr == "" {
		return monitor.Unavailable(l.Name(), monitor.ReasonDisabled, nil)
	}

	ctx, span := l.tracer.Start(ctx, "ledger.fetch",
		trace.WithAttributes(attribute.String("price_feed", l.price.Name())))
	defer span.End()

	var (
		satoshi int64
		price   decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		satoshi, err = l.fetchBalance(gctx, addr)
		return err
	})
	g.Go(func() error {
		var err error
		price, err = l.price.FetchPrice(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return unavailable(l.Name(), err)
	}

	btc := decimal.New(satoshi, satoshiExponent)
	usd := btc.Mul(price)

	return monitor.Success(l.Name(), map[string]float64{
		monitor.MetricBTCBalance: btc.InexactFloat64(),
		monitor.MetricUSDBalance: usd.InexactFloat64(),
		monitor.MetricBTCPrice:   price.InexactFloat64(),
	}, nil)
}

// fetchBalance returns the final balance of addr in satoshi.
func (l *Ledger) fetchBalance(ctx context.Context, addr string) (int64, error) {
	u := l.baseURL + "?active=" + url.QueryEscape(addr)

	var raw map[string]addressBalance
	if err := getJSON(ctx, l.client, u, nil, &raw); err != nil {
		return 0, fmt.Errorf("address balance: %w", err)
	}

	entry, ok := raw[addr]
	if !ok || entry.FinalBalance == nil {
		return 0, decodeErr(fmt.Errorf("balance response has no final_balance for %s", addr))
	}
	return *entry.FinalBalance, nil
}
