package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/web3-frozen/miner-dashboard/internal/metrics"
)

// Age returns how long ago the last cycle started, or 0 before the first one.
func (s Snapshot) Age(now time.Time) time.Duration {
	if s.LastUpdate.IsZero() {
		return 0
	}
	return now.Sub(s.LastUpdate)
}

// Summary renders the snapshot as one human-readable line.
func (s Snapshot) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "hashrate %s TH/s", formatNum(s.Hashrate))
	fmt.Fprintf(&b, " | reward %s BTC (unconfirmed %s)", formatNum(s.ConfirmedReward), formatNum(s.UnconfirmedReward))
	fmt.Fprintf(&b, " | workers %d/%d/%d", s.OKWorkers, s.LowWorkers, s.OffWorkers)
	fmt.Fprintf(&b, " | balance %.8f BTC = $%s @ $%s", s.BTCBalance, formatNum(s.USDBalance), formatNum(s.BTCPrice))
	fmt.Fprintf(&b, " | sentiment %d %s", s.SentimentIndex, stringToUpper(SentimentBucket(s.SentimentIndex).Name))
	if !s.LastUpdate.IsZero() {
		fmt.Fprintf(&b, " | updated %s", s.LastUpdate.Format("15:04"))
	}
	return b.String()
}

// ExportAge makes the snapshot_age_seconds gauge report the age of store's
// snapshot at scrape time.
func ExportAge(store *Store, now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	metrics.SetSnapshotAgeFunc(func() float64 {
		return store.Snapshot().Age(now()).Seconds()
	})
}

// LogChanges writes a summary line for every published snapshot version.
// Blocks until ctx is cancelled.
func LogChanges(ctx context.Context, store *Store, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	versions, cancel := store.Subscribe()
	defer cancel()

	var lastLogged Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-versions:
			if !ok {
				return
			}
			snap := store.Snapshot()
			// flag flips alone are not worth a line
			if snap.PoolFetching || snap.LedgerFetching || sameValues(snap, lastLogged) {
				continue
			}
			lastLogged = snap
			logger.Info("dashboard", "version", v, "summary", snap.Summary())
		}
	}
}

func sameValues(a, b Snapshot) bool {
	a.LastUpdate, b.LastUpdate = time.Time{}, time.Time{}
	a.PoolFetching, b.PoolFetching = false, false
	a.LedgerFetching, b.LedgerFetching = false, false
	return a == b
}

func formatNum(v float64) string {
	if v >= 1_000_000 {
		return fmt.Sprintf("%.2fM", v/1_000_000)
	}
	if v >= 1_000 {
		return addCommas(fmt.Sprintf("%.2f", math.Round(v*100)/100))
	}
	return fmt.Sprintf("%.4f", v)
}

func addCommas(s string) string {
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	n := len(intPart)
	if n <= 3 {
		if len(parts) == 2 {
			return intPart + "." + parts[1]
		}
		return intPart
	}
	var result []byte
	for i, c := range intPart {
		if i > 0 && (n-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	if len(parts) == 2 {
		return string(result) + "." + parts[1]
	}
	return string(result)
}

func stringToUpper(s string) string {
	if len(s) == 0 {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
