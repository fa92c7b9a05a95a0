package monitor

import (
	"sync"
	"testing"
	"time"
)

var bothGroups = []string{SourceSentiment, SourceLedger, SourcePool}

func TestDefaultSnapshot(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()
	if snap.SentimentColor != DefaultSentimentColor || snap.SentimentIcon != DefaultSentimentIcon {
		t.Errorf("default sentiment = %q/%q", snap.SentimentColor, snap.SentimentIcon)
	}
	if snap.PoolFetching || snap.LedgerFetching {
		t.Error("fetching flags must start false")
	}
	if !snap.LastUpdate.IsZero() {
		t.Errorf("LastUpdate = %v, want zero", snap.LastUpdate)
	}
	if s.Version() != 0 {
		t.Errorf("Version = %d, want 0", s.Version())
	}
}

func TestStoreBeginCycle(t *testing.T) {
	s := NewStore()
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.beginCycle(at, bothGroups)

	snap := s.Snapshot()
	if !snap.PoolFetching || !snap.LedgerFetching {
		t.Error("beginCycle must raise both flags")
	}
	if !snap.LastUpdate.Equal(at) {
		t.Errorf("LastUpdate = %v, want %v", snap.LastUpdate, at)
	}
	if s.Version() != 1 {
		t.Errorf("Version = %d, want 1", s.Version())
	}
}

func TestStoreBeginCycleOnlyDispatchedGroups(t *testing.T) {
	s := NewStore()
	s.beginCycle(time.Now(), []string{SourceSentiment, SourceLedger})

	snap := s.Snapshot()
	if !snap.LedgerFetching {
		t.Error("ledger flag must be raised")
	}
	if snap.PoolFetching {
		t.Error("pool flag must stay down without a pool source")
	}
}

func TestStoreFoldSuccessUpdatesOnlyOwnGroup(t *testing.T) {
	s := NewStore()
	s.beginCycle(time.Now(), bothGroups)
	s.fold(Success(SourceLedger, map[string]float64{
		MetricBTCBalance: 2.5,
		MetricUSDBalance: 150000,
		MetricBTCPrice:   60000,
	}, nil))

	snap := s.Snapshot()
	if snap.BTCBalance != 2.5 || snap.USDBalance != 150000 || snap.BTCPrice != 60000 {
		t.Errorf("ledger group = %v/%v/%v", snap.BTCBalance, snap.USDBalance, snap.BTCPrice)
	}
	if snap.LedgerFetching {
		t.Error("ledger flag must be cleared")
	}
	if !snap.PoolFetching {
		t.Error("pool flag must still be raised")
	}
	if snap.Hashrate != 0 {
		t.Errorf("Hashrate = %v, want untouched 0", snap.Hashrate)
	}
}

func TestStoreFoldUnavailableKeepsFields(t *testing.T) {
	s := NewStore()
	s.fold(Success(SourcePool, map[string]float64{
		MetricHashrate:          150,
		MetricConfirmedReward:   0.01,
		MetricUnconfirmedReward: 0.002,
	}, nil))
	s.beginCycle(time.Now(), bothGroups)
	s.fold(Unavailable(SourcePool, ReasonHTTP, nil))

	snap := s.Snapshot()
	if snap.Hashrate != 150 || snap.ConfirmedReward != 0.01 || snap.UnconfirmedReward != 0.002 {
		t.Errorf("pool group changed on failure: %+v", snap)
	}
	if snap.PoolFetching {
		t.Error("pool flag must be cleared even on failure")
	}
}

func TestStoreFoldUnknownSource(t *testing.T) {
	s := NewStore()
	if s.fold(Success("bogus", map[string]float64{"x": 1}, nil)) {
		t.Error("fold of unknown source should report false")
	}
	if !s.fold(Success(SourceSentiment, map[string]float64{MetricSentimentIndex: 50}, map[string]string{
		LabelSentimentColor: BucketNeutral.Color,
		LabelSentimentIcon:  BucketNeutral.Icon,
	})) {
		t.Error("fold of sentiment should report true")
	}
	if got := s.Snapshot().SentimentIcon; got != BucketNeutral.Icon {
		t.Errorf("SentimentIcon = %q, want %q", got, BucketNeutral.Icon)
	}
}

func TestStoreSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()
	snap.Hashrate = 999
	if s.Snapshot().Hashrate != 0 {
		t.Error("mutating a returned snapshot must not affect the store")
	}
}

func TestStoreSubscribeCoalesces(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 5; i++ {
		s.beginCycle(time.Now(), bothGroups)
	}

	select {
	case v := <-ch:
		if v != 5 {
			t.Errorf("version = %d, want latest 5", v)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}

	select {
	case v := <-ch:
		t.Errorf("unexpected extra notification %d", v)
	default:
	}
}

func TestStoreSubscribeCancel(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()
	cancel()
	cancel() // idempotent

	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	s.beginCycle(time.Now(), bothGroups) // must not panic on closed channel
}

// A reader running alongside writers never sees a ledger group that mixes
// values from two different writes.
func TestStoreReadersNeverSeeTornGroup(t *testing.T) {
	s := NewStore()
	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			bal := float64(i)
			s.fold(Success(SourceLedger, map[string]float64{
				MetricBTCBalance: bal,
				MetricBTCPrice:   bal * 10,
				MetricUSDBalance: bal * bal * 10,
			}, nil))
		}
	}()

	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		snap := s.Snapshot()
		if snap.BTCPrice != snap.BTCBalance*10 || snap.USDBalance != snap.BTCBalance*snap.BTCPrice {
			t.Fatalf("torn read: balance=%v price=%v usd=%v", snap.BTCBalance, snap.BTCPrice, snap.USDBalance)
		}
	}
	close(stop)
	wg.Wait()
}
