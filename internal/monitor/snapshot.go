package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot is the last known good value of every dashboard field.
// A field only changes when its source succeeds; failures leave it as is.
type Snapshot struct {
	// pool group
	Hashrate          float64 `json:"hashrate"`
	ConfirmedReward   float64 `json:"confirmed_reward"`
	UnconfirmedReward float64 `json:"unconfirmed_reward"`
	OKWorkers         int     `json:"ok_workers"`
	LowWorkers        int     `json:"low_workers"`
	OffWorkers        int     `json:"off_workers"`

	// ledger group
	BTCBalance float64 `json:"btc_balance"`
	USDBalance float64 `json:"usd_balance"`
	BTCPrice   float64 `json:"btc_usd_price"`

	// sentiment group
	SentimentIndex int    `json:"sentiment_index"`
	SentimentClass string `json:"sentiment_classification"`
	SentimentColor string `json:"sentiment_color"`
	SentimentIcon  string `json:"sentiment_icon"`

	LastUpdate     time.Time `json:"last_update"`
	PoolFetching   bool      `json:"pool_fetching"`
	LedgerFetching bool      `json:"ledger_fetching"`
}

// DefaultSnapshot is the state before any cycle has run.
func DefaultSnapshot() Snapshot {
	return Snapshot{
		SentimentColor: DefaultSentimentColor,
		SentimentIcon:  DefaultSentimentIcon,
	}
}

// apply folds a successful outcome into the field group owned by its source.
// It reports whether the source was recognised.
func (s *Snapshot) apply(o Outcome) bool {
	m := o.Metrics
	switch o.Source {
	case SourcePool:
		s.Hashrate = m[MetricHashrate]
		s.ConfirmedReward = m[MetricConfirmedReward]
		s.UnconfirmedReward = m[MetricUnconfirmedReward]
		s.OKWorkers = int(m[MetricOKWorkers])
		s.LowWorkers = int(m[MetricLowWorkers])
		s.OffWorkers = int(m[MetricOffWorkers])
	case SourceLedger:
		s.BTCBalance = m[MetricBTCBalance]
		s.USDBalance = m[MetricUSDBalance]
		s.BTCPrice = m[MetricBTCPrice]
	case SourceSentiment:
		s.SentimentIndex = int(m[MetricSentimentIndex])
		s.SentimentClass = o.Labels[LabelSentimentClass]
		s.SentimentColor = o.Labels[LabelSentimentColor]
		s.SentimentIcon = o.Labels[LabelSentimentIcon]
	default:
		return false
	}
	return true
}

// setFetching sets the refresh flag of the source's group.
func (s *Snapshot) setFetching(source string, on bool) {
	switch source {
	case SourcePool:
		s.PoolFetching = on
	case SourceLedger:
		s.LedgerFetching = on
	}
}

// clearFetching drops the refresh flag of the source's group.
func (s *Snapshot) clearFetching(source string) { s.setFetching(source, false) }

// Store holds the shared Snapshot. Writers are serialised and publish a new
// copy with an atomic pointer swap, so readers never wait on a writer and
// never see half of a field group.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	subsMu sync.Mutex
	subs   map[chan uint64]struct{}
}

func NewStore() *Store {
	s := &Store{subs: make(map[chan uint64]struct{})}
	snap := DefaultSnapshot()
	s.current.Store(&snap)
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	return *s.current.Load()
}

// Version increases by one on every published change.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Subscribe returns a channel that receives the latest version after each
// change. Slow subscribers only see the most recent version.
func (s *Store) Subscribe() (<-chan uint64, func()) {
	ch := make(chan uint64, 1)
	s.subsMu.Lock()
	s.subs[ch] = struct{}{}
	s.subsMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.subsMu.Lock()
			delete(s.subs, ch)
			s.subsMu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// update applies fn to a private copy and publishes it.
func (s *Store) update(fn func(*Snapshot)) Snapshot {
	s.mu.Lock()
	next := *s.current.Load()
	fn(&next)
	s.current.Store(&next)
	s.notify(s.version.Add(1))
	s.mu.Unlock()
	return next
}

func (s *Store) notify(v uint64) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			// drop the stale pending version, keep the newest
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// beginCycle raises the refresh flags of the dispatched sources and stamps
// the cycle start in one write. Groups with no dispatched source keep their
// flag down.
func (s *Store) beginCycle(at time.Time, sources []string) Snapshot {
	return s.update(func(snap *Snapshot) {
		snap.LastUpdate = at
		for _, name := range sources {
			snap.setFetching(name, true)
		}
	})
}

// fold writes one outcome: fields only on success, flag always cleared.
// It returns false for an outcome whose source owns no field group.
func (s *Store) fold(o Outcome) bool {
	known := true
	s.update(func(snap *Snapshot) {
		if o.OK() {
			known = snap.apply(o)
		}
		snap.clearFetching(o.Source)
	})
	return known
}
