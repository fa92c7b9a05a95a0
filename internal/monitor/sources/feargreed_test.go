package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

func newFearGreedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFearGreedFetchStringValue(t *testing.T) {
	srv := newFearGreedServer(t, http.StatusOK,
		`{"data":[{"value":"45","value_classification":"Fear"},{"value":"80","value_classification":"Extreme Greed"}]}`)

	f := NewFearGreed(nil, srv.URL, 0)
	o := f.Fetch(context.Background(), monitor.Credentials{})
	if !o.OK() {
		t.Fatalf("Fetch reason = %q, err = %v", o.Reason, o.Err)
	}
	if o.Source != monitor.SourceSentiment {
		t.Errorf("Source = %q, want %q", o.Source, monitor.SourceSentiment)
	}
	if o.Metrics[monitor.MetricSentimentIndex] != 45 {
		t.Errorf("index = %v, want 45 (first entry)", o.Metrics[monitor.MetricSentimentIndex])
	}
	if o.Labels[monitor.LabelSentimentColor] != monitor.BucketNeutral.Color {
		t.Errorf("color = %q, want neutral %q", o.Labels[monitor.LabelSentimentColor], monitor.BucketNeutral.Color)
	}
	if o.Labels[monitor.LabelSentimentIcon] != monitor.BucketNeutral.Icon {
		t.Errorf("icon = %q, want neutral %q", o.Labels[monitor.LabelSentimentIcon], monitor.BucketNeutral.Icon)
	}
	if o.Labels[monitor.LabelSentimentClass] != "Fear" {
		t.Errorf("classification = %q, want %q", o.Labels[monitor.LabelSentimentClass], "Fear")
	}
}

func TestFearGreedFetchNumericValue(t *testing.T) {
	srv := newFearGreedServer(t, http.StatusOK, `{"data":[{"value":12}]}`)

	o := NewFearGreed(nil, srv.URL, 0).Fetch(context.Background(), monitor.Credentials{})
	if !o.OK() {
		t.Fatalf("Fetch reason = %q, err = %v", o.Reason, o.Err)
	}
	if o.Labels[monitor.LabelSentimentIcon] != monitor.BucketDistressed.Icon {
		t.Errorf("icon = %q, want %q", o.Labels[monitor.LabelSentimentIcon], monitor.BucketDistressed.Icon)
	}
}

func TestFearGreedFetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   monitor.Reason
	}{
		{"empty data", http.StatusOK, `{"data":[]}`, monitor.ReasonDecode},
		{"missing data", http.StatusOK, `{}`, monitor.ReasonDecode},
		{"malformed json", http.StatusOK, `{"data":[`, monitor.ReasonDecode},
		{"non numeric", http.StatusOK, `{"data":[{"value":"abc"}]}`, monitor.ReasonDecode},
		{"missing value", http.StatusOK, `{"data":[{"value_classification":"Fear"}]}`, monitor.ReasonDecode},
		{"out of range", http.StatusOK, `{"data":[{"value":"101"}]}`, monitor.ReasonDecode},
		{"server error", http.StatusInternalServerError, `oops`, monitor.ReasonHTTP},
		{"rate limited", http.StatusTooManyRequests, ``, monitor.ReasonHTTP},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newFearGreedServer(t, tt.status, tt.body)
			o := NewFearGreed(nil, srv.URL, 0).Fetch(context.Background(), monitor.Credentials{})
			if o.OK() {
				t.Fatal("expected unavailable outcome")
			}
			if o.Reason != tt.want {
				t.Errorf("Reason = %q, want %q (err %v)", o.Reason, tt.want, o.Err)
			}
			if o.Metrics != nil {
				t.Errorf("Metrics = %v, want nil", o.Metrics)
			}
		})
	}
}

func TestFearGreedNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	o := NewFearGreed(nil, url, 0).Fetch(context.Background(), monitor.Credentials{})
	if o.Reason != monitor.ReasonNetwork {
		t.Errorf("Reason = %q, want %q", o.Reason, monitor.ReasonNetwork)
	}
}
