package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

func TestFlexNumber(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		valid   bool
		wantErr bool
	}{
		{`42`, 42, true, false},
		{`"42"`, 42, true, false},
		{`" 7 "`, 7, true, false},
		{`0.002`, 0.002, true, false},
		{`"1e3"`, 1000, true, false},
		{`null`, 0, false, false},
		{`"x"`, 0, false, true},
		{`true`, 0, false, true},
	}
	for _, tt := range tests {
		var n flexNumber
		err := json.Unmarshal([]byte(tt.in), &n)
		if (err != nil) != tt.wantErr {
			t.Errorf("Unmarshal(%s) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if n.valid != tt.valid || n.Float() != tt.want {
			t.Errorf("Unmarshal(%s) = (%v, %v), want (%v, %v)", tt.in, n.Float(), n.valid, tt.want, tt.valid)
		}
	}
}

func TestReasonOf(t *testing.T) {
	tests := []struct {
		err  error
		want monitor.Reason
	}{
		{networkErr(errors.New("dial")), monitor.ReasonNetwork},
		{httpErr(errors.New("500")), monitor.ReasonHTTP},
		{decodeErr(errors.New("eof")), monitor.ReasonDecode},
		{fmt.Errorf("wrapped: %w", decodeErr(errors.New("eof"))), monitor.ReasonDecode},
		{errors.New("plain"), monitor.ReasonNetwork},
	}
	for _, tt := range tests {
		if got := reasonOf(tt.err); got != tt.want {
			t.Errorf("reasonOf(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestGetJSONSendsHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Accept = %q", r.Header.Get("Accept"))
		}
		if r.Header.Get("X-Test") != "yes" {
			t.Errorf("X-Test = %q", r.Header.Get("X-Test"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var v map[string]any
	err := getJSON(context.Background(), srv.Client(), srv.URL, http.Header{"X-Test": {"yes"}}, &v)
	// 204 is a success status but carries no JSON body
	if reasonOf(err) != monitor.ReasonDecode {
		t.Errorf("reason = %q, want %q (err %v)", reasonOf(err), monitor.ReasonDecode, err)
	}
}

func TestGetJSONCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var v map[string]any
	err := getJSON(ctx, srv.Client(), srv.URL, nil, &v)
	if reasonOf(err) != monitor.ReasonNetwork {
		t.Errorf("reason = %q, want %q", reasonOf(err), monitor.ReasonNetwork)
	}
}
