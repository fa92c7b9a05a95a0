package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/web3-frozen/miner-dashboard/internal/monitor"
)

const defaultTimeout = 15 * time.Second

// fetchError carries the outcome reason alongside the cause.
type fetchError struct {
	reason monitor.Reason
	err    error
}

func (e *fetchError) Error() string { return fmt.Sprintf("%s: %v", e.reason, e.err) }
func (e *fetchError) Unwrap() error { return e.err }

func networkErr(err error) error { return &fetchError{reason: monitor.ReasonNetwork, err: err} }
func httpErr(err error) error    { return &fetchError{reason: monitor.ReasonHTTP, err: err} }
func decodeErr(err error) error  { return &fetchError{reason: monitor.ReasonDecode, err: err} }

// reasonOf maps any error to an outcome reason. Unclassified errors count
// as network failures.
func reasonOf(err error) monitor.Reason {
	var fe *fetchError
	if errors.As(err, &fe) {
		return fe.reason
	}
	return monitor.ReasonNetwork
}

// unavailable converts a fetch error into an outcome.
func unavailable(source string, err error) monitor.Outcome {
	return monitor.Unavailable(source, reasonOf(err), err)
}

// getJSON performs a GET and decodes a JSON body into v.
func getJSON(ctx context.Context, client *http.Client, url string, header http.Header, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return networkErr(err)
	}
	req.Header.Set("Accept", "application/json")
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return networkErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return httpErr(fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return networkErr(fmt.Errorf("read body: %w", err))
	}
	if err := json.Unmarshal(body, v); err != nil {
		return decodeErr(err)
	}
	return nil
}

// flexNumber accepts a JSON number or a numeric string.
type flexNumber struct {
	raw   string
	valid bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	if _, err := strconv.ParseFloat(string(b), 64); err != nil {
		return fmt.Errorf("not a number: %q", string(b))
	}
	n.raw = string(b)
	n.valid = true
	return nil
}

func (n flexNumber) Float() float64 {
	f, _ := strconv.ParseFloat(n.raw, 64)
	return f
}

func (n flexNumber) String() string { return n.raw }
