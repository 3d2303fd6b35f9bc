package httpx

import (
	"net/http"
	"testing"
	"time"
)

type statusErr int

func (e statusErr) Error() string       { return "http error" }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableHTTPStatus(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 599}
	for _, code := range retryable {
		if !IsRetryableHTTPStatus(code) {
			t.Errorf("expected %d retryable", code)
		}
	}
	terminal := []int{200, 201, 301, 400, 401, 403, 404, 422}
	for _, code := range terminal {
		if IsRetryableHTTPStatus(code) {
			t.Errorf("expected %d not retryable", code)
		}
	}
}

func TestIsRetryableError(t *testing.T) {
	if IsRetryableError(nil) {
		t.Fatal("nil is not retryable")
	}
	if !IsRetryableError(statusErr(503)) {
		t.Fatal("503 coder should be retryable")
	}
	if IsRetryableError(statusErr(400)) {
		t.Fatal("400 coder should not be retryable")
	}
}

func TestRetryAfterDuration(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"3"}}}
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 3*time.Second {
		t.Fatalf("expected 3s, got %v", got)
	}
	// capped at max
	resp.Header.Set("Retry-After", "120")
	if got := RetryAfterDuration(resp, time.Second, 10*time.Second); got != 10*time.Second {
		t.Fatalf("expected cap 10s, got %v", got)
	}
	// fallback without header
	if got := RetryAfterDuration(nil, 2*time.Second, 10*time.Second); got != 2*time.Second {
		t.Fatalf("expected fallback 2s, got %v", got)
	}
}

func TestJitterSleepBounds(t *testing.T) {
	base := time.Second
	for i := 0; i < 50; i++ {
		got := JitterSleep(base)
		if got < 800*time.Millisecond || got > 1200*time.Millisecond {
			t.Fatalf("jitter %v outside +-20%% of %v", got, base)
		}
	}
	if JitterSleep(0) != 0 {
		t.Fatal("zero base must stay zero")
	}
}
