package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"validation", Validation("bad_input", "nope"), KindValidation},
		{"not_ready", NotReady("in_progress", "still working"), KindNotReady},
		{"wrapped", fmt.Errorf("outer: %w", Network("conn_reset", errors.New("reset"))), KindNetwork},
		{"foreign", errors.New("some driver error"), KindProvider},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestIsNotReady(t *testing.T) {
	if !IsNotReady(NotReady("split_in_progress", "at 40%")) {
		t.Fatal("expected not-ready")
	}
	if IsNotReady(Validation("x", "y")) {
		t.Fatal("validation error must not be not-ready")
	}
	if IsNotReady(nil) {
		t.Fatal("nil must not be not-ready")
	}
}

func TestHTTPStatusCode(t *testing.T) {
	err := ProviderFailure("http_error", "upstream 503", &ProviderContext{StatusCode: 503, Body: "busy"})
	if err.HTTPStatusCode() != 503 {
		t.Fatalf("expected 503, got %d", err.HTTPStatusCode())
	}
	if New(KindValidation, "x", "y").HTTPStatusCode() != 0 {
		t.Fatal("error without provider context must report 0")
	}
}

func TestUnwrapAndAs(t *testing.T) {
	inner := errors.New("inner")
	err := Wrap(KindStorage, "db_write_failed", inner)
	if !errors.Is(err, inner) {
		t.Fatal("wrapped error must unwrap to inner")
	}

	ae, ok := As(fmt.Errorf("layer: %w", err))
	if !ok {
		t.Fatal("As failed through wrapping")
	}
	if ae.Kind != KindStorage || ae.Code != "db_write_failed" {
		t.Fatalf("unexpected extracted error: %+v", ae)
	}
}

func TestErrorString(t *testing.T) {
	err := Wrap(KindNetwork, "request_failed", errors.New("dial tcp: refused"))
	got := err.Error()
	if got == "" || got == "request_failed: " {
		t.Fatalf("unhelpful error string: %q", got)
	}
}
