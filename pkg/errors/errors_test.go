package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation: http.StatusBadRequest,
		CodeNotFound:   http.StatusNotFound,
		CodeExpired:    http.StatusGone,
		CodeAttempts:   http.StatusLocked,
		CodeRateLimit:  http.StatusTooManyRequests,
		CodeDependency: http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("code %s: expected status %d, got %d", code, status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBackToInternal(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("boom")
	err := Wrap(CodeDependency, cause, "sending code")
	if !stdErrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable via errors.Is")
	}
	if As(err).Code() != CodeDependency {
		t.Fatalf("unexpected code: %v", As(err).Code())
	}
}

func TestAsThroughWrappedChain(t *testing.T) {
	typed := New(CodeExpired, "codigo expirado")
	wrapped := fmt.Errorf("outer: %w", typed)
	if got := As(wrapped); got == nil || got.Code() != CodeExpired {
		t.Fatalf("expected typed error through chain, got %v", got)
	}
}

func TestDumpIncludesChainAndCode(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("socket closed"), "dispatch failed")
	d := Dump(err)
	if d.Code != CodeDependency {
		t.Fatalf("unexpected code %v", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected unwrap chain, got %v", d.Chain)
	}
}
