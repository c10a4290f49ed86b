package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/sells-group/social-cli/pkg/firecrawl"
)

func TestIsTransient_FetchErrorStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		err := &firecrawl.FetchError{URL: "https://a.com", StatusCode: code, Body: "busy"}
		if !IsTransient(err) {
			t.Errorf("expected HTTP %d fetch error to be transient", code)
		}
	}
	for _, code := range []int{400, 401, 402, 403, 404} {
		err := &firecrawl.FetchError{URL: "https://a.com", StatusCode: code, Body: "nope"}
		if IsTransient(err) {
			t.Errorf("expected HTTP %d fetch error to be permanent", code)
		}
	}
}

func TestIsTransient_WrappedFetchError(t *testing.T) {
	inner := &firecrawl.FetchError{URL: "https://a.com", StatusCode: 429, Body: "slow down"}
	wrapped := fmt.Errorf("scrape https://a.com: %w", inner)
	if !IsTransient(wrapped) {
		t.Error("expected wrapped 429 to be transient")
	}
}

func TestIsTransient_FetchErrorTransport(t *testing.T) {
	err := &firecrawl.FetchError{URL: "https://a.com", Err: fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED)}
	if !IsTransient(err) {
		t.Error("expected transport failure to be transient")
	}
}

func TestIsTransient_NilError(t *testing.T) {
	if IsTransient(nil) {
		t.Error("nil error should not be transient")
	}
}

func TestIsTransient_RegularError(t *testing.T) {
	err := errors.New("decode response: empty document")
	if IsTransient(err) {
		t.Error("regular error should not be transient")
	}
}

func TestIsTransient_ConnectionReset(t *testing.T) {
	err := fmt.Errorf("write tcp: %w", syscall.ECONNRESET)
	if !IsTransient(err) {
		t.Error("ECONNRESET should be transient")
	}
}

func TestIsTransient_DeadlineExceeded(t *testing.T) {
	err := &firecrawl.FetchError{URL: "https://a.com", Err: context.DeadlineExceeded}
	if !IsTransient(err) {
		t.Error("deadline exceeded should be transient")
	}
}

func TestIsTransient_NetworkTimeout(t *testing.T) {
	err := &net.DNSError{IsTimeout: true, Err: "timeout"}
	if !IsTransient(err) {
		t.Error("network timeout should be transient")
	}
}

func TestIsTransient_StringPatterns(t *testing.T) {
	patterns := []string{
		"connection reset by peer",
		"broken pipe",
		"TLS handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	}
	for _, p := range patterns {
		err := errors.New(p)
		if !IsTransient(err) {
			t.Errorf("expected %q to be transient", p)
		}
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected HTTP %d to be permanent", code)
		}
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "cancelled", err: &firecrawl.FetchError{Err: context.Canceled}, want: ClassCancelled},
		{name: "rate limited", err: &firecrawl.FetchError{StatusCode: 429}, want: ClassTransient},
		{name: "unauthorized", err: &firecrawl.FetchError{StatusCode: 401}, want: ClassPermanent},
		{name: "plain", err: errors.New("disk full"), want: ClassPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("ClassifyError() = %q, want %q", got, tt.want)
			}
		})
	}
}
