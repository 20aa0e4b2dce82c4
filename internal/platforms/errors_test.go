package platforms

import (
	"errors"
	"net/http"
	"testing"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"network error", errors.New("connection reset"), true},
		{"server error", &APIError{StatusCode: http.StatusBadGateway}, true},
		{"rate limit", &APIError{StatusCode: http.StatusTooManyRequests}, true},
		{"bad request", &APIError{StatusCode: http.StatusBadRequest}, false},
		{"unauthorized", &APIError{StatusCode: http.StatusUnauthorized}, false},
		{"transient publish error", &PublishError{Transient: true}, true},
		{"permanent publish error", &PublishError{Transient: false}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAsPublishError(t *testing.T) {
	t.Run("passes publish error through", func(t *testing.T) {
		orig := &PublishError{Platform: "twitter", Code: 400, Message: "bad media"}
		if got := AsPublishError("twitter", orig); got != orig {
			t.Error("existing PublishError should be returned as is")
		}
	})

	t.Run("classifies api error by status", func(t *testing.T) {
		got := AsPublishError("linkedin", &APIError{StatusCode: http.StatusServiceUnavailable, Body: "down"})
		if !got.Transient {
			t.Error("5xx should be transient")
		}
		if got.Code != http.StatusServiceUnavailable {
			t.Errorf("code = %d, want %d", got.Code, http.StatusServiceUnavailable)
		}

		got = AsPublishError("linkedin", &APIError{StatusCode: http.StatusForbidden, Body: "revoked"})
		if got.Transient {
			t.Error("4xx should be permanent")
		}
	})

	t.Run("unknown errors default transient", func(t *testing.T) {
		got := AsPublishError("bluesky", errors.New("dial tcp: timeout"))
		if !got.Transient {
			t.Error("network errors should be transient")
		}
		if got.Platform != "bluesky" {
			t.Errorf("platform = %q, want bluesky", got.Platform)
		}
	})
}
