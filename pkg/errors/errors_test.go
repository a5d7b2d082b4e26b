package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfStructuredError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"profile not found", New(KindProfileNotFound, "account does not exist", 404), KindProfileNotFound},
		{"private profile", New(KindPrivateProfile, "private account", 403), KindPrivateProfile},
		{"rate limited", New(KindRateLimit, "slow down", 429), KindRateLimit},
		{"connection error", New(KindConnectionError, "dial tcp: refused", 0), KindConnectionError},
		{"wrapped structured error", fmt.Errorf("loading account: %w", New(KindBadCredentials, "login failed", 400)), KindBadCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKindOfMessageFallback(t *testing.T) {
	tests := []struct {
		msg  string
		want Kind
	}{
		{"checkpoint challenge_required for user", KindChallengeRequired},
		{"please complete the challenge", KindChallengeRequired},
		{"rate limit exceeded, try later", KindRateLimit},
		{"HTTP 429 too many requests", KindRateLimit},
		{"request timeout after 30s", KindTimeout},
		{"invalid character '<' looking for beginning of value", KindInvalidResponse},
		{"server returned 400", KindBadRequest},
		{"status 401 from endpoint", KindUnauthorized},
		{"status 403 from endpoint", KindUnauthorized},
		{"status 404 from endpoint", KindNotFound},
		{"status 503 from endpoint", KindServiceUnavailable},
		{"something completely different", KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := KindOf(errors.New(tt.msg)); got != tt.want {
				t.Errorf("KindOf(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestMarkerRuleOrder(t *testing.T) {
	// "challenge" outranks "429" when both appear; the rule table is ordered.
	err := errors.New("challenge required after 429 response")
	if got := KindOf(err); got != KindChallengeRequired {
		t.Errorf("KindOf() = %v, want %v", got, KindChallengeRequired)
	}
}

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		New(KindRateLimit, "rate limited", 429),
		New(KindConnectionError, "reset by peer", 0),
		New(KindChallengeRequired, "challenge", 400),
		errors.New("temporary failure in name resolution"),
		errors.New("connection reset"),
		errors.New("503 service unavailable"),
	}
	for _, err := range retryable {
		if !IsRetryable(err) {
			t.Errorf("IsRetryable(%v) = false, want true", err)
		}
	}

	terminal := []error{
		New(KindProfileNotFound, "gone", 404),
		New(KindPrivateProfile, "private", 403),
		New(KindBadCredentials, "bad login", 400),
		New(KindTwoFactorRequired, "2fa", 400),
		errors.New("no such account"),
		nil,
	}
	for _, err := range terminal {
		if IsRetryable(err) {
			t.Errorf("IsRetryable(%v) = true, want false", err)
		}
	}
}

func TestGuidance(t *testing.T) {
	if g := Guidance(KindRateLimit); g == "" {
		t.Error("expected guidance for rate_limit")
	}
	if g := Guidance(KindUnknown); g != "An error occurred. Check logs for details" {
		t.Errorf("unexpected fallback guidance: %q", g)
	}
	if Guidance(Kind("bogus")) != Guidance(KindUnknown) {
		t.Error("unknown kinds should share the generic guidance")
	}
}

func TestClassify(t *testing.T) {
	cls := Classify(New(KindProfileNotFound, "account does not exist", 404))
	if cls.Kind != KindProfileNotFound {
		t.Errorf("Kind = %v, want %v", cls.Kind, KindProfileNotFound)
	}
	if cls.Retryable {
		t.Error("profile_not_found must not be retryable")
	}
	if cls.Guidance != Guidance(KindProfileNotFound) {
		t.Error("guidance mismatch")
	}

	cls = Classify(errors.New("read tcp: i/o timeout"))
	if cls.Kind != KindTimeout || !cls.Retryable {
		t.Errorf("got %+v, want retryable timeout", cls)
	}
}
