// Package errors defines the closed set of failure kinds produced by the
// content source and the classification rules that turn an arbitrary error
// into one of them. Classification prefers structured kinds carried by
// *Error values; substring matching against the message is a best-effort
// fallback only.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies a failure category.
type Kind string

const (
	KindProfileNotFound    Kind = "profile_not_found"
	KindPrivateProfile     Kind = "private_profile"
	KindTwoFactorRequired  Kind = "two_factor_required"
	KindBadCredentials     Kind = "bad_credentials"
	KindRateLimit          Kind = "rate_limit"
	KindConnectionError    Kind = "connection_error"
	KindChallengeRequired  Kind = "challenge_required"
	KindTimeout            Kind = "timeout"
	KindInvalidResponse    Kind = "invalid_response"
	KindBadRequest         Kind = "bad_request"
	KindUnauthorized       Kind = "unauthorized"
	KindNotFound           Kind = "not_found"
	KindServiceUnavailable Kind = "service_unavailable"
	KindUnknown            Kind = "unknown_error"
)

// Error is a structured failure from the content source or its transport.
type Error struct {
	Kind    Kind
	Message string
	Code    int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
}

// New creates a structured error with the given kind.
func New(kind Kind, message string, code int) *Error {
	return &Error{Kind: kind, Message: message, Code: code}
}

// Classified is the result of classifying a failure.
type Classified struct {
	Kind      Kind
	Retryable bool
	Guidance  string
}

// markerRule maps message substrings to a kind. Rules are evaluated in
// order; the first match wins.
type markerRule struct {
	markers []string
	kind    Kind
}

var markerRules = []markerRule{
	{[]string{"challenge_required", "challenge"}, KindChallengeRequired},
	{[]string{"rate limit", "429"}, KindRateLimit},
	{[]string{"timeout"}, KindTimeout},
	{[]string{"json decode", "invalid character", "unexpected end of json"}, KindInvalidResponse},
	{[]string{"400"}, KindBadRequest},
	{[]string{"401", "403"}, KindUnauthorized},
	{[]string{"404"}, KindNotFound},
	{[]string{"503"}, KindServiceUnavailable},
}

// transientMarkers flag messages that are worth retrying regardless of the
// kind they classified to.
var transientMarkers = []string{
	"rate limit",
	"too many requests",
	"connection",
	"timeout",
	"temporary",
	"429",
	"503",
}

// retryableKinds is the fixed subset of kinds eligible for retry.
var retryableKinds = map[Kind]bool{
	KindRateLimit:          true,
	KindConnectionError:    true,
	KindChallengeRequired:  true,
	KindTimeout:            true,
	KindServiceUnavailable: true,
}

// KindOf determines the failure kind for an error. A structured *Error in
// the chain decides directly; otherwise the message is matched against the
// ordered marker table.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	msg := strings.ToLower(err.Error())
	for _, rule := range markerRules {
		for _, marker := range rule.markers {
			if strings.Contains(msg, marker) {
				return rule.kind
			}
		}
	}

	return KindUnknown
}

// IsRetryable reports whether a failure is transient and worth retrying.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if retryableKinds[KindOf(err)] {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}

// guidance maps each kind to a fixed advisory string for downstream
// consumers of failure records.
var guidance = map[Kind]string{
	KindChallengeRequired:  "Verification required. Try fresh session cookies, enable a proxy, or reduce the crawl rate",
	KindRateLimit:          "Rate limit detected. Increase the delay between accounts or use proxies",
	KindProfileNotFound:    "Account does not exist or has been deleted",
	KindPrivateProfile:     "Account is private. Authentication and following required",
	KindTwoFactorRequired:  "Two-factor authentication required. Provide a TOTP secret",
	KindBadCredentials:     "Invalid username or password. Check credentials",
	KindConnectionError:    "Network connection issue. Check connectivity",
	KindTimeout:            "Request timed out. Try again or increase the timeout",
	KindInvalidResponse:    "The service returned an invalid response. May be temporary",
	KindBadRequest:         "The service rejected the request. Session cookies may be stale",
	KindUnauthorized:       "Authentication required or session expired. Provide valid session cookies",
	KindNotFound:           "Requested resource not found",
	KindServiceUnavailable: "Service temporarily unavailable. Try again later",
}

// Guidance returns the advisory string for a kind.
func Guidance(kind Kind) string {
	if g, ok := guidance[kind]; ok {
		return g
	}
	return "An error occurred. Check logs for details"
}

// Classify produces the full classification for a failure.
func Classify(err error) Classified {
	kind := KindOf(err)
	return Classified{
		Kind:      kind,
		Retryable: IsRetryable(err),
		Guidance:  Guidance(kind),
	}
}
