// Package apierrors defines the machine-readable error kinds the fetch core
// can terminate a request with. Every kind is a stable, comparable sentinel;
// callers use errors.Is / errors.As rather than matching on strings.
package apierrors

import (
	"errors"
	"fmt"
)

// Kind is one of the terminal error kinds a fetch can surface.
type Kind string

const (
	KindInvalidUrl          Kind = "InvalidUrl"
	KindUnauthorized        Kind = "Unauthorized"
	KindRateLimited         Kind = "RateLimited"
	KindNoViableTier        Kind = "NoViableTier"
	KindFetchTimeout        Kind = "FetchTimeout"
	KindRenderFailed        Kind = "RenderFailed"
	KindValidationFailed    Kind = "ValidationFailed"
	KindBotDetected         Kind = "BotDetected"
	KindUpstreamRateLimited Kind = "UpstreamRateLimited"
	KindDiscoveryError      Kind = "DiscoveryError"
	KindPatternInvokeFailed Kind = "PatternInvokeFailed"
)

// Error wraps a Kind with context. It is always returned by pointer so a
// single fetch can carry exactly one terminal Error up to its caller.
type Error struct {
	Kind    Kind
	Message string
	Checks  []string // populated for KindValidationFailed
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, apierrors.KindX) style checks work by comparing Kind
// against a sentinel Error carrying only that Kind.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func InvalidUrl(raw string, err error) *Error {
	return Wrap(KindInvalidUrl, fmt.Sprintf("cannot canonicalize url %q", raw), err)
}

func NoViableTier(reason string) *Error {
	return New(KindNoViableTier, reason)
}

func FetchTimeout(elapsedMs int64) *Error {
	return New(KindFetchTimeout, fmt.Sprintf("wall-clock budget exceeded after %dms", elapsedMs))
}

func RenderFailed(tier string, err error) *Error {
	return Wrap(KindRenderFailed, fmt.Sprintf("renderer %q failed", tier), err)
}

func ValidationFailed(checks []string) *Error {
	return &Error{Kind: KindValidationFailed, Message: "verification failed on all tiers", Checks: checks}
}

func BotDetected(domain string) *Error {
	return New(KindBotDetected, fmt.Sprintf("anti-bot fingerprint page detected for %s", domain))
}

func UpstreamRateLimited(domain string) *Error {
	return New(KindUpstreamRateLimited, fmt.Sprintf("origin %s returned 429", domain))
}

// Sentinel kind-only values for errors.Is comparisons where callers don't
// need Message/Err populated.
var (
	ErrInvalidUrl          = &Error{Kind: KindInvalidUrl}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrRateLimited         = &Error{Kind: KindRateLimited}
	ErrNoViableTier        = &Error{Kind: KindNoViableTier}
	ErrFetchTimeout        = &Error{Kind: KindFetchTimeout}
	ErrRenderFailed        = &Error{Kind: KindRenderFailed}
	ErrValidationFailed    = &Error{Kind: KindValidationFailed}
	ErrBotDetected         = &Error{Kind: KindBotDetected}
	ErrUpstreamRateLimited = &Error{Kind: KindUpstreamRateLimited}
	ErrDiscoveryError      = &Error{Kind: KindDiscoveryError}
	ErrPatternInvokeFailed = &Error{Kind: KindPatternInvokeFailed}
)
