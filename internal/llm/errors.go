package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorKind classifies a failed classification call by whether waiting and
// re-attempting can plausibly succeed.
type ErrorKind int

const (
	// KindRateLimit means the provider refused the call due to throttling.
	KindRateLimit ErrorKind = iota
	// KindTransient covers timeouts, connection failures and 5xx responses.
	KindTransient
	// KindFatal covers failures that will not resolve by retrying, such as
	// rejected credentials or an unknown model.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	case KindTransient:
		return "transient"
	default:
		return "fatal"
	}
}

// ClassifyError maps a classification call error to its retry class.
//
// langchaingo surfaces provider HTTP failures as formatted errors carrying
// the status code and body text, so classification is substring-based for
// those, with typed checks for context and net errors first.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	if errors.Is(err, context.Canceled) {
		return KindFatal
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate_limit") || strings.Contains(msg, "quota"):
		return KindRateLimit
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") ||
		strings.Contains(msg, "invalid api key") || strings.Contains(msg, "incorrect api key") ||
		strings.Contains(msg, "model not found") || strings.Contains(msg, "does not exist"):
		return KindFatal
	case strings.Contains(msg, "500") || strings.Contains(msg, "502") ||
		strings.Contains(msg, "503") || strings.Contains(msg, "504") ||
		strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "eof") || strings.Contains(msg, "overloaded"):
		return KindTransient
	default:
		// Unknown failures are treated as transient so a flaky provider
		// response cannot end the run; retries cap the damage.
		return KindTransient
	}
}

// IsFatal reports whether the error should short-circuit retries.
func IsFatal(err error) bool {
	return ClassifyError(err) == KindFatal
}
