// File: internal/infra/panel/errors.go
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"vpn-subscription-bot/internal/domain"
)

// Kind is the closed set of failure classes every caller switches on.
type Kind int

const (
	KindAPI Kind = iota
	KindNetwork
	KindAuth
	KindValidation
	KindNotFound
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindServer:
		return "server"
	default:
		return "api"
	}
}

// Error is a classified panel failure.
type Error struct {
	Kind    Kind
	Op      string
	Status  int             // HTTP status, 0 for transport failures
	Details json.RawMessage // upstream body for validation errors
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("panel %s: %s error", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets callers match panel failures against domain sentinels. A rejected
// panel login is the bot's credential problem and never matches
// domain.ErrUnauthorized, which is about the Telegram actor.
func (e *Error) Is(target error) bool {
	return target == domain.ErrNotFound && e.Kind == KindNotFound
}

// Retryable reports whether the retry policy may try the call again.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindServer
}

// KindOf returns the kind of a classified error, KindAPI otherwise.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindAPI
}

// IsRetryable is the default retry predicate.
func IsRetryable(err error) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Retryable()
}

// Classify turns a transport error or a non-2xx response into an *Error.
// resp may be nil when err is set; body is the already-read response body.
func Classify(op string, resp *http.Response, body []byte, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if err != nil {
		if isNetwork(err) {
			return &Error{Kind: KindNetwork, Op: op, Err: err}
		}
		return &Error{Kind: KindAPI, Op: op, Err: err}
	}
	if resp == nil {
		return &Error{Kind: KindAPI, Op: op, Err: errors.New("no response")}
	}

	status := resp.StatusCode
	e := &Error{Op: op, Status: status}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindAuth
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
		if json.Valid(body) {
			e.Details = json.RawMessage(body)
		}
	case status == http.StatusNotFound:
		e.Kind = KindNotFound
	case status >= 500:
		e.Kind = KindServer
	default:
		e.Kind = KindAPI
	}
	e.Err = errors.New(summarize(body))
	return e
}

// malformed reports a 2xx response whose body does not match the contract.
func malformed(op string, err error) *Error {
	return &Error{Kind: KindAPI, Op: op, Err: fmt.Errorf("malformed response: %w", err)}
}

// isNetwork reports transport failures worth retrying. *url.Error wraps every
// http.Client failure, so it is unwrapped first: TLS verification and request
// construction errors are not network errors.
func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		err = urlErr.Err
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func summarize(body []byte) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	if len(body) == 0 {
		return "empty body"
	}
	return string(body)
}
