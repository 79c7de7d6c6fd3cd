package completion

import (
	"context"
	"errors"
	"fmt"
)

// Request is a single instruction sent to a completion provider.
type Request struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// Completer returns the raw generated text for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

var (
	ErrRemote    = errors.New("remote error")
	ErrTimeout   = errors.New("timeout")
	ErrTransport = errors.New("transport error")
)

// Kind classifies a Failure.
type Kind string

const (
	KindRemote    Kind = "remote_error"
	KindTimeout   Kind = "timeout"
	KindTransport Kind = "transport_error"
)

// Failure is the only error type a Completer returns for "no result".
type Failure struct {
	Kind        Kind
	OperationID string
	Status      int
	Detail      string
	Err         error
}

func (f *Failure) Error() string {
	msg := string(f.Kind)
	if f.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, f.Status)
	}
	if f.OperationID != "" {
		msg += " operation " + f.OperationID
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Is matches the sentinel for the failure's kind.
func (f *Failure) Is(target error) bool {
	switch target {
	case ErrRemote:
		return f.Kind == KindRemote
	case ErrTimeout:
		return f.Kind == KindTimeout
	case ErrTransport:
		return f.Kind == KindTransport
	}
	return false
}

func Remote(status int, detail string) *Failure {
	return &Failure{Kind: KindRemote, Status: status, Detail: detail}
}

func Timeout(detail string, err error) *Failure {
	return &Failure{Kind: KindTimeout, Detail: detail, Err: err}
}

func Transport(err error) *Failure {
	return &Failure{Kind: KindTransport, Err: err}
}

// KindOf returns the failure kind of err, or "" when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}

// Truncate shortens s to at most n runes for log records.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
