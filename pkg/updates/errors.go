package updates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"archupdates/pkg/aur"
	"archupdates/pkg/news"
	"archupdates/pkg/pacman"
)

// ErrNoRemoteData is returned by offline checks when no online check has
// stored remote data for the source yet.
var ErrNoRemoteData = errors.New("no remote data cached; run an online check first")

// Kind categorizes a source failure.
type Kind int

const (
	// KindTransport is a network or process I/O failure.
	KindTransport Kind = iota
	// KindParse is malformed output, response or metadata.
	KindParse
	// KindCacheContention means the sync cache could not be locked or pacman
	// reported its database as locked.
	KindCacheContention
	// KindNotFound means expected metadata was absent.
	KindNotFound
	// KindTimeout means the check ran out of time or was cancelled.
	KindTimeout
)

// String returns the kind name used in output.
func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindParse:
		return "parse"
	case KindCacheContention:
		return "cache contention"
	case KindNotFound:
		return "not found"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

func parseKind(s string) Kind {
	for k := KindTransport; k <= KindTimeout; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindTransport
}

// Error is the failure of one update source.
type Error struct {
	Source Source
	Kind   Kind
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether trying again later may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTransport, KindCacheContention, KindTimeout:
		return true
	}
	return false
}

type errorDoc struct {
	Source    Source `json:"source" yaml:"source"`
	Kind      string `json:"kind" yaml:"kind"`
	Message   string `json:"message" yaml:"message"`
	Retryable bool   `json:"retryable" yaml:"retryable"`
}

func (e *Error) doc() errorDoc {
	msg := ""
	if e.Err != nil {
		msg = e.Err.Error()
	}
	return errorDoc{Source: e.Source, Kind: e.Kind.String(), Message: msg, Retryable: e.Retryable()}
}

// MarshalJSON renders the error as an object with a readable message.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.doc())
}

// UnmarshalJSON restores an error written by MarshalJSON. The original error
// value is lost; only its message survives.
func (e *Error) UnmarshalJSON(data []byte) error {
	var doc errorDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	e.Source = doc.Source
	e.Kind = parseKind(doc.Kind)
	e.Err = errors.New(doc.Message)
	return nil
}

// MarshalYAML renders the error as a mapping with a readable message.
func (e *Error) MarshalYAML() (any, error) {
	return e.doc(), nil
}

// classify wraps err into a source failure, picking the kind from the
// sentinel and structured errors of the leaf packages.
func classify(source Source, err error) *Error {
	var target *Error
	if errors.As(err, &target) && target.Source == source {
		return target
	}
	return &Error{Source: source, Kind: kindOf(err), Err: err}
}

func kindOf(err error) Kind {
	var pacErr *pacman.Error
	var syntaxErr *json.SyntaxError

	switch {
	case errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, pacman.ErrLockTimeout):
		return KindCacheContention
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &pacErr):
		switch pacErr.Type {
		case pacman.ErrorDatabaseLocked:
			return KindCacheContention
		case pacman.ErrorDatabaseInvalid:
			return KindParse
		}
		return KindTransport
	case errors.Is(err, aur.ErrMalformedResponse), errors.Is(err, news.ErrMalformedFeed),
		errors.As(err, &syntaxErr):
		return KindParse
	case errors.Is(err, aur.ErrNotFound), errors.Is(err, pacman.ErrNoSnapshot),
		errors.Is(err, ErrNoRemoteData):
		return KindNotFound
	}
	return KindTransport
}
