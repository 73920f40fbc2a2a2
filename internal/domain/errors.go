package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("login required")
	ErrForbidden       = errors.New("no permission")
	ErrNotFound        = errors.New("bookmark not found")
	ErrDuplicateURL    = errors.New("already saved")
	ErrInvalidInput    = errors.New("invalid input")
	ErrFetch           = errors.New("fetch failed")
	ErrStorage         = errors.New("storage failure")
)

// Kind classifies an error returned by a core operation.
type Kind int

const (
	KindUnknown Kind = iota
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindDuplicateURL
	KindInvalidInput
	KindHTTPStatus
	KindTransport
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindDuplicateURL:
		return "duplicate_url"
	case KindInvalidInput:
		return "invalid_input"
	case KindHTTPStatus:
		return "http_status"
	case KindTransport:
		return "transport"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// KindOf maps err onto its Kind. Nil and unclassified errors are KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.StatusCode != 0 {
			return KindHTTPStatus
		}
		return KindTransport
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicateURL):
		return KindDuplicateURL
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrFetch):
		return KindTransport
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindUnknown
	}
}

// FetchError reports a failed page fetch. StatusCode is set when the remote
// answered with a non-2xx status, Err when the request never completed.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("http error: status %d", e.StatusCode)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ErrFetch.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// StorageError wraps a persistence failure so callers only see ErrStorage
// while the cause stays available for logging.
func StorageError(err error) error {
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
