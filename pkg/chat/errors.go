package chat

import (
	"errors"
	"fmt"
	"strings"
)

// Turn failure kinds. HandleTurn wraps one of these together with the cause,
// so callers classify with errors.Is and read the cause with Detail.
var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrMisconfigured   = errors.New("misconfigured")
	ErrUpstreamFailure = errors.New("upstream_failure")
	ErrStoreFailure    = errors.New("store_failure")
)

// ErrNoCredential is the cause reported with ErrMisconfigured when the
// server started without a model API key.
var ErrNoCredential = errors.New("model API key not configured")

var kinds = []error{ErrInvalidRequest, ErrMisconfigured, ErrUpstreamFailure, ErrStoreFailure}

func wrap(kind, cause error) error {
	return fmt.Errorf("%w: %w", kind, cause)
}

// Kind returns the failure kind err wraps, or nil if it wraps none.
func Kind(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Detail returns the cause text of a wrapped turn error.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if k := Kind(err); k != nil {
		return strings.TrimPrefix(msg, k.Error()+": ")
	}
	return msg
}
