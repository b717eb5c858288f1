package session

import "errors"

var (
	// ErrSessionNotFound is returned by Append for a session id that was
	// never passed to GetOrCreate.
	ErrSessionNotFound = errors.New("session not found")

	// ErrStoreClosed is returned by any operation after Close.
	ErrStoreClosed = errors.New("session store closed")
)
