// Copyright 2024-2026 Aiku AI

package securecontent

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFetcher is returned when a remote confirmation is needed but no
	// thread backend is configured.
	ErrNoFetcher = errors.New("no thread fetcher configured")
	// ErrThreadNotFound is returned when the backend does not know the thread.
	ErrThreadNotFound = errors.New("thread not found")
	// ErrMalformedThread is returned when a thread payload cannot be read.
	ErrMalformedThread = errors.New("malformed thread payload")
)

// StatusError is returned for a non-2xx response from a thread backend.
type StatusError struct {
	StatusCode int
	ThreadID   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d fetching thread %s", e.StatusCode, e.ThreadID)
}
