// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMalformedResponse indicates a 2xx response that lacks the expected
	// fields or is not valid JSON.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrRateLimited indicates the server answered 429.
	ErrRateLimited = errors.New("rate limited by server")

	// ErrUnavailable indicates the server answered 5xx.
	ErrUnavailable = errors.New("assistant service unavailable")
)

// APIError is a non-2xx response from the assistant service.
type APIError struct {
	Endpoint string
	Status   int
	Detail   string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Endpoint, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Endpoint, e.Status)
}

// Is maps status classes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	case ErrUnavailable:
		return e.Status >= http.StatusInternalServerError
	}
	return false
}

// malformed wraps ErrMalformedResponse with the endpoint and reason.
func malformed(endpoint, reason string) error {
	return fmt.Errorf("%s: %w: %s", endpoint, ErrMalformedResponse, reason)
}
