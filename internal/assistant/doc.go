// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package assistant is the HTTP client for the legal-assistant service.
//
// The service is treated as an opaque JSON API: ask, generate-document,
// upload, start/stop recording, text-to-speech and speech-languages.
// Responses are read with a size limit, non-2xx statuses become *APIError,
// and 2xx bodies without the expected fields wrap ErrMalformedResponse.
// Nothing is retried; callers surface failures to the user instead.
//
// # Key Types
//
//   - Service: the interface the client core depends on
//   - Client: net/http implementation with a rate limiter
//   - Transcription: result of stopping a recording
//
// # Usage
//
//	c := assistant.NewClient("http://localhost:8000").WithLogger(logger)
//	answer, err := c.Ask(ctx, "What is a lease?")
package assistant
