// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package assistant

import (
	"context"
	"io"
)

// Transcription is the outcome of a stop-recording call. OK is false when
// the server reported failure or returned no usable transcript.
type Transcription struct {
	Text string
	OK   bool
}

// Service is the remote assistant as seen by the client core.
type Service interface {
	// Ask sends a question and returns the answer.
	Ask(ctx context.Context, query string) (string, error)

	// GenerateDocument drafts a document from description. An empty
	// preferredType lets the server pick.
	GenerateDocument(ctx context.Context, description, preferredType string) (string, error)

	// Upload sends a document to be indexed as context.
	Upload(ctx context.Context, name string, r io.Reader) (string, error)

	// StartCapture starts the server-side recorder.
	StartCapture(ctx context.Context) (bool, error)

	// StopCapture stops the recorder and returns its transcript.
	StopCapture(ctx context.Context) (Transcription, error)

	// SynthesizeSpeech asks the server to speak text.
	SynthesizeSpeech(ctx context.Context, text string) error
}
