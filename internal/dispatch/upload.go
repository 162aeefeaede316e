// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dispatch

import (
	"context"
	"io"

	"go.uber.org/zap"
)

// UploadStatus is the transient feedback state of the latest upload.
type UploadStatus int

const (
	// UploadIdle means no upload has been attempted yet.
	UploadIdle UploadStatus = iota
	// UploadUploading means a request is in flight.
	UploadUploading
	// UploadSuccess means the last upload was indexed.
	UploadSuccess
	// UploadError means the last upload failed.
	UploadError
)

// String returns the status name.
func (s UploadStatus) String() string {
	switch s {
	case UploadIdle:
		return "idle"
	case UploadUploading:
		return "uploading"
	case UploadSuccess:
		return "success"
	case UploadError:
		return "error"
	default:
		return "unknown"
	}
}

// Upload sends a document as context for the active session. On success
// UploadedMessage is appended, on failure UploadErrorMessage; never both.
// It returns false without doing anything when no session is active.
func (p *Pipeline) Upload(ctx context.Context, name string, r io.Reader) bool {
	sessionID := p.registry.ActiveID()
	if sessionID == "" {
		return false
	}

	p.setUpload(UploadUploading, name)

	if _, err := p.service.Upload(ctx, name, r); err != nil {
		p.logger.Warn("upload failed",
			zap.String("session_id", sessionID),
			zap.String("file", name),
			zap.Error(err))
		p.setUpload(UploadError, name)
		p.appendReply(sessionID, UploadErrorMessage)
		return true
	}

	p.logger.Info("document uploaded", zap.String("session_id", sessionID), zap.String("file", name))
	p.setUpload(UploadSuccess, name)
	p.appendReply(sessionID, UploadedMessage)
	return true
}

// UploadStatus returns the latest upload state and its file name.
func (p *Pipeline) UploadStatus() (UploadStatus, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uploadStatus, p.uploadName
}

func (p *Pipeline) setUpload(s UploadStatus, name string) {
	p.mu.Lock()
	p.uploadStatus = s
	p.uploadName = name
	p.mu.Unlock()
}
