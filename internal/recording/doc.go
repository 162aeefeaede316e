// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package recording drives the server-side voice recorder.
//
// The recorder is a singleton resource. Controller is the only thing that
// talks to it, and it walks a small state machine:
//
//	Idle --StartCapture--> Capturing --StopCapture--> Transcribing --> Idle
//
// A failed call passes through Failed on its way back to Idle within the
// same operation, so observers can flash an error but the controller is
// never left mid-cycle.
package recording
