// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package recording

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/vakil/internal/assistant"
	"github.com/jeranaias/vakil/internal/logging"
)

// =============================================================================
// STATE
// =============================================================================

// State is the recorder state.
type State int

const (
	// Idle means no capture is in progress.
	Idle State = iota
	// Capturing means the remote recorder is running.
	Capturing
	// Transcribing means a stop request is waiting for its transcript.
	Transcribing
	// Failed is reported transiently after a failed call, just before Idle.
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case Transcribing:
		return "transcribing"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a new capture must not be started.
func (s State) Busy() bool {
	return s == Capturing || s == Transcribing
}

var (
	// ErrBusy is returned by StartCapture when a cycle is already running.
	ErrBusy = errors.New("recorder busy")

	// ErrStartRejected is returned when the server declines to start.
	ErrStartRejected = errors.New("recorder refused to start")
)

// Capturer is the remote recording resource.
type Capturer interface {
	StartCapture(ctx context.Context) (bool, error)
	StopCapture(ctx context.Context) (assistant.Transcription, error)
}

// Result is the outcome of a capture cycle. Owner is the value passed to
// StartCapture, so callers can decide whether the transcript still has a
// home.
type Result struct {
	Transcript string
	OK         bool
	Owner      string
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller owns the single capture resource. Every call that leaves Idle
// returns with the state back at Idle or Capturing; a failure never leaves
// it at Capturing or Transcribing.
type Controller struct {
	mu       sync.Mutex
	state    State
	starting bool
	owner    string
	capturer Capturer
	logger   *zap.Logger

	observerMu sync.Mutex
	observer   func(State)
}

// NewController creates an idle controller.
func NewController(capturer Capturer, logger *zap.Logger) *Controller {
	return &Controller{
		capturer: capturer,
		logger:   logging.OrNop(logger).Named("recording"),
	}
}

// OnStateChange registers fn to observe every transition, including the
// transient Failed state. Passing nil removes the observer.
func (c *Controller) OnStateChange(fn func(State)) {
	c.observerMu.Lock()
	c.observer = fn
	c.observerMu.Unlock()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartCapture moves Idle to Capturing and starts the remote recorder.
// owner is an opaque tag echoed back in the Result of the matching stop.
// If the server refuses or the call fails, the controller is back at Idle
// when StartCapture returns.
func (c *Controller) StartCapture(ctx context.Context, owner string) error {
	c.mu.Lock()
	if c.state != Idle {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("start ignored: recorder busy", zap.Stringer("state", state))
		return ErrBusy
	}
	c.state = Capturing
	c.starting = true
	c.owner = owner
	c.mu.Unlock()
	c.notify(Capturing)

	ok, err := c.capturer.StartCapture(ctx)

	c.mu.Lock()
	c.starting = false
	c.mu.Unlock()

	if err != nil || !ok {
		if err == nil {
			err = ErrStartRejected
		}
		c.logger.Info("capture start failed", zap.Error(err))
		c.fail()
		return err
	}

	c.logger.Debug("capture started")
	return nil
}

// StopCapture moves Capturing to Transcribing, stops the recorder and
// returns the transcript. It is a no-op returning a zero Result when no
// capture is running. A failed or empty transcription yields OK=false and
// no error; a transport failure returns the error. Either way the
// controller is Idle afterwards.
func (c *Controller) StopCapture(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.state != Capturing || c.starting {
		c.mu.Unlock()
		return Result{}, nil
	}
	c.state = Transcribing
	owner := c.owner
	c.mu.Unlock()
	c.notify(Transcribing)

	t, err := c.capturer.StopCapture(ctx)
	if err != nil {
		c.logger.Info("capture stop failed", zap.Error(err))
		c.fail()
		return Result{Owner: owner}, err
	}

	c.setIdle()
	if !t.OK {
		c.logger.Debug("no transcript returned")
		return Result{Owner: owner}, nil
	}
	return Result{Transcript: t.Text, OK: true, Owner: owner}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// fail reports Failed and settles at Idle.
func (c *Controller) fail() {
	c.mu.Lock()
	c.state = Failed
	c.mu.Unlock()
	c.notify(Failed)
	c.setIdle()
}

func (c *Controller) setIdle() {
	c.mu.Lock()
	c.state = Idle
	c.owner = ""
	c.mu.Unlock()
	c.notify(Idle)
}

func (c *Controller) notify(s State) {
	c.observerMu.Lock()
	fn := c.observer
	c.observerMu.Unlock()
	if fn != nil {
		fn(s)
	}
}
