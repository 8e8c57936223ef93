package textextractor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dv00d00/expo-text-extractor/backend"
	"github.com/dv00d00/expo-text-extractor/ocrerror"
	"github.com/dv00d00/expo-text-extractor/unified"
)

// callState is the lifecycle of one recognition call. Resolved and
// rejected are terminal.
type callState int32

const (
	stateIdle callState = iota
	stateInFlight
	stateResolved
	stateRejected
)

func (s callState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInFlight:
		return "in-flight"
	case stateResolved:
		return "resolved"
	case stateRejected:
		return "rejected"
	default:
		return fmt.Sprintf("callState(%d)", int32(s))
	}
}

// call tracks a single-shot recognition. It is never retried.
type call struct {
	id       string
	op       string
	platform unified.Platform
	started  time.Time
	state    atomic.Int32
	logger   *zap.Logger
}

func newCall(op string, platform unified.Platform, logger *zap.Logger) *call {
	id := uuid.New().String()
	return &call{
		id:       id,
		op:       op,
		platform: platform,
		started:  time.Now(),
		logger:   logger.With(zap.String("call_id", id), zap.String("op", op), zap.String("platform", string(platform))),
	}
}

func (c *call) current() callState { return callState(c.state.Load()) }

// transition moves the call forward. Moves out of a terminal state are
// refused and reported false.
func (c *call) transition(from, to callState) bool {
	if !c.state.CompareAndSwap(int32(from), int32(to)) {
		c.logger.Warn("Refused call state transition",
			zap.Stringer("from", from),
			zap.Stringer("to", to),
			zap.Stringer("state", c.current()))
		return false
	}
	c.logger.Debug("Call state changed", zap.Stringer("from", from), zap.Stringer("to", to))
	return true
}

func (c *call) start() bool {
	return c.transition(stateIdle, stateInFlight)
}

func (c *call) resolve() {
	if c.transition(stateInFlight, stateResolved) {
		c.logger.Info("Recognition succeeded", zap.Duration("duration", time.Since(c.started)))
	}
}

// reject settles the call with err converted to an *OCRError carrying the
// call id.
func (c *call) reject(err error) *ocrerror.OCRError {
	oe := ocrerror.Wrap(c.id, err)
	if c.transition(stateInFlight, stateRejected) {
		c.logger.Warn("Recognition failed",
			zap.String("error_code", string(oe.Code)),
			zap.Error(err),
			zap.Duration("duration", time.Since(c.started)))
	}
	return oe
}

type outcome struct {
	raw unified.PlatformResult
	err error
}

// invoke races the native call against the timeout and the caller's
// context. The native goroutine writes to a buffered channel, so a late
// result is dropped without leaking the goroutine.
func (c *call) invoke(ctx context.Context, b backend.Backend, img backend.Image, opts unified.OCROptions) (unified.PlatformResult, error) {
	callCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: ocrerror.NewProcessingFailedError(c.id, string(c.platform),
					fmt.Errorf("native recognizer panicked: %v", r))}
			}
		}()
		raw, err := b.Recognize(callCtx, img, opts)
		done <- outcome{raw: raw, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			return nil, c.classify(callCtx, o.err)
		}
		return o.raw, nil
	case <-callCtx.Done():
		c.logger.Debug("Discarding native result", zap.Error(callCtx.Err()))
		return nil, c.classify(callCtx, callCtx.Err())
	}
}

// classify maps backend and context errors onto the taxonomy.
func (c *call) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ocrerror.NewTimeoutError(c.id, c.timeoutDuration(ctx), err)
	case errors.Is(err, context.Canceled):
		return ocrerror.NewProcessingFailedError(c.id, string(c.platform), err).
			WithDetail("reason", "canceled")
	case ocrerror.CodeOf(err) == ocrerror.ErrorUnknown:
		var oe *ocrerror.OCRError
		if errors.As(err, &oe) {
			return err
		}
		return ocrerror.NewProcessingFailedError(c.id, string(c.platform), err)
	default:
		return err
	}
}

func (c *call) timeoutDuration(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		return deadline.Sub(c.started).Round(time.Millisecond)
	}
	return time.Since(c.started).Round(time.Millisecond)
}
