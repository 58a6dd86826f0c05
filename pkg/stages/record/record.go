// Package record implements the realtime capture stage: it plays the clip
// window on the compositor and records the surface with the original audio.
package record

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/user/clipforge/pkg/pipeline"
	"github.com/user/clipforge/pkg/ports"
	"github.com/user/clipforge/pkg/strategy"
)

// eventQueueSize bounds buffered collaborator events.
const eventQueueSize = 64

// Stage records a clip window from a live compositor.
type Stage struct {
	compositor ports.Compositor
	logger     ports.Logger
}

// New creates a new record stage.
func New(compositor ports.Compositor, logger ports.Logger) *Stage {
	return &Stage{
		compositor: compositor,
		logger:     logger.WithComponent("recorder"),
	}
}

// run is the state of one Execute call. Everything except the event queue,
// the stopping flag and done is touched only by the loop goroutine.
type run struct {
	id         string
	input      pipeline.RecordInput
	compositor ports.Compositor
	logger     ports.Logger
	progress   pipeline.ProgressFunc
	cancel     pipeline.CancelCheck

	m    machine
	sess session

	events    chan event
	done      chan struct{}
	closeOnce sync.Once
	stopping  atomic.Bool

	started   bool
	cancelled bool
	stoppedBy pipeline.StopReason
	recStart  time.Time
	estimate  float64
	timer     *time.Timer
	ticker    *time.Ticker
	waitTimer *time.Timer
	result    pipeline.RecordResult
	resultErr error
}

// Execute records input.Window. It returns pipeline.ErrUnsupportedEnvironment
// before touching the compositor when realtime capture cannot run here.
func (s *Stage) Execute(ctx context.Context, input pipeline.RecordInput) (pipeline.RecordResult, error) {
	if err := input.Window.Validate(); err != nil {
		return pipeline.RecordResult{}, err
	}

	env, err := s.compositor.Environment(ctx)
	if err != nil {
		return pipeline.RecordResult{}, fmt.Errorf("probe environment: %w", err)
	}
	if err := strategy.CheckCapture(env); err != nil {
		return pipeline.RecordResult{}, err
	}

	r := &run{
		id:         uuid.NewString()[:8],
		input:      withDefaults(input),
		compositor: s.compositor,
		progress:   pipeline.MonotonicProgress(input.Hooks.Progress),
		cancel:     input.Hooks.Cancel,
		events:     make(chan event, eventQueueSize),
		done:       make(chan struct{}),
	}
	r.logger = s.logger.WithComponent(r.id)

	go func() {
		select {
		case <-ctx.Done():
			r.enqueue(event{kind: evCancelRequested})
		case <-r.done:
		}
	}()

	r.logger.Debug("Recording %s", input.Window)
	r.loop()
	return r.result, r.resultErr
}

func withDefaults(in pipeline.RecordInput) pipeline.RecordInput {
	def := pipeline.DefaultRecordInput()
	if in.FPS <= 0 {
		in.FPS = def.FPS
	}
	if in.VideoBitsPerSecond <= 0 {
		in.VideoBitsPerSecond = def.VideoBitsPerSecond
	}
	if in.FlushInterval <= 0 {
		in.FlushInterval = def.FlushInterval
	}
	if in.StopMargin < 0 {
		in.StopMargin = def.StopMargin
	}
	if in.TickInterval <= 0 {
		in.TickInterval = def.TickInterval
	}
	if in.SeekTimeout <= 0 {
		in.SeekTimeout = def.SeekTimeout
	}
	if in.StopTimeout <= 0 {
		in.StopTimeout = def.StopTimeout
	}
	if len(in.MimePreferences) == 0 {
		in.MimePreferences = def.MimePreferences
	}
	return in
}

// enqueue delivers ev to the loop, or drops it once the run has ended.
func (r *run) enqueue(ev event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *run) transition(to State) {
	from := r.m.state
	if err := r.m.transition(to); err != nil {
		// Only reachable through a bug in the loop below.
		panic(err)
	}
	r.logger.Debug("State %s -> %s", from, to)
}

// loop drives the run from Idle to a terminal state.
func (r *run) loop() {
	r.transition(StatePreparing)
	r.progress.Report(5, pipeline.StagePreparing)

	if err := r.acquireStream(); err != nil {
		r.fail(err)
		return
	}
	r.silenceMedia()
	if err := r.createRecorder(); err != nil {
		r.fail(err)
		return
	}

	if r.cancel.Cancelled() {
		r.finishCancelled()
		return
	}

	r.transition(StateSeeking)
	r.progress.Report(15, pipeline.StageExtracting)
	media := r.compositor.Media()
	r.sess.detachSeeked = media.OnSeeked(func() {
		r.enqueue(event{kind: evSeeked})
	})
	if err := media.Seek(r.input.Window.Start); err != nil {
		r.fail(fmt.Errorf("seek to %.2fs: %w", r.input.Window.Start, err))
		return
	}
	r.waitTimer = time.NewTimer(r.input.SeekTimeout)

	for {
		select {
		case ev := <-r.events:
			if r.handle(ev) {
				return
			}
		case <-r.waitTimer.C:
			if r.onWaitTimeout() {
				return
			}
		}
	}
}

// handle processes one event and reports whether the run reached a terminal state.
func (r *run) handle(ev event) bool {
	switch r.m.state {
	case StateSeeking:
		switch ev.kind {
		case evSeeked:
			if r.started {
				return false
			}
			r.started = true
			if r.cancel.Cancelled() {
				r.finishCancelled()
				return true
			}
			return r.startRecording()
		case evCancelRequested:
			r.finishCancelled()
			return true
		case evRecorderFailed:
			r.fail(&pipeline.EncodingError{Op: "recording", Err: ev.err})
			return true
		}

	case StateRecording:
		switch ev.kind {
		case evDataAvailable:
			r.sess.chunks = append(r.sess.chunks, ev.data)
			r.logger.Debug("Chunk %d: %d bytes", len(r.sess.chunks), len(ev.data))
		case evPositionReached:
			return r.stop(pipeline.StopByPosition)
		case evTimerFired:
			return r.stop(pipeline.StopByTimer)
		case evTick:
			if r.cancel.Cancelled() {
				r.cancelled = true
				return r.stop(pipeline.StopByCancel)
			}
			r.advanceEstimate()
		case evCancelRequested:
			r.cancelled = true
			return r.stop(pipeline.StopByCancel)
		case evRecorderStopped:
			// The recorder ended on its own; treat it as a stop and finalize.
			if r.stop(pipeline.StopByRecorder) {
				return true
			}
			return r.finalize()
		case evRecorderFailed:
			r.fail(&pipeline.EncodingError{Op: "recording", Err: ev.err})
			return true
		}

	case StateStopping:
		switch ev.kind {
		case evDataAvailable:
			r.sess.chunks = append(r.sess.chunks, ev.data)
			r.logger.Debug("Chunk %d: %d bytes", len(r.sess.chunks), len(ev.data))
		case evRecorderStopped:
			return r.finalize()
		case evRecorderFailed:
			r.fail(&pipeline.EncodingError{Op: "recording", Err: ev.err})
			return true
		case evCancelRequested:
			r.cancelled = true
			return false
		}
	}

	if ev.kind != evTick && ev.kind != evDataAvailable {
		r.logger.Debug("Ignoring %s in state %s", ev.kind, r.m.state)
	}
	return false
}

// onWaitTimeout handles an expired seek or stop wait.
func (r *run) onWaitTimeout() bool {
	switch r.m.state {
	case StateSeeking:
		r.fail(fmt.Errorf("%w after %s", ErrSeekTimeout, r.input.SeekTimeout))
		return true
	case StateStopping:
		if r.cancelled || r.cancel.Cancelled() {
			r.finishCancelled()
			return true
		}
		r.fail(&pipeline.EncodingError{Op: "recorder stop", Err: ErrStopTimeout})
		return true
	}
	return false
}

// startRecording starts the recorder, playback and the stop clocks.
func (r *run) startRecording() bool {
	r.waitTimer.Stop()
	r.transition(StateRecording)
	r.progress.Report(20, pipeline.StageRendering)

	if err := r.sess.recorder.Start(r.input.FlushInterval); err != nil {
		r.fail(&pipeline.EncodingError{Op: "recorder start", Err: err})
		return true
	}
	r.recStart = time.Now()

	media := r.compositor.Media()
	end := r.input.Window.End
	r.sess.detachPos = media.OnPosition(func(pos float64) {
		if pos >= end && !r.stopping.Load() {
			r.enqueue(event{kind: evPositionReached, position: pos})
		}
	})

	if err := media.Play(); err != nil {
		r.fail(fmt.Errorf("play: %w", err))
		return true
	}

	r.timer = time.AfterFunc(r.input.Window.DurationTime()+r.input.StopMargin, func() {
		r.enqueue(event{kind: evTimerFired})
	})
	r.ticker = time.NewTicker(r.input.TickInterval)
	go func(c <-chan time.Time) {
		for {
			select {
			case <-c:
				r.enqueue(event{kind: evTick})
			case <-r.done:
				return
			}
		}
	}(r.ticker.C)

	r.logger.Debug("Recording started at %.2fs", r.input.Window.Start)
	return false
}

// advanceEstimate moves the rendering progress toward 85 in proportion to
// the elapsed share of the window.
func (r *run) advanceEstimate() {
	dur := r.input.Window.Duration()
	r.estimate += 65 / dur * r.input.TickInterval.Seconds()
	pct := 20 + int(r.estimate)
	if pct > 85 {
		pct = 85
	}
	r.progress.Report(pct, pipeline.StageRendering)
}

// stop ends recording once, whichever trigger arrives first.
// It reports whether the run reached a terminal state.
func (r *run) stop(reason pipeline.StopReason) bool {
	if !r.stopping.CompareAndSwap(false, true) {
		return false
	}
	r.stoppedBy = reason
	r.logger.Debug("Stopping recorder (%s)", reason)

	r.transition(StateStopping)
	r.progress.Report(85, pipeline.StageEncoding)

	if err := r.compositor.Media().Pause(); err != nil {
		r.logger.Warn("Pause failed: %v", err)
	}
	if r.sess.detachPos != nil {
		r.sess.detachPos()
		r.sess.detachPos = nil
	}
	r.stopClocks()

	if reason != pipeline.StopByRecorder && r.sess.recorder.State() == ports.RecorderRecording {
		if err := r.sess.recorder.Stop(); err != nil {
			r.fail(&pipeline.EncodingError{Op: "recorder stop", Err: err})
			return true
		}
	}
	r.waitTimer = time.NewTimer(r.input.StopTimeout)
	return false
}

func (r *run) stopClocks() {
	if r.timer != nil {
		r.timer.Stop()
	}
	if r.ticker != nil {
		r.ticker.Stop()
	}
}

// finalize assembles the artifact. A cancellation requested at any point
// before this wins over the recorded data.
func (r *run) finalize() bool {
	r.waitTimer.Stop()
	r.transition(StateFinalizing)

	if r.cancelled || r.cancel.Cancelled() {
		r.finishCancelled()
		return true
	}
	if len(r.sess.chunks) == 0 {
		r.fail(&pipeline.EncodingError{Op: "finalize", Err: ErrNoData})
		return true
	}

	r.progress.Report(90, pipeline.StageFinalizing)
	data := bytes.Join(r.sess.chunks, nil)
	r.result = pipeline.RecordResult{
		Artifact: pipeline.Artifact{
			Data:       data,
			MimeType:   r.sess.mimeType,
			DurationMs: int(r.input.Window.DurationTime().Milliseconds()),
		},
		ChunkCount:    len(r.sess.chunks),
		AudioCaptured: r.sess.audioCaptured,
		StoppedBy:     r.stoppedBy,
		Elapsed:       time.Since(r.recStart),
	}
	r.transition(StateCompleted)
	r.release()
	r.progress.Report(100, pipeline.StageComplete)
	r.logger.Debug("Recorded %d chunks, %.2f MB", len(r.sess.chunks), r.result.Artifact.SizeMB())
	return true
}

func (r *run) finishCancelled() {
	r.transition(StateCancelled)
	r.release()
	r.result = pipeline.RecordResult{ChunkCount: len(r.sess.chunks), StoppedBy: pipeline.StopByCancel}
	r.resultErr = pipeline.ErrCancelled
	r.logger.Info("Recording cancelled")
}

func (r *run) fail(err error) {
	r.transition(StateFailed)
	r.release()
	r.result = pipeline.RecordResult{ChunkCount: len(r.sess.chunks)}
	r.resultErr = err
	r.logger.Error("Recording failed: %v", err)
}
