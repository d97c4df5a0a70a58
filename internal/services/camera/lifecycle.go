package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/counting"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/linecrossing"
)

// JobState represents the atomic state of a camera job
type JobState int32

const (
	StateIdle JobState = iota
	StateConfiguring
	StateReady
	StateRunning
	StateCompleted
	StateStopped
	StateFailed
)

func (s JobState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfiguring:
		return "configuring"
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the job has finished a run
func (s JobState) Terminal() bool {
	return s == StateCompleted || s == StateStopped || s == StateFailed
}

// JobOptions tune a camera job
type JobOptions struct {
	// EvictAfter is the number of consecutive frames a track may be absent
	// before its state is dropped. Zero derives it from the source fps.
	EvictAfter int
	// ProgressEvery throttles progress messages to one per N frames
	ProgressEvery int
	// Gate restricts counting to crossings near the drawn segment; nil
	// counts any side change of the infinite line
	Gate *linecrossing.SegmentGate
}

// JobDeps are the collaborators of a camera job
type JobDeps struct {
	Opener     SourceOpener
	Tracker    Tracker
	Classifier *counting.Classifier
	Baseliner  Baseliner
	Emit       Emitter
	Observer   FrameObserver
	Logger     zerolog.Logger
}

// Job supervises the processing of one camera role. It owns its track
// states, event log and statistics; nothing is shared with other jobs.
type Job struct {
	role   models.CameraRole
	deps   JobDeps
	opts   JobOptions
	logger zerolog.Logger

	// State management
	state           int32
	stopRequested   atomic.Bool
	framesProcessed atomic.Int64
	warnings        atomic.Int64

	// Configuration and reporting, guarded by mu
	mu         sync.RWMutex
	source     *models.SourceSpec
	line       *models.CountingLine
	info       models.SourceInfo
	progress   models.Progress
	failure    *models.JobFailure
	startedAt  *time.Time
	finishedAt *time.Time
	stats      models.CameraStatistics
	runSeq     int
	cancelRead context.CancelFunc
	done       chan struct{}

	// Owned by the run goroutine while running
	events *counting.EventLog
	acc    *counting.Accumulator
}

// NewJob creates an idle job for role
func NewJob(role models.CameraRole, deps JobDeps, opts JobOptions) *Job {
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}
	done := make(chan struct{})
	close(done)

	j := &Job{
		role:   role,
		deps:   deps,
		opts:   opts,
		logger: deps.Logger,
		stats:  models.NewCameraStatistics(),
		done:   done,
		events: &counting.EventLog{},
		acc:    counting.NewAccumulator(),
	}
	j.setState(StateIdle)
	return j
}

// Role returns the camera role of the job
func (j *Job) Role() models.CameraRole {
	return j.role
}

// setState atomically sets the job state
func (j *Job) setState(state JobState) {
	atomic.StoreInt32(&j.state, int32(state))
}

// State atomically gets the job state
func (j *Job) State() JobState {
	return JobState(atomic.LoadInt32(&j.state))
}

// AttachSource attaches a file or live source. Attaching after a finished
// run applies mode: continue keeps the exposed statistics as a baseline,
// restart clears statistics and the event log. A failed run always restarts.
func (j *Job) AttachSource(spec models.SourceSpec, mode models.AccumulationMode) error {
	if !spec.Kind.IsValid() {
		return fmt.Errorf("invalid source kind %q", spec.Kind)
	}
	if spec.URI == "" {
		return errors.New("source uri is required")
	}

	j.mu.Lock()
	st := j.State()
	switch {
	case st == StateRunning:
		j.mu.Unlock()
		return ErrConfigurationLocked
	case st.Terminal():
		if mode == models.ModeContinue && st != StateFailed {
			j.continueRunLocked()
		} else {
			j.restartRunLocked()
		}
		j.line = nil
		j.failure = nil
		j.startedAt = nil
		j.finishedAt = nil
		j.info = models.SourceInfo{}
		j.progress = models.Progress{}
		j.framesProcessed.Store(0)
		j.warnings.Store(0)
		j.source = &spec
		j.setState(StateConfiguring)
	default:
		j.source = &spec
		if j.line != nil {
			j.setState(StateReady)
		} else {
			j.setState(StateConfiguring)
		}
	}
	status := j.statusLocked()
	j.mu.Unlock()

	j.logger.Info().
		Str("kind", string(spec.Kind)).
		Str("uri", spec.URI).
		Str("mode", string(mode)).
		Str("state", status.State).
		Msg("Source attached")
	j.emit(models.MessageStatus, status)
	return nil
}

func (j *Job) continueRunLocked() {
	if j.deps.Baseliner != nil {
		j.deps.Baseliner.Continue(j.role)
	}
	j.acc.Reset()
	j.stats = models.NewCameraStatistics()
	j.runSeq++
}

func (j *Job) restartRunLocked() {
	if j.deps.Baseliner != nil {
		j.deps.Baseliner.Restart(j.role)
	}
	j.acc.Reset()
	j.events.Clear()
	j.stats = models.NewCameraStatistics()
	j.runSeq = 0
}

// SetLine configures the counting line. The line is locked while running.
func (j *Job) SetLine(line models.CountingLine) error {
	if err := linecrossing.Validate(line); err != nil {
		return fmt.Errorf("invalid counting line: %w", err)
	}

	j.mu.Lock()
	st := j.State()
	switch {
	case st == StateRunning:
		j.mu.Unlock()
		return ErrConfigurationLocked
	case st.Terminal():
		j.mu.Unlock()
		return fmt.Errorf("%w: attach a new source before redrawing the line", ErrInvalidTransition)
	case st == StateIdle:
		j.line = &line
	default:
		j.line = &line
		j.setState(StateReady)
	}
	status := j.statusLocked()
	j.mu.Unlock()

	j.logger.Info().
		Float64("ax", line.A.X).Float64("ay", line.A.Y).
		Float64("bx", line.B.X).Float64("by", line.B.Y).
		Str("inside", line.Inside.String()).
		Msg("Counting line configured")
	j.emit(models.MessageStatus, status)
	return nil
}

// Start launches the job goroutine. ctx bounds the whole run; Stop is the
// normal way to end it.
func (j *Job) Start(ctx context.Context) error {
	j.mu.Lock()
	st := j.State()
	switch {
	case st == StateRunning:
		j.mu.Unlock()
		return fmt.Errorf("%w: already running", ErrInvalidTransition)
	case st.Terminal():
		j.mu.Unlock()
		return fmt.Errorf("%w: attach a new source to run again", ErrInvalidTransition)
	case j.source == nil:
		j.mu.Unlock()
		return ErrSourceNotConfigured
	case j.line == nil:
		j.mu.Unlock()
		return ErrLineNotConfigured
	}

	if !atomic.CompareAndSwapInt32(&j.state, int32(StateReady), int32(StateRunning)) {
		j.mu.Unlock()
		return fmt.Errorf("%w: cannot start from state %s", ErrInvalidTransition, st)
	}

	j.stopRequested.Store(false)
	j.framesProcessed.Store(0)
	j.warnings.Store(0)
	now := time.Now().UTC()
	j.startedAt = &now
	j.finishedAt = nil
	j.failure = nil
	if j.source.Kind == models.SourceLive {
		j.progress = models.LiveProgress()
	} else {
		j.progress = models.PercentProgress(0)
	}

	readCtx, cancel := context.WithCancel(ctx)
	j.cancelRead = cancel
	done := make(chan struct{})
	j.done = done
	spec, line, runSeq := *j.source, *j.line, j.runSeq
	status := j.statusLocked()
	j.mu.Unlock()

	j.logger.Info().Str("uri", spec.URI).Int("run", runSeq).Msg("Camera job started")
	j.emit(models.MessageStatus, status)

	go j.run(ctx, readCtx, spec, line, runSeq, done)
	return nil
}

// Stop requests a cooperative stop. The job finishes the frame in flight
// and transitions to Stopped at the next frame boundary.
func (j *Job) Stop() error {
	if st := j.State(); st != StateRunning {
		return fmt.Errorf("%w: job is %s", ErrInvalidTransition, st)
	}
	if j.stopRequested.Swap(true) {
		return nil
	}

	j.mu.RLock()
	cancel := j.cancelRead
	j.mu.RUnlock()
	if cancel != nil {
		cancel()
	}

	j.logger.Info().Msg("Stop requested")
	return nil
}

// Wait blocks until the current run ends or ctx is done
func (j *Job) Wait(ctx context.Context) error {
	j.mu.RLock()
	done := j.done
	j.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reset returns the job to Idle with empty statistics, for a new session
func (j *Job) Reset() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.State() == StateRunning {
		return ErrConfigurationLocked
	}

	j.source = nil
	j.line = nil
	j.info = models.SourceInfo{}
	j.progress = models.Progress{}
	j.failure = nil
	j.startedAt = nil
	j.finishedAt = nil
	j.stats = models.NewCameraStatistics()
	j.framesProcessed.Store(0)
	j.warnings.Store(0)
	j.acc.Reset()
	j.events.Clear()
	j.runSeq = 0
	j.setState(StateIdle)
	return nil
}

// Status returns a snapshot of the job for reporting
func (j *Job) Status() models.JobStatus {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.statusLocked()
}

func (j *Job) statusLocked() models.JobStatus {
	status := models.JobStatus{
		Role:            j.role,
		State:           j.State().String(),
		Progress:        j.progress,
		IsLive:          j.info.Live || (j.source != nil && j.source.Kind == models.SourceLive),
		FramesProcessed: j.framesProcessed.Load(),
		TotalFrames:     j.info.TotalFrames,
		Events:          j.events.Len(),
		Warnings:        j.warnings.Load(),
		StartedAt:       j.startedAt,
		FinishedAt:      j.finishedAt,
	}
	if j.source != nil {
		src := *j.source
		status.Source = &src
	}
	if j.line != nil {
		line := *j.line
		status.Line = &line
	}
	if j.failure != nil {
		f := *j.failure
		status.Failure = &f
	}
	return status
}

// Statistics returns the statistics of the current run
func (j *Job) Statistics() models.CameraStatistics {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.stats.Clone()
}

// Events returns up to limit most recent crossing events (all when limit <= 0)
func (j *Job) Events(limit int) []models.CrossingEvent {
	return j.events.Last(limit)
}

// Source returns the attached source, if any
func (j *Job) Source() (models.SourceSpec, bool) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.source == nil {
		return models.SourceSpec{}, false
	}
	return *j.source, true
}

func (j *Job) emit(t models.MessageType, payload interface{}) {
	if j.deps.Emit == nil {
		return
	}
	j.deps.Emit(models.Envelope{
		Type:      t,
		Role:      j.role,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	})
}
