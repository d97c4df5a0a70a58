package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/capacity"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/linecrossing"
)

// run is the job goroutine. The stop flag is checked once per frame, before
// the next frame is pulled, so a frame is either fully applied or not at all.
func (j *Job) run(ctx, readCtx context.Context, spec models.SourceSpec, line models.CountingLine, runSeq int, done chan struct{}) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error().
				Interface("panic", r).
				Msg("Camera job panic recovered")
			j.finish(StateFailed, &JobError{Kind: models.ErrorKindInternal, Err: fmt.Errorf("panic: %v", r)})
		}
	}()

	src, err := j.deps.Opener.Open(readCtx, spec)
	if err != nil {
		if j.stopRequested.Load() {
			j.finish(StateStopped, nil)
			return
		}
		j.finish(StateFailed, sourceError(fmt.Errorf("open %s source: %w", spec.Kind, err)))
		return
	}
	defer func() {
		if err := src.Close(); err != nil {
			j.logger.Warn().Err(err).Msg("Failed to close source")
		}
	}()

	info := src.Info()
	if spec.Kind == models.SourceLive {
		info.Live = true
		info.TotalFrames = 0
	}

	evictAfter := j.opts.EvictAfter
	if evictAfter <= 0 {
		evictAfter = linecrossing.DefaultEviction(info.FPS)
	}
	var detOpts []linecrossing.Option
	if j.opts.Gate != nil {
		detOpts = append(detOpts, linecrossing.WithSegmentGate(*j.opts.Gate))
	}
	det, err := linecrossing.New(j.role, line, evictAfter, detOpts...)
	if err != nil {
		j.finish(StateFailed, &JobError{Kind: models.ErrorKindInternal, Err: err})
		return
	}

	j.mu.Lock()
	j.info = info
	if info.Live {
		j.progress = models.LiveProgress()
	}
	status := j.statusLocked()
	j.mu.Unlock()

	j.logger.Info().
		Float64("fps", info.FPS).
		Int64("total_frames", info.TotalFrames).
		Bool("live", info.Live).
		Int("evict_after", evictAfter).
		Msg("Source opened")
	j.emit(models.MessageProgress, status)

	throttle := rate.Sometimes{Every: j.opts.ProgressEvery}

	for {
		if j.stopRequested.Load() {
			j.finish(StateStopped, nil)
			return
		}

		frame, err := src.Next(readCtx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				j.finish(StateCompleted, nil)
			case j.stopRequested.Load() || ctx.Err() != nil:
				j.finish(StateStopped, nil)
			default:
				j.finish(StateFailed, sourceError(err))
			}
			return
		}

		// frames already buffered when the stop arrived are dropped
		if j.stopRequested.Load() {
			j.finish(StateStopped, nil)
			return
		}

		begin := time.Now()
		objects, err := j.deps.Tracker.Track(ctx, j.role, frame)
		if err != nil {
			if ctx.Err() != nil {
				j.finish(StateStopped, nil)
			} else {
				j.finish(StateFailed, trackerError(err))
			}
			return
		}
		if j.deps.Observer != nil {
			j.deps.Observer.FrameProcessed(j.role, time.Since(begin))
		}

		j.processFrame(det, runSeq, frame, toSourceSpace(objects, frame, info))

		n := j.framesProcessed.Add(1)
		throttle.Do(func() { j.reportProgress(n) })
	}
}

// toSourceSpace maps boxes from the frame the tracker saw, which may have
// been resized, back to source pixels where the counting line was drawn.
func toSourceSpace(objects []models.TrackedObject, frame models.Frame, info models.SourceInfo) []models.TrackedObject {
	if frame.Width <= 0 || frame.Height <= 0 || info.Width <= 0 || info.Height <= 0 {
		return objects
	}
	if frame.Width == info.Width && frame.Height == info.Height {
		return objects
	}
	sx := float64(info.Width) / float64(frame.Width)
	sy := float64(info.Height) / float64(frame.Height)
	for i := range objects {
		b := &objects[i].BBox
		b.X1, b.X2 = b.X1*sx, b.X2*sx
		b.Y1, b.Y2 = b.Y1*sy, b.Y2*sy
	}
	return objects
}

// processFrame runs detection, classification and accumulation for one frame
func (j *Job) processFrame(det *linecrossing.Detector, runSeq int, frame models.Frame, objects []models.TrackedObject) {
	for _, tr := range det.Observe(frame.Index, frame.Timestamp, objects) {
		ev, err := j.deps.Classifier.Classify(tr)
		if err != nil {
			code := "classification_failed"
			if errors.Is(err, capacity.ErrUnknownCategory) {
				code = "unknown_category"
			}
			j.warn(code, err, tr)
			continue
		}
		ev.Run = runSeq

		if err := j.acc.Apply(ev); err != nil {
			j.warn("out_of_order", err, tr)
			continue
		}
		j.events.Append(ev)

		snapshot := j.acc.Snapshot()
		j.mu.Lock()
		j.stats = snapshot
		j.mu.Unlock()

		j.logger.Info().
			Str("track_id", ev.TrackID).
			Str("category", string(ev.Category)).
			Str("direction", string(ev.Direction)).
			Int64("frame", ev.FrameIndex).
			Int("vehicles_in", snapshot.VehiclesIn).
			Int("vehicles_out", snapshot.VehiclesOut).
			Msg("crossing_event")

		j.emit(models.MessageEvent, ev)
		j.emit(models.MessageStatistics, snapshot)
	}
}

func (j *Job) warn(code string, err error, tr linecrossing.Transition) {
	j.warnings.Add(1)
	j.logger.Warn().
		Err(err).
		Str("track_id", tr.TrackID).
		Str("category", string(tr.Category)).
		Int64("frame", tr.FrameIndex).
		Msg(code)
	j.emit(models.MessageWarning, models.Warning{
		Code:     code,
		Message:  err.Error(),
		Category: tr.Category,
		TrackID:  tr.TrackID,
	})
}

func (j *Job) reportProgress(frames int64) {
	j.mu.Lock()
	if !j.info.Live && j.info.TotalFrames > 0 {
		p := models.PercentProgress(float64(frames) / float64(j.info.TotalFrames) * 100)
		if p.Percent > j.progress.Percent {
			j.progress = p
		}
	}
	status := j.statusLocked()
	j.mu.Unlock()

	j.emit(models.MessageProgress, status)
}

// finish moves the job to a terminal state. The detector and its track
// states go out of scope with the run goroutine.
func (j *Job) finish(state JobState, jobErr *JobError) {
	j.mu.Lock()
	now := time.Now().UTC()
	j.finishedAt = &now
	if jobErr != nil {
		j.failure = &models.JobFailure{Kind: jobErr.Kind, Message: jobErr.Err.Error()}
	}
	switch {
	case j.info.Live:
	case state == StateCompleted:
		j.progress = models.PercentProgress(100)
	case j.info.TotalFrames > 0:
		// the last throttled report may lag the frames actually processed
		p := models.PercentProgress(float64(j.framesProcessed.Load()) / float64(j.info.TotalFrames) * 100)
		if p.Percent > j.progress.Percent {
			j.progress = p
		}
	}
	if j.cancelRead != nil {
		j.cancelRead()
	}
	j.setState(state)
	status := j.statusLocked()
	stats := j.stats.Clone()
	j.mu.Unlock()

	event := j.logger.Info()
	if jobErr != nil {
		event = j.logger.Error().Err(jobErr)
	}
	event.
		Str("state", state.String()).
		Int64("frames_processed", status.FramesProcessed).
		Int("events", status.Events).
		Int64("warnings", status.Warnings).
		Msg("Camera job finished")

	j.emit(models.MessageStatus, status)
	switch state {
	case StateCompleted, StateStopped:
		j.emit(models.MessageCompleted, models.CompletionPayload{
			State:           state.String(),
			FramesProcessed: status.FramesProcessed,
			Statistics:      stats,
		})
	case StateFailed:
		if status.Failure != nil {
			j.emit(models.MessageError, *status.Failure)
		}
	}
}
