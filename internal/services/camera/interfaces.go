package camera

import (
	"context"
	"time"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// Source yields decoded frames in order. Next returns io.EOF once a finite
// source is exhausted.
type Source interface {
	Info() models.SourceInfo
	Next(ctx context.Context) (models.Frame, error)
	Close() error
}

// SourceOpener opens frame sources from an attach request
type SourceOpener interface {
	Open(ctx context.Context, spec models.SourceSpec) (Source, error)
}

// FrameGrabber extracts a single frame for drawing the counting line
type FrameGrabber interface {
	FirstFrame(ctx context.Context, spec models.SourceSpec) (models.Frame, error)
}

// Tracker is the detector+tracker collaborator
type Tracker interface {
	Track(ctx context.Context, role models.CameraRole, frame models.Frame) ([]models.TrackedObject, error)
}

// FrameObserver receives per-frame timings, typically metrics
type FrameObserver interface {
	FrameProcessed(role models.CameraRole, trackerLatency time.Duration)
}

// Baseliner applies continue/restart semantics when a camera is reconfigured
type Baseliner interface {
	Continue(role models.CameraRole) models.CameraStatistics
	Restart(role models.CameraRole)
}

// Emitter receives everything a job publishes. Calls happen on the job
// goroutine in the order events were produced.
type Emitter func(env models.Envelope)
