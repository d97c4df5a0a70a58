package models

import "time"

// ProgressKind tells consumers how to render a progress value
type ProgressKind string

const (
	ProgressPercent ProgressKind = "percent"
	ProgressLive    ProgressKind = "live"
)

// Progress of a job. Live sources carry no percentage.
type Progress struct {
	Kind    ProgressKind `json:"kind"`
	Percent float64      `json:"percent,omitempty"`
}

// PercentProgress builds a numeric progress value clamped to [0, 100]
func PercentProgress(p float64) Progress {
	if p < 0 {
		p = 0
	}
	if p > 100 {
		p = 100
	}
	return Progress{Kind: ProgressPercent, Percent: p}
}

// LiveProgress is the marker used for unbounded sources
func LiveProgress() Progress {
	return Progress{Kind: ProgressLive}
}

// IsLive reports whether p is the live marker
func (p Progress) IsLive() bool {
	return p.Kind == ProgressLive
}

// ErrorKind classifies job failures
type ErrorKind string

const (
	ErrorKindSource   ErrorKind = "source_error"
	ErrorKindTracker  ErrorKind = "tracker_error"
	ErrorKindInternal ErrorKind = "internal_error"
)

// JobFailure is retained on a failed job for reporting
type JobFailure struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// JobStatus is the externally visible state of a camera job
type JobStatus struct {
	Role            CameraRole    `json:"camera_role"`
	State           string        `json:"state"`
	Progress        Progress      `json:"progress"`
	IsLive          bool          `json:"is_live"`
	FramesProcessed int64         `json:"frames_processed"`
	TotalFrames     int64         `json:"total_frames"`
	Events          int           `json:"events"`
	Warnings        int64         `json:"warnings"`
	Source          *SourceSpec   `json:"source,omitempty"`
	Line            *CountingLine `json:"line,omitempty"`
	Failure         *JobFailure   `json:"failure,omitempty"`
	StartedAt       *time.Time    `json:"started_at,omitempty"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
}
