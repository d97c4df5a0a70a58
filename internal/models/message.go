package models

import (
	"context"
	"time"
)

// MessageType identifies the payload carried by an Envelope
type MessageType string

const (
	MessageEvent          MessageType = "event"
	MessageStatistics     MessageType = "statistics"
	MessageSiteStatistics MessageType = "site_statistics"
	MessageStatus         MessageType = "status"
	MessageProgress       MessageType = "progress"
	MessageCompleted      MessageType = "completed"
	MessageWarning        MessageType = "warning"
	MessageError          MessageType = "error"
	MessageSession        MessageType = "session"
)

// Envelope is what camera jobs emit outward. Payload is one of
// CrossingEvent, CameraStatistics, SiteStatistics, JobStatus,
// CompletionPayload, Warning or Session.
type Envelope struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Role      CameraRole  `json:"camera_role,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// CompletionPayload is sent once a job reaches Completed or Stopped
type CompletionPayload struct {
	State           string           `json:"state"`
	FramesProcessed int64            `json:"frames_processed"`
	Statistics      CameraStatistics `json:"statistics"`
}

// Warning reports a recoverable per-event problem
type Warning struct {
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Category Category `json:"category,omitempty"`
	TrackID  string   `json:"track_id,omitempty"`
}

// MessagePublisher is a sink for job envelopes
type MessagePublisher interface {
	Publish(ctx context.Context, env Envelope) error
}
