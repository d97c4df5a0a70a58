package models

import "time"

// Direction of a crossing relative to the site
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// CrossingEvent is an immutable counting fact. Capacity is copied from the
// capacity table when the event is classified. Run numbers the continued
// runs of one camera; a restart begins again at 0.
type CrossingEvent struct {
	Role       CameraRole    `json:"camera_role"`
	TrackID    string        `json:"track_id"`
	Category   Category      `json:"category"`
	Direction  Direction     `json:"direction"`
	Timestamp  time.Time     `json:"timestamp"`
	FrameIndex int64         `json:"frame_index"`
	Capacity   CapacityRange `json:"capacity"`
	Run        int           `json:"run"`
}
