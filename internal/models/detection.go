package models

import "time"

// Category is a vehicle class label as emitted by the tracker
type Category string

// CapacityRange is the [Min, Max] number of occupants for a category
type CapacityRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// BoundingBox is an axis-aligned rectangle in frame pixels
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// BottomCenter is the reference point used for line-side classification
func (b BoundingBox) BottomCenter() Point {
	return Point{X: (b.X1 + b.X2) / 2, Y: b.Y2}
}

// TrackedObject is one tracked box reported for a processed frame
type TrackedObject struct {
	TrackID    string      `json:"track_id"`
	Category   Category    `json:"category"`
	BBox       BoundingBox `json:"bbox"`
	Confidence float64     `json:"confidence"`
}

// Frame is a decoded frame handed to the tracker
type Frame struct {
	Index     int64
	Timestamp time.Time
	Width     int
	Height    int
	Encoding  string // "jpeg" for gocv sources
	Data      []byte
}

// SourceInfo describes an opened frame source
type SourceInfo struct {
	FPS         float64
	TotalFrames int64 // 0 when unknown or unbounded
	Width       int
	Height      int
	Live        bool
}
