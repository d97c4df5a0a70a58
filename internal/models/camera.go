package models

import (
	"fmt"
	"strings"
	"time"
)

// CameraRole tags a camera within a site configuration
type CameraRole string

const (
	RoleEntry CameraRole = "ENTRY"
	RoleExit  CameraRole = "EXIT"
)

// String returns the string representation of CameraRole
func (r CameraRole) String() string {
	return string(r)
}

// ParseCameraRole normalizes a role tag. Roles other than ENTRY/EXIT are
// accepted so sites with more cameras can be configured.
func ParseCameraRole(s string) (CameraRole, error) {
	role := strings.ToUpper(strings.TrimSpace(s))
	if role == "" {
		return "", fmt.Errorf("camera role is empty")
	}
	return CameraRole(role), nil
}

// Point is a coordinate in frame pixel space (y grows downward)
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Side of a counting line, as the sign of (B-A)x(P-A)
type Side int

const (
	SideLeft    Side = -1
	SideUnknown Side = 0
	SideRight   Side = 1
)

func (s Side) String() string {
	switch s {
	case SideLeft:
		return "left"
	case SideRight:
		return "right"
	default:
		return "unknown"
	}
}

// ParseSide accepts "left", "right" or an empty string (unknown)
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return SideLeft, nil
	case "right":
		return SideRight, nil
	case "", "unknown", "none":
		return SideUnknown, nil
	default:
		return SideUnknown, fmt.Errorf("invalid side %q", s)
	}
}

// CountingLine is the two-point segment a camera counts against.
// Inside selects which side is "on site"; when unknown the camera role
// decides the direction instead.
type CountingLine struct {
	A      Point `json:"a"`
	B      Point `json:"b"`
	Inside Side  `json:"inside"`
}

// SourceKind distinguishes finite uploads from unbounded streams
type SourceKind string

const (
	SourceFile SourceKind = "file"
	SourceLive SourceKind = "live"
)

// IsValid checks if the source kind is valid
func (k SourceKind) IsValid() bool {
	return k == SourceFile || k == SourceLive
}

// SourceSpec describes where a camera job reads frames from
type SourceSpec struct {
	Kind SourceKind `json:"kind"`
	URI  string     `json:"uri"`
	// StartTime anchors event timestamps of file sources. Zero means "now" at open.
	StartTime time.Time `json:"video_start_time,omitempty"`
}

// AccumulationMode selects how a new run combines with previous statistics
type AccumulationMode string

const (
	ModeRestart  AccumulationMode = "restart"
	ModeContinue AccumulationMode = "continue"
)

// ParseAccumulationMode defaults to restart when empty
func ParseAccumulationMode(s string) (AccumulationMode, error) {
	switch AccumulationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeRestart:
		return ModeRestart, nil
	case ModeContinue:
		return ModeContinue, nil
	default:
		return "", fmt.Errorf("invalid accumulation mode %q", s)
	}
}
