package linecrossing

import (
	"errors"
	"math"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// ErrDegenerateLine is returned when both endpoints of a line coincide
var ErrDegenerateLine = errors.New("counting line endpoints coincide")

// Validate checks that a counting line defines a direction
func Validate(line models.CountingLine) error {
	if line.A == line.B {
		return ErrDegenerateLine
	}
	if line.Inside != models.SideLeft && line.Inside != models.SideRight && line.Inside != models.SideUnknown {
		return errors.New("counting line inside side must be left, right or unset")
	}
	return nil
}

// SideOf returns the sign of (B-A)x(P-A). In image coordinates a positive
// value is on the right-hand side when walking from A to B.
func SideOf(line models.CountingLine, p models.Point) models.Side {
	cross := (line.B.X-line.A.X)*(p.Y-line.A.Y) - (line.B.Y-line.A.Y)*(p.X-line.A.X)
	switch {
	case cross > 0:
		return models.SideRight
	case cross < 0:
		return models.SideLeft
	default:
		return models.SideUnknown
	}
}

// DirectionOf maps a side change onto IN/OUT. With an explicit inside side the
// destination side decides; otherwise ENTRY cameras count IN and EXIT cameras
// count OUT.
func DirectionOf(role models.CameraRole, line models.CountingLine, to models.Side) models.Direction {
	if line.Inside != models.SideUnknown {
		if to == line.Inside {
			return models.DirectionIn
		}
		return models.DirectionOut
	}
	if role == models.RoleExit {
		return models.DirectionOut
	}
	return models.DirectionIn
}

// SignedDistance returns the perpendicular distance of p from the infinite
// line through A and B, signed like SideOf, and t, the projection of p onto
// AB as a fraction of the segment length (0 at A, 1 at B).
func SignedDistance(line models.CountingLine, p models.Point) (dist, t float64) {
	dx, dy := line.B.X-line.A.X, line.B.Y-line.A.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return 0, 0
	}
	cross := dx*(p.Y-line.A.Y) - dy*(p.X-line.A.X)
	dist = cross / math.Sqrt(lenSq)
	t = ((p.X-line.A.X)*dx + (p.Y-line.A.Y)*dy) / lenSq
	return dist, t
}
