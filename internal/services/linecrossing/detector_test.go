package linecrossing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// horizontal line at y=100; smaller y is "left" of A->B in image space
var testLine = models.CountingLine{A: models.Point{X: 0, Y: 100}, B: models.Point{X: 200, Y: 100}}

func obj(id string, category models.Category, bottomY float64) models.TrackedObject {
	return models.TrackedObject{
		TrackID:    id,
		Category:   category,
		BBox:       models.BoundingBox{X1: 40, Y1: bottomY - 30, X2: 60, Y2: bottomY},
		Confidence: 0.9,
	}
}

func observe(d *Detector, frame int64, objects ...models.TrackedObject) []Transition {
	return d.Observe(frame, time.Unix(frame, 0), objects)
}

func TestSideOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, models.SideLeft, SideOf(testLine, models.Point{X: 50, Y: 50}))
	assert.Equal(t, models.SideRight, SideOf(testLine, models.Point{X: 50, Y: 150}))
	assert.Equal(t, models.SideUnknown, SideOf(testLine, models.Point{X: 50, Y: 100}))
	// beyond the segment ends the infinite line still decides
	assert.Equal(t, models.SideRight, SideOf(testLine, models.Point{X: 500, Y: 150}))
}

func TestValidate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Validate(models.CountingLine{A: models.Point{X: 1, Y: 1}, B: models.Point{X: 1, Y: 1}}), ErrDegenerateLine)
	assert.NoError(t, Validate(testLine))
	assert.Error(t, Validate(models.CountingLine{A: models.Point{}, B: models.Point{X: 1}, Inside: 7}))

	_, err := New(models.RoleEntry, models.CountingLine{}, 10)
	assert.ErrorIs(t, err, ErrDegenerateLine)
}

func TestAtMostOnceCrossing(t *testing.T) {
	t.Parallel()

	t.Run("no observations", func(t *testing.T) {
		d, err := New(models.RoleEntry, testLine, 30)
		require.NoError(t, err)
		assert.Empty(t, observe(d, 1))
	})

	t.Run("single observation", func(t *testing.T) {
		d, err := New(models.RoleEntry, testLine, 30)
		require.NoError(t, err)
		assert.Empty(t, observe(d, 1, obj("1", "Sedan", 150)))
	})

	t.Run("oscillating track", func(t *testing.T) {
		d, err := New(models.RoleEntry, testLine, 30)
		require.NoError(t, err)

		var all []Transition
		for i := int64(0); i < 20; i++ {
			y := 80.0
			if i%2 == 1 {
				y = 120
			}
			all = append(all, observe(d, i, obj("7", "SUV", y))...)
		}
		require.Len(t, all, 1)
		assert.Equal(t, "7", all[0].TrackID)
		assert.Equal(t, models.Category("SUV"), all[0].Category)
		assert.Equal(t, int64(1), all[0].FrameIndex)
		assert.Equal(t, models.SideLeft, all[0].From)
		assert.Equal(t, models.SideRight, all[0].To)

		st, ok := d.Track("7")
		require.True(t, ok)
		assert.True(t, st.Crossed)
	})
}

func TestFirstObservationPastLineIsNotCounted(t *testing.T) {
	t.Parallel()

	d, err := New(models.RoleEntry, testLine, 30)
	require.NoError(t, err)

	assert.Empty(t, observe(d, 1, obj("1", "Sedan", 150)))
	assert.Empty(t, observe(d, 2, obj("1", "Sedan", 170)))
}

func TestPointOnLineIsSkipped(t *testing.T) {
	t.Parallel()

	d, err := New(models.RoleEntry, testLine, 30)
	require.NoError(t, err)

	assert.Empty(t, observe(d, 1, obj("1", "Sedan", 80)))
	assert.Empty(t, observe(d, 2, obj("1", "Sedan", 100)))
	st, _ := d.Track("1")
	assert.Equal(t, models.SideLeft, st.Side)

	// back to the original side after touching the line
	assert.Empty(t, observe(d, 3, obj("1", "Sedan", 90)))
	assert.Len(t, observe(d, 4, obj("1", "Sedan", 110)), 1)
}

func TestFirstSeenOnLineTakesNextSide(t *testing.T) {
	t.Parallel()

	d, err := New(models.RoleEntry, testLine, 30)
	require.NoError(t, err)

	assert.Empty(t, observe(d, 1, obj("1", "Van", 100)))
	assert.Empty(t, observe(d, 2, obj("1", "Van", 90)))
	assert.Len(t, observe(d, 3, obj("1", "Van", 120)), 1)
}

func TestDirection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		role   models.CameraRole
		inside models.Side
		from   float64
		to     float64
		want   models.Direction
	}{
		{"entry role default", models.RoleEntry, models.SideUnknown, 80, 120, models.DirectionIn},
		{"entry role default reverse", models.RoleEntry, models.SideUnknown, 120, 80, models.DirectionIn},
		{"exit role default", models.RoleExit, models.SideUnknown, 80, 120, models.DirectionOut},
		{"extra role default", models.CameraRole("GATE"), models.SideUnknown, 80, 120, models.DirectionIn},
		{"into inside", models.RoleExit, models.SideRight, 80, 120, models.DirectionIn},
		{"out of inside", models.RoleEntry, models.SideRight, 120, 80, models.DirectionOut},
		{"inside left", models.RoleEntry, models.SideLeft, 120, 80, models.DirectionIn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := testLine
			line.Inside = tt.inside
			d, err := New(tt.role, line, 30)
			require.NoError(t, err)

			observe(d, 1, obj("1", "Sedan", tt.from))
			got := observe(d, 2, obj("1", "Sedan", tt.to))
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0].Direction)
			assert.Equal(t, tt.role, got[0].Role)
		})
	}
}

func TestEvictionAllowsIdentityReuse(t *testing.T) {
	t.Parallel()

	d, err := New(models.RoleEntry, testLine, 3)
	require.NoError(t, err)

	observe(d, 1, obj("1", "Sedan", 80))
	require.Len(t, observe(d, 2, obj("1", "Sedan", 120)), 1)

	// absent for two frames: still retained
	observe(d, 3)
	observe(d, 4)
	assert.Equal(t, 1, d.Tracks())
	_, ok := d.Track("1")
	assert.True(t, ok)

	// third consecutive absent frame evicts
	observe(d, 5)
	assert.Equal(t, 0, d.Tracks())

	// same identity now counts as a new vehicle
	observe(d, 6, obj("1", "Bus", 80))
	got := observe(d, 7, obj("1", "Bus", 120))
	require.Len(t, got, 1)
	assert.Equal(t, models.Category("Bus"), got[0].Category)
}

func TestPresenceResetsAbsence(t *testing.T) {
	t.Parallel()

	d, err := New(models.RoleEntry, testLine, 2)
	require.NoError(t, err)

	for i := int64(0); i < 10; i++ {
		if i%2 == 0 {
			observe(d, i, obj("1", "Sedan", 80))
		} else {
			observe(d, i)
		}
	}
	assert.Equal(t, 1, d.Tracks())
}

func TestIndependentTracks(t *testing.T) {
	t.Parallel()

	d, err := New(models.RoleEntry, testLine, 30)
	require.NoError(t, err)

	observe(d, 1, obj("a", "Sedan", 80), obj("b", "Truck", 80))
	got := observe(d, 2, obj("a", "Sedan", 120), obj("b", "Truck", 120))
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].TrackID)
	assert.Equal(t, "b", got[1].TrackID)

	d.Reset()
	assert.Equal(t, 0, d.Tracks())
}

func TestDefaultEviction(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 30, DefaultEviction(0))
	assert.Equal(t, 25, DefaultEviction(25))
	assert.Equal(t, 30, DefaultEviction(29.97))
}

func objAt(id string, x, bottomY float64) models.TrackedObject {
	return models.TrackedObject{
		TrackID:  id,
		Category: "Sedan",
		BBox:     models.BoundingBox{X1: x - 10, Y1: bottomY - 30, X2: x + 10, Y2: bottomY},
	}
}

func TestSignedDistance(t *testing.T) {
	t.Parallel()

	dist, pos := SignedDistance(testLine, models.Point{X: 50, Y: 130})
	assert.InDelta(t, 30, dist, 1e-9)
	assert.InDelta(t, 0.25, pos, 1e-9)

	dist, pos = SignedDistance(testLine, models.Point{X: 260, Y: 90})
	assert.InDelta(t, -10, dist, 1e-9)
	assert.InDelta(t, 1.3, pos, 1e-9)
}

func TestSegmentGate(t *testing.T) {
	t.Parallel()

	gate := SegmentGate{Margin: 0.1, MaxDistance: 25}

	tests := []struct {
		name       string
		fromX      float64
		fromY      float64
		toX        float64
		toY        float64
		wantCounts bool
	}{
		{"inside the segment", 50, 90, 50, 110, true},
		{"within the end margin", 215, 90, 215, 110, true},
		{"past the end of the segment", 300, 90, 300, 110, false},
		{"before the start of the segment", -40, 90, -40, 110, false},
		{"enters the margin on the second frame", 260, 90, 210, 110, true},
		{"both positions far from the line", 50, 60, 50, 140, false},
		{"one position close to the line", 50, 60, 50, 110, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(models.RoleEntry, testLine, 30, WithSegmentGate(gate))
			require.NoError(t, err)

			observe(d, 1, objAt("a", tt.fromX, tt.fromY))
			got := observe(d, 2, objAt("a", tt.toX, tt.toY))
			if tt.wantCounts {
				assert.Len(t, got, 1)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestGatedCrossingCanStillCountLater(t *testing.T) {
	t.Parallel()

	d, err := New(models.RoleEntry, testLine, 30, WithSegmentGate(SegmentGate{Margin: 0.1, MaxDistance: 25}))
	require.NoError(t, err)

	// crosses the extension far to the right, then comes back across the segment
	observe(d, 1, objAt("a", 400, 90))
	assert.Empty(t, observe(d, 2, objAt("a", 400, 110)))
	got := observe(d, 3, objAt("a", 100, 90))
	require.Len(t, got, 1)
	assert.Equal(t, models.SideLeft, got[0].To)

	// without a gate the extension counts
	ungated, err := New(models.RoleEntry, testLine, 30)
	require.NoError(t, err)
	observe(ungated, 1, objAt("a", 400, 90))
	assert.Len(t, observe(ungated, 2, objAt("a", 400, 110)), 1)
}
