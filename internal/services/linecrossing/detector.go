package linecrossing

import (
	"math"
	"time"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// DefaultEvictionFrames is used when the source frame rate is unknown
const DefaultEvictionFrames = 30

// DefaultEviction returns roughly one second of frames at fps
func DefaultEviction(fps float64) int {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		return DefaultEvictionFrames
	}
	return int(math.Ceil(fps))
}

// SegmentGate limits counting to side changes that happen near the drawn
// segment rather than anywhere along its infinite extension.
type SegmentGate struct {
	// Margin extends the segment at both ends by this fraction of its length
	Margin float64
	// MaxDistance is the largest perpendicular distance in pixels either
	// position may have; the closer of the two must be under it. 0 = no limit
	MaxDistance float64
}

// allows reports whether a side change between two observations counts
func (g SegmentGate) allows(prev, cur position) bool {
	if g.MaxDistance > 0 && math.Min(math.Abs(prev.dist), math.Abs(cur.dist)) >= g.MaxDistance {
		return false
	}
	return g.within(prev.t) || g.within(cur.t)
}

func (g SegmentGate) within(t float64) bool {
	return t >= -g.Margin && t <= 1+g.Margin
}

type position struct {
	dist float64
	t    float64
}

// TrackState is the per-identity memory of the detector
type TrackState struct {
	TrackID   string
	Side      models.Side
	Category  models.Category
	FirstSeen time.Time
	Crossed   bool

	lastSeen int64
	last     position
}

// Option configures a Detector
type Option func(*Detector)

// WithSegmentGate only counts side changes near the drawn segment
func WithSegmentGate(g SegmentGate) Option {
	return func(d *Detector) {
		d.gate = &g
	}
}

// Transition is a detected crossing, not yet classified
type Transition struct {
	Role       models.CameraRole
	TrackID    string
	Category   models.Category
	Direction  models.Direction
	From       models.Side
	To         models.Side
	FrameIndex int64
	Timestamp  time.Time
}

// Detector tracks which side of the counting line each identity is on.
// One detector belongs to one camera job and is not safe for concurrent use.
type Detector struct {
	role       models.CameraRole
	line       models.CountingLine
	evictAfter int64

	gate       *SegmentGate

	tracks map[string]*TrackState
	seq    int64
}

// New creates a detector. evictAfter <= 0 selects DefaultEvictionFrames.
// Without WithSegmentGate any side change of the infinite line counts.
func New(role models.CameraRole, line models.CountingLine, evictAfter int, opts ...Option) (*Detector, error) {
	if err := Validate(line); err != nil {
		return nil, err
	}
	if evictAfter <= 0 {
		evictAfter = DefaultEvictionFrames
	}
	d := &Detector{
		role:       role,
		line:       line,
		evictAfter: int64(evictAfter),
		tracks:     make(map[string]*TrackState),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Observe feeds the tracked objects of one processed frame and returns the
// crossings it produced. Each identity yields at most one transition for as
// long as its state is retained.
func (d *Detector) Observe(frameIndex int64, ts time.Time, objects []models.TrackedObject) []Transition {
	d.seq++

	var out []Transition
	for _, obj := range objects {
		p := obj.BBox.BottomCenter()
		side := SideOf(d.line, p)
		var pos position
		pos.dist, pos.t = SignedDistance(d.line, p)

		st, ok := d.tracks[obj.TrackID]
		if !ok {
			d.tracks[obj.TrackID] = &TrackState{
				TrackID:   obj.TrackID,
				Side:      side,
				Category:  obj.Category,
				FirstSeen: ts,
				lastSeen:  d.seq,
				last:      pos,
			}
			continue
		}

		st.lastSeen = d.seq
		prev := st.last
		st.last = pos
		if obj.Category != "" {
			st.Category = obj.Category
		}

		// on the line
		if side == models.SideUnknown || side == st.Side {
			continue
		}

		if st.Side == models.SideUnknown || st.Crossed {
			st.Side = side
			continue
		}

		// passed the extension of the line, away from the drawn segment
		if d.gate != nil && !d.gate.allows(prev, pos) {
			st.Side = side
			continue
		}

		out = append(out, Transition{
			Role:       d.role,
			TrackID:    st.TrackID,
			Category:   st.Category,
			Direction:  DirectionOf(d.role, d.line, side),
			From:       st.Side,
			To:         side,
			FrameIndex: frameIndex,
			Timestamp:  ts,
		})
		st.Crossed = true
		st.Side = side
	}

	d.evict()
	return out
}

func (d *Detector) evict() {
	for id, st := range d.tracks {
		if d.seq-st.lastSeen >= d.evictAfter {
			delete(d.tracks, id)
		}
	}
}

// Track returns a copy of the state kept for an identity
func (d *Detector) Track(id string) (TrackState, bool) {
	st, ok := d.tracks[id]
	if !ok {
		return TrackState{}, false
	}
	return *st, true
}

// Tracks is the number of identities currently retained
func (d *Detector) Tracks() int {
	return len(d.tracks)
}

// Reset drops every track state
func (d *Detector) Reset() {
	d.tracks = make(map[string]*TrackState)
	d.seq = 0
}
