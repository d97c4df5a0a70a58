package camera

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// horizontal line at y=100; y=80 is above it, y=120 below
var testLine = models.CountingLine{A: models.Point{X: 0, Y: 100}, B: models.Point{X: 200, Y: 100}}

var baseTime = time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

type fakeSource struct {
	mu     sync.Mutex
	frames []models.Frame
	next   int
	info   models.SourceInfo
	block  bool  // block on ctx once frames run out, like a live stream
	err    error // returned once frames run out
	closed bool
}

func newFakeSource(n int, live bool) *fakeSource {
	frames := make([]models.Frame, n)
	for i := range frames {
		frames[i] = models.Frame{
			Index:     int64(i),
			Timestamp: baseTime.Add(time.Duration(i) * 33 * time.Millisecond),
			Width:     640,
			Height:    480,
		}
	}
	info := models.SourceInfo{FPS: 30, TotalFrames: int64(n), Width: 640, Height: 480, Live: live}
	if live {
		info.TotalFrames = 0
	}
	return &fakeSource{frames: frames, info: info, block: live}
}

func (s *fakeSource) Info() models.SourceInfo { return s.info }

func (s *fakeSource) Next(ctx context.Context) (models.Frame, error) {
	s.mu.Lock()
	if s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()

	if s.err != nil {
		return models.Frame{}, s.err
	}
	if s.block {
		<-ctx.Done()
		return models.Frame{}, ctx.Err()
	}
	return models.Frame{}, io.EOF
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type openerFunc func(ctx context.Context, spec models.SourceSpec) (Source, error)

func (f openerFunc) Open(ctx context.Context, spec models.SourceSpec) (Source, error) {
	return f(ctx, spec)
}

func openSource(src Source) SourceOpener {
	return openerFunc(func(context.Context, models.SourceSpec) (Source, error) { return src, nil })
}

type trackerFunc func(ctx context.Context, role models.CameraRole, frame models.Frame) ([]models.TrackedObject, error)

func (f trackerFunc) Track(ctx context.Context, role models.CameraRole, frame models.Frame) ([]models.TrackedObject, error) {
	return f(ctx, role, frame)
}

func vehicle(id string, category models.Category, bottomY float64) models.TrackedObject {
	return models.TrackedObject{
		TrackID:    id,
		Category:   category,
		BBox:       models.BoundingBox{X1: 40, Y1: bottomY - 30, X2: 60, Y2: bottomY},
		Confidence: 0.9,
	}
}

// conveyor produces one crossing per frame from frame 1 on: track i appears
// above the line in frame i and is below it in frame i+1.
func conveyor(category models.Category) Tracker {
	return trackerFunc(func(_ context.Context, _ models.CameraRole, frame models.Frame) ([]models.TrackedObject, error) {
		objects := []models.TrackedObject{vehicle(fmt.Sprintf("t%d", frame.Index), category, 80)}
		if frame.Index > 0 {
			objects = append(objects, vehicle(fmt.Sprintf("t%d", frame.Index-1), category, 120))
		}
		return objects, nil
	})
}

type recorder struct {
	mu        sync.Mutex
	envelopes []models.Envelope
}

func (r *recorder) emit(env models.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envelopes = append(r.envelopes, env)
}

func (r *recorder) Publish(_ context.Context, env models.Envelope) error {
	r.emit(env)
	return nil
}

func (r *recorder) ofType(t models.MessageType) []models.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Envelope
	for _, env := range r.envelopes {
		if env.Type == t {
			out = append(out, env)
		}
	}
	return out
}
