package streamcapture

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/helpers"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/camera"
)

// Service opens file and live sources through OpenCV
type Service struct {
	cfg *config.Config
}

// NewService creates a new stream capture service
func NewService(cfg *config.Config) *Service {
	return &Service{
		cfg: cfg,
	}
}

// Open opens spec for sequential reading. Live sources retry the initial
// connection up to LiveRetryAttempts times.
func (s *Service) Open(ctx context.Context, spec models.SourceSpec) (camera.Source, error) {
	capture, err := s.openCapture(ctx, spec)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		svc:    s,
		spec:   spec,
		cap:    capture,
		img:    gocv.NewMat(),
		opened: time.Now().UTC(),
	}
	c.info = models.SourceInfo{
		FPS:    capture.Get(gocv.VideoCaptureFPS),
		Width:  int(capture.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(capture.Get(gocv.VideoCaptureFrameHeight)),
		Live:   spec.Kind == models.SourceLive,
	}
	if !c.info.Live {
		c.info.TotalFrames = int64(capture.Get(gocv.VideoCaptureFrameCount))
	}

	log.Info().
		Str("kind", string(spec.Kind)).
		Str("uri", spec.URI).
		Float64("fps", c.info.FPS).
		Int64("total_frames", c.info.TotalFrames).
		Int("width", c.info.Width).
		Int("height", c.info.Height).
		Msg("VideoCapture opened successfully")

	return c, nil
}

func (s *Service) openCapture(ctx context.Context, spec models.SourceSpec) (*gocv.VideoCapture, error) {
	if spec.Kind == models.SourceFile {
		if _, err := os.Stat(spec.URI); err != nil {
			return nil, fmt.Errorf("video file %s: %w", spec.URI, err)
		}
		capture, err := gocv.OpenVideoCapture(spec.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to open video file %s: %w", spec.URI, err)
		}
		if !capture.IsOpened() {
			capture.Close()
			return nil, fmt.Errorf("video file %s could not be decoded", spec.URI)
		}
		return capture, nil
	}

	var lastErr error
	attempts := s.cfg.LiveRetryAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := s.CalculateBackoffDelay(attempt)
			log.Warn().
				Err(lastErr).
				Str("uri", spec.URI).
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("Retrying live stream connection")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		capture, err := s.openLive(spec.URI)
		if err == nil {
			return capture, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("live stream %s unavailable after %d attempts: %w", spec.URI, attempts, lastErr)
}

// openLive opens an RTSP/HTTP stream or, for a bare number, a local device
func (s *Service) openLive(uri string) (*gocv.VideoCapture, error) {
	var capture *gocv.VideoCapture
	var err error

	if device, convErr := strconv.Atoi(uri); convErr == nil {
		capture, err = gocv.OpenVideoCapture(device)
	} else {
		configureFFmpegOptions(liveFFmpegOptions)
		capture, err = gocv.OpenVideoCaptureWithAPI(uri, gocv.VideoCaptureFFmpeg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open live stream %s: %w", uri, err)
	}

	// Minimal buffer for low latency
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("live stream %s is not opened", uri)
	}
	return capture, nil
}

// FirstFrame grabs the first decodable frame of spec as a JPEG, at the
// source's native resolution so line coordinates match what is drawn.
func (s *Service) FirstFrame(ctx context.Context, spec models.SourceSpec) (models.Frame, error) {
	if spec.Kind == models.SourceLive {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.LiveConnectTimeout)
		defer cancel()
		return s.firstFrame(ctx, spec)
	}
	return s.firstFrame(ctx, spec)
}

func (s *Service) firstFrame(ctx context.Context, spec models.SourceSpec) (models.Frame, error) {
	capture, err := s.openCapture(ctx, spec)
	if err != nil {
		return models.Frame{}, err
	}
	defer capture.Close()

	img := gocv.NewMat()
	defer img.Close()

	// Try to read several frames to ensure stream is stable
	for i := 0; i < 5; i++ {
		if err := ctx.Err(); err != nil {
			return models.Frame{}, err
		}
		if capture.Read(&img) && !img.Empty() {
			data, err := helpers.EncodeJPEG(img, s.cfg.JPEGQuality)
			if err != nil {
				return models.Frame{}, err
			}
			return models.Frame{
				Index:     0,
				Timestamp: sourceTimestamp(spec, time.Now().UTC(), 0),
				Width:     img.Cols(),
				Height:    img.Rows(),
				Encoding:  "jpeg",
				Data:      data,
			}, nil
		}
		time.Sleep(200 * time.Millisecond)
	}
	return models.Frame{}, fmt.Errorf("failed to read a frame from %s", spec.URI)
}

// CalculateBackoffDelay calculates jittered exponential backoff delay,
// clamped between LiveRetryDelay and thirty seconds
func (s *Service) CalculateBackoffDelay(attempt int) time.Duration {
	minDelay := s.cfg.LiveRetryDelay
	maxDelay := 30 * time.Second
	if minDelay > maxDelay {
		maxDelay = minDelay
	}

	// Base delay with exponential backoff
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * minDelay
	if baseDelay < minDelay {
		baseDelay = minDelay
	}
	if baseDelay > maxDelay {
		baseDelay = maxDelay
	}

	// +/-10% jitter
	jitter := time.Duration(float64(baseDelay) * 0.1 * (rand.Float64()*2 - 1))
	return baseDelay + jitter
}

// fallbackFPS is assumed when a file does not report its frame rate
const fallbackFPS = 30

// frameOffset is the position of frame index in a file played at fps. The
// decoder's own position is not used: it can stall or step back on some
// containers, and timestamps must never go backwards.
func frameOffset(index int64, fps float64) time.Duration {
	if fps <= 0 || math.IsNaN(fps) || math.IsInf(fps, 0) {
		fps = fallbackFPS
	}
	return time.Duration(float64(index) / fps * float64(time.Second))
}

// sourceTimestamp places a frame on the wall clock. Files with a declared
// start time use it plus the position in the video; otherwise the time the
// source was opened is used as the origin.
func sourceTimestamp(spec models.SourceSpec, opened time.Time, pos time.Duration) time.Time {
	if spec.Kind == models.SourceLive {
		return time.Now().UTC()
	}
	if !spec.StartTime.IsZero() {
		return spec.StartTime.Add(pos).UTC()
	}
	return opened.Add(pos)
}
