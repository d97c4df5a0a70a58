package detection

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// TrackMethod is the unary method served by the tracker collaborator. Both
// request and response are google.protobuf.Struct documents.
const TrackMethod = "/tracker.v1.Tracker/Track"

// Service is the gRPC client of the detector+tracker collaborator
type Service struct {
	mu        sync.Mutex
	conn      *grpc.ClientConn
	health    healthpb.HealthClient
	grpcURL   string
	isHealthy bool

	timeout       time.Duration
	minConfidence float64
	dialOpts      []grpc.DialOption
}

// Option customizes the client
type Option func(*Service)

// WithDialOptions appends dial options, e.g. a bufconn dialer in tests
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(s *Service) { s.dialOpts = append(s.dialOpts, opts...) }
}

func NewService(grpcURL string, timeout time.Duration, minConfidence float64, opts ...Option) (*Service, error) {
	log.Info().Str("url", grpcURL).Msg("Initializing tracker service")

	service := &Service{
		grpcURL:       grpcURL,
		timeout:       timeout,
		minConfidence: minConfidence,
		dialOpts:      []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())},
	}
	for _, opt := range opts {
		opt(service)
	}

	// Try to connect, but don't fail if it's not available
	service.mu.Lock()
	err := service.connect()
	service.mu.Unlock()
	if err != nil {
		log.Warn().Err(err).Msg("Tracker service not available, will retry later")
	}

	return service, nil
}

func (s *Service) connect() error {
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}

	conn, err := grpc.NewClient(s.grpcURL, s.dialOpts...)
	if err != nil {
		return fmt.Errorf("failed to connect to tracker service: %w", err)
	}

	health := healthpb.NewHealthClient(conn)

	// Test connection with health check
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	resp, err := health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		conn.Close()
		return fmt.Errorf("tracker service health check failed: %w", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		conn.Close()
		return fmt.Errorf("tracker service is %s", resp.GetStatus())
	}

	s.conn = conn
	s.health = health
	s.isHealthy = true

	log.Info().Msg("Successfully connected to tracker service")
	return nil
}

func (s *Service) ensureConnection() (*grpc.ClientConn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isHealthy && s.conn != nil {
		return s.conn, nil
	}
	if err := s.connect(); err != nil {
		return nil, err
	}
	return s.conn, nil
}

func (s *Service) markUnhealthy() {
	s.mu.Lock()
	s.isHealthy = false
	s.mu.Unlock()
}

// Track sends one frame to the tracker and returns the objects it tracks,
// dropping those below the confidence threshold.
func (s *Service) Track(ctx context.Context, role models.CameraRole, frame models.Frame) ([]models.TrackedObject, error) {
	conn, err := s.ensureConnection()
	if err != nil {
		return nil, fmt.Errorf("tracker service unavailable: %w", err)
	}

	req, err := EncodeFrame(role, frame)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	resp := &structpb.Struct{}
	if err := conn.Invoke(ctx, TrackMethod, req, resp); err != nil {
		if ctx.Err() == nil {
			s.markUnhealthy()
		}
		return nil, fmt.Errorf("track frame %d: %w", frame.Index, err)
	}

	objects, err := DecodeTracks(resp)
	if err != nil {
		return nil, fmt.Errorf("track frame %d: %w", frame.Index, err)
	}

	kept := objects[:0]
	for _, obj := range objects {
		if obj.Confidence >= s.minConfidence {
			kept = append(kept, obj)
		}
	}
	log.Debug().
		Str("camera_role", string(role)).
		Int64("frame", frame.Index).
		Int("tracks", len(kept)).
		Int("dropped", len(objects)-len(kept)).
		Msg("Tracker response")
	return kept, nil
}

// EncodeFrame builds the request document for one frame
func EncodeFrame(role models.CameraRole, frame models.Frame) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"camera_role": string(role),
		"frame_index": float64(frame.Index),
		"timestamp":   frame.Timestamp.UTC().Format(time.RFC3339Nano),
		"width":       float64(frame.Width),
		"height":      float64(frame.Height),
		"encoding":    frame.Encoding,
		"image":       base64.StdEncoding.EncodeToString(frame.Data),
	})
}

// DecodeTracks parses the "tracks" list of a tracker response. Track ids
// may be numbers or strings; both are normalized to strings.
func DecodeTracks(resp *structpb.Struct) ([]models.TrackedObject, error) {
	list := resp.GetFields()["tracks"].GetListValue()
	if list == nil {
		return nil, nil
	}

	objects := make([]models.TrackedObject, 0, len(list.GetValues()))
	for i, v := range list.GetValues() {
		fields := v.GetStructValue().GetFields()
		if fields == nil {
			return nil, fmt.Errorf("track %d is not an object", i)
		}

		id, err := trackID(fields["track_id"])
		if err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}

		box := fields["bbox"].GetListValue().GetValues()
		if len(box) != 4 {
			return nil, fmt.Errorf("track %s: bbox needs 4 values, got %d", id, len(box))
		}

		objects = append(objects, models.TrackedObject{
			TrackID:  id,
			Category: models.Category(fields["class_name"].GetStringValue()),
			BBox: models.BoundingBox{
				X1: box[0].GetNumberValue(),
				Y1: box[1].GetNumberValue(),
				X2: box[2].GetNumberValue(),
				Y2: box[3].GetNumberValue(),
			},
			Confidence: fields["confidence"].GetNumberValue(),
		})
	}
	return objects, nil
}

func trackID(v *structpb.Value) (string, error) {
	switch k := v.GetKind().(type) {
	case *structpb.Value_NumberValue:
		return strconv.FormatInt(int64(k.NumberValue), 10), nil
	case *structpb.Value_StringValue:
		if k.StringValue == "" {
			return "", errors.New("empty track_id")
		}
		return k.StringValue, nil
	default:
		return "", errors.New("missing track_id")
	}
}

func (s *Service) HealthCheck(ctx context.Context) error {
	if _, err := s.ensureConnection(); err != nil {
		return err
	}

	s.mu.Lock()
	health := s.health
	s.mu.Unlock()

	resp, err := health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err == nil && resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		err = fmt.Errorf("tracker service is %s", resp.GetStatus())
	}
	if err != nil {
		s.markUnhealthy()
	}
	return err
}

func (s *Service) IsHealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isHealthy
}

func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		log.Info().Msg("Shutting down tracker service connection")
		err := s.conn.Close()
		s.conn = nil
		s.isHealthy = false
		return err
	}
	return nil
}
