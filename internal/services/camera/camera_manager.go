package camera

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/config"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/logging"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/capacity"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/counting"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/linecrossing"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/session"
)

// ManagerDeps are the collaborators shared by every camera job
type ManagerDeps struct {
	Opener    SourceOpener
	Grabber   FrameGrabber
	Tracker   Tracker
	Capacity  *capacity.Table
	Publisher models.MessagePublisher
	Observer  FrameObserver
}

// Manager owns the session aggregator and one job per camera role
type Manager struct {
	cfg        *config.Config
	deps       ManagerDeps
	logger     zerolog.Logger
	aggregator *session.Aggregator

	roles  []models.CameraRole
	jobs   map[models.CameraRole]*Job
	outbox *outbox

	// serializes session changes against job control
	mu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates jobs for every role listed in cfg.CameraRoles
func NewManager(cfg *config.Config, deps ManagerDeps) (*Manager, error) {
	if deps.Opener == nil || deps.Tracker == nil {
		return nil, fmt.Errorf("camera manager requires a source opener and a tracker")
	}
	if deps.Capacity == nil {
		deps.Capacity = capacity.Default()
	}

	roles, err := ParseRoles(cfg.CameraRoles)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		deps:       deps,
		logger:     logging.NewServiceLogger(cfg, "camera_manager"),
		aggregator: session.NewAggregator(cfg.SiteLocation, roles),
		roles:      roles,
		jobs:       make(map[models.CameraRole]*Job, len(roles)),
		ctx:        ctx,
		cancel:     cancel,
	}
	if deps.Publisher != nil {
		m.outbox = newOutbox(deps.Publisher, cfg.PublishQueueSize, cfg.PublishTimeout, m.logger)
	}

	classifier := counting.NewClassifier(deps.Capacity)
	for _, role := range roles {
		m.jobs[role] = NewJob(role, JobDeps{
			Opener:     deps.Opener,
			Tracker:    deps.Tracker,
			Classifier: classifier,
			Baseliner:  m.aggregator,
			Emit:       m.emit,
			Observer:   deps.Observer,
			Logger:     logging.WithCamera(logging.NewServiceLogger(cfg, "camera_job"), string(role)),
		}, JobOptions{
			EvictAfter:    cfg.TrackEvictionFrames,
			ProgressEvery: cfg.ProgressEveryFrames,
			Gate:          segmentGate(cfg),
		})
	}

	s := m.aggregator.Session()
	m.publish(models.Envelope{Type: models.MessageSession, SessionID: s.ID, Timestamp: time.Now().UTC(), Payload: s})

	m.logger.Info().
		Str("session_id", s.ID).
		Str("location", s.Location).
		Strs("roles", rolesToStrings(roles)).
		Msg("Camera manager initialized")

	return m, nil
}

// ParseRoles parses a comma separated role list such as "ENTRY,EXIT"
func ParseRoles(list string) ([]models.CameraRole, error) {
	var roles []models.CameraRole
	seen := make(map[models.CameraRole]bool)
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		role, err := models.ParseCameraRole(part)
		if err != nil {
			return nil, err
		}
		if seen[role] {
			return nil, fmt.Errorf("duplicate camera role %s", role)
		}
		seen[role] = true
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("no camera roles configured")
	}
	return roles, nil
}

// emit is the single outlet of every job. Statistics feed the aggregator
// before emit returns; sinks are reached through the outbox so a slow sink
// never holds up a job.
func (m *Manager) emit(env models.Envelope) {
	env.SessionID = m.aggregator.Session().ID

	var site *models.SiteStatistics
	if env.Type == models.MessageStatistics {
		if stats, ok := env.Payload.(models.CameraStatistics); ok {
			m.aggregator.Update(env.Role, stats)
			s := m.aggregator.Site()
			site = &s
		}
	}

	m.publish(env)

	if site != nil {
		m.publish(models.Envelope{
			Type:      models.MessageSiteStatistics,
			SessionID: env.SessionID,
			Timestamp: env.Timestamp,
			Payload:   *site,
		})
	}
}

func (m *Manager) publish(env models.Envelope) {
	if m.outbox == nil {
		return
	}
	m.outbox.enqueue(env)
}

// Flush waits until every envelope emitted so far has reached the sinks
func (m *Manager) Flush(ctx context.Context) error {
	if m.outbox == nil {
		return nil
	}
	return m.outbox.flush(ctx)
}

// Roles returns the configured camera roles in order
func (m *Manager) Roles() []models.CameraRole {
	return append([]models.CameraRole(nil), m.roles...)
}

// Job returns the job of role
func (m *Manager) Job(role models.CameraRole) (*Job, error) {
	j, ok := m.jobs[role]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return j, nil
}

// Session returns the current session
func (m *Manager) Session() models.Session {
	return m.aggregator.Session()
}

// NewSession resets every job and starts a new session. Rejected while any
// job is running.
func (m *Manager) NewSession(location string) (models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, role := range m.roles {
		if m.jobs[role].State() == StateRunning {
			return models.Session{}, fmt.Errorf("%w: camera %s is running", ErrConfigurationLocked, role)
		}
	}
	for _, role := range m.roles {
		if err := m.jobs[role].Reset(); err != nil {
			return models.Session{}, fmt.Errorf("reset camera %s: %w", role, err)
		}
	}

	if location == "" {
		location = m.cfg.SiteLocation
	}
	s := m.aggregator.Reset(location)
	m.publish(models.Envelope{Type: models.MessageSession, SessionID: s.ID, Timestamp: time.Now().UTC(), Payload: s})

	m.logger.Info().Str("session_id", s.ID).Str("location", s.Location).Msg("New session started")
	return s, nil
}

// AttachSource attaches a source to the job of role
func (m *Manager) AttachSource(role models.CameraRole, spec models.SourceSpec, mode models.AccumulationMode) error {
	j, err := m.Job(role)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return j.AttachSource(spec, mode)
}

// SetLine configures the counting line of role
func (m *Manager) SetLine(role models.CameraRole, line models.CountingLine) error {
	j, err := m.Job(role)
	if err != nil {
		return err
	}
	return j.SetLine(line)
}

// Start starts the job of role. Jobs run on the manager context, not the
// caller's, so they outlive the request that started them.
func (m *Manager) Start(role models.CameraRole) error {
	j, err := m.Job(role)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return j.Start(m.ctx)
}

// Stop requests a cooperative stop of role
func (m *Manager) Stop(role models.CameraRole) error {
	j, err := m.Job(role)
	if err != nil {
		return err
	}
	return j.Stop()
}

// Status returns the status of role
func (m *Manager) Status(role models.CameraRole) (models.JobStatus, error) {
	j, err := m.Job(role)
	if err != nil {
		return models.JobStatus{}, err
	}
	return j.Status(), nil
}

// Statuses returns the status of every job in role order
func (m *Manager) Statuses() []models.JobStatus {
	out := make([]models.JobStatus, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, m.jobs[role].Status())
	}
	return out
}

// CameraStatistics returns baseline plus current run statistics of role
func (m *Manager) CameraStatistics(role models.CameraRole) (models.CameraStatistics, error) {
	stats, ok := m.aggregator.Camera(role)
	if !ok {
		return models.CameraStatistics{}, fmt.Errorf("%w: %s", ErrUnknownRole, role)
	}
	return stats, nil
}

// SiteStatistics merges every camera of the session
func (m *Manager) SiteStatistics() models.SiteStatistics {
	return m.aggregator.Site()
}

// Events returns the last limit crossing events of role
func (m *Manager) Events(role models.CameraRole, limit int) ([]models.CrossingEvent, error) {
	j, err := m.Job(role)
	if err != nil {
		return nil, err
	}
	return j.Events(limit), nil
}

// FirstFrame extracts the first frame of the source attached to role
func (m *Manager) FirstFrame(ctx context.Context, role models.CameraRole) (models.Frame, error) {
	j, err := m.Job(role)
	if err != nil {
		return models.Frame{}, err
	}
	spec, ok := j.Source()
	if !ok {
		return models.Frame{}, ErrSourceNotConfigured
	}
	if m.deps.Grabber == nil {
		return models.Frame{}, fmt.Errorf("frame extraction not available")
	}
	return m.deps.Grabber.FirstFrame(ctx, spec)
}

// Shutdown stops every running job in parallel, waits for them and then
// drains the publish queue
func (m *Manager) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down camera manager")

	g, gctx := errgroup.WithContext(ctx)
	for _, role := range m.roles {
		j := m.jobs[role]
		if j.State() != StateRunning {
			continue
		}
		g.Go(func() error {
			_ = j.Stop()
			return j.Wait(gctx)
		})
	}
	err := g.Wait()
	m.cancel()
	if err != nil {
		err = fmt.Errorf("camera jobs did not stop in time: %w", err)
	}

	if m.outbox != nil {
		if derr := m.outbox.close(ctx); derr != nil {
			log.Warn().Err(derr).Msg("Publish queue not drained before shutdown deadline")
			if err == nil {
				err = fmt.Errorf("publish queue not drained: %w", derr)
			}
		}
	}
	if err != nil {
		return err
	}
	log.Info().Msg("Camera manager shutdown complete")
	return nil
}

// segmentGate builds the detector gate from configuration, nil when off
func segmentGate(cfg *config.Config) *linecrossing.SegmentGate {
	if !cfg.LineSegmentGate {
		return nil
	}
	return &linecrossing.SegmentGate{Margin: cfg.LineSegmentMargin, MaxDistance: cfg.LineMaxDistance}
}

func rolesToStrings(roles []models.CameraRole) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
