package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/counting"
)

type slot struct {
	current  models.CameraStatistics
	baseline *models.CameraStatistics
}

// Aggregator merges per-camera statistics into site statistics. Camera jobs
// only push snapshots into it; site figures are recomputed on every read.
type Aggregator struct {
	mu      sync.RWMutex
	session models.Session
	slots   map[models.CameraRole]*slot
}

// NewAggregator starts a fresh session for the given roles
func NewAggregator(location string, roles []models.CameraRole) *Aggregator {
	a := &Aggregator{}
	a.reset(location, roles)
	return a
}

func (a *Aggregator) reset(location string, roles []models.CameraRole) {
	a.session = models.Session{
		ID:        uuid.NewString(),
		Location:  location,
		CreatedAt: time.Now().UTC(),
		Roles:     append([]models.CameraRole(nil), roles...),
	}
	a.slots = make(map[models.CameraRole]*slot, len(roles))
	for _, r := range roles {
		a.slots[r] = &slot{current: models.NewCameraStatistics()}
	}
}

// Reset discards all statistics and baselines and opens a new session
func (a *Aggregator) Reset(location string) models.Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reset(location, a.session.Roles)
	s := a.session
	s.Roles = append([]models.CameraRole(nil), a.session.Roles...)
	return s
}

// Session returns the current session identity
func (a *Aggregator) Session() models.Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.session
	s.Roles = append([]models.CameraRole(nil), a.session.Roles...)
	return s
}

// HasRole reports whether role belongs to the session
func (a *Aggregator) HasRole(role models.CameraRole) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.slots[role]
	return ok
}

// Update records the latest statistics of the role's current run
func (a *Aggregator) Update(role models.CameraRole, stats models.CameraStatistics) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.slots[role]; ok {
		s.current = stats.Clone()
	}
}

// Continue captures the exposed statistics of role as its baseline and
// zeroes the current run, so the next run accumulates on top.
func (a *Aggregator) Continue(role models.CameraRole) models.CameraStatistics {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.slots[role]
	if !ok {
		return models.NewCameraStatistics()
	}
	base := exposed(s)
	s.baseline = &base
	s.current = models.NewCameraStatistics()
	return base.Clone()
}

// Restart drops the baseline and the current run of role
func (a *Aggregator) Restart(role models.CameraRole) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if s, ok := a.slots[role]; ok {
		s.baseline = nil
		s.current = models.NewCameraStatistics()
	}
}

// Baseline returns the saved baseline of role, if any
func (a *Aggregator) Baseline(role models.CameraRole) (models.CameraStatistics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.slots[role]
	if !ok || s.baseline == nil {
		return models.CameraStatistics{}, false
	}
	return s.baseline.Clone(), true
}

// Camera returns baseline plus current run for role
func (a *Aggregator) Camera(role models.CameraRole) (models.CameraStatistics, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.slots[role]
	if !ok {
		return models.CameraStatistics{}, false
	}
	return exposed(s), true
}

// Site sums every camera. The distribution is summed signed, so EXIT
// departures reduce net presence, and occupancy is recomputed from the
// merged distribution clamped at zero.
func (a *Aggregator) Site() models.SiteStatistics {
	a.mu.RLock()
	defer a.mu.RUnlock()

	site := models.SiteStatistics{
		SessionID:           a.session.ID,
		Location:            a.session.Location,
		VehicleDistribution: make(map[models.Category]int),
		Cameras:             make(map[models.CameraRole]models.CameraStatistics, len(a.slots)),
	}
	capacities := make(map[models.Category]models.CapacityRange)

	for _, role := range a.session.Roles {
		cam := exposed(a.slots[role])
		site.Cameras[role] = cam
		site.VehiclesIn += cam.VehiclesIn
		site.VehiclesOut += cam.VehiclesOut
		for c, n := range cam.VehicleDistribution {
			site.VehicleDistribution[c] += n
		}
		for c, r := range cam.Capacities {
			capacities[c] = r
		}
	}
	site.NetVehicles = site.VehiclesIn - site.VehiclesOut
	site.PeopleOnSiteMin, site.PeopleOnSiteMax = counting.Occupancy(site.VehicleDistribution, capacities)
	return site
}

func exposed(s *slot) models.CameraStatistics {
	if s.baseline == nil {
		return s.current.Clone()
	}
	return counting.Combine(*s.baseline, s.current)
}
