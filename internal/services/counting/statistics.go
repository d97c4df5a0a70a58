package counting

import (
	"errors"
	"fmt"
	"time"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

// ErrOutOfOrder is returned when an event is older than the last applied one
var ErrOutOfOrder = errors.New("crossing event out of order")

// Accumulator folds CrossingEvents into CameraStatistics
type Accumulator struct {
	stats models.CameraStatistics
	last  time.Time
}

func NewAccumulator() *Accumulator {
	return &Accumulator{stats: models.NewCameraStatistics()}
}

// Apply folds one event. Events must arrive in timestamp order.
func (a *Accumulator) Apply(ev models.CrossingEvent) error {
	if ev.Timestamp.Before(a.last) {
		return fmt.Errorf("%w: %s before %s", ErrOutOfOrder, ev.Timestamp.Format(time.RFC3339Nano), a.last.Format(time.RFC3339Nano))
	}
	if ev.Direction != models.DirectionIn && ev.Direction != models.DirectionOut {
		return fmt.Errorf("unknown direction %q", ev.Direction)
	}
	a.last = ev.Timestamp

	switch ev.Direction {
	case models.DirectionIn:
		a.stats.VehiclesIn++
		a.stats.VehicleDistribution[ev.Category]++
	case models.DirectionOut:
		a.stats.VehiclesOut++
		a.stats.VehicleDistribution[ev.Category]--
	}
	a.stats.NetVehicles = a.stats.VehiclesIn - a.stats.VehiclesOut
	a.stats.Capacities[ev.Category] = ev.Capacity

	a.stats.PeopleOnSiteMin, a.stats.PeopleOnSiteMax = Occupancy(a.stats.VehicleDistribution, a.stats.Capacities)
	return nil
}

// Snapshot returns a deep copy of the current statistics
func (a *Accumulator) Snapshot() models.CameraStatistics {
	return a.stats.Clone()
}

// Reset zeroes the statistics
func (a *Accumulator) Reset() {
	a.stats = models.NewCameraStatistics()
	a.last = time.Time{}
}

// Occupancy computes the people-on-site bounds from a signed distribution.
// Each category contributes max(0, net) vehicles times its capacity bounds.
func Occupancy(distribution map[models.Category]int, capacities map[models.Category]models.CapacityRange) (low, high int) {
	for category, net := range distribution {
		if net <= 0 {
			continue
		}
		r := capacities[category]
		low += net * r.Min
		high += net * r.Max
	}
	return low, high
}

// Replay rebuilds statistics from an event log. Each run is folded from
// empty, in timestamp order, and runs are then added field by field the way
// a continued run is added onto its baseline.
func Replay(events []models.CrossingEvent) (models.CameraStatistics, error) {
	total := models.NewCameraStatistics()
	acc := NewAccumulator()
	for i, ev := range events {
		if i > 0 && ev.Run != events[i-1].Run {
			total = Combine(total, acc.Snapshot())
			acc.Reset()
		}
		if err := acc.Apply(ev); err != nil {
			return models.CameraStatistics{}, fmt.Errorf("replay event %d: %w", i, err)
		}
	}
	return Combine(total, acc.Snapshot()), nil
}

// Combine adds current onto baseline field by field and merges the
// distribution by category.
func Combine(baseline, current models.CameraStatistics) models.CameraStatistics {
	out := baseline.Clone()
	out.VehiclesIn += current.VehiclesIn
	out.VehiclesOut += current.VehiclesOut
	out.NetVehicles += current.NetVehicles
	out.PeopleOnSiteMin += current.PeopleOnSiteMin
	out.PeopleOnSiteMax += current.PeopleOnSiteMax
	for c, n := range current.VehicleDistribution {
		out.VehicleDistribution[c] += n
	}
	for c, r := range current.Capacities {
		out.Capacities[c] = r
	}
	return out
}
