package counting

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/capacity"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/services/linecrossing"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func transition(category models.Category, dir models.Direction, sec int) linecrossing.Transition {
	return linecrossing.Transition{
		Role:       models.RoleEntry,
		TrackID:    "t",
		Category:   category,
		Direction:  dir,
		FrameIndex: int64(sec * 30),
		Timestamp:  t0.Add(time.Duration(sec) * time.Second),
	}
}

func classifyAll(t *testing.T, c *Classifier, ts ...linecrossing.Transition) []models.CrossingEvent {
	t.Helper()
	out := make([]models.CrossingEvent, 0, len(ts))
	for _, tr := range ts {
		ev, err := c.Classify(tr)
		require.NoError(t, err)
		out = append(out, ev)
	}
	return out
}

func TestClassifyCopiesCapacity(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	ev, err := c.Classify(transition("Van", models.DirectionIn, 3))
	require.NoError(t, err)

	assert.Equal(t, models.CapacityRange{Min: 1, Max: 15}, ev.Capacity)
	assert.Equal(t, models.DirectionIn, ev.Direction)
	assert.Equal(t, models.RoleEntry, ev.Role)
	assert.Equal(t, t0.Add(3*time.Second), ev.Timestamp)
	assert.Equal(t, int64(90), ev.FrameIndex)
}

func TestClassifyUnknownCategory(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	_, err := c.Classify(transition("Drone", models.DirectionIn, 1))
	assert.ErrorIs(t, err, capacity.ErrUnknownCategory)
}

func TestAccumulatorApply(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	acc := NewAccumulator()
	for _, ev := range classifyAll(t, c,
		transition("Sedan", models.DirectionIn, 1),
		transition("Sedan", models.DirectionIn, 2),
		transition("Bus", models.DirectionIn, 3),
		transition("Sedan", models.DirectionOut, 4),
	) {
		require.NoError(t, acc.Apply(ev))
	}

	got := acc.Snapshot()
	assert.Equal(t, 3, got.VehiclesIn)
	assert.Equal(t, 1, got.VehiclesOut)
	assert.Equal(t, 2, got.NetVehicles)
	assert.Equal(t, map[models.Category]int{"Sedan": 1, "Bus": 1}, got.VehicleDistribution)
	assert.Equal(t, 2, got.PeopleOnSiteMin)
	assert.Equal(t, 55, got.PeopleOnSiteMax)
}

func TestClampedOccupancy(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	acc := NewAccumulator()
	for _, ev := range classifyAll(t, c,
		transition("Truck", models.DirectionOut, 1),
		transition("Truck", models.DirectionOut, 2),
		transition("SUV", models.DirectionIn, 3),
	) {
		require.NoError(t, acc.Apply(ev))
	}

	got := acc.Snapshot()
	assert.Equal(t, -2, got.VehicleDistribution["Truck"])
	assert.Equal(t, 1, got.PeopleOnSiteMin)
	assert.Equal(t, 8, got.PeopleOnSiteMax)
	assert.Equal(t, -1, got.NetVehicles)
	assert.LessOrEqual(t, got.PeopleOnSiteMin, got.PeopleOnSiteMax)
}

func TestIdempotentReplay(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	events := classifyAll(t, c,
		transition("Sedan", models.DirectionIn, 1),
		transition("Motorcycle", models.DirectionOut, 2),
		transition("Pickup", models.DirectionIn, 2),
		transition("Sedan", models.DirectionOut, 5),
		transition("Van", models.DirectionIn, 8),
		transition("Motorcycle", models.DirectionOut, 9),
	)

	log := &EventLog{}
	acc := NewAccumulator()
	for _, ev := range events {
		log.Append(ev)
		require.NoError(t, acc.Apply(ev))
	}

	replayed, err := Replay(log.Events())
	require.NoError(t, err)
	if diff := cmp.Diff(acc.Snapshot(), replayed); diff != "" {
		t.Errorf("replay mismatch (-live +replay):\n%s", diff)
	}

	again, err := Replay(log.Events())
	require.NoError(t, err)
	if diff := cmp.Diff(replayed, again); diff != "" {
		t.Errorf("second replay mismatch:\n%s", diff)
	}
}

func TestReplayAcrossContinuedRuns(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	first := classifyAll(t, c,
		transition("Sedan", models.DirectionIn, 10),
		transition("Sedan", models.DirectionIn, 20),
	)
	// the continued run's footage starts earlier than the first run ended
	second := classifyAll(t, c,
		transition("Sedan", models.DirectionOut, 1),
		transition("Van", models.DirectionIn, 2),
	)

	var log []models.CrossingEvent
	live := make([]models.CameraStatistics, 0, 2)
	for run, events := range [][]models.CrossingEvent{first, second} {
		acc := NewAccumulator()
		for _, ev := range events {
			ev.Run = run
			require.NoError(t, acc.Apply(ev))
			log = append(log, ev)
		}
		live = append(live, acc.Snapshot())
	}
	exposed := Combine(live[0], live[1])

	replayed, err := Replay(log)
	require.NoError(t, err)
	if diff := cmp.Diff(exposed, replayed); diff != "" {
		t.Errorf("replay mismatch (-exposed +replay):\n%s", diff)
	}
	assert.Equal(t, 3, replayed.VehiclesIn)
	assert.Equal(t, 1, replayed.VehiclesOut)
	assert.Equal(t, 1, replayed.VehicleDistribution["Sedan"])
	// occupancy bounds add per run: 2..10 from the first, 1..15 from the second
	assert.Equal(t, 3, replayed.PeopleOnSiteMin)
	assert.Equal(t, 25, replayed.PeopleOnSiteMax)

	// the same events without run numbers are out of order
	for i := range log {
		log[i].Run = 0
	}
	_, err = Replay(log)
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestCombine(t *testing.T) {
	t.Parallel()

	baseline := models.CameraStatistics{
		VehiclesIn:          10,
		NetVehicles:         10,
		VehicleDistribution: map[models.Category]int{"Sedan": 10},
		Capacities:          map[models.Category]models.CapacityRange{"Sedan": {Min: 1, Max: 5}},
	}
	current := models.CameraStatistics{
		VehiclesIn:          4,
		NetVehicles:         4,
		VehicleDistribution: map[models.Category]int{"Sedan": 3, "Bus": 1},
		Capacities:          map[models.Category]models.CapacityRange{"Bus": {Min: 1, Max: 60}},
	}

	got := Combine(baseline, current)
	assert.Equal(t, 14, got.VehiclesIn)
	assert.Equal(t, map[models.Category]int{"Sedan": 13, "Bus": 1}, got.VehicleDistribution)
	assert.Len(t, got.Capacities, 2)
	assert.Equal(t, 10, baseline.VehicleDistribution["Sedan"])
}

func TestOutOfOrderRejected(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	events := classifyAll(t, c,
		transition("Sedan", models.DirectionIn, 5),
		transition("Sedan", models.DirectionIn, 4),
	)

	acc := NewAccumulator()
	require.NoError(t, acc.Apply(events[0]))
	assert.ErrorIs(t, acc.Apply(events[1]), ErrOutOfOrder)
	assert.Equal(t, 1, acc.Snapshot().VehiclesIn)

	_, err := Replay(events)
	assert.ErrorIs(t, err, ErrOutOfOrder)
}

func TestSnapshotIsolation(t *testing.T) {
	t.Parallel()

	c := NewClassifier(capacity.Default())
	acc := NewAccumulator()
	require.NoError(t, acc.Apply(classifyAll(t, c, transition("Sedan", models.DirectionIn, 1))[0]))

	snap := acc.Snapshot()
	snap.VehicleDistribution["Sedan"] = 99
	assert.Equal(t, 1, acc.Snapshot().VehicleDistribution["Sedan"])

	acc.Reset()
	assert.Equal(t, 0, acc.Snapshot().VehiclesIn)
	assert.Empty(t, acc.Snapshot().VehicleDistribution)
}

func TestEventLogLast(t *testing.T) {
	t.Parallel()

	log := &EventLog{}
	for i := 0; i < 5; i++ {
		log.Append(models.CrossingEvent{FrameIndex: int64(i)})
	}

	last := log.Last(2)
	require.Len(t, last, 2)
	assert.Equal(t, int64(3), last[0].FrameIndex)
	assert.Equal(t, int64(4), last[1].FrameIndex)
	assert.Len(t, log.Last(0), 5)
	assert.Len(t, log.Last(50), 5)

	log.Clear()
	assert.Equal(t, 0, log.Len())
	assert.Empty(t, log.Last(3))
}
