package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

var roles = []models.CameraRole{models.RoleEntry, models.RoleExit}

var sedan = models.CapacityRange{Min: 1, Max: 5}

func stats(in, out int, dist map[models.Category]int) models.CameraStatistics {
	s := models.NewCameraStatistics()
	s.VehiclesIn = in
	s.VehiclesOut = out
	s.NetVehicles = in - out
	for c, n := range dist {
		s.VehicleDistribution[c] = n
		s.Capacities[c] = sedan
		if n > 0 {
			s.PeopleOnSiteMin += n * sedan.Min
			s.PeopleOnSiteMax += n * sedan.Max
		}
	}
	return s
}

func TestNewSession(t *testing.T) {
	t.Parallel()

	a := NewAggregator("Gate 4", roles)
	s := a.Session()
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gate 4", s.Location)
	assert.Equal(t, roles, s.Roles)
	assert.True(t, a.HasRole(models.RoleExit))
	assert.False(t, a.HasRole("DOCK"))

	next := a.Reset("Gate 5")
	assert.NotEqual(t, s.ID, next.ID)
	assert.Equal(t, roles, next.Roles)
}

func TestMergeCorrectness(t *testing.T) {
	t.Parallel()

	a := NewAggregator("site", roles)
	a.Update(models.RoleEntry, stats(3, 0, map[models.Category]int{"Sedan": 3}))
	a.Update(models.RoleExit, stats(0, 1, map[models.Category]int{"Sedan": -1}))

	site := a.Site()
	assert.Equal(t, 2, site.VehicleDistribution["Sedan"])
	assert.Equal(t, 2, site.PeopleOnSiteMin)
	assert.Equal(t, 10, site.PeopleOnSiteMax)
	assert.Equal(t, 3, site.VehiclesIn)
	assert.Equal(t, 1, site.VehiclesOut)
	assert.Equal(t, 2, site.NetVehicles)
	assert.Len(t, site.Cameras, 2)
}

func TestSiteClampsMergedDistribution(t *testing.T) {
	t.Parallel()

	a := NewAggregator("site", roles)
	a.Update(models.RoleEntry, stats(1, 0, map[models.Category]int{"Sedan": 1}))
	a.Update(models.RoleExit, stats(0, 4, map[models.Category]int{"Sedan": -4}))

	site := a.Site()
	assert.Equal(t, -3, site.VehicleDistribution["Sedan"])
	assert.Equal(t, 0, site.PeopleOnSiteMin)
	assert.Equal(t, 0, site.PeopleOnSiteMax)
}

func TestContinuationArithmetic(t *testing.T) {
	t.Parallel()

	t.Run("continue", func(t *testing.T) {
		a := NewAggregator("site", roles)
		a.Update(models.RoleEntry, stats(10, 0, map[models.Category]int{"Sedan": 10}))

		base := a.Continue(models.RoleEntry)
		assert.Equal(t, 10, base.VehiclesIn)

		a.Update(models.RoleEntry, stats(4, 1, map[models.Category]int{"Sedan": 3}))
		cam, ok := a.Camera(models.RoleEntry)
		require.True(t, ok)
		assert.Equal(t, 14, cam.VehiclesIn)
		assert.Equal(t, 1, cam.VehiclesOut)
		assert.Equal(t, 13, cam.NetVehicles)
		assert.Equal(t, 13, cam.VehicleDistribution["Sedan"])
		assert.Equal(t, 13, cam.PeopleOnSiteMin)
		assert.Equal(t, 65, cam.PeopleOnSiteMax)
		assert.Equal(t, 14, a.Site().VehiclesIn)
	})

	t.Run("restart", func(t *testing.T) {
		a := NewAggregator("site", roles)
		a.Update(models.RoleEntry, stats(10, 0, nil))
		a.Restart(models.RoleEntry)
		a.Update(models.RoleEntry, stats(4, 0, nil))

		cam, _ := a.Camera(models.RoleEntry)
		assert.Equal(t, 4, cam.VehiclesIn)
		_, ok := a.Baseline(models.RoleEntry)
		assert.False(t, ok)
	})

	t.Run("continue twice", func(t *testing.T) {
		a := NewAggregator("site", roles)
		a.Update(models.RoleEntry, stats(10, 0, nil))
		a.Continue(models.RoleEntry)
		a.Update(models.RoleEntry, stats(4, 0, nil))
		a.Continue(models.RoleEntry)
		a.Update(models.RoleEntry, stats(1, 0, nil))

		cam, _ := a.Camera(models.RoleEntry)
		assert.Equal(t, 15, cam.VehiclesIn)
		base, ok := a.Baseline(models.RoleEntry)
		require.True(t, ok)
		assert.Equal(t, 14, base.VehiclesIn)
	})
}

func TestBaselineIsNotMutated(t *testing.T) {
	t.Parallel()

	a := NewAggregator("site", roles)
	a.Update(models.RoleEntry, stats(2, 0, map[models.Category]int{"Sedan": 2}))
	a.Continue(models.RoleEntry)
	a.Update(models.RoleEntry, stats(5, 0, map[models.Category]int{"Sedan": 5}))

	base, ok := a.Baseline(models.RoleEntry)
	require.True(t, ok)
	assert.Equal(t, 2, base.VehicleDistribution["Sedan"])

	base.VehicleDistribution["Sedan"] = 100
	again, _ := a.Baseline(models.RoleEntry)
	assert.Equal(t, 2, again.VehicleDistribution["Sedan"])
}

func TestFailedCameraKeepsOtherContribution(t *testing.T) {
	t.Parallel()

	a := NewAggregator("site", roles)
	a.Update(models.RoleEntry, stats(5, 0, map[models.Category]int{"Sedan": 5}))

	site := a.Site()
	assert.Equal(t, 5, site.VehiclesIn)
	assert.Equal(t, 25, site.PeopleOnSiteMax)
	assert.Equal(t, 0, site.Cameras[models.RoleExit].VehiclesOut)
}

func TestUnknownRoleIgnored(t *testing.T) {
	t.Parallel()

	a := NewAggregator("site", roles)
	a.Update("DOCK", stats(5, 0, nil))
	_, ok := a.Camera("DOCK")
	assert.False(t, ok)
	assert.Equal(t, 0, a.Site().VehiclesIn)
}
