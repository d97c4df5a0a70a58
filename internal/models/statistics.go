package models

// CameraStatistics are the running counts of one camera role in a session
type CameraStatistics struct {
	VehiclesIn          int                        `json:"vehicles_in"`
	VehiclesOut         int                        `json:"vehicles_out"`
	NetVehicles         int                        `json:"net_vehicles"`
	PeopleOnSiteMin     int                        `json:"people_on_site_min"`
	PeopleOnSiteMax     int                        `json:"people_on_site_max"`
	VehicleDistribution map[Category]int           `json:"vehicle_distribution"`
	Capacities          map[Category]CapacityRange `json:"capacities,omitempty"`
}

// NewCameraStatistics returns empty statistics with initialized maps
func NewCameraStatistics() CameraStatistics {
	return CameraStatistics{
		VehicleDistribution: make(map[Category]int),
		Capacities:          make(map[Category]CapacityRange),
	}
}

// Clone returns a deep copy
func (s CameraStatistics) Clone() CameraStatistics {
	out := s
	out.VehicleDistribution = make(map[Category]int, len(s.VehicleDistribution))
	for k, v := range s.VehicleDistribution {
		out.VehicleDistribution[k] = v
	}
	out.Capacities = make(map[Category]CapacityRange, len(s.Capacities))
	for k, v := range s.Capacities {
		out.Capacities[k] = v
	}
	return out
}

// SiteStatistics merge every camera of a session
type SiteStatistics struct {
	SessionID           string                          `json:"session_id"`
	Location            string                          `json:"location"`
	VehiclesIn          int                             `json:"vehicles_in"`
	VehiclesOut         int                             `json:"vehicles_out"`
	NetVehicles         int                             `json:"net_vehicles"`
	PeopleOnSiteMin     int                             `json:"people_on_site_min"`
	PeopleOnSiteMax     int                             `json:"people_on_site_max"`
	VehicleDistribution map[Category]int                `json:"vehicle_distribution"`
	Cameras             map[CameraRole]CameraStatistics `json:"cameras"`
}
