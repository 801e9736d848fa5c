package domain

// StatisticalCodes are the census FIPS codes for a state and a place within it.
type StatisticalCodes struct {
	State string `json:"state"`
	Place string `json:"place"`
}

// CityRegion is a housing provider's region for a city and the metro label it belongs to.
type CityRegion struct {
	RegionID int    `json:"region_id"`
	Metro    string `json:"metro"`
}

// MetroRegion is a housing provider's metro region selected for a city.
type MetroRegion struct {
	RegionID      int     `json:"region_id"`
	Name          string  `json:"name"`
	State         string  `json:"state"`
	DistanceMiles float64 `json:"distance_miles"`
}
