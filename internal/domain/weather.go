package domain

import "time"

// WeatherStation is a climate station ranked by distance from a target point.
type WeatherStation struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	ElevationMeters float64 `json:"elevation_meters"`
	DistanceMiles   float64 `json:"distance_miles"`
}

// NormalRecord is one monthly climate normal value for a station.
type NormalRecord struct {
	Station  string     `json:"station"`
	Month    time.Month `json:"month"`
	Datatype string     `json:"datatype"`
	Value    float64    `json:"value"`
}
