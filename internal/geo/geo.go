// Package geo provides the small amount of spherical math the service needs:
// degree/mile conversions, bounding boxes, and great-circle distance.
package geo

import "math"

const (
	// MilesPerDegreeLatAtEquator is the length of one degree of longitude at the equator.
	MilesPerDegreeLatAtEquator = 69.172

	// milesPerDegreeLat is the approximate length of one degree of latitude.
	milesPerDegreeLat = 69.0

	// EarthRadiusMiles is the mean Earth radius used for haversine distances.
	EarthRadiusMiles = 3958.8

	feetPerMeter = 3.281
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// BoundingBox is a rectangular lat/lng extent around a center point.
type BoundingBox struct {
	Southwest Point `json:"southwest"`
	Northeast Point `json:"northeast"`
	Center    Point `json:"center"`
}

// DegreesToRadians converts an angle in degrees to radians.
func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// MilesPerDegreeLng returns the length of one degree of longitude at the given latitude.
func MilesPerDegreeLng(lat float64) float64 {
	return math.Cos(DegreesToRadians(lat)) * MilesPerDegreeLatAtEquator
}

// MilesToLatDegrees converts a north-south distance to degrees of latitude.
func MilesToLatDegrees(miles float64) float64 {
	return miles / milesPerDegreeLat
}

// MilesToLngDegrees converts an east-west distance at the given latitude to degrees of longitude.
func MilesToLngDegrees(miles, lat float64) float64 {
	return miles / MilesPerDegreeLng(lat)
}

// NewBoundingBox returns the box extending radiusMiles in each cardinal direction from center.
func NewBoundingBox(center Point, radiusMiles float64) BoundingBox {
	dLat := MilesToLatDegrees(radiusMiles)
	dLng := MilesToLngDegrees(radiusMiles, center.Lat)
	return BoundingBox{
		Southwest: Point{Lat: center.Lat - dLat, Lng: center.Lng - dLng},
		Northeast: Point{Lat: center.Lat + dLat, Lng: center.Lng + dLng},
		Center:    center,
	}
}

// DistanceMiles returns the haversine great-circle distance between two points.
func DistanceMiles(p1, p2 Point) float64 {
	lat1 := DegreesToRadians(p1.Lat)
	lat2 := DegreesToRadians(p2.Lat)
	dLat := lat2 - lat1
	dLng := DegreesToRadians(p2.Lng - p1.Lng)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// MetersToFeet converts meters to feet using the same factor the elevation panel displays.
func MetersToFeet(m float64) float64 {
	return m * feetPerMeter
}
