package geo

import "math"

// BoundingBox is a latitude/longitude rectangle in degrees. It is used to
// prefilter candidates before the exact haversine check.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// boxSlackDeg widens every box edge by roughly 10 cm.
const boxSlackDeg = 1e-6

// BoxAround returns a box containing every point within radiusKm of origin.
// Near the poles, or when the box would cross the antimeridian, the longitude
// range widens to the whole circle.
func BoxAround(origin Point, radiusKm float64) BoundingBox {
	angular := radiusKm / EarthRadiusKm
	dLat := angular * 180 / math.Pi

	box := BoundingBox{
		MinLat: math.Max(-90, origin.Lat-dLat-boxSlackDeg),
		MaxLat: math.Min(90, origin.Lat+dLat+boxSlackDeg),
		MinLng: -180,
		MaxLng: 180,
	}
	if box.MinLat <= -90 || box.MaxLat >= 90 || angular >= math.Pi/2 {
		return box
	}

	ratio := math.Sin(angular) / math.Cos(toRadians(origin.Lat))
	if ratio >= 1 {
		return box
	}
	dLng := math.Asin(ratio)*180/math.Pi + boxSlackDeg
	if origin.Lng-dLng < -180 || origin.Lng+dLng > 180 {
		return box
	}
	box.MinLng = origin.Lng - dLng
	box.MaxLng = origin.Lng + dLng
	return box
}

// Contains reports whether p lies inside the box, edges included.
func (b BoundingBox) Contains(p Point) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
