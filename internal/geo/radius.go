package geo

import (
	"fmt"
	"math"
)

// Locatable is anything that sits at a fixed coordinate.
type Locatable interface {
	Location() Point
}

// Located pairs an item with its distance from the search origin.
type Located[T any] struct {
	Item       T
	DistanceKm float64
}

// WithinRadius keeps the items whose distance from origin is at most radiusKm.
// Input order is preserved.
func WithinRadius[T Locatable](items []T, origin Point, radiusKm float64) []Located[T] {
	out := make([]Located[T], 0, len(items))
	for _, item := range items {
		d := Distance(origin, item.Location())
		if d <= radiusKm {
			out = append(out, Located[T]{Item: item, DistanceKm: d})
		}
	}
	return out
}

// ValidateRadius rejects non-finite and non-positive radii.
func ValidateRadius(radiusKm float64) error {
	if math.IsNaN(radiusKm) || math.IsInf(radiusKm, 0) || radiusKm <= 0 {
		return fmt.Errorf("%w: %v km", ErrInvalidRadius, radiusKm)
	}
	return nil
}

// RadiusBounds is the user-adjustable search radius range.
type RadiusBounds struct {
	Min     float64
	Max     float64
	Step    float64
	Default float64
}

// DefaultRadiusBounds matches the distance slider: 1 to 10 km in 0.5 km steps, 5 km default.
var DefaultRadiusBounds = RadiusBounds{Min: 1, Max: 10, Step: 0.5, Default: 5}

// Resolve validates a requested radius against the bounds and snaps it onto the
// grid. A zero radius means "not supplied" and yields Default. Radii outside
// [Min, Max] are rejected with ErrInvalidRadius.
func (b RadiusBounds) Resolve(r float64) (float64, error) {
	if r == 0 {
		return b.Default, nil
	}
	if err := ValidateRadius(r); err != nil {
		return 0, err
	}
	if r < b.Min || r > b.Max {
		return 0, fmt.Errorf("%w: %v km outside %v..%v km", ErrInvalidRadius, r, b.Min, b.Max)
	}
	if b.Step > 0 {
		r = math.Min(b.Max, b.Min+math.Round((r-b.Min)/b.Step)*b.Step)
	}
	return r, nil
}
