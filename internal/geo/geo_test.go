package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var newDelhi = Point{Lat: 28.6139, Lng: 77.2090}

type place struct {
	name string
	at   Point
}

func (p place) Location() Point { return p.at }

func TestDistance_CoincidentPoints(t *testing.T) {
	assert.Equal(t, 0.0, Distance(newDelhi, newDelhi))
	assert.Equal(t, 0.0, Distance(Point{}, Point{}))
	assert.Equal(t, 0.0, Distance(Point{Lat: -45.5, Lng: 170}, Point{Lat: -45.5, Lng: 170}))
}

func TestDistance_Symmetric(t *testing.T) {
	points := []Point{
		newDelhi,
		{Lat: 19.0760, Lng: 72.8777},
		{Lat: 51.5074, Lng: -0.1278},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 0, Lng: 0},
	}
	for _, a := range points {
		for _, b := range points {
			assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
		}
	}
}

func TestDistance_KnownValues(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Point
		expected float64
		delta    float64
	}{
		{
			name:     "new delhi to mumbai",
			a:        newDelhi,
			b:        Point{Lat: 19.0760, Lng: 72.8777},
			expected: 1148,
			delta:    5,
		},
		{
			name:     "one degree of latitude",
			a:        Point{Lat: 0, Lng: 0},
			b:        Point{Lat: 1, Lng: 0},
			expected: EarthRadiusKm * math.Pi / 180,
			delta:    1e-6,
		},
		{
			name:     "antipodal points",
			a:        Point{Lat: 0, Lng: 0},
			b:        Point{Lat: 0, Lng: 180},
			expected: EarthRadiusKm * math.Pi,
			delta:    1e-6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Distance(tt.a, tt.b), tt.delta)
		})
	}
}

func TestPoint_Validate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{name: "valid", point: newDelhi},
		{name: "poles and antimeridian", point: Point{Lat: 90, Lng: -180}},
		{name: "latitude too large", point: Point{Lat: 90.1, Lng: 0}, wantErr: true},
		{name: "longitude too small", point: Point{Lat: 0, Lng: -180.5}, wantErr: true},
		{name: "nan latitude", point: Point{Lat: math.NaN(), Lng: 0}, wantErr: true},
		{name: "infinite longitude", point: Point{Lat: 0, Lng: math.Inf(1)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCoordinate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWithinRadius(t *testing.T) {
	places := []place{
		{name: "here", at: newDelhi},
		{name: "close", at: Point{Lat: 28.6239, Lng: 77.2090}},
		{name: "edge", at: Point{Lat: 28.6589, Lng: 77.2090}},
		{name: "far", at: Point{Lat: 28.9, Lng: 77.5}},
		{name: "mumbai", at: Point{Lat: 19.0760, Lng: 72.8777}},
	}

	const radius = 5.0
	got := WithinRadius(places, newDelhi, radius)

	names := make([]string, 0, len(got))
	for _, l := range got {
		names = append(names, l.Item.name)
		assert.LessOrEqual(t, l.DistanceKm, radius)
		assert.Equal(t, Distance(newDelhi, l.Item.at), l.DistanceKm)
	}
	assert.Equal(t, []string{"here", "close"}, names[:2])

	// every place truly inside the radius appears exactly once
	for _, p := range places {
		count := 0
		for _, l := range got {
			if l.Item.name == p.name {
				count++
			}
		}
		if Distance(newDelhi, p.at) <= radius {
			assert.Equal(t, 1, count, p.name)
		} else {
			assert.Equal(t, 0, count, p.name)
		}
	}
}

func TestWithinRadius_Empty(t *testing.T) {
	got := WithinRadius([]place(nil), newDelhi, 10)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestValidateRadius(t *testing.T) {
	assert.NoError(t, ValidateRadius(0.5))
	assert.NoError(t, ValidateRadius(10))
	assert.ErrorIs(t, ValidateRadius(0), ErrInvalidRadius)
	assert.ErrorIs(t, ValidateRadius(-3), ErrInvalidRadius)
	assert.ErrorIs(t, ValidateRadius(math.NaN()), ErrInvalidRadius)
	assert.ErrorIs(t, ValidateRadius(math.Inf(1)), ErrInvalidRadius)
}

func TestRadiusBounds_Resolve(t *testing.T) {
	b := DefaultRadiusBounds
	tests := []struct {
		in, want float64
	}{
		{in: 0, want: 5},
		{in: 1, want: 1},
		{in: 10, want: 10},
		{in: 3.3, want: 3.5},
		{in: 3.2, want: 3},
		{in: 7.5, want: 7.5},
		{in: 9.9, want: 10},
	}
	for _, tt := range tests {
		got, err := b.Resolve(tt.in)
		require.NoError(t, err, "resolve(%v)", tt.in)
		assert.InDelta(t, tt.want, got, 1e-9, "resolve(%v)", tt.in)
	}
}

func TestRadiusBounds_ResolveRejectsOutOfRange(t *testing.T) {
	b := DefaultRadiusBounds
	for _, r := range []float64{50, 10.1, 0.5, -3, math.NaN(), math.Inf(1)} {
		_, err := b.Resolve(r)
		assert.ErrorIs(t, err, ErrInvalidRadius, "resolve(%v)", r)
	}
}

func TestDistance_NearAntipodalIsFinite(t *testing.T) {
	pairs := [][2]Point{
		{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 180}},
		{{Lat: 45, Lng: 30}, {Lat: -45, Lng: -150}},
		{{Lat: 89.9999999, Lng: 0}, {Lat: -89.9999999, Lng: 180}},
		{{Lat: 12.3456789, Lng: 98.7654321}, {Lat: -12.3456789, Lng: -81.2345679}},
	}
	for _, p := range pairs {
		d := Distance(p[0], p[1])
		assert.False(t, math.IsNaN(d), "distance(%v, %v)", p[0], p[1])
		assert.InDelta(t, EarthRadiusKm*math.Pi, d, 1e-3)
	}
}

func TestBoxAround_ContainsEveryPointInRadius(t *testing.T) {
	origins := []Point{
		newDelhi,
		{Lat: 0, Lng: 0},
		{Lat: -33.8688, Lng: 151.2093},
		{Lat: 64.1466, Lng: -21.9426},
		{Lat: 89.99, Lng: 10},
		{Lat: 0, Lng: 179.99},
	}
	const radius = 10.0
	for _, o := range origins {
		box := BoxAround(o, radius)
		assert.True(t, box.Contains(o))
		// walk the circle of the radius in every direction, just inside the edge
		for bearing := 0.0; bearing < 360; bearing += 5 {
			p := destination(o, bearing, radius*0.999999)
			require.LessOrEqual(t, Distance(o, p), radius)
			assert.True(t, box.Contains(p), "origin %v bearing %v point %v box %+v", o, bearing, p, box)
		}
	}
}

func TestBoxAround_Bounds(t *testing.T) {
	box := BoxAround(newDelhi, 5)
	assert.InDelta(t, newDelhi.Lat-5/(EarthRadiusKm*math.Pi/180), box.MinLat, 1e-5)
	assert.InDelta(t, newDelhi.Lat+5/(EarthRadiusKm*math.Pi/180), box.MaxLat, 1e-5)
	assert.Greater(t, box.MinLng, 77.0)
	assert.Less(t, box.MaxLng, 77.5)
	assert.False(t, box.Contains(Point{Lat: 19.0760, Lng: 72.8777}))

	polar := BoxAround(Point{Lat: 89.99, Lng: 10}, 5)
	assert.Equal(t, 90.0, polar.MaxLat)
	assert.Equal(t, -180.0, polar.MinLng)
	assert.Equal(t, 180.0, polar.MaxLng)

	dateline := BoxAround(Point{Lat: 0, Lng: 179.99}, 5)
	assert.Equal(t, -180.0, dateline.MinLng)
	assert.Equal(t, 180.0, dateline.MaxLng)
}

// destination walks distKm from p along the initial bearing (degrees).
func destination(p Point, bearing, distKm float64) Point {
	d := distKm / EarthRadiusKm
	brg := toRadians(bearing)
	lat1, lng1 := toRadians(p.Lat), toRadians(p.Lng)
	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) + math.Cos(lat1)*math.Sin(d)*math.Cos(brg))
	lng2 := lng1 + math.Atan2(math.Sin(brg)*math.Sin(d)*math.Cos(lat1), math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))
	lng := lng2 * 180 / math.Pi
	for lng > 180 {
		lng -= 360
	}
	for lng < -180 {
		lng += 360
	}
	return Point{Lat: lat2 * 180 / math.Pi, Lng: lng}
}

func TestPointFrom(t *testing.T) {
	lat, lng := 28.6, 77.2
	assert.Nil(t, PointFrom(nil, nil))
	assert.Nil(t, PointFrom(&lat, nil))
	assert.Nil(t, PointFrom(nil, &lng))
	assert.Equal(t, &Point{Lat: 28.6, Lng: 77.2}, PointFrom(&lat, &lng))
}
