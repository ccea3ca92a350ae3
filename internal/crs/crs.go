package crs

import (
	"math"

	"github.com/pkg/errors"
)

var (
	// ErrUnrepresentable marks a point that has no image in the requested CRS.
	ErrUnrepresentable = errors.New("point not representable")
	// ErrNoTransform is returned when two CRSs cannot be related at all.
	ErrNoTransform = errors.New("no transform between coordinate systems")
)

// Earth radius used by the spherical projections.
const Radius = 6371229.0

type Family int

const (
	FamilyOther Family = iota
	FamilyGeographic
	FamilyCylindrical
	FamilyMercator
	FamilyStereographic
	FamilyGeostationary
)

func (f Family) String() string {
	switch f {
	case FamilyGeographic:
		return "geographic"
	case FamilyCylindrical:
		return "cylindrical"
	case FamilyMercator:
		return "mercator"
	case FamilyStereographic:
		return "stereographic"
	case FamilyGeostationary:
		return "geostationary"
	}
	return "other"
}

// Parameters are the map projection values the wrap analysis needs.
type Parameters struct {
	CentralMeridian  float64
	LatitudeOfOrigin float64
	Family           Family
}

// CRS is a coordinate reference system that can be related to WGS84
// longitude/latitude. Angles are in degrees.
type CRS interface {
	ID() string
	FromLatLon(lon, lat float64) (x, y float64, err error)
	ToLatLon(x, y float64) (lon, lat float64, err error)
}

// Projected is implemented by CRSs that know their projection parameters.
type Projected interface {
	Parameters() Parameters
}

// MapProjection returns the projection parameters of c. ok is false for CRSs
// without a geodetic projection.
func MapProjection(c CRS) (Parameters, bool) {
	p, ok := c.(Projected)
	if !ok {
		return Parameters{}, false
	}
	return p.Parameters(), true
}

// Equivalent reports whether a and b describe the same coordinate space.
func Equivalent(a, b CRS) bool {
	if a == nil || b == nil {
		return false
	}
	return a.ID() == b.ID()
}

func unrepresentable(x, y float64) error {
	return errors.Wrapf(ErrUnrepresentable, "(%g, %g)", x, y)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// rollLongitude maps lon-cm into [-180, 180). A zero central meridian keeps
// the raw offset so longitudes past the antimeridian project past the edge.
func rollLongitude(lon, cm float64) float64 {
	d := lon - cm
	if cm == 0 {
		return d
	}
	return d - 360*math.Floor(d/360+0.5)
}

func rad(d float64) float64 { return d * math.Pi / 180 }
func deg(r float64) float64 { return r * 180 / math.Pi }
