package crs

import (
	"fmt"
	"math"
)

const (
	grs80SemiMajor = 6378137.0
	grs80SemiMinor = 6356752.31414

	// DefaultOrbitalHeight is the satellite height above the equator in metres.
	DefaultOrbitalHeight = 35786023.0
)

// Geostationary is the scan angle projection of a geostationary imager.
// Coordinates are scan angles in radians scaled by the orbital height. The
// default sweep is GOES-R style (x sweep); SweepY selects the Himawari/Meteosat
// convention. Points on the far side of the earth have no image.
type Geostationary struct {
	CentralMeridian float64
	OrbitalHeight   float64
	SweepY          bool
}

func (p Geostationary) height() float64 {
	if p.OrbitalHeight <= 0 {
		return DefaultOrbitalHeight
	}
	return p.OrbitalHeight
}

func (p Geostationary) ID() string {
	sweep := "x"
	if p.SweepY {
		sweep = "y"
	}
	return fmt.Sprintf("geos:lon0=%g,h=%g,sweep=%s", p.CentralMeridian, p.height(), sweep)
}

func (p Geostationary) Parameters() Parameters {
	return Parameters{CentralMeridian: p.CentralMeridian, Family: FamilyGeostationary}
}

func (p Geostationary) FromLatLon(lon, lat float64) (float64, float64, error) {
	if !finite(lon, lat) || math.Abs(lat) > 90 {
		return 0, 0, unrepresentable(lon, lat)
	}
	h := p.height()
	persp := h + grs80SemiMajor
	req2 := grs80SemiMajor * grs80SemiMajor
	rpol2 := grs80SemiMinor * grs80SemiMinor
	e2 := (req2 - rpol2) / req2

	lam := rad(rollLongitude(lon, p.CentralMeridian))
	cPhi := math.Atan(rpol2 / req2 * math.Tan(rad(lat)))
	cosPhi := math.Cos(cPhi)
	rs := grs80SemiMinor / math.Sqrt(1-e2*cosPhi*cosPhi)
	rPhi := rs * cosPhi

	vx := persp - rPhi*math.Cos(lam)
	vy := rPhi * math.Sin(lam)
	vz := rs * math.Sin(cPhi)
	vn := math.Sqrt(vx*vx + vy*vy + vz*vz)

	// hidden behind the limb
	if persp*(persp-vx) < vy*vy+req2/rpol2*vz*vz {
		return 0, 0, unrepresentable(lon, lat)
	}
	var x, y float64
	if p.SweepY {
		x = math.Atan(vy / vx)
		y = math.Asin(vz / vn)
	} else {
		x = math.Asin(vy / vn)
		y = math.Atan(vz / vx)
	}
	return x * h, y * h, nil
}

func (p Geostationary) ToLatLon(x, y float64) (float64, float64, error) {
	if !finite(x, y) {
		return 0, 0, unrepresentable(x, y)
	}
	h := p.height()
	persp := h + grs80SemiMajor
	req2 := grs80SemiMajor * grs80SemiMajor
	rpol2 := grs80SemiMinor * grs80SemiMinor

	sx, cx := math.Sincos(x / h)
	sy, cy := math.Sincos(y / h)

	a := sx*sx + cx*cx*(cy*cy+req2/rpol2*sy*sy)
	b := -2 * persp * cx * cy
	c := persp*persp - req2
	disc := b*b - 4*a*c
	// scan line misses the earth
	if disc < 0 {
		return 0, 0, unrepresentable(x, y)
	}
	vl := (-b - math.Sqrt(disc)) / (2 * a)
	vx := vl * cx * cy
	var vy, vz float64
	if p.SweepY {
		vy = vl * sx * cy
		vz = vl * sy
	} else {
		vy = vl * sx
		vz = vl * sy * cx
	}
	s1 := persp - vx
	lam := math.Atan(vy / s1)
	phi := math.Atan(req2 / rpol2 * (vz / math.Sqrt(s1*s1+vy*vy)))
	return deg(lam) + p.CentralMeridian, deg(phi), nil
}
