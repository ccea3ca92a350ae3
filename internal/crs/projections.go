package crs

import (
	"fmt"
	"math"
)

// Geographic is WGS84 longitude/latitude.
type Geographic struct{}

// WGS84 is the lat/lon CRS every transform pivots through.
var WGS84 CRS = Geographic{}

func (Geographic) ID() string { return "EPSG:4326" }

func (Geographic) Parameters() Parameters {
	return Parameters{Family: FamilyGeographic}
}

func (Geographic) FromLatLon(lon, lat float64) (float64, float64, error) {
	if !finite(lon, lat) || math.Abs(lat) > 90 {
		return 0, 0, unrepresentable(lon, lat)
	}
	return lon, lat, nil
}

func (Geographic) ToLatLon(x, y float64) (float64, float64, error) {
	if !finite(x, y) || math.Abs(y) > 90 {
		return 0, 0, unrepresentable(x, y)
	}
	return x, y, nil
}

// EquidistantCylindrical is the plate carrée projection in metres.
type EquidistantCylindrical struct {
	CentralMeridian float64
}

func (p EquidistantCylindrical) ID() string {
	return fmt.Sprintf("eqc:lon0=%g", p.CentralMeridian)
}

func (p EquidistantCylindrical) Parameters() Parameters {
	return Parameters{CentralMeridian: p.CentralMeridian, Family: FamilyCylindrical}
}

func (p EquidistantCylindrical) FromLatLon(lon, lat float64) (float64, float64, error) {
	if !finite(lon, lat) || math.Abs(lat) > 90 {
		return 0, 0, unrepresentable(lon, lat)
	}
	return Radius * rad(rollLongitude(lon, p.CentralMeridian)), Radius * rad(lat), nil
}

func (p EquidistantCylindrical) ToLatLon(x, y float64) (float64, float64, error) {
	lat := deg(y / Radius)
	if !finite(x, y) || math.Abs(lat) > 90+1e-9 {
		return 0, 0, unrepresentable(x, y)
	}
	return deg(x/Radius) + p.CentralMeridian, lat, nil
}

// Mercator is the spherical normal Mercator. The poles have no image.
type Mercator struct {
	CentralMeridian float64
}

func (p Mercator) ID() string {
	return fmt.Sprintf("merc:lon0=%g", p.CentralMeridian)
}

func (p Mercator) Parameters() Parameters {
	return Parameters{CentralMeridian: p.CentralMeridian, Family: FamilyMercator}
}

func (p Mercator) FromLatLon(lon, lat float64) (float64, float64, error) {
	if !finite(lon, lat) || math.Abs(lat) >= 90 {
		return 0, 0, unrepresentable(lon, lat)
	}
	y := Radius * math.Log(math.Tan(math.Pi/4+rad(lat)/2))
	return Radius * rad(rollLongitude(lon, p.CentralMeridian)), y, nil
}

func (p Mercator) ToLatLon(x, y float64) (float64, float64, error) {
	if !finite(x, y) {
		return 0, 0, unrepresentable(x, y)
	}
	lat := deg(2*math.Atan(math.Exp(y/Radius)) - math.Pi/2)
	return deg(x/Radius) + p.CentralMeridian, lat, nil
}

// PolarStereographic is tangent at the north or south pole. The opposite
// pole projects to infinity and is rejected.
type PolarStereographic struct {
	South           bool
	CentralMeridian float64
}

func (p PolarStereographic) ID() string {
	pole := "north"
	if p.South {
		pole = "south"
	}
	return fmt.Sprintf("stere:%s,lon0=%g", pole, p.CentralMeridian)
}

func (p PolarStereographic) Parameters() Parameters {
	lat0 := 90.0
	if p.South {
		lat0 = -90
	}
	return Parameters{CentralMeridian: p.CentralMeridian, LatitudeOfOrigin: lat0, Family: FamilyStereographic}
}

func (p PolarStereographic) FromLatLon(lon, lat float64) (float64, float64, error) {
	if !finite(lon, lat) || math.Abs(lat) > 90 {
		return 0, 0, unrepresentable(lon, lat)
	}
	if (p.South && lat >= 90-1e-9) || (!p.South && lat <= -90+1e-9) {
		return 0, 0, unrepresentable(lon, lat)
	}
	dl := rad(lon - p.CentralMeridian)
	if p.South {
		rho := 2 * Radius * math.Tan(math.Pi/4+rad(lat)/2)
		return rho * math.Sin(dl), rho * math.Cos(dl), nil
	}
	rho := 2 * Radius * math.Tan(math.Pi/4-rad(lat)/2)
	return rho * math.Sin(dl), -rho * math.Cos(dl), nil
}

func (p PolarStereographic) ToLatLon(x, y float64) (float64, float64, error) {
	if !finite(x, y) {
		return 0, 0, unrepresentable(x, y)
	}
	rho := math.Hypot(x, y)
	c := 2 * math.Atan(rho/(2*Radius))
	if p.South {
		return p.CentralMeridian + deg(math.Atan2(x, y)), deg(-math.Pi/2 + c), nil
	}
	return p.CentralMeridian + deg(math.Atan2(x, -y)), deg(math.Pi/2 - c), nil
}

// Engineering is a local coordinate system with no relation to the earth.
// Nothing transforms into or out of it except itself.
type Engineering struct {
	Name string
}

func (e Engineering) ID() string { return "local:" + e.Name }

func (e Engineering) FromLatLon(lon, lat float64) (float64, float64, error) {
	return 0, 0, ErrNoTransform
}

func (e Engineering) ToLatLon(x, y float64) (float64, float64, error) {
	return 0, 0, ErrNoTransform
}
