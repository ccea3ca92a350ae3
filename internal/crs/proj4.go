package crs

import (
	"strconv"
	"strings"

	"github.com/ctessum/geom/proj"
	"github.com/pkg/errors"
)

const wgs84Proj4 = "+proj=longlat +datum=WGS84 +no_defs"

// Proj4 is a CRS described by a proj4 definition string.
type Proj4 struct {
	def     string
	params  Parameters
	forward proj.Transformer
	inverse proj.Transformer
}

// FromProj4 builds a CRS from a proj4 definition such as
// "+proj=merc +lon_0=-100 +datum=WGS84".
func FromProj4(def string) (*Proj4, error) {
	def = strings.Join(strings.Fields(def), " ")
	sr, err := proj.Parse(def)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing proj4 %q", def)
	}
	ll, err := proj.Parse(wgs84Proj4)
	if err != nil {
		return nil, errors.Wrap(err, "parsing wgs84")
	}
	fwd, err := ll.NewTransform(sr)
	if err != nil {
		return nil, errors.Wrapf(ErrNoTransform, "%s: %v", def, err)
	}
	inv, err := sr.NewTransform(ll)
	if err != nil {
		return nil, errors.Wrapf(ErrNoTransform, "%s: %v", def, err)
	}
	return &Proj4{def: def, params: proj4Parameters(def), forward: fwd, inverse: inv}, nil
}

func proj4Parameters(def string) Parameters {
	var p Parameters
	for _, tok := range strings.Fields(def) {
		k, v, _ := strings.Cut(strings.TrimPrefix(tok, "+"), "=")
		switch k {
		case "proj":
			switch v {
			case "longlat", "latlong", "lonlat", "latlon":
				p.Family = FamilyGeographic
			case "eqc":
				p.Family = FamilyCylindrical
			case "merc":
				p.Family = FamilyMercator
			case "stere", "ups":
				p.Family = FamilyStereographic
			case "geos":
				p.Family = FamilyGeostationary
			}
		case "lon_0":
			p.CentralMeridian, _ = strconv.ParseFloat(v, 64)
		case "lat_0":
			p.LatitudeOfOrigin, _ = strconv.ParseFloat(v, 64)
		}
	}
	return p
}

func (p *Proj4) ID() string { return "proj4:" + p.def }

func (p *Proj4) Parameters() Parameters { return p.params }

func (p *Proj4) FromLatLon(lon, lat float64) (float64, float64, error) {
	if !finite(lon, lat) {
		return 0, 0, unrepresentable(lon, lat)
	}
	x, y, err := p.forward(lon, lat)
	if err != nil || !finite(x, y) {
		return 0, 0, unrepresentable(lon, lat)
	}
	return x, y, nil
}

func (p *Proj4) ToLatLon(x, y float64) (float64, float64, error) {
	if !finite(x, y) {
		return 0, 0, unrepresentable(x, y)
	}
	lon, lat, err := p.inverse(x, y)
	if err != nil || !finite(lon, lat) {
		return 0, 0, unrepresentable(x, y)
	}
	return lon, lat, nil
}
