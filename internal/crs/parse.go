package crs

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads a short CRS description:
//
//	latlon | wgs84 | epsg:4326
//	eqc[:lon0=<deg>]
//	merc[:lon0=<deg>]
//	stere:north|south[,lon0=<deg>]
//	geos[:lon0=<deg>,h=<m>,sweep=x|y]
//	local:<name>
//	+proj=... (any proj4 definition)
func Parse(s string) (CRS, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "+") {
		return FromProj4(s)
	}
	kind, rest, _ := strings.Cut(s, ":")
	kind = strings.ToLower(kind)
	if kind == "local" {
		if rest == "" {
			return nil, errors.New("local CRS needs a name")
		}
		return Engineering{Name: rest}, nil
	}

	opts := map[string]string{}
	for _, kv := range strings.Split(rest, ",") {
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		opts[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	num := func(key string) (float64, error) {
		v, ok := opts[key]
		if !ok {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		return f, errors.Wrapf(err, "%s: bad %s", s, key)
	}
	lon0, err := num("lon0")
	if err != nil {
		return nil, err
	}

	switch kind {
	case "latlon", "wgs84", "epsg", "geographic":
		if kind == "epsg" && rest != "4326" {
			return nil, errors.Errorf("unsupported epsg code %q", rest)
		}
		return WGS84, nil
	case "eqc":
		return EquidistantCylindrical{CentralMeridian: lon0}, nil
	case "merc", "mercator":
		return Mercator{CentralMeridian: lon0}, nil
	case "stere", "stereographic":
		_, south := opts["south"]
		return PolarStereographic{South: south, CentralMeridian: lon0}, nil
	case "geos", "geostationary":
		h, err := num("h")
		if err != nil {
			return nil, err
		}
		return Geostationary{CentralMeridian: lon0, OrbitalHeight: h, SweepY: opts["sweep"] == "y"}, nil
	}
	return nil, errors.Errorf("unknown coordinate system %q", s)
}
