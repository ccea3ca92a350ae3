package geometry

import (
	"github.com/pkg/errors"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
	"github.com/twpayne/go-geos"
)

// ToGeom converts the polygonal parts of g into a go-geom MultiPolygon.
func ToGeom(g *geos.Geom) (*geom.MultiPolygon, error) {
	mp := geom.NewMultiPolygon(geom.XY)
	for _, p := range Polygons(g) {
		rings := [][]geom.Coord{ringCoords(p.ExteriorRing())}
		for i := 0; i < p.NumInteriorRings(); i++ {
			rings = append(rings, ringCoords(p.InteriorRing(i)))
		}
		poly, err := geom.NewPolygon(geom.XY).SetCoords(rings)
		if err != nil {
			return nil, errors.Wrap(err, "converting polygon")
		}
		if err := mp.Push(poly); err != nil {
			return nil, errors.Wrap(err, "building multipolygon")
		}
	}
	return mp, nil
}

func ringCoords(r *geos.Geom) []geom.Coord {
	cs := r.CoordSeq().ToCoords()
	out := make([]geom.Coord, len(cs))
	for i, c := range cs {
		out[i] = geom.Coord{c[0], c[1]}
	}
	return out
}

// Encode writes g as "wkt" or "geojson".
func Encode(g *geos.Geom, format string) (string, error) {
	mp, err := ToGeom(g)
	if err != nil {
		return "", err
	}
	var out geom.T = mp
	if mp.NumPolygons() == 1 {
		out = mp.Polygon(0)
	}
	switch format {
	case "", "wkt":
		return wkt.Marshal(out)
	case "geojson", "json":
		b, err := geojson.Marshal(out)
		if err != nil {
			return "", errors.Wrap(err, "encoding geojson")
		}
		return string(b), nil
	}
	return "", errors.Errorf("unknown output format %q", format)
}
