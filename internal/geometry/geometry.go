// Package geometry is a thin, stateless layer over GEOS used by the
// intersection code. GEOS reports failures by panicking; every operation that
// can fail on awkward input recovers and returns ErrTopology instead.
package geometry

import (
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geos"
	"gonum.org/v1/gonum/floats/scalar"

	"mapsect/internal/crs"
)

var ErrTopology = errors.New("topology failure")

func guard(op string, fn func() *geos.Geom) (g *geos.Geom, err error) {
	defer func() {
		if r := recover(); r != nil {
			g, err = nil, errors.Wrapf(ErrTopology, "%s: %v", op, r)
		}
	}()
	g = fn()
	if g == nil {
		return nil, errors.Wrapf(ErrTopology, "%s: no result", op)
	}
	return g, nil
}

func guardBool(op string, fn func() bool) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, errors.Wrapf(ErrTopology, "%s: %v", op, r)
		}
	}()
	return fn(), nil
}

func coords(pts []r2.Point) [][]float64 {
	out := make([][]float64, len(pts))
	for i, p := range pts {
		out[i] = []float64{p.X, p.Y}
	}
	return out
}

func points(cs [][]float64) []r2.Point {
	out := make([]r2.Point, len(cs))
	for i, c := range cs {
		out[i] = r2.Point{X: c[0], Y: c[1]}
	}
	return out
}

func closeRing(ring []r2.Point) []r2.Point {
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring[:len(ring):len(ring)], ring[0])
	}
	return ring
}

// Polygon builds a polygon from a shell, closing it if needed.
func Polygon(shell []r2.Point) (*geos.Geom, error) {
	shell = closeRing(shell)
	if len(shell) < 4 {
		return nil, errors.Wrapf(ErrTopology, "ring of %d points", len(shell))
	}
	return guard("polygon", func() *geos.Geom {
		return geos.NewPolygon([][][]float64{coords(shell)})
	})
}

// LineString builds a line through pts.
func LineString(pts []r2.Point) (*geos.Geom, error) {
	if len(pts) < 2 {
		return nil, errors.Wrapf(ErrTopology, "line of %d points", len(pts))
	}
	return guard("linestring", func() *geos.Geom {
		return geos.NewLineString(coords(pts))
	})
}

// Point returns p as a GEOS point.
func Point(p r2.Point) *geos.Geom {
	return geos.NewPoint([]float64{p.X, p.Y})
}

// Rectangle returns r as a polygon with the ring (lo,lo) (hi,lo) (hi,hi) (lo,hi).
func Rectangle(r r2.Rect) *geos.Geom {
	return geos.NewPolygon([][][]float64{{
		{r.X.Lo, r.Y.Lo},
		{r.X.Hi, r.Y.Lo},
		{r.X.Hi, r.Y.Hi},
		{r.X.Lo, r.Y.Hi},
		{r.X.Lo, r.Y.Lo},
	}})
}

// EmptyPolygon is the empty result.
func EmptyPolygon() *geos.Geom { return geos.NewEmptyPolygon() }

// Collection gathers copies of gs into a GeometryCollection. GEOS takes
// ownership of whatever goes into a collection, so gs stay usable and owned
// by their callers.
func Collection(gs []*geos.Geom) *geos.Geom {
	return collect(geos.TypeIDGeometryCollection, gs)
}

func collect(typeID geos.TypeID, gs []*geos.Geom) *geos.Geom {
	if len(gs) == 0 {
		return geos.NewEmptyCollection(typeID)
	}
	parts := make([]*geos.Geom, len(gs))
	for i, g := range gs {
		parts[i] = g.Clone()
	}
	return geos.NewCollection(typeID, parts)
}

func Intersection(a, b *geos.Geom) (*geos.Geom, error) {
	return guard("intersection", func() *geos.Geom { return a.Intersection(b) })
}

func Difference(a, b *geos.Geom) (*geos.Geom, error) {
	return guard("difference", func() *geos.Geom { return a.Difference(b) })
}

func Intersects(a, b *geos.Geom) (bool, error) {
	return guardBool("intersects", func() bool { return a.Intersects(b) })
}

// Buffer0 repairs small self intersections and overlaps.
func Buffer0(g *geos.Geom) (*geos.Geom, error) {
	return guard("buffer", func() *geos.Geom { return g.Buffer(0, 8) })
}

// Usable reports a non-empty, valid geometry.
func Usable(g *geos.Geom) bool {
	if g == nil {
		return false
	}
	ok, err := guardBool("validity", func() bool { return !g.IsEmpty() && g.IsValid() })
	return err == nil && ok
}

// ContainsPoint is false on any GEOS failure.
func ContainsPoint(g *geos.Geom, p r2.Point) bool {
	ok, err := guardBool("contains", func() bool { return g.Contains(Point(p)) })
	return err == nil && ok
}

// InteriorPoint returns a point guaranteed to lie inside g.
func InteriorPoint(g *geos.Geom) (r2.Point, error) {
	pt, err := guard("interior point", g.PointOnSurface)
	if err != nil {
		return r2.Point{}, err
	}
	if pt.IsEmpty() {
		return r2.Point{}, errors.Wrap(ErrTopology, "interior point of empty geometry")
	}
	cs := pt.CoordSeq().ToCoords()
	return r2.Point{X: cs[0][0], Y: cs[0][1]}, nil
}

// Bounds returns the bounding rectangle of g, empty for an empty geometry.
func Bounds(g *geos.Geom) r2.Rect {
	if g.IsEmpty() {
		return r2.EmptyRect()
	}
	b := g.Bounds()
	return r2.Rect{X: r1.Interval{Lo: b.MinX, Hi: b.MaxX}, Y: r1.Interval{Lo: b.MinY, Hi: b.MaxY}}
}

// Coords lists every vertex of g in storage order.
func Coords(g *geos.Geom) []r2.Point {
	var out []r2.Point
	walk(g, func(part *geos.Geom) {
		switch part.TypeID() {
		case geos.TypeIDPolygon:
			out = append(out, points(part.ExteriorRing().CoordSeq().ToCoords())...)
			for i := 0; i < part.NumInteriorRings(); i++ {
				out = append(out, points(part.InteriorRing(i).CoordSeq().ToCoords())...)
			}
		default:
			out = append(out, points(part.CoordSeq().ToCoords())...)
		}
	})
	return out
}

// LineStrings returns the coordinates of every line string in g.
func LineStrings(g *geos.Geom) [][]r2.Point {
	var out [][]r2.Point
	walk(g, func(part *geos.Geom) {
		if t := part.TypeID(); t == geos.TypeIDLineString || t == geos.TypeIDLinearRing {
			out = append(out, points(part.CoordSeq().ToCoords()))
		}
	})
	return out
}

// Polygons flattens g into its polygon parts. The parts belong to g; clone
// them before handing them to a new collection.
func Polygons(g *geos.Geom) []*geos.Geom {
	var out []*geos.Geom
	walk(g, func(part *geos.Geom) {
		if part.TypeID() == geos.TypeIDPolygon {
			out = append(out, part)
		}
	})
	return out
}

// ToPolygonal reduces g to a Polygon or MultiPolygon, dropping anything
// that is not areal. Apart from a polygon g itself, the result never shares
// storage with g.
func ToPolygonal(g *geos.Geom) *geos.Geom {
	if g.TypeID() == geos.TypeIDPolygon {
		return g
	}
	polys := Polygons(g)
	if len(polys) == 1 {
		return polys[0].Clone()
	}
	return collect(geos.TypeIDMultiPolygon, polys)
}

// walk visits the non-collection parts of g.
func walk(g *geos.Geom, fn func(*geos.Geom)) {
	if g == nil || g.IsEmpty() {
		return
	}
	switch g.TypeID() {
	case geos.TypeIDMultiPoint, geos.TypeIDMultiLineString, geos.TypeIDMultiPolygon, geos.TypeIDGeometryCollection:
		for i := 0; i < g.NumGeometries(); i++ {
			walk(g.Geometry(i), fn)
		}
	default:
		fn(g)
	}
}

// Map rebuilds g with every vertex passed through fn.
func Map(g *geos.Geom, fn func(r2.Point) (r2.Point, error)) (*geos.Geom, error) {
	if g.IsEmpty() {
		return g.Clone(), nil
	}
	mapAll := func(cs [][]float64) ([][]float64, error) {
		out := make([][]float64, len(cs))
		for i, c := range cs {
			p, err := fn(r2.Point{X: c[0], Y: c[1]})
			if err != nil {
				return nil, err
			}
			out[i] = []float64{p.X, p.Y}
		}
		return out, nil
	}
	switch g.TypeID() {
	case geos.TypeIDPoint:
		cs, err := mapAll(g.CoordSeq().ToCoords())
		if err != nil {
			return nil, err
		}
		return geos.NewPoint(cs[0]), nil
	case geos.TypeIDLineString, geos.TypeIDLinearRing:
		cs, err := mapAll(g.CoordSeq().ToCoords())
		if err != nil {
			return nil, err
		}
		return guard("linestring", func() *geos.Geom { return geos.NewLineString(cs) })
	case geos.TypeIDPolygon:
		rings := make([][][]float64, 0, 1+g.NumInteriorRings())
		shell, err := mapAll(g.ExteriorRing().CoordSeq().ToCoords())
		if err != nil {
			return nil, err
		}
		rings = append(rings, shell)
		for i := 0; i < g.NumInteriorRings(); i++ {
			hole, err := mapAll(g.InteriorRing(i).CoordSeq().ToCoords())
			if err != nil {
				return nil, err
			}
			rings = append(rings, hole)
		}
		return guard("polygon", func() *geos.Geom { return geos.NewPolygon(rings) })
	}
	parts := make([]*geos.Geom, 0, g.NumGeometries())
	for i := 0; i < g.NumGeometries(); i++ {
		p, err := Map(g.Geometry(i), fn)
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return geos.NewCollection(g.TypeID(), parts), nil
}

// Transform reprojects g. Any vertex without an image fails the whole call.
func Transform(g *geos.Geom, t crs.Transform) (*geos.Geom, error) {
	if t.IsIdentity() {
		return g, nil
	}
	return Map(g, t.Transform)
}

// Shift translates g along x.
func Shift(g *geos.Geom, dx float64) (*geos.Geom, error) {
	return Map(g, func(p r2.Point) (r2.Point, error) {
		return r2.Point{X: p.X + dx, Y: p.Y}, nil
	})
}

// ApproxEqual compares two points within 4 units in the last place, which
// absorbs the rounding wrap correction introduces.
func ApproxEqual(a, b r2.Point) bool {
	return scalar.EqualWithinULP(a.X, b.X, 4) && scalar.EqualWithinULP(a.Y, b.Y, 4)
}
