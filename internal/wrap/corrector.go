package wrap

import (
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"mapsect/internal/crs"
	"mapsect/internal/geometry"
)

// Corrector rewrites lat/lon geometries so that none of their edges cross the
// wrap line of a target CRS. A polygon straddling the line comes back as
// pieces on either side of it; a line is split with an interpolated point on
// each side.
type Corrector struct {
	w *Checker
}

func NewCorrector(target crs.CRS) *Corrector {
	return &Corrector{w: CheckerFor(target)}
}

// Checker returns the wrap analysis the corrector works from.
func (c *Corrector) Checker() *Checker { return c.w }

// Correct never fails: if the geometry cannot be corrected it is returned
// unchanged and the caller's validity checks decide what happens next.
func (c *Corrector) Correct(g *geos.Geom) *geos.Geom {
	if g == nil || !c.w.NeedsChecking() || g.IsEmpty() {
		return g
	}
	out, err := c.correct(g)
	if err != nil {
		logger.Debug("wrap correction failed", zap.Error(err))
		return g
	}
	return out
}

func (c *Corrector) correct(g *geos.Geom) (*geos.Geom, error) {
	switch g.TypeID() {
	case geos.TypeIDPolygon:
		return c.polygon(g)
	case geos.TypeIDLineString, geos.TypeIDLinearRing:
		return c.line(geometry.Coords(g))
	case geos.TypeIDPoint:
		return g, nil
	}
	parts := make([]*geos.Geom, 0, g.NumGeometries())
	for i := 0; i < g.NumGeometries(); i++ {
		p, err := c.correct(g.Geometry(i))
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return geometry.Collection(parts), nil
}

func (c *Corrector) crosses(pts []r2.Point) bool {
	for i := 1; i < len(pts); i++ {
		if c.w.Check(pts[i-1].X, pts[i].X) {
			return true
		}
	}
	return false
}

// unroll makes the longitudes continuous so no step exceeds half a turn.
func (c *Corrector) unroll(pts []r2.Point) []r2.Point {
	out := make([]r2.Point, len(pts))
	for i, p := range pts {
		x := c.w.ToProjectionRange(p.X)
		if i > 0 {
			x += 360 * math.Round((out[i-1].X-x)/360)
		}
		out[i] = r2.Point{X: x, Y: p.Y}
	}
	return out
}

func (c *Corrector) polygon(g *geos.Geom) (*geos.Geom, error) {
	shell := geometry.Coords(g.ExteriorRing())
	if !c.crosses(shell) {
		return g, nil
	}
	ring := c.unroll(shell)
	first, last := ring[0], ring[len(ring)-1]
	if math.Abs(last.X-first.X) > 180 {
		// the ring goes all the way round a pole; close it over the pole
		pole := 90.0
		if meanLatitude(ring) < 0 {
			pole = -90
		}
		ring = append(ring, r2.Point{X: last.X, Y: pole}, r2.Point{X: first.X, Y: pole}, first)
	}
	band, err := geometry.Polygon(ring)
	if err != nil {
		return nil, err
	}
	if !band.IsValid() {
		if band, err = geometry.Buffer0(band); err != nil {
			return nil, err
		}
	}
	for i := 0; i < g.NumInteriorRings(); i++ {
		hole, err := geometry.Polygon(c.unroll(geometry.Coords(g.InteriorRing(i))))
		if err != nil {
			return nil, err
		}
		for _, dx := range []float64{-360, 0, 360} {
			shifted, err := geometry.Shift(hole, dx)
			if err != nil {
				return nil, err
			}
			if band, err = geometry.Difference(band, shifted); err != nil {
				return nil, err
			}
		}
	}
	return c.cut(band)
}

// cut slices an unrolled band into projection-range wide strips and moves
// each strip back into range.
func (c *Corrector) cut(band *geos.Geom) (*geos.Geom, error) {
	low, high := c.w.ActualRange()
	b := geometry.Bounds(band)
	y := r1.Interval{Lo: b.Y.Lo - 1, Hi: b.Y.Hi + 1}
	kLo := math.Floor((b.X.Lo - low) / 360)
	kHi := math.Floor((b.X.Hi - low) / 360)

	var pieces []*geos.Geom
	for k := kLo; k <= kHi; k++ {
		strip := geometry.Rectangle(r2.Rect{X: r1.Interval{Lo: low + 360*k, Hi: high + 360*k}, Y: y})
		piece, err := geometry.Intersection(band, strip)
		if err != nil {
			return nil, err
		}
		if piece.IsEmpty() {
			continue
		}
		if k != 0 {
			if piece, err = geometry.Shift(piece, -360*k); err != nil {
				return nil, err
			}
		}
		pieces = append(pieces, geometry.Polygons(piece)...)
	}
	// strips shifted back can share an edge (pole caps); merge them
	merged, err := geometry.Buffer0(geometry.Collection(pieces))
	if err != nil {
		return nil, err
	}
	return geometry.ToPolygonal(merged), nil
}

// line splits pts wherever it crosses the wrap line.
func (c *Corrector) line(pts []r2.Point) (*geos.Geom, error) {
	if !c.crosses(pts) {
		return geometry.LineString(pts)
	}
	low, high := c.w.ActualRange()
	var parts [][]r2.Point
	prev := r2.Point{X: c.w.ToProjectionRange(pts[0].X), Y: pts[0].Y}
	cur := []r2.Point{prev}
	for _, p := range pts[1:] {
		p.X = c.w.ToProjectionRange(p.X)
		if c.w.Check(prev.X, p.X) {
			// continue p past the edge it is heading for
			x := p.X + 360*math.Round((prev.X-p.X)/360)
			edge, other := high, low
			if x < prev.X {
				edge, other = low, high
			}
			lat := prev.Y
			if x != prev.X {
				lat += (edge - prev.X) / (x - prev.X) * (p.Y - prev.Y)
			}
			cur = append(cur, r2.Point{X: edge, Y: lat})
			parts = append(parts, cur)
			cur = []r2.Point{{X: other, Y: lat}}
		}
		cur = append(cur, p)
		prev = p
	}
	parts = append(parts, cur)

	lines := make([]*geos.Geom, 0, len(parts))
	for _, part := range parts {
		if len(part) < 2 {
			continue
		}
		ls, err := geometry.LineString(part)
		if err != nil {
			return nil, err
		}
		lines = append(lines, ls)
	}
	if len(lines) == 1 {
		return lines[0], nil
	}
	return geos.NewCollection(geos.TypeIDMultiLineString, lines), nil
}

func meanLatitude(pts []r2.Point) float64 {
	var sum float64
	for _, p := range pts {
		sum += p.Y
	}
	return sum / float64(len(pts))
}
