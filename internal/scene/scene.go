// Package scene holds what the viewer draws: intersection results, envelope
// outlines and lon/lat overlays, all as plain coordinate lists in the
// target CRS.
package scene

import (
	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geos"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
	"mapsect/internal/wrap"
)

// FromGeometry copies the polygons of g.
func FromGeometry(g *geos.Geom) Data {
	d := NewData()
	if g == nil || g.IsEmpty() {
		return d
	}
	mp, err := geometry.ToGeom(g)
	if err != nil {
		for _, ls := range geometry.LineStrings(g) {
			d.AddLine(fromPoints(ls))
		}
		return d
	}
	addGeom(&d, mp)
	return d
}

// Outline is the closed boundary of env in its own CRS.
func Outline(env envelope.Envelope) [][2]float64 {
	if env.IsNull() {
		return nil
	}
	c := env.Corners()
	return [][2]float64{
		{c[0].X, c[0].Y}, {c[1].X, c[1].Y}, {c[2].X, c[2].Y}, {c[3].X, c[3].Y}, {c[0].X, c[0].Y},
	}
}

// Trace samples the boundary of src with n points per side and maps it into
// target. Runs of points without an image break the trace into pieces.
func Trace(src envelope.Envelope, target crs.CRS, n int) [][][2]float64 {
	t, err := crs.Find(src.CRS, target)
	if err != nil || src.IsNull() {
		return nil
	}
	if n < 1 {
		n = 1
	}
	c := src.Corners()
	var ring []r2.Point
	for k := 0; k < 4; k++ {
		a, b := c[k], c[(k+1)%4]
		for i := 0; i < n; i++ {
			ring = append(ring, a.Add(b.Sub(a).Mul(float64(i)/float64(n))))
		}
	}
	ring = append(ring, c[0])
	return pieces(ring, t)
}

// Project maps lon/lat data into target. Lines and polygons are first cut at
// the target's wrap line; vertices without an image are dropped.
func Project(d Data, target crs.CRS) Data {
	out := NewData()
	t := crs.FromLatLon(target)
	cor := wrap.NewCorrector(target)
	for _, p := range d.Points {
		if q, err := t.Transform(r2.Point{X: p[0], Y: p[1]}); err == nil {
			out.AddPoint([2]float64{q.X, q.Y})
		}
	}
	for _, ls := range d.Lines {
		g, err := geometry.LineString(toPoints(ls))
		if err != nil {
			continue
		}
		for _, part := range geometry.LineStrings(cor.Correct(g)) {
			for _, piece := range pieces(part, t) {
				out.AddLine(piece)
			}
		}
	}
	for _, poly := range d.Polygons {
		g, err := geometry.Polygon(toPoints(poly[0]))
		if err != nil {
			continue
		}
		projected, err := geometry.Transform(cor.Correct(g), t)
		if err != nil {
			// fall back to the outline
			for _, piece := range pieces(toPoints(poly[0]), t) {
				out.AddLine(piece)
			}
			continue
		}
		shells := FromGeometry(projected)
		for _, p := range shells.Polygons {
			for _, hole := range poly[1:] {
				if h := pieces(toPoints(hole), t); len(h) == 1 && len(h[0]) >= 3 {
					p = append(p, h[0])
				}
			}
			out.AddPolygon(p)
		}
	}
	return out
}

// pieces maps pts through t, starting a new piece after every point that
// has no image.
func pieces(pts []r2.Point, t crs.Transform) [][][2]float64 {
	var out [][][2]float64
	var cur [][2]float64
	for _, p := range pts {
		q, err := t.Transform(p)
		if err != nil {
			if len(cur) >= 2 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, [2]float64{q.X, q.Y})
	}
	if len(cur) >= 2 {
		out = append(out, cur)
	}
	return out
}

func toPoints(ps [][2]float64) []r2.Point {
	out := make([]r2.Point, len(ps))
	for i, p := range ps {
		out[i] = r2.Point{X: p[0], Y: p[1]}
	}
	return out
}

func fromPoints(ps []r2.Point) [][2]float64 {
	out := make([][2]float64, len(ps))
	for i, p := range ps {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}
