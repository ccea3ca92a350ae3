package intersect

import (
	"math"

	"github.com/bits-and-blooms/bitset"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
	"mapsect/internal/wrap"
)

// grid is a regular lattice over the source envelope, kept both in lat/lon
// and in the target CRS. Points are stored row major, x fastest.
type grid struct {
	src           envelope.Envelope
	width, height int
	dx, dy        float64

	toLatLon   crs.Transform
	fromLatLon crs.Transform
	checker    *wrap.Checker

	ll    []float64
	tgt   []float64
	valid *bitset.BitSet
}

func (g *grid) latLon(i int) r2.Point { return r2.Point{X: g.ll[2*i], Y: g.ll[2*i+1]} }
func (g *grid) target(i int) r2.Point { return r2.Point{X: g.tgt[2*i], Y: g.tgt[2*i+1]} }

// source returns the source position of fractional grid coordinates.
func (g *grid) source(x, y float64) r2.Point {
	return r2.Point{X: g.src.MinX + x*g.dx, Y: g.src.MinY + y*g.dy}
}

// BruteForce samples the source envelope on a width by height grid and
// returns the union of the grid cells whose images are consistent in the
// target CRS. It only fails when the transforms cannot be built; a
// degenerate result is an empty polygon.
func BruteForce(src, tgt envelope.Envelope, width, height int) (*geos.Geom, error) {
	if _, err := crs.Find(src.CRS, crs.WGS84); err != nil {
		return nil, errors.Wrap(err, "source to lat/lon")
	}
	if _, err := crs.Find(crs.WGS84, tgt.CRS); err != nil {
		return nil, errors.Wrap(err, "lat/lon to target")
	}
	g := newGrid(src, tgt, max(width, 2), max(height, 2))
	return g.reproject(tgt), nil
}

func newGrid(src, tgt envelope.Envelope, width, height int) *grid {
	g := &grid{
		src:        src,
		width:      width,
		height:     height,
		dx:         src.Width() / float64(width-1),
		dy:         src.Height() / float64(height-1),
		toLatLon:   crs.ToLatLon(src.CRS),
		fromLatLon: crs.FromLatLon(tgt.CRS),
		checker:    wrap.CheckerFor(tgt.CRS),
		valid:      bitset.New(uint(width * height)),
	}
	n := width * height
	pts := make([]float64, 0, 2*n)
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			p := g.source(float64(i), float64(j))
			pts = append(pts, p.X, p.Y)
		}
	}
	g.valid.FlipRange(0, uint(n))
	g.ll = make([]float64, 2*n)
	batch(g.toLatLon, pts, g.ll, g.valid)
	g.tgt = make([]float64, 2*n)
	batch(g.fromLatLon, g.ll, g.tgt, g.valid)
	return g
}

// batch converts src into dst in one call, falling back to point by point
// when the batch fails so that a few bad points do not spoil the rest.
// Points that still fail, or whose input was already invalid, are cleared
// from valid.
func batch(t crs.Transform, src, dst []float64, valid *bitset.BitSet) {
	if valid.All() && t.TransformBatch(src, dst) == nil {
		return
	}
	for i := 0; i < len(src)/2; i++ {
		if !valid.Test(uint(i)) {
			continue
		}
		p, err := t.Transform(r2.Point{X: src[2*i], Y: src[2*i+1]})
		if err != nil {
			valid.Clear(uint(i))
			continue
		}
		dst[2*i], dst[2*i+1] = p.X, p.Y
	}
}

func (g *grid) reproject(tgt envelope.Envelope) *geos.Geom {
	var simple []*simplePolygon
	var wrapping []cell

	// cross consistency of the row above, so each point is tested once
	upper := bitset.New(uint(g.width))
	upper.FlipRange(0, uint(g.width))
	for j := 1; j < g.height; j++ {
		left := true
		for i := 1; i < g.width; i++ {
			lowerRight := g.crossConsistent(i, j)
			right := lowerRight && upper.Test(uint(i))
			consistent := left && right
			left = right
			upper.SetTo(uint(i), lowerRight)

			c, ok := g.newCell(i, j)
			switch {
			case !ok:
			case c.wraps():
				wrapping = append(wrapping, c)
			case consistent || g.centerConsistent(c, i, j):
				merged := false
				for _, sp := range simple {
					if merged = sp.merge(c); merged {
						break
					}
				}
				if !merged {
					simple = append(simple, newSimplePolygon(c))
				}
			}
		}
	}

	parts := make([]*geos.Geom, 0, len(simple)+2*len(wrapping))
	for _, sp := range simple {
		p, err := geometry.Polygon(sp.coords)
		if err != nil {
			logger.Debug("grid polygon dropped", zap.Int("vertices", len(sp.coords)), zap.Error(err))
			continue
		}
		parts = append(parts, p)
	}
	if len(wrapping) > 0 {
		corrector := wrap.NewCorrector(tgt.CRS)
		for _, c := range wrapping {
			ll, err := geometry.Polygon(c.latLons())
			if err != nil {
				continue
			}
			p, err := geometry.Transform(corrector.Correct(ll), g.fromLatLon)
			if err != nil || !geometry.Usable(p) {
				continue
			}
			parts = append(parts, p)
		}
	}
	logger.Debug("grid cells collected",
		zap.Int("polygons", len(simple)),
		zap.Int("wrapped", len(wrapping)),
		zap.Int("width", g.width),
		zap.Int("height", g.height))

	if len(parts) == 0 {
		return geometry.EmptyPolygon()
	}
	all := geometry.Collection(parts)
	out, err := geometry.Buffer0(all)
	if err != nil {
		logger.Debug("grid union failed", zap.Error(err))
		return geometry.ToPolygonal(all)
	}
	return out
}

// centerConsistent reports whether the image of the cell's source centre
// falls inside the cell's image.
func (g *grid) centerConsistent(c cell, i, j int) bool {
	ll, err := g.toLatLon.Transform(g.source(float64(i)-0.5, float64(j)-0.5))
	if err != nil {
		return false
	}
	p, err := g.fromLatLon.Transform(ll)
	if err != nil {
		return false
	}
	poly, err := geometry.Polygon(c.targets())
	if err != nil {
		return false
	}
	return geometry.ContainsPoint(poly, p)
}

// crossConsistent checks that the four neighbours of grid point (x, y) keep
// their cyclic order around it in the target. It only detects folds: it is
// true on the grid border, near points without an image, and when the order
// is simply reversed.
func (g *grid) crossConsistent(x, y int) bool {
	if x < 1 || y < 1 || x >= g.width-1 || y >= g.height-1 {
		return true
	}
	w := g.width
	center := y*w + x
	for _, i := range []int{center, center - w, center + w, center - 1, center + 1} {
		if !g.valid.Test(uint(i)) {
			return true
		}
	}
	c := g.target(center)
	angle := func(i int) float64 {
		d := g.target(i).Sub(c)
		return math.Atan2(d.Y, d.X)
	}
	return consistentSweep(clockwiseSweep(angle(center-w), angle(center-1), angle(center+w), angle(center+1)))
}

// clockwiseSweep adds up the turn from each arm of the cross to the next,
// each taken in [0, 2π).
func clockwiseSweep(up, left, down, right float64) float64 {
	turn := func(a, b float64) float64 {
		d := a - b
		if d < 0 {
			d += 2 * math.Pi
		}
		return d
	}
	return turn(up, left) + turn(left, down) + turn(down, right) + turn(right, up)
}

// consistentSweep: one revolution is clockwise order, three is counter
// clockwise and two means the arms are out of order.
func consistentSweep(a float64) bool {
	if math.IsNaN(a) {
		return true
	}
	return int64(math.Round(a/(2*math.Pi)))%2 == 1
}
