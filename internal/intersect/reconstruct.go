package intersect

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"mapsect/internal/geometry"
)

// trace turns the traced border into the area of the target envelope covered
// by the source envelope. Errors are fallback signals or topology failures.
func (t *tracer) trace() (*geos.Geom, error) {
	pts, err := t.border()
	if err != nil {
		return nil, err
	}
	lines := runs(pts)

	var border, corrected *geos.Geom
	if len(lines) == 1 && lines[0][0] == lines[0][len(lines[0])-1] {
		// common case: one closed ring
		if g, err := t.closedBorder(lines[0]); err != nil {
			logger.Debug("closed border could not be corrected", zap.Error(err))
		} else {
			border, corrected = g, g
		}
	}

	wholeTarget := false
	if !geometry.Usable(border) && len(lines) > 0 {
		if t.targetInsideSource() {
			border, wholeTarget = t.frame, true
		} else if border, err = t.reconstruct(lines); err != nil {
			return nil, err
		}
	}

	switch {
	case !geometry.Usable(border):
		border = lastResort(corrected, lines)
	case !wholeTarget && border.TypeID() == geos.TypeIDPolygon:
		border = t.orient(border)
	}
	return border, nil
}

// closedBorder wrap-corrects a closed ring in lat/lon and projects it back.
func (t *tracer) closedBorder(ring []r2.Point) (*geos.Geom, error) {
	poly, err := geometry.Polygon(ring)
	if err != nil {
		return nil, err
	}
	ll, err := geometry.Transform(poly, t.toLatLon)
	if err != nil {
		return nil, err
	}
	return geometry.Transform(t.corrector.Correct(ll), t.fromLatLon)
}

func (t *tracer) inSource(p r2.Point) bool {
	s, err := t.toSource.Transform(p)
	return err == nil && t.src.Contains(s)
}

func (t *tracer) targetInsideSource() bool {
	for _, c := range t.tgt.Corners() {
		if !t.inSource(c) {
			return false
		}
	}
	return true
}

// orient replaces border with its complement in the target frame when only
// the complement maps back inside the source.
func (t *tracer) orient(border *geos.Geom) *geos.Geom {
	if ip, err := geometry.InteriorPoint(border); err == nil && t.inSource(ip) {
		return border
	}
	inverted, err := geometry.Difference(t.frame, border)
	if err != nil {
		return border
	}
	if ip, err := geometry.InteriorPoint(inverted); err == nil && t.inSource(ip) {
		return inverted
	}
	return border
}

func lastResort(corrected *geos.Geom, lines [][]r2.Point) *geos.Geom {
	if corrected != nil {
		if b, err := geometry.Buffer0(corrected); err == nil {
			return b
		}
	}
	boxes := make([]*geos.Geom, 0, len(lines))
	for _, l := range lines {
		boxes = append(boxes, geometry.Rectangle(r2.RectFromPoints(l...)))
	}
	if len(boxes) == 1 {
		return boxes[0]
	}
	return geometry.Collection(boxes)
}

// reconstruct rebuilds the covered area from border fragments: each
// fragment is closed along the target frame and the side that maps back into
// the source is kept.
func (t *tracer) reconstruct(lines [][]r2.Point) (*geos.Geom, error) {
	var chains [][]r2.Point
	for _, l := range lines {
		ls, err := geometry.LineString(l)
		if err != nil {
			return nil, err
		}
		ll, err := geometry.Transform(ls, t.toLatLon)
		if err != nil {
			return nil, fallback("fragment_transform")
		}
		back, err := geometry.Transform(t.corrector.Correct(ll), t.fromLatLon)
		if err != nil {
			return nil, fallback("fragment_transform")
		}
		chains = append(chains, geometry.LineStrings(back)...)
	}
	if len(chains) == 0 {
		return nil, fallback("no_fragments")
	}

	var borders []*geos.Geom
	for _, chain := range connect(chains) {
		ls, err := geometry.LineString(chain)
		if err != nil {
			return nil, err
		}
		hit, err := geometry.Intersects(t.frame, ls)
		if err != nil {
			return nil, err
		}
		if !hit {
			logger.Debug("border fragment lies outside the target", zap.Int("points", len(chain)))
			continue
		}
		if ls, err = geometry.LineString(t.extend(chain)); err != nil {
			return nil, err
		}
		clipped, err := geometry.Intersection(t.frame, ls)
		if err != nil {
			return nil, err
		}
		for _, piece := range geometry.LineStrings(clipped) {
			g, err := t.closeAlongFrame(piece)
			if err != nil {
				return nil, err
			}
			borders = append(borders, g)
		}
	}

	borders, err := mergeOverlapping(borders)
	if err != nil {
		return nil, err
	}
	if len(borders) == 1 {
		return borders[0], nil
	}
	return geometry.Collection(borders), nil
}

// connect joins chains whose ends meet. Chains that meet nothing are kept
// as they are.
func connect(chains [][]r2.Point) [][]r2.Point {
	connected := [][]r2.Point{chains[len(chains)-1]}
	rest := append([][]r2.Point(nil), chains[:len(chains)-1]...)
	for {
		joined := false
		for ai, a := range connected {
			for bi, b := range rest {
				aToB := geometry.ApproxEqual(a[len(a)-1], b[0])
				bToA := geometry.ApproxEqual(a[0], b[len(b)-1])
				if !aToB && !bToA {
					continue
				}
				head, tail := a, b
				if bToA {
					head, tail = b, a
				}
				chain := make([]r2.Point, 0, len(head)+len(tail)-1)
				chain = append(append(chain, head...), tail[1:]...)
				connected = append(append(connected[:ai:ai], connected[ai+1:]...), chain)
				rest = append(rest[:bi:bi], rest[bi+1:]...)
				joined = true
				break
			}
			if joined {
				break
			}
		}
		if !joined {
			if len(rest) == 0 {
				return connected
			}
			// nothing meets the current chains; start a new one
			connected = append(connected, rest[len(rest)-1])
			rest = rest[:len(rest)-1]
		}
	}
}

// extend pushes each end of chain along its last segment as far as the
// frame corner that projects furthest onto it, so the clipped chain meets
// the frame.
func (t *tracer) extend(chain []r2.Point) []r2.Point {
	n := len(chain)
	headFrom, headTo := chain[1], chain[0]
	tailFrom, tailTo := chain[n-2], chain[n-1]
	bestHead, bestTail := 1.0, 1.0
	var head, tail *r2.Point
	for _, c := range t.tgt.Corners() {
		if f := projectionFactor(headFrom, headTo, c); f > bestHead {
			p := pointAlong(headFrom, headTo, f)
			head, bestHead = &p, f
		}
		if f := projectionFactor(tailFrom, tailTo, c); f > bestTail {
			p := pointAlong(tailFrom, tailTo, f)
			tail, bestTail = &p, f
		}
	}
	out := make([]r2.Point, 0, n+2)
	if head != nil {
		out = append(out, *head)
	}
	out = append(out, chain...)
	if tail != nil {
		out = append(out, *tail)
	}
	return out
}

// projectionFactor is the position of c's projection on the line a-b, with a
// at 0 and b at 1. NaN for a zero length segment.
func projectionFactor(a, b, c r2.Point) float64 {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 <= 0 {
		return math.NaN()
	}
	return c.Sub(a).Dot(d) / l2
}

func pointAlong(a, b r2.Point, f float64) r2.Point {
	return a.Add(b.Sub(a).Mul(f))
}

// closeAlongFrame closes a clipped fragment, whose ends lie on the frame, by
// walking the frame from its last point back to its first.
func (t *tracer) closeAlongFrame(piece []r2.Point) (*geos.Geom, error) {
	first, last := piece[0], piece[len(piece)-1]
	ring, ok := perimeter(t.tgt.Rect(), first, last)
	if !ok {
		logger.Debug("fragment end is not on the target frame")
		return nil, fallback("frame_point")
	}
	start := -1
	for i, p := range ring {
		if p == last {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, fallback("frame_point")
	}
	pts := append([]r2.Point(nil), piece...)
	idx := start
	for {
		idx = (idx + 1) % len(ring)
		if idx == start {
			return nil, fallback("frame_walk")
		}
		pts = append(pts, ring[idx])
		if ring[idx] == first {
			break
		}
	}

	poly, err := geometry.Polygon(pts)
	if err != nil {
		return nil, err
	}
	ip, err := geometry.InteriorPoint(poly)
	if err != nil {
		return nil, err
	}
	if t.inSource(ip) {
		return poly, nil
	}
	return geometry.Difference(t.frame, poly)
}

// perimeter returns the corners of r in frame order with extra inserted at
// their positions along the boundary. ok is false if a point is off the
// boundary.
func perimeter(r r2.Rect, extra ...r2.Point) ([]r2.Point, bool) {
	w, h := r.X.Length(), r.Y.Length()
	tol := 1e-9 * (w + h)
	type stop struct {
		p r2.Point
		s float64
	}
	stops := []stop{
		{r2.Point{X: r.X.Lo, Y: r.Y.Lo}, 0},
		{r2.Point{X: r.X.Hi, Y: r.Y.Lo}, w},
		{r2.Point{X: r.X.Hi, Y: r.Y.Hi}, w + h},
		{r2.Point{X: r.X.Lo, Y: r.Y.Hi}, 2*w + h},
	}
	for _, p := range extra {
		sides := []struct{ dist, s float64 }{
			{math.Abs(p.Y - r.Y.Lo), p.X - r.X.Lo},
			{math.Abs(p.X - r.X.Hi), w + p.Y - r.Y.Lo},
			{math.Abs(p.Y - r.Y.Hi), w + h + r.X.Hi - p.X},
			{math.Abs(p.X - r.X.Lo), 2*w + h + r.Y.Hi - p.Y},
		}
		best := sides[0]
		for _, side := range sides[1:] {
			if side.dist < best.dist {
				best = side
			}
		}
		if best.dist > tol {
			return nil, false
		}
		dup := false
		for _, st := range stops {
			if st.p == p {
				dup = true
				break
			}
		}
		if !dup {
			stops = append(stops, stop{p, math.Mod(best.s, 2*(w+h))})
		}
	}
	sort.SliceStable(stops, func(i, j int) bool { return stops[i].s < stops[j].s })
	out := make([]r2.Point, len(stops))
	for i, st := range stops {
		out[i] = st.p
	}
	return out, true
}

// mergeOverlapping replaces any two overlapping areas with their
// intersection until no two overlap.
func mergeOverlapping(gs []*geos.Geom) ([]*geos.Geom, error) {
	for {
		found := false
		for i := 0; i < len(gs) && !found; i++ {
			for j := 0; j < len(gs); j++ {
				if i == j {
					continue
				}
				hit, err := geometry.Intersects(gs[i], gs[j])
				if err != nil {
					return nil, err
				}
				if !hit {
					continue
				}
				merged, err := geometry.Intersection(gs[j], gs[i])
				if err != nil {
					return nil, err
				}
				rest := make([]*geos.Geom, 0, len(gs)-1)
				for k, g := range gs {
					if k != i && k != j {
						rest = append(rest, g)
					}
				}
				gs = append(rest, merged)
				found = true
				break
			}
		}
		if !found {
			return gs, nil
		}
	}
}
