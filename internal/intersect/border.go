package intersect

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geos"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
	"mapsect/internal/wrap"
)

// fallbackError tells the orchestrator to hand the request to the grid
// intersector. reason doubles as the metrics label.
type fallbackError struct {
	reason string
}

func (e *fallbackError) Error() string { return "border tracing abandoned: " + e.reason }

func fallback(reason string) error { return &fallbackError{reason: reason} }

// fallbackReason reports why err should send a request to the grid, or ""
// when err is a real failure.
func fallbackReason(err error) string {
	var fe *fallbackError
	switch {
	case errors.As(err, &fe):
		return fe.reason
	case errors.Is(err, geometry.ErrTopology):
		return "topology"
	}
	return ""
}

// tracer follows the border of a source envelope through the transform and
// turns it into an area of the target envelope.
type tracer struct {
	src, tgt   envelope.Envelope
	toTarget   crs.Transform
	toSource   crs.Transform
	toLatLon   crs.Transform
	fromLatLon crs.Transform
	corrector  *wrap.Corrector
	// frame is the target envelope as a polygon
	frame *geos.Geom

	threshold float64
	maxHor    int
	maxVert   int
	maxRemove float64
}

func newTracer(src, tgt envelope.Envelope, toTarget crs.Transform, opts Options) *tracer {
	return &tracer{
		src:        src,
		tgt:        tgt,
		toTarget:   toTarget,
		toSource:   toTarget.Inverse(),
		toLatLon:   crs.ToLatLon(tgt.CRS),
		fromLatLon: crs.FromLatLon(tgt.CRS),
		corrector:  wrap.NewCorrector(tgt.CRS),
		frame:      geometry.Rectangle(tgt.Rect()),
		threshold:  opts.Threshold,
		maxHor:     opts.MaxHorDivisions,
		maxVert:    opts.MaxVertDivisions,
		maxRemove:  src.Area() * opts.RemovalBudget / float64(opts.MaxHorDivisions+opts.MaxVertDivisions),
	}
}

func (t *tracer) edge(p1, p2 r2.Point, divs int) []vertex {
	return edge(t.toTarget, p1, p2, divs, t.threshold)
}

func (t *tracer) back(v vertex) (r2.Point, error) {
	p, err := t.toSource.Transform(v.Point)
	if err != nil {
		return r2.Point{}, fallback("inverse_transform")
	}
	return p, nil
}

// replaceEdge stands in for an edge from a to b whose image is empty. The new
// edge runs between the source positions of the neighbouring edges' nearest
// ends, provided the quadrilateral this cuts off stays within budget.
func (t *tracer) replaceEdge(a, b r2.Point, near, far vertex, divs int) (r2.Point, r2.Point, []vertex, error) {
	na, err := t.back(near)
	if err != nil {
		return a, b, nil, err
	}
	nb, err := t.back(far)
	if err != nil {
		return a, b, nil, err
	}
	if polygonArea(a, b, nb, na) > t.maxRemove {
		return a, b, nil, fallback("edge_budget")
	}
	return na, nb, t.edge(na, nb, divs), nil
}

// border returns the image of the source envelope's outline as one
// clockwise sequence, with diagonals bridging any corner that has no image.
func (t *tracer) border() ([]vertex, error) {
	maxDiag := (t.maxHor + t.maxVert) / 2

	// y grows downwards in this naming, as in image space
	ul := r2.Point{X: t.src.MinX, Y: t.src.MinY}
	ur := r2.Point{X: t.src.MaxX, Y: t.src.MinY}
	lr := r2.Point{X: t.src.MaxX, Y: t.src.MaxY}
	ll := r2.Point{X: t.src.MinX, Y: t.src.MaxY}

	upper := t.edge(ul, ur, t.maxHor)
	right := t.edge(ur, lr, t.maxVert)
	lower := t.edge(lr, ll, t.maxHor)
	left := t.edge(ll, ul, t.maxVert)

	var err error
	if len(upper) == 0 && len(right) > 0 && len(left) > 0 {
		if ul, ur, upper, err = t.replaceEdge(ul, ur, left[len(left)-1], right[0], t.maxHor); err != nil {
			return nil, err
		}
	}
	if len(lower) == 0 && len(right) > 0 && len(left) > 0 {
		if lr, ll, lower, err = t.replaceEdge(lr, ll, right[len(right)-1], left[0], t.maxHor); err != nil {
			return nil, err
		}
	}
	if len(right) == 0 && len(upper) > 0 && len(lower) > 0 {
		if ur, lr, right, err = t.replaceEdge(ur, lr, upper[len(upper)-1], lower[0], t.maxVert); err != nil {
			return nil, err
		}
	}
	if len(left) == 0 && len(upper) > 0 && len(lower) > 0 {
		if ll, ul, left, err = t.replaceEdge(ll, ul, lower[len(lower)-1], upper[0], t.maxVert); err != nil {
			return nil, err
		}
	}
	if len(upper) == 0 || len(right) == 0 || len(lower) == 0 || len(left) == 0 {
		return nil, fallback("missing_edge")
	}

	edges := [4][]vertex{upper, right, lower, left}
	// corner i sits at the end of edges[i]
	corners := [4]r2.Point{ur, lr, ll, ul}
	pts := make([]vertex, 0, 2*(t.maxHor+t.maxVert))
	for i, e := range edges {
		next := edges[(i+1)%4]
		pts = append(pts, e[:len(e)-1]...)
		end, start := e[len(e)-1], next[0]
		last := i == len(edges)-1
		if end.Point == start.Point {
			if last {
				pts = append(pts, end)
			}
			continue
		}
		u, err := t.back(end)
		if err != nil {
			return nil, err
		}
		v, err := t.back(start)
		if err != nil {
			return nil, err
		}
		if triangleArea(corners[i], u, v) > t.maxRemove {
			return nil, fallback("corner_budget")
		}
		diag := t.edge(u, v, maxDiag)
		switch {
		case last:
			pts = append(pts, diag...)
		case len(diag) > 0:
			pts = append(pts, diag[:len(diag)-1]...)
		}
	}
	return pts, nil
}

func triangleArea(a, b, c r2.Point) float64 {
	return math.Abs(b.Sub(a).Cross(c.Sub(a))) / 2
}

// polygonArea is the shoelace area of a simple ring given without closure.
func polygonArea(pts ...r2.Point) float64 {
	var s float64
	for i, p := range pts {
		s += p.Cross(pts[(i+1)%len(pts)])
	}
	return math.Abs(s) / 2
}
