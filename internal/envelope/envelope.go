package envelope

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"

	"mapsect/internal/crs"
)

// Envelope is an axis aligned rectangle in the coordinates of CRS.
type Envelope struct {
	MinX, MinY, MaxX, MaxY float64
	CRS                    crs.CRS
}

func New(c crs.CRS, minX, minY, maxX, maxY float64) Envelope {
	return Envelope{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY, CRS: c}
}

// FromRect tags r with c.
func FromRect(c crs.CRS, r r2.Rect) Envelope {
	return New(c, r.X.Lo, r.Y.Lo, r.X.Hi, r.Y.Hi)
}

// IsNull reports an envelope that covers nothing at all.
func (e Envelope) IsNull() bool {
	for _, v := range []float64{e.MinX, e.MinY, e.MaxX, e.MaxY} {
		if math.IsNaN(v) {
			return true
		}
	}
	return e.MaxX < e.MinX || e.MaxY < e.MinY
}

// IsEmpty is IsNull or a single point.
func (e Envelope) IsEmpty() bool {
	return e.IsNull() || (e.Width() == 0 && e.Height() == 0)
}

func (e Envelope) Width() float64  { return e.MaxX - e.MinX }
func (e Envelope) Height() float64 { return e.MaxY - e.MinY }
func (e Envelope) Area() float64   { return e.Width() * e.Height() }

func (e Envelope) Rect() r2.Rect {
	return r2.Rect{X: r1.Interval{Lo: e.MinX, Hi: e.MaxX}, Y: r1.Interval{Lo: e.MinY, Hi: e.MaxY}}
}

// Contains is inclusive of the boundary.
func (e Envelope) Contains(p r2.Point) bool {
	return !e.IsNull() && e.Rect().ContainsPoint(p)
}

// Intersection returns the overlap of e and o in e's CRS. ok is false when
// they are disjoint.
func (e Envelope) Intersection(o Envelope) (Envelope, bool) {
	if e.IsNull() || o.IsNull() {
		return Envelope{}, false
	}
	r := e.Rect().Intersection(o.Rect())
	if r.IsEmpty() {
		return Envelope{}, false
	}
	return FromRect(e.CRS, r), true
}

func (e Envelope) Translate(dx float64) Envelope {
	e.MinX += dx
	e.MaxX += dx
	return e
}

func (e Envelope) WithCRS(c crs.CRS) Envelope {
	e.CRS = c
	return e
}

// Corners in the order (minX,minY), (maxX,minY), (maxX,maxY), (minX,maxY).
func (e Envelope) Corners() [4]r2.Point {
	return [4]r2.Point{
		{X: e.MinX, Y: e.MinY},
		{X: e.MaxX, Y: e.MinY},
		{X: e.MaxX, Y: e.MaxY},
		{X: e.MinX, Y: e.MaxY},
	}
}

func (e Envelope) String() string {
	id := "<nil>"
	if e.CRS != nil {
		id = e.CRS.ID()
	}
	return fmt.Sprintf("[%g,%g %g,%g] %s", e.MinX, e.MinY, e.MaxX, e.MaxY, id)
}
