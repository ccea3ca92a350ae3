package intersect

import (
	"github.com/golang/geo/r2"

	"mapsect/internal/crs"
)

// vertex is a transformed point; valid is false when the source point has
// no image in the target CRS.
type vertex struct {
	r2.Point
	valid bool
}

func project(t crs.Transform, p r2.Point) vertex {
	q, err := t.Transform(p)
	if err != nil {
		return vertex{}
	}
	return vertex{Point: q, valid: true}
}

// edge samples the image of the straight source segment p1-p2, splitting it
// until the image is within threshold of straight or maxDivs is used up. At
// least two divisions are always made so that a long, barely curved edge
// still carries an interior point for wrap correction. Unrepresentable ends
// are trimmed.
func edge(t crs.Transform, p1, p2 r2.Point, maxDivs int, threshold float64) []vertex {
	t1, t2 := project(t, p1), project(t, p2)
	pts := make([]vertex, 0, maxDivs+1)
	pts = append(pts, t1)
	pts = bisect(pts, t, p1, t1, p2, t2, 2, maxDivs, threshold)
	pts = append(pts, t2)
	return trimInvalid(pts)
}

// bisect appends the interior samples of p1-p3, excluding both ends.
func bisect(pts []vertex, t crs.Transform, p1 r2.Point, t1 vertex, p3 r2.Point, t3 vertex, minDivs, maxDivs int, threshold float64) []vertex {
	p2 := p1.Add(p3).Mul(0.5)
	t2 := project(t, p2)
	deviated := false
	if t1.valid && t2.valid && t3.valid {
		deviated = t2.Sub(t1.Add(t3.Point).Mul(0.5)).Norm() >= threshold
	}
	if minDivs > 1 || (deviated && maxDivs >= 1) {
		minDivs /= 2
		maxDivs /= 2
		pts = bisect(pts, t, p1, t1, p2, t2, minDivs, maxDivs, threshold)
		pts = append(pts, t2)
		pts = bisect(pts, t, p2, t2, p3, t3, minDivs, maxDivs, threshold)
	}
	return pts
}

func trimInvalid(pts []vertex) []vertex {
	for len(pts) > 0 && !pts[len(pts)-1].valid {
		pts = pts[:len(pts)-1]
	}
	for len(pts) > 0 && !pts[0].valid {
		pts = pts[1:]
	}
	return pts
}

// runs splits pts at invalid vertices, keeping runs of two or more points.
func runs(pts []vertex) [][]r2.Point {
	var out [][]r2.Point
	var cur []r2.Point
	flush := func() {
		if len(cur) > 1 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, v := range pts {
		if !v.valid {
			flush()
			continue
		}
		cur = append(cur, v.Point)
	}
	flush()
	return out
}
