package intersect

import (
	"slices"

	"github.com/golang/geo/r2"
)

// cell is one grid square, or a triangle when exactly one corner has no
// image. It only holds indices into the grid.
type cell struct {
	g       *grid
	indices []int
}

// newCell returns the cell whose lower right corner is grid point (x, y).
// ok is false when two or more corners have no image.
func (g *grid) newCell(x, y int) (cell, bool) {
	w := g.width
	all := []int{y*w + x - 1, (y-1)*w + x - 1, (y-1)*w + x, y*w + x}
	indices := make([]int, 0, len(all))
	for _, i := range all {
		if g.valid.Test(uint(i)) {
			indices = append(indices, i)
		}
	}
	if len(indices) < 3 {
		return cell{}, false
	}
	return cell{g: g, indices: indices}, true
}

func (c cell) size() int { return len(c.indices) }

// target returns the k-th corner, wrapping around.
func (c cell) target(k int) r2.Point {
	return c.g.target(c.indices[k%len(c.indices)])
}

func (c cell) targets() []r2.Point {
	out := make([]r2.Point, len(c.indices))
	for k, i := range c.indices {
		out[k] = c.g.target(i)
	}
	return out
}

func (c cell) latLons() []r2.Point {
	out := make([]r2.Point, len(c.indices))
	for k, i := range c.indices {
		out[k] = c.g.latLon(i)
	}
	return out
}

func (c cell) indexOfTarget(p r2.Point) int {
	for k := range c.indices {
		if c.target(k) == p {
			return k
		}
	}
	return -1
}

// wraps reports whether any side of the cell crosses the wrap line.
func (c cell) wraps() bool {
	ll := c.latLons()
	prev := ll[len(ll)-1].X
	for _, p := range ll {
		if c.g.checker.Check(prev, p.X) {
			return true
		}
		prev = p.X
	}
	return false
}

// simplePolygon grows by absorbing cells that share an edge with it.
type simplePolygon struct {
	coords []r2.Point
}

func newSimplePolygon(c cell) *simplePolygon {
	return &simplePolygon{coords: c.targets()}
}

func removeFirst(pts []r2.Point, p r2.Point) ([]r2.Point, bool) {
	i := slices.Index(pts, p)
	if i < 0 {
		return pts, false
	}
	return slices.Delete(pts, i, i+1), true
}

// merge splices c into the ring if they share at least two consecutive
// vertices. Shared vertices that become interior are dropped and the
// cell's remaining vertices are inserted where the shared run ends.
func (sp *simplePolygon) merge(c cell) bool {
	toCheck := c.targets()
	var ok bool
	for i := 0; i < len(sp.coords)-1; i++ {
		if toCheck, ok = removeFirst(toCheck, sp.coords[i]); !ok {
			continue
		}
		lastFound := -1
		if i == 0 {
			if toCheck, ok = removeFirst(toCheck, sp.coords[len(sp.coords)-1]); ok {
				// the shared run wraps past the end of the ring
				for {
					if toCheck, ok = removeFirst(toCheck, sp.coords[len(sp.coords)-2]); !ok {
						break
					}
					sp.coords = sp.coords[:len(sp.coords)-1]
				}
				lastFound = 0
			}
		}
		if lastFound == -1 && i+1 < len(sp.coords) {
			if toCheck, ok = removeFirst(toCheck, sp.coords[i+1]); ok {
				lastFound = i + 1
			}
		}
		if lastFound == -1 {
			return false
		}
		for lastFound+1 < len(sp.coords) {
			if toCheck, ok = removeFirst(toCheck, sp.coords[lastFound+1]); !ok {
				break
			}
			sp.coords = slices.Delete(sp.coords, lastFound, lastFound+1)
		}
		if len(toCheck) > 0 {
			at := c.indexOfTarget(sp.coords[lastFound])
			prev, next := at+c.size()-1, at+1
			switch {
			case slices.Contains(toCheck, c.target(next)):
				sp.coords = slices.Insert(sp.coords, lastFound, c.target(next))
				for j := next + 1; j < prev; j++ {
					p := c.target(j)
					if !slices.Contains(toCheck, p) {
						break
					}
					sp.coords = slices.Insert(sp.coords, lastFound, p)
				}
			case slices.Contains(toCheck, c.target(prev)):
				sp.coords = slices.Insert(sp.coords, lastFound, c.target(prev))
				for j := prev - 1; j > next; j-- {
					p := c.target(j)
					if !slices.Contains(toCheck, p) {
						break
					}
					sp.coords = slices.Insert(sp.coords, lastFound, p)
				}
			}
		}
		return true
	}
	return false
}
