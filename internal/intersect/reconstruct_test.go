package intersect

import (
	"math"
	"testing"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
)

var square10 = envelope.New(crs.WGS84, -10, -10, 10, 10)

// eqcTracer traces a plate carrée source, given in degrees, into a lat/lon
// target, so target coordinates read as degrees.
func eqcTracer(t *testing.T, lonLo, latLo, lonHi, latHi float64, tgt envelope.Envelope) *tracer {
	t.Helper()
	eqc := crs.EquidistantCylindrical{}
	x0, y0, err := eqc.FromLatLon(lonLo, latLo)
	require.NoError(t, err)
	x1, y1, err := eqc.FromLatLon(lonHi, latHi)
	require.NoError(t, err)
	src := envelope.New(eqc, x0, y0, x1, y1)
	toTarget, err := crs.Find(src.CRS, tgt.CRS)
	require.NoError(t, err)
	return newTracer(src, tgt, toTarget, OptionsFromEffort(src, tgt, DefaultEffort))
}

func rect(x0, y0, x1, y1 float64) *geos.Geom {
	return geometry.Rectangle(r2.Rect{X: r1.Interval{Lo: x0, Hi: x1}, Y: r1.Interval{Lo: y0, Hi: y1}})
}

func TestTargetInsideSource(t *testing.T) {
	require.True(t, eqcTracer(t, -20, -20, 20, 20, square10).targetInsideSource())
	require.False(t, eqcTracer(t, -20, -20, 5, 20, square10).targetInsideSource())
}

func TestCloseAlongFrame(t *testing.T) {
	piece := []r2.Point{{X: 5, Y: -10}, {X: 5, Y: 10}}

	west := eqcTracer(t, -20, -20, 5, 20, square10)
	g, err := west.closeAlongFrame(piece)
	require.NoError(t, err)
	require.InDelta(t, 300, g.Area(), 1e-9)
	require.Equal(t, -10.0, geometry.Bounds(g).X.Lo)

	// the walked side maps outside the source, so its complement is kept
	east := eqcTracer(t, 5, -20, 20, 20, square10)
	g, err = east.closeAlongFrame(piece)
	require.NoError(t, err)
	require.InDelta(t, 100, g.Area(), 1e-9)
	require.Equal(t, 10.0, geometry.Bounds(g).X.Hi)

	_, err = west.closeAlongFrame([]r2.Point{{X: 5, Y: -10}, {X: 5, Y: 0}})
	require.Equal(t, "frame_point", fallbackReason(err))
}

func TestExtendReachesFrame(t *testing.T) {
	tr := eqcTracer(t, -20, -20, 20, 20, square10)
	got := tr.extend([]r2.Point{{X: 5, Y: -5}, {X: 5, Y: 5}})
	require.Equal(t, []r2.Point{{X: 5, Y: -10}, {X: 5, Y: -5}, {X: 5, Y: 5}, {X: 5, Y: 10}}, got)

	// a chain already past the frame is left alone
	long := []r2.Point{{X: 5, Y: -20}, {X: 5, Y: 20}}
	require.Equal(t, long, tr.extend(long))
}

func TestReconstructFragments(t *testing.T) {
	tr := eqcTracer(t, -5, -20, 5, 20, square10)
	// two fragments stopping short of the frame, one on each side of the source
	g, err := tr.reconstruct([][]r2.Point{
		{{X: 5, Y: -5}, {X: 5, Y: 5}},
		{{X: -5, Y: 5}, {X: -5, Y: -5}},
	})
	require.NoError(t, err)
	require.Equal(t, geos.TypeIDPolygon, g.TypeID())
	require.InDelta(t, 200, g.Area(), 1e-9)
	b := geometry.Bounds(g)
	require.Equal(t, []float64{-5, -10, 5, 10}, []float64{b.X.Lo, b.Y.Lo, b.X.Hi, b.Y.Hi})

	// a fragment that never reaches the target contributes nothing
	g, err = tr.reconstruct([][]r2.Point{{{X: 50, Y: 50}, {X: 60, Y: 60}}})
	require.NoError(t, err)
	require.False(t, geometry.Usable(g))
}

func TestMergeOverlapping(t *testing.T) {
	far := rect(100, 0, 110, 10)
	got, err := mergeOverlapping([]*geos.Geom{rect(0, 0, 10, 10), rect(5, 0, 15, 10), far})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Same(t, far, got[0])
	require.InDelta(t, 50, got[1].Area(), 1e-9)
}

func TestOrient(t *testing.T) {
	tr := eqcTracer(t, -20, -20, 5, 20, square10)
	inside := rect(-10, -10, 5, 10)
	require.Same(t, inside, tr.orient(inside))

	got := tr.orient(rect(5, -10, 10, 10))
	require.InDelta(t, 300, got.Area(), 1e-9)
	require.True(t, geometry.ContainsPoint(got, r2.Point{X: 0, Y: 0}))
}

func TestLastResort(t *testing.T) {
	one := lastResort(nil, [][]r2.Point{{{X: 0, Y: 0}, {X: 2, Y: 1}}})
	require.Equal(t, 2.0, one.Area())

	two := lastResort(nil, [][]r2.Point{{{X: 0, Y: 0}, {X: 1, Y: 1}}, {{X: 5, Y: 5}, {X: 7, Y: 6}}})
	require.Equal(t, 2, two.NumGeometries())
	require.Equal(t, 3.0, geometry.ToPolygonal(two).Area())

	bowtie, err := geometry.Polygon([]r2.Point{{X: 0, Y: 0}, {X: 2, Y: 2}, {X: 2, Y: 0}, {X: 0, Y: 2}})
	require.NoError(t, err)
	require.False(t, bowtie.IsValid())
	repaired := lastResort(bowtie, nil)
	require.True(t, repaired.IsValid())
	require.False(t, repaired.IsEmpty())
}

func TestReplaceEdgeBudget(t *testing.T) {
	tr := eqcTracer(t, -20, -20, 20, 20, square10)
	a := r2.Point{X: tr.src.MinX, Y: tr.src.MinY}
	b := r2.Point{X: tr.src.MaxX, Y: tr.src.MinY}
	near := vertex{Point: r2.Point{X: -20, Y: -10}, valid: true}
	far := vertex{Point: r2.Point{X: 20, Y: -10}, valid: true}

	tr.maxRemove = 0
	_, _, _, err := tr.replaceEdge(a, b, near, far, 4)
	require.Equal(t, "edge_budget", fallbackReason(err))

	tr.maxRemove = math.Inf(1)
	na, nb, e, err := tr.replaceEdge(a, b, near, far, 4)
	require.NoError(t, err)
	require.InDelta(t, a.X, na.X, 1e-6)
	require.InDelta(t, b.X, nb.X, 1e-6)
	require.Greater(t, na.Y, a.Y)
	require.GreaterOrEqual(t, len(e), 3)

	// the replacement must map back into the source CRS
	_, _, _, err = tr.replaceEdge(a, b, vertex{Point: r2.Point{X: 0, Y: 100}, valid: true}, far, 4)
	require.Equal(t, "inverse_transform", fallbackReason(err))
}
