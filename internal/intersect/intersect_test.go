package intersect

import (
	"math"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geos"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
)

func requirePolygonal(t *testing.T, g *geos.Geom) {
	t.Helper()
	require.NotNil(t, g)
	require.Contains(t, []geos.TypeID{geos.TypeIDPolygon, geos.TypeIDMultiPolygon}, g.TypeID())
}

func TestIdentityPathExactCorners(t *testing.T) {
	src := envelope.New(crs.WGS84, -180, -90, 180, 90)
	tgt := envelope.New(crs.WGS84, -10, -10, 10, 10)

	before := testutil.ToFloat64(pathCount.WithLabelValues(string(PathIdentity)))
	r, err := Explain(src, tgt, OptionsFromEffort(src, tgt, DefaultEffort))
	require.NoError(t, err)
	require.Equal(t, PathIdentity, r.Path)
	require.Equal(t, geos.TypeIDPolygon, r.Geom.TypeID())
	require.Equal(t, []r2.Point{{X: -10, Y: -10}, {X: -10, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: -10}, {X: -10, Y: -10}},
		geometry.Coords(r.Geom))
	require.Equal(t, before+1, testutil.ToFloat64(pathCount.WithLabelValues(string(PathIdentity))))
}

func TestIdentityDisjoint(t *testing.T) {
	src := envelope.New(crs.WGS84, 0, 0, 1, 1)
	tgt := envelope.New(crs.WGS84, 10, 10, 11, 11)
	g, err := Envelopes(src, tgt)
	require.NoError(t, err)
	require.True(t, g.IsEmpty())
}

func TestEmptyInputs(t *testing.T) {
	full := envelope.New(crs.WGS84, -180, -90, 180, 90)
	merc := envelope.New(crs.Mercator{}, -1e7, -1e7, 1e7, 1e7)
	for name, tc := range map[string]struct{ src, tgt envelope.Envelope }{
		"point source":    {envelope.New(crs.WGS84, 5, 5, 5, 5), merc},
		"point target":    {full, envelope.New(crs.Mercator{}, 3, 3, 3, 3)},
		"inverted source": {envelope.New(crs.WGS84, 10, 0, 0, 10), merc},
		"nan target":      {full, envelope.New(crs.Mercator{}, math.NaN(), 0, 1, 1)},
	} {
		t.Run(name, func(t *testing.T) {
			r, err := Explain(tc.src, tc.tgt, Options{})
			require.NoError(t, err)
			assert.Equal(t, PathEmpty, r.Path)
			assert.True(t, r.Geom.IsEmpty())
		})
	}
}

func TestNoTransformIsFatal(t *testing.T) {
	src := envelope.New(crs.Engineering{Name: "radar"}, 0, 0, 100, 100)
	tgt := envelope.New(crs.WGS84, -10, -10, 10, 10)

	_, err := Envelopes(src, tgt)
	require.Error(t, err)
	require.True(t, errors.Is(err, crs.ErrNoTransform))

	_, err = BruteForce(src, tgt, 10, 10)
	require.True(t, errors.Is(err, crs.ErrNoTransform))
}

func TestOptionsFromEffort(t *testing.T) {
	src := envelope.New(crs.WGS84, -180, -90, 180, 90)
	tgt := envelope.New(crs.WGS84, -10, -10, 10, 10)
	opts := OptionsFromEffort(src, tgt, 1000)
	require.Equal(t, 44, opts.MaxHorDivisions)
	require.Equal(t, 22, opts.MaxVertDivisions)
	require.InDelta(t, 0.02, opts.Threshold, 1e-12)
	require.Equal(t, DefaultRemovalBudget, opts.RemovalBudget)

	// a source taller than wide must still get one column
	thin := envelope.New(crs.WGS84, 0, -90, 0.001, 90)
	opts = OptionsFromEffort(thin, tgt, 10)
	require.Equal(t, 1, opts.MaxHorDivisions)
	require.Equal(t, 10, opts.MaxVertDivisions)
}

func TestNormalizeEnvelope(t *testing.T) {
	split := NormalizeEnvelope(envelope.New(crs.WGS84, 170, -10, 190, 10))
	require.Len(t, split, 2)
	for _, e := range split {
		assert.GreaterOrEqual(t, e.MinX, -180.0)
		assert.LessOrEqual(t, e.MaxX, 180.0)
	}
	require.Equal(t, []float64{-180, -170, 170, 180},
		[]float64{split[0].MinX, split[0].MaxX, split[1].MinX, split[1].MaxX})

	low := NormalizeEnvelope(envelope.New(crs.WGS84, -190, 0, -170, 10))
	require.Len(t, low, 2)
	require.Equal(t, []float64{170, 180, -180, -170},
		[]float64{low[0].MinX, low[0].MaxX, low[1].MinX, low[1].MaxX})

	wide := NormalizeEnvelope(envelope.New(crs.WGS84, -200, 0, 200, 10))
	require.Len(t, wide, 1)
	require.Equal(t, -180.0, wide[0].MinX)
	require.Equal(t, 180.0, wide[0].MaxX)

	inside := envelope.New(crs.WGS84, -20, 0, 20, 10)
	require.Equal(t, []envelope.Envelope{inside}, NormalizeEnvelope(inside))

	// no known range for a shifted or non-cylindrical CRS
	for _, c := range []crs.CRS{crs.EquidistantCylindrical{CentralMeridian: 90}, crs.Mercator{}} {
		e := envelope.New(c, 170, 0, 190, 10)
		require.Equal(t, []envelope.Envelope{e}, NormalizeEnvelope(e))
	}
}

func mercatorArea(lon0, lat0, lon1, lat1 float64) float64 {
	m := crs.Mercator{}
	x0, y0, _ := m.FromLatLon(lon0, lat0)
	x1, y1, _ := m.FromLatLon(lon1, lat1)
	return (x1 - x0) * (y1 - y0)
}

func TestSplitAcrossAntimeridian(t *testing.T) {
	src := envelope.New(crs.WGS84, 170, -10, 190, 10)
	tgt := envelope.New(crs.Mercator{}, -2.1e7, -2e7, 2.1e7, 2e7)
	r, err := Explain(src, tgt, OptionsFromEffort(src, tgt, 400))
	require.NoError(t, err)
	require.Equal(t, PathSplit, r.Path)
	require.Equal(t, geos.TypeIDMultiPolygon, r.Geom.TypeID())
	require.True(t, r.Geom.IsValid())
	require.InEpsilon(t, 2*mercatorArea(170, -10, 180, 10), r.Geom.Area(), 1e-6)
}

func TestUnionOfOverlappingHalves(t *testing.T) {
	g := union([]*geos.Geom{rect(0, 0, 10, 10), rect(5, 0, 15, 10)})
	require.Equal(t, geos.TypeIDPolygon, g.TypeID())
	require.True(t, g.IsValid())
	require.InDelta(t, 150, g.Area(), 1e-9)

	// halves sharing an edge are not a valid MultiPolygon until merged
	g = union([]*geos.Geom{rect(0, 0, 10, 10), rect(10, 0, 20, 10), rect(50, 0, 60, 10)})
	require.Equal(t, geos.TypeIDMultiPolygon, g.TypeID())
	require.True(t, g.IsValid())
	require.Equal(t, 2, g.NumGeometries())
	require.InDelta(t, 300, g.Area(), 1e-9)
}

func TestOverflowCopiesPastRange(t *testing.T) {
	band := rect(-180, -10, 180, 10)

	got := overflow(band, envelope.New(crs.WGS84, 170, -10, 190, 10))
	require.True(t, got.IsValid())
	require.Equal(t, geos.TypeIDPolygon, got.TypeID())
	require.InDelta(t, 400, got.Area(), 1e-9)
	b := geometry.Bounds(got)
	require.Equal(t, []float64{170, 190}, []float64{b.X.Lo, b.X.Hi})

	got = overflow(band, envelope.New(crs.WGS84, -190, -10, -170, 10))
	require.InDelta(t, 400, got.Area(), 1e-9)
	b = geometry.Bounds(got)
	require.Equal(t, []float64{-190, -170}, []float64{b.X.Lo, b.X.Hi})

	inside := envelope.New(crs.WGS84, -20, -10, 20, 10)
	require.Same(t, band, overflow(band, inside))
	polar := envelope.New(crs.PolarStereographic{}, 0, 0, 400, 10)
	require.Same(t, band, overflow(band, polar))
}

func TestOverflowReachesSameGroundTwice(t *testing.T) {
	eqc := crs.EquidistantCylindrical{}
	x0, y0, err := eqc.FromLatLon(-180, -10)
	require.NoError(t, err)
	x1, y1, err := eqc.FromLatLon(-170, 10)
	require.NoError(t, err)
	src := envelope.New(eqc, x0, y0, x1, y1)
	// 180..190 is the same ground as -180..-170
	tgt := envelope.New(crs.WGS84, 170, -10, 190, 10)

	r, err := Explain(src, tgt, OptionsFromEffort(src, tgt, DefaultEffort))
	require.NoError(t, err)
	require.Equal(t, PathBorder, r.Path)
	requirePolygonal(t, r.Geom)
	require.True(t, r.Geom.IsValid())
	require.InEpsilon(t, 200, r.Geom.Area(), 1e-6)
	require.True(t, geometry.ContainsPoint(r.Geom, r2.Point{X: 185, Y: 0}))
	require.False(t, geometry.ContainsPoint(r.Geom, r2.Point{X: 175, Y: 0}))
}

func TestEdgeBudgetFallsBackToGrid(t *testing.T) {
	// the south pole edge has no image; bridging it would drop the whole
	// 75S to 90S band
	src := envelope.New(crs.WGS84, -180, -90, 180, -60)
	tgt := envelope.New(crs.PolarStereographic{}, -5e7, -5e7, 5e7, 5e7)

	before := testutil.ToFloat64(fallbackCount.WithLabelValues("edge_budget"))
	r, err := Explain(src, tgt, OptionsFromEffort(src, tgt, 400))
	require.NoError(t, err)
	require.Equal(t, PathGrid, r.Path)
	require.Equal(t, "edge_budget", r.Reason)
	requirePolygonal(t, r.Geom)
	require.True(t, r.Geom.IsValid())
	require.Greater(t, r.Geom.Area(), 0.0)
	require.Equal(t, before+1, testutil.ToFloat64(fallbackCount.WithLabelValues("edge_budget")))
}

func TestCornerBudget(t *testing.T) {
	// the north east corner is behind the limb, and so are most of the two
	// edges meeting there
	src := envelope.New(crs.WGS84, 0, 0, 80, 80)
	tgt := envelope.New(crs.Geostationary{}, -5.5e6, -5.5e6, 5.5e6, 5.5e6)

	opts := OptionsFromEffort(src, tgt, DefaultEffort)
	r, err := Explain(src, tgt, opts)
	require.NoError(t, err)
	require.Equal(t, PathGrid, r.Path)
	require.Equal(t, "corner_budget", r.Reason)
	requirePolygonal(t, r.Geom)
	require.Greater(t, r.Geom.Area(), 0.0)

	// with room to cut the corner off, the tracer bridges it with a diagonal
	opts.RemovalBudget = 1e3
	r, err = Explain(src, tgt, opts)
	require.NoError(t, err)
	require.Equal(t, PathBorder, r.Path)
	require.Empty(t, r.Reason)
	require.True(t, r.Geom.IsValid())
	require.Greater(t, r.Geom.Area(), 0.0)
}

func TestContainment(t *testing.T) {
	eqc := crs.EquidistantCylindrical{}
	x0, y0, err := eqc.FromLatLon(10, 10)
	require.NoError(t, err)
	x1, y1, err := eqc.FromLatLon(20, 20)
	require.NoError(t, err)
	src := envelope.New(eqc, x0, y0, x1, y1)
	tgt := envelope.New(crs.WGS84, -180, -90, 180, 90)

	r, err := Explain(src, tgt, OptionsFromEffort(src, tgt, DefaultEffort))
	require.NoError(t, err)
	require.Equal(t, PathBorder, r.Path)
	require.Equal(t, geos.TypeIDPolygon, r.Geom.TypeID())
	require.InDelta(t, 100, r.Geom.Area(), 1e-6)

	b := geometry.Bounds(r.Geom)
	got := []float64{b.X.Lo, b.Y.Lo, b.X.Hi, b.Y.Hi}
	if diff := cmp.Diff([]float64{10, 10, 20, 20}, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Fatalf("bounds mismatch (-want +got):\n%s", diff)
	}
}

func TestReintersectionIsStable(t *testing.T) {
	eqc := crs.EquidistantCylindrical{}
	x0, y0, _ := eqc.FromLatLon(-40, -30)
	x1, y1, _ := eqc.FromLatLon(40, 30)
	src := envelope.New(eqc, x0, y0, x1, y1)
	tgt := envelope.New(crs.PolarStereographic{}, -1.5e7, -1.5e7, 1.5e7, 1.5e7)

	opts := OptionsFromEffort(src, tgt, DefaultEffort)
	first, err := Intersect(src, tgt, opts)
	require.NoError(t, err)
	requirePolygonal(t, first)

	toSource, err := crs.Find(tgt.CRS, src.CRS)
	require.NoError(t, err)
	back, err := geometry.Transform(first, toSource)
	require.NoError(t, err)
	clipped, err := geometry.Intersection(back, geometry.Rectangle(src.Rect()))
	require.NoError(t, err)
	require.InEpsilon(t, back.Area(), clipped.Area(), 1e-3)
}

func TestAreaGrowsWithEffort(t *testing.T) {
	src := envelope.New(crs.WGS84, -30, 30, 30, 60)
	tgt := envelope.New(crs.PolarStereographic{}, -1e7, -1e7, 1e7, 1e7)

	low, err := WithEffort(src, tgt, 100)
	require.NoError(t, err)
	high, err := WithEffort(src, tgt, 2000)
	require.NoError(t, err)
	requirePolygonal(t, low)
	requirePolygonal(t, high)
	require.GreaterOrEqual(t, high.Area(), low.Area()*(1-1e-3))
}

func TestFallbackGuarantee(t *testing.T) {
	// the south pole has no image in a north polar stereographic
	src := envelope.New(crs.WGS84, -180, -90, 180, -60)
	tgt := envelope.New(crs.PolarStereographic{}, -5e7, -5e7, 5e7, 5e7)

	r, err := Explain(src, tgt, OptionsFromEffort(src, tgt, 400))
	require.NoError(t, err)
	require.Contains(t, []Path{PathBorder, PathGrid}, r.Path)
	requirePolygonal(t, r.Geom)

	forced := OptionsFromEffort(src, tgt, 400)
	forced.ForceGrid = true
	before := testutil.ToFloat64(fallbackCount.WithLabelValues("forced"))
	r, err = Explain(src, tgt, forced)
	require.NoError(t, err)
	require.Equal(t, PathGrid, r.Path)
	require.Equal(t, "forced", r.Reason)
	requirePolygonal(t, r.Geom)
	require.False(t, r.Geom.IsEmpty())
	require.Equal(t, before+1, testutil.ToFloat64(fallbackCount.WithLabelValues("forced")))
}

func TestFallbackReason(t *testing.T) {
	require.Equal(t, "edge_budget", fallbackReason(fallback("edge_budget")))
	require.Equal(t, "topology", fallbackReason(errors.Wrap(geometry.ErrTopology, "difference")))
	require.Equal(t, "frame_walk", fallbackReason(errors.Wrap(fallback("frame_walk"), "reconstruct")))
	require.Empty(t, fallbackReason(crs.ErrNoTransform))
}

func TestRegisterTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, Register(reg))
	require.NoError(t, Register(reg))
}
