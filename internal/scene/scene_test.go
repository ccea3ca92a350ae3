package scene

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
)

func write(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadGeoJSON(t *testing.T) {
	fc := write(t, "fc.geojson", `{"type":"FeatureCollection","features":[
		{"type":"Feature","properties":{"name":"a"},"geometry":{"type":"Point","coordinates":[10,20]}},
		{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[4,0],[4,4],[0,4],[0,0]]]}}
	]}`)
	d, err := Load(fc)
	require.NoError(t, err)
	require.Equal(t, [][2]float64{{10, 20}}, d.Points)
	require.Len(t, d.Polygons, 1)
	require.Equal(t, BBox{MinX: 0, MinY: 0, MaxX: 10, MaxY: 20}, d.BBox)

	single := write(t, "f.json", `{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":null}`)
	d, err = Load(single)
	require.NoError(t, err)
	require.Len(t, d.Lines, 1)

	bare := write(t, "g.geojson", `{"type":"MultiPoint","coordinates":[[1,2],[3,4]]}`)
	d, err = Load(bare)
	require.NoError(t, err)
	require.Len(t, d.Points, 2)

	_, err = Load(write(t, "bad.geojson", `{"type":"Nope"}`))
	require.Error(t, err)
}

func TestLoadCSV(t *testing.T) {
	d, err := Load(write(t, "pts.csv", "name,Latitude,lng\na,10,20\nb,bad,1\nc,-5,7\n"))
	require.NoError(t, err)
	require.Equal(t, [][2]float64{{20, 10}, {7, -5}}, d.Points)

	_, err = Load(write(t, "nocols.csv", "a,b\n1,2\n"))
	require.Error(t, err)
}

func TestLoadKML(t *testing.T) {
	d, err := Load(write(t, "doc.kml", `<?xml version="1.0"?>
<kml xmlns="http://www.opengis.net/kml/2.2"><Document>
  <Placemark><Point><coordinates>10,20,0</coordinates></Point></Placemark>
  <Folder><Placemark><LineString><coordinates>0,0 1,1 2,0</coordinates></LineString></Placemark></Folder>
</Document></kml>`))
	require.NoError(t, err)
	require.Equal(t, [][2]float64{{10, 20}}, d.Points)
	require.Equal(t, [][][2]float64{{{0, 0}, {1, 1}, {2, 0}}}, d.Lines)
}

func TestParseWKT(t *testing.T) {
	d, err := ParseWKT("GEOMETRYCOLLECTION(POINT(1 2),LINESTRING(0 0,5 5),POLYGON((0 0,1 0,1 1,0 0)))")
	require.NoError(t, err)
	assert.Len(t, d.Points, 1)
	assert.Len(t, d.Lines, 1)
	assert.Len(t, d.Polygons, 1)
	assert.Equal(t, 1+2+4, d.Vertices())

	_, err = ParseWKT("  ")
	require.Error(t, err)
	_, err = ParseWKT("POLYGON((")
	require.Error(t, err)
}

func TestUnsupportedExtension(t *testing.T) {
	_, err := Load(write(t, "x.shp", ""))
	require.Error(t, err)
}

func TestFromGeometry(t *testing.T) {
	require.True(t, FromGeometry(nil).IsEmpty())
	require.True(t, FromGeometry(geometry.EmptyPolygon()).IsEmpty())

	env := envelope.New(crs.WGS84, 0, 0, 2, 3)
	d := FromGeometry(geometry.Rectangle(env.Rect()))
	require.Len(t, d.Polygons, 1)
	require.Len(t, d.Polygons[0][0], 5)
	require.Equal(t, BBox{MinX: 0, MinY: 0, MaxX: 2, MaxY: 3}, d.BBox)
}

func TestOutline(t *testing.T) {
	ring := Outline(envelope.New(crs.WGS84, 0, 0, 2, 3))
	require.Len(t, ring, 5)
	require.Equal(t, ring[0], ring[4])
	require.Equal(t, [2]float64{2, 3}, ring[2])
}

func TestTraceSplitsAtPole(t *testing.T) {
	src := envelope.New(crs.WGS84, -10, 0, 10, 90)
	parts := Trace(src, crs.Mercator{}, 4)
	// the top edge sits on the pole and has no image
	require.Len(t, parts, 2)
	require.Len(t, parts[0], 8)
	require.Len(t, parts[1], 4)
	for _, part := range parts {
		for _, p := range part {
			require.False(t, math.IsNaN(p[1]))
		}
	}

	require.Nil(t, Trace(src, crs.Engineering{Name: "lab"}, 4))
}

func TestProject(t *testing.T) {
	d := NewData()
	d.AddPoint([2]float64{0, 0})
	d.AddPoint([2]float64{0, 90})
	d.AddLine([][2]float64{{170, 0}, {-170, 0}})
	d.AddPolygon([][][2]float64{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}})

	out := Project(d, crs.Mercator{})
	require.Len(t, out.Points, 1, "the pole has no image")
	assert.InDelta(t, 0, out.Points[0][1], 1e-6)
	// the antimeridian cut splits the line in two
	require.Len(t, out.Lines, 2)
	require.Len(t, out.Polygons, 1)
	maxX := math.Inf(-1)
	for _, p := range out.Polygons[0][0] {
		maxX = math.Max(maxX, p[0])
	}
	assert.InDelta(t, 10*math.Pi/180*crs.Radius, maxX, 1e-3)
}
