package tui

import (
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"mapsect/internal/config"
	"mapsect/internal/intersect"
)

func key(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func sameCRS() config.Request {
	return config.Request{
		Source: config.Side{CRS: "latlon", Bounds: "0,0,20,20"},
		Target: config.Side{CRS: "latlon", Bounds: "10,10,30,30"},
	}
}

// run feeds msg to m and, if a command comes back, its message as well.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(Model)
	}
	return m
}

func TestRequestRoundTrip(t *testing.T) {
	m := NewWithRequest(sameCRS())
	require.True(t, m.hasReq)
	require.Len(t, m.frame, 5)
	require.Equal(t, 30.0, m.bbox.MaxX)

	cmd := m.Init()
	require.NotNil(t, cmd)
	m = run(t, m, cmd())
	require.NotNil(t, m.res)
	require.Equal(t, intersect.PathIdentity, m.res.Path)
	require.Len(t, m.result.Polygons, 1)
	require.InDelta(t, 100, m.res.Geom.Area(), 1e-9)
}

func TestStaleResultIgnored(t *testing.T) {
	m := NewWithRequest(sameCRS())
	stale := m.Init()
	next, _ := m.Update(key("g"))
	m = next.(Model)
	require.True(t, m.req.Grid)
	m = run(t, m, stale())
	require.Nil(t, m.res)
}

func TestEffortKeys(t *testing.T) {
	m := NewWithRequest(sameCRS())
	m = run(t, m, key("e"))
	require.Equal(t, 2*intersect.DefaultEffort, m.req.Effort)
	require.NotNil(t, m.res)
	m = run(t, m, key("E"))
	m = run(t, m, key("E"))
	require.Equal(t, intersect.DefaultEffort/2, m.req.Effort)
}

func TestKeysWithoutRequest(t *testing.T) {
	m := New()
	m = run(t, m, key("r"))
	require.Contains(t, m.status, "no request")
	m = run(t, m, key("i"))
	require.Equal(t, "no request loaded", m.inspectPopup)
}

func TestPasteRequest(t *testing.T) {
	m := New()
	m = run(t, m, key("p"))
	require.True(t, m.pasteMode)
	m.ta.SetValue("source: {crs: latlon, bounds: \"0,0,10,10\"}\ntarget: {crs: merc, bounds: \"-2e7,-2e7,2e7,2e7\"}\n")
	m = run(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.False(t, m.pasteMode)
	require.True(t, m.hasReq)
	require.NotNil(t, m.res)
	require.NotEmpty(t, m.result.Polygons)

	m = run(t, m, key("i"))
	require.Contains(t, m.inspectPopup, "path: ")

	m = run(t, m, key("a"))
	require.True(t, m.showAttrs)
	require.Len(t, m.tbl.Rows(), len(m.result.Polygons))
}

func TestPasteRejectsBadRequest(t *testing.T) {
	m := New()
	m = run(t, m, key("p"))
	m.ta.SetValue("source: {crs: nowhere}")
	m = run(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.True(t, m.pasteMode)
	require.Contains(t, m.status, "request error")
}

func TestLoadOverlayAndRequestFiles(t *testing.T) {
	dir := t.TempDir()
	overlay := filepath.Join(dir, "cities.csv")
	require.NoError(t, os.WriteFile(overlay, []byte("lat,lon\n15,15\n25,25\n"), 0o644))
	req := filepath.Join(dir, "req.yaml")
	require.NoError(t, os.WriteFile(req, []byte("requests:\n  - source: {crs: latlon, bounds: \"0,0,20,20\"}\n    target: {crs: latlon, bounds: \"10,10,30,30\"}\n"), 0o644))

	m := New()
	m.cwd = dir
	m.refreshDir()
	require.Len(t, m.items, 2)

	require.Nil(t, m.loadPath(overlay))
	require.Len(t, m.projected.Points, 2)
	require.Equal(t, 25.0, m.bbox.MaxX)

	cmd := m.loadPath(req)
	require.NotNil(t, cmd)
	m = run(t, m, cmd())
	require.Equal(t, intersect.PathIdentity, m.res.Path)
	require.Len(t, m.projected.Points, 2)
}

func TestScreenMapping(t *testing.T) {
	m := NewWithRequest(sameCRS())
	w, h := 41, 21
	mx, my, ok := m.screenXYMicro(10, 30, w, h)
	require.True(t, ok)
	require.Equal(t, 0, mx)
	require.Equal(t, 0, my)

	x, y, ok := m.cellToXY(w-1, h-1, w, h)
	require.True(t, ok)
	require.InDelta(t, 30, x, 1e-9)
	require.InDelta(t, 10, y, 1e-9)

	lon, lat, ok := m.hoverLonLat(x, y)
	require.True(t, ok)
	require.Equal(t, [2]float64{30, 10}, [2]float64{lon, lat})
}

func TestBraille(t *testing.T) {
	b := newBrailleBuf(2, 1)
	b.setPixel(0, 0)
	b.setPixel(3, 3)
	b.setPixel(-1, 0)
	b.setPixel(4, 0)
	require.Equal(t, []string{"⠁⢀"}, b.toLines())

	b = newBrailleBuf(1, 1)
	b.drawLineMicro(0, 0, 1, 3)
	require.NotEqual(t, " ", b.toLines()[0])
	b.drawLineMicro(-5, -5, -1, -1)
}

func TestClipLine(t *testing.T) {
	x0, y0, x1, y1, ok := clipLine(-10, 2, 10, 2, 3, 7)
	require.True(t, ok)
	require.Equal(t, [4]int{0, 2, 3, 2}, [4]int{x0, y0, x1, y1})

	x0, y0, x1, y1, ok = clipLine(-4, -4, 4, 4, 3, 7)
	require.True(t, ok)
	require.Equal(t, [4]int{0, 0, 3, 3}, [4]int{x0, y0, x1, y1})

	_, _, _, _, ok = clipLine(-5, -5, -1, -1, 3, 7)
	require.False(t, ok)
	_, _, _, _, ok = clipLine(-5, 9, 5, 9, 3, 7)
	require.False(t, ok)
}

func TestHugeCoordinatesStayOnCanvas(t *testing.T) {
	b := newBrailleBuf(2, 1)
	b.drawLineMicro(-1<<40, 0, 1<<40, 0)
	require.Equal(t, []string{"⠉⠉"}, b.toLines())

	m := NewWithRequest(sameCRS())
	m.zoom = 1e7
	w, h := 10, 5
	br := newBrailleBuf(w, h)
	m.fillPolygon(br, [][][2]float64{{{-1e3, -1e3}, {1e3, -1e3}, {1e3, 1e3}, {-1e3, 1e3}}}, w, h)
	for _, line := range br.toLines() {
		require.NotContains(t, line, " ")
	}
}

func TestViewRenders(t *testing.T) {
	m := NewWithRequest(sameCRS())
	m = run(t, m, m.Init()())
	m = run(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	m = run(t, m, tea.MouseMsg{X: 40, Y: 12})
	require.True(t, m.hoverHasGeo)
	require.True(t, m.hoverHasLL)
	out := m.View()
	require.Contains(t, out, "mapsect")
	require.Contains(t, out, "lon=")
}
