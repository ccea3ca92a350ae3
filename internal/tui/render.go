package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r2"

	"mapsect/internal/crs"
)

// cellToXY converts a map cell coordinate back to target coordinates using bbox, zoom, and pan.
func (m Model) cellToXY(cx, cy, w, h int) (float64, float64, bool) {
	if !(m.bbox.MaxX > m.bbox.MinX && m.bbox.MaxY > m.bbox.MinY) {
		return 0, 0, false
	}
	if w <= 1 || h <= 1 {
		return 0, 0, false
	}
	zx := float64(cx-m.offsetX) / float64(w-1)
	zy := 1.0 - float64(cy-m.offsetY)/float64(h-1)
	nx := 0.5 + (zx-0.5)/m.zoom
	ny := 0.5 + (zy-0.5)/m.zoom
	x := m.bbox.MinX + nx*(m.bbox.MaxX-m.bbox.MinX)
	y := m.bbox.MinY + ny*(m.bbox.MaxY-m.bbox.MinY)
	return x, y, true
}

// hoverLonLat maps a target position back to lon/lat when the target CRS allows it.
func (m Model) hoverLonLat(x, y float64) (float64, float64, bool) {
	if !m.hasReq {
		return 0, 0, false
	}
	p, err := crs.ToLatLon(m.tgt.CRS).Transform(r2.Point{X: x, Y: y})
	if err != nil {
		return 0, 0, false
	}
	return p.X, p.Y, true
}

func (m Model) renderAsciiMap(w, h int) string {
	// one braille buffer per layer so each can be coloured
	outlines := newBrailleBuf(w, h)
	result := newBrailleBuf(w, h)
	overlay := newBrailleBuf(w, h)

	if m.showOutlines {
		m.drawPath(outlines, m.frame, w, h)
		for _, piece := range m.trace {
			m.drawPath(outlines, piece, w, h)
		}
	}
	if m.showResult {
		for _, poly := range m.result.Polygons {
			m.fillPolygon(result, poly, w, h)
		}
	}
	if m.showOverlay {
		for _, p := range m.projected.Points {
			if mx, my, ok := m.screenXYMicro(p[0], p[1], w, h); ok {
				overlay.setPixel(mx, my)
			}
		}
		for _, ls := range m.projected.Lines {
			m.drawPath(overlay, ls, w, h)
		}
		for _, poly := range m.projected.Polygons {
			for _, ring := range poly {
				m.drawPath(overlay, ring, w, h)
			}
		}
	}

	// Composite: overlay over result over outlines
	layers := []struct {
		lines []string
		style lipgloss.Style
	}{
		{overlay.toLines(), overlayStyle},
		{result.toLines(), resultStyle},
		{outlines.toLines(), dimStyle},
	}
	lines := make([]string, h)
	for y := 0; y < h; y++ {
		var sb strings.Builder
		rows := make([][]rune, len(layers))
		for i, l := range layers {
			rows[i] = []rune(l.lines[y])
		}
		for x := 0; x < w; x++ {
			if m.hovering && x == m.hoverMicX/2 && y == m.hoverMicY/4 {
				sb.WriteString(hoverStyle.Render("◯"))
				continue
			}
			cell := " "
			for i, row := range rows {
				if x < len(row) && row[x] != ' ' {
					cell = layers[i].style.Render(string(row[x]))
					break
				}
			}
			sb.WriteString(cell)
		}
		lines[y] = sb.String()
	}
	return strings.Join(lines, "\n")
}

// drawPath draws a polyline on the micro grid.
func (m Model) drawPath(br *brailleBuf, pts [][2]float64, w, h int) {
	var prev *[2]int
	for _, p := range pts {
		mx, my, ok := m.screenXYMicro(p[0], p[1], w, h)
		if !ok {
			continue
		}
		if prev != nil {
			br.drawLineMicro(prev[0], prev[1], mx, my)
		}
		prev = &[2]int{mx, my}
	}
}

// fillPolygon fills a polygon with the even-odd rule over all its rings and
// then draws its edges.
func (m Model) fillPolygon(br *brailleBuf, poly [][][2]float64, w, h int) {
	var ringsMic [][][2]int
	for _, ring := range poly {
		var sm [][2]int
		for _, p := range ring {
			mx, my, ok := m.screenXYMicro(p[0], p[1], w, h)
			if !ok {
				continue
			}
			sm = append(sm, [2]int{mx, my})
		}
		if len(sm) >= 3 {
			ringsMic = append(ringsMic, sm)
		}
	}
	if len(ringsMic) == 0 {
		return
	}
	wMic, hMic := w*2, h*4
	for yMic := 0; yMic < hMic; yMic++ {
		var xs []int
		for _, r := range ringsMic {
			for i := 0; i < len(r); i++ {
				a := r[i]
				b := r[(i+1)%len(r)]
				if a[1] == b[1] { // horizontal edge: skip
					continue
				}
				y0, y1 := a[1], b[1]
				x0, x1 := a[0], b[0]
				if (yMic >= y0 && yMic < y1) || (yMic >= y1 && yMic < y0) {
					t := float64(yMic-y0) / float64(y1-y0)
					xs = append(xs, int(float64(x0)+t*float64(x1-x0)))
				}
			}
		}
		sort.Ints(xs)
		// sparse fill keeps the edges readable
		for i := 0; i+1 < len(xs); i += 2 {
			for xMic := max(0, xs[i]); xMic <= min(xs[i+1], wMic-1); xMic++ {
				if (xMic+yMic)%2 == 0 {
					br.setPixel(xMic, yMic)
				}
			}
		}
	}
	for _, r := range ringsMic {
		for i := 0; i < len(r); i++ {
			a := r[i]
			b := r[(i+1)%len(r)]
			br.drawLineMicro(a[0], a[1], b[0], b[1])
		}
	}
}

// screenXYMicro maps target coordinates into a 2x4 microgrid per cell for braille rendering.
func (m Model) screenXYMicro(x, y float64, w, h int) (int, int, bool) {
	if !(m.bbox.MaxX > m.bbox.MinX && m.bbox.MaxY > m.bbox.MinY) {
		return 0, 0, false
	}
	nx := (x - m.bbox.MinX) / (m.bbox.MaxX - m.bbox.MinX)
	ny := (y - m.bbox.MinY) / (m.bbox.MaxY - m.bbox.MinY)
	zx := 0.5 + (nx-0.5)*m.zoom
	zy := 0.5 + (ny-0.5)*m.zoom
	wMic := w * 2
	hMic := h * 4
	sx := int(zx*float64(wMic-1)) + m.offsetX*2
	sy := int((1.0-zy)*float64(hMic-1)) + m.offsetY*4
	return sx, sy, true
}

// nearestVertex finds the rendered vertex closest to a micro grid position.
func (m Model) nearestVertex(hxMic, hyMic, w, h int) (int, int, bool) {
	best := 1<<31 - 1
	bx, by := hxMic, hyMic
	visit := func(p [2]float64) {
		mx, my, ok := m.screenXYMicro(p[0], p[1], w, h)
		if !ok {
			return
		}
		dx := mx - hxMic
		dy := my - hyMic
		if d := dx*dx + dy*dy; d < best {
			best = d
			bx, by = mx, my
		}
	}
	if m.showResult {
		for _, poly := range m.result.Polygons {
			for _, ring := range poly {
				for _, p := range ring {
					visit(p)
				}
			}
		}
	}
	if m.showOverlay {
		for _, p := range m.projected.Points {
			visit(p)
		}
		for _, ls := range m.projected.Lines {
			for _, p := range ls {
				visit(p)
			}
		}
	}
	return bx, by, best != 1<<31-1
}
