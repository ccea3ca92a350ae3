package tui

import "math"

// brailleBuf is a canvas of braille cells, each a 2x4 grid of micro pixels.
type brailleBuf struct {
	w, h int       // in cells
	m    [][]uint8 // per-cell 8-bit mask
}

// brailleBits holds the dot for each micro pixel, indexed [row][column].
var brailleBits = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func newBrailleBuf(w, h int) *brailleBuf {
	m := make([][]uint8, h)
	for i := range m {
		m[i] = make([]uint8, w)
	}
	return &brailleBuf{w: w, h: h, m: m}
}

func (b *brailleBuf) setPixel(mx, my int) {
	if mx < 0 || my < 0 {
		return
	}
	cx, cy := mx/2, my/4
	if cy >= b.h || cx >= b.w {
		return
	}
	b.m[cy][cx] |= brailleBits[my%4][mx%2]
}

// drawLineMicro draws a line on the microgrid using Bresenham. The line is
// clipped to the canvas first, so a zoomed in edge costs no more than the
// canvas is wide.
func (b *brailleBuf) drawLineMicro(x0, y0, x1, y1 int) {
	x0, y0, x1, y1, ok := clipLine(x0, y0, x1, y1, b.w*2-1, b.h*4-1)
	if !ok {
		return
	}
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		b.setPixel(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// clipLine clips a segment to [0, xMax]x[0, yMax] (Liang-Barsky). ok is
// false when nothing of it is left.
func clipLine(x0, y0, x1, y1, xMax, yMax int) (int, int, int, int, bool) {
	if xMax < 0 || yMax < 0 {
		return 0, 0, 0, 0, false
	}
	fx, fy := float64(x0), float64(y0)
	dx, dy := float64(x1)-fx, float64(y1)-fy
	t0, t1 := 0.0, 1.0
	for _, e := range [4][2]float64{
		{-dx, fx},
		{dx, float64(xMax) - fx},
		{-dy, fy},
		{dy, float64(yMax) - fy},
	} {
		p, q := e[0], e[1]
		if p == 0 {
			if q < 0 {
				return 0, 0, 0, 0, false
			}
			continue
		}
		r := q / p
		if p < 0 {
			if r > t1 {
				return 0, 0, 0, 0, false
			}
			t0 = max(t0, r)
		} else {
			if r < t0 {
				return 0, 0, 0, 0, false
			}
			t1 = min(t1, r)
		}
	}
	at := func(t float64) (int, int) {
		x := min(max(int(math.Round(fx+t*dx)), 0), xMax)
		y := min(max(int(math.Round(fy+t*dy)), 0), yMax)
		return x, y
	}
	ax, ay := at(t0)
	bx, by := at(t1)
	return ax, ay, bx, by, true
}

func (b *brailleBuf) toLines() []string {
	out := make([]string, b.h)
	for y := 0; y < b.h; y++ {
		row := make([]rune, b.w)
		for x, mask := range b.m[y] {
			row[x] = ' '
			if mask != 0 {
				row[x] = rune(0x2800 + int(mask))
			}
		}
		out[y] = string(row)
	}
	return out
}
