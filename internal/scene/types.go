package scene

import "math"

type BBox struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// EmptyBBox contains nothing; extending it with a point gives that point.
func EmptyBBox() BBox {
	return BBox{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
}

func (b BBox) IsEmpty() bool { return !(b.MaxX >= b.MinX && b.MaxY >= b.MinY) }

func (b *BBox) Extend(pt [2]float64) {
	if pt[0] < b.MinX {
		b.MinX = pt[0]
	}
	if pt[1] < b.MinY {
		b.MinY = pt[1]
	}
	if pt[0] > b.MaxX {
		b.MaxX = pt[0]
	}
	if pt[1] > b.MaxY {
		b.MaxY = pt[1]
	}
}

func (b BBox) Union(o BBox) BBox {
	if o.IsEmpty() {
		return b
	}
	b.Extend([2]float64{o.MinX, o.MinY})
	b.Extend([2]float64{o.MaxX, o.MaxY})
	return b
}

// Data is a minimal geometry container for rendering
type Data struct {
	Points   [][2]float64
	Lines    [][][2]float64
	Polygons [][][][2]float64 // polygons with rings (first outer, following holes)
	BBox     BBox
}

func NewData() Data { return Data{BBox: EmptyBBox()} }

func (d Data) IsEmpty() bool {
	return len(d.Points) == 0 && len(d.Lines) == 0 && len(d.Polygons) == 0
}

func (d *Data) AddPoint(pt [2]float64) {
	d.Points = append(d.Points, pt)
	d.BBox.Extend(pt)
}

func (d *Data) AddLine(ls [][2]float64) {
	if len(ls) < 2 {
		return
	}
	d.Lines = append(d.Lines, ls)
	for _, p := range ls {
		d.BBox.Extend(p)
	}
}

func (d *Data) AddPolygon(poly [][][2]float64) {
	if len(poly) == 0 || len(poly[0]) < 3 {
		return
	}
	d.Polygons = append(d.Polygons, poly)
	for _, ring := range poly {
		for _, p := range ring {
			d.BBox.Extend(p)
		}
	}
}

// Vertices counts every stored coordinate.
func (d Data) Vertices() int {
	n := len(d.Points)
	for _, ls := range d.Lines {
		n += len(ls)
	}
	for _, poly := range d.Polygons {
		for _, ring := range poly {
			n += len(ring)
		}
	}
	return n
}
