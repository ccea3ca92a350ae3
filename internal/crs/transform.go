package crs

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Transform maps points between two coordinate systems.
type Transform interface {
	Transform(p r2.Point) (r2.Point, error)
	// TransformBatch converts interleaved x,y pairs from src into dst. It stops
	// at the first point without an image and returns a *BatchError; pairs
	// before that index are converted, the rest of dst is unspecified.
	TransformBatch(src, dst []float64) error
	Inverse() Transform
	IsIdentity() bool
}

// BatchError reports the first failing point of a batch.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("point %d: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Find returns the transform from one CRS to another.
func Find(from, to CRS) (Transform, error) {
	if from == nil || to == nil {
		return nil, errors.Wrap(ErrNoTransform, "missing coordinate system")
	}
	if Equivalent(from, to) {
		return pipeline{from: from, to: to}, nil
	}
	for _, c := range []CRS{from, to} {
		if _, ok := c.(Engineering); ok {
			return nil, errors.Wrapf(ErrNoTransform, "%s to %s", from.ID(), to.ID())
		}
	}
	return pipeline{from: from, to: to}, nil
}

// ToLatLon returns the transform from c to WGS84.
func ToLatLon(c CRS) Transform { return pipeline{from: c, to: WGS84} }

// FromLatLon returns the transform from WGS84 to c.
func FromLatLon(c CRS) Transform { return pipeline{from: WGS84, to: c} }

// pipeline pivots through WGS84 lon/lat.
type pipeline struct {
	from, to CRS
}

func (t pipeline) IsIdentity() bool { return Equivalent(t.from, t.to) }

func (t pipeline) Inverse() Transform { return pipeline{from: t.to, to: t.from} }

func (t pipeline) Transform(p r2.Point) (r2.Point, error) {
	if t.IsIdentity() {
		if !finite(p.X, p.Y) {
			return r2.Point{}, unrepresentable(p.X, p.Y)
		}
		return p, nil
	}
	lon, lat := p.X, p.Y
	if !Equivalent(t.from, WGS84) {
		var err error
		if lon, lat, err = t.from.ToLatLon(p.X, p.Y); err != nil {
			return r2.Point{}, err
		}
	}
	if Equivalent(t.to, WGS84) {
		if !finite(lon, lat) {
			return r2.Point{}, unrepresentable(p.X, p.Y)
		}
		return r2.Point{X: lon, Y: lat}, nil
	}
	x, y, err := t.to.FromLatLon(lon, lat)
	if err != nil {
		return r2.Point{}, err
	}
	return r2.Point{X: x, Y: y}, nil
}

func (t pipeline) TransformBatch(src, dst []float64) error {
	if len(dst) < len(src) {
		return errors.Errorf("destination holds %d values, need %d", len(dst), len(src))
	}
	for i := 0; i+1 < len(src); i += 2 {
		q, err := t.Transform(r2.Point{X: src[i], Y: src[i+1]})
		if err != nil {
			return &BatchError{Index: i / 2, Err: err}
		}
		dst[i], dst[i+1] = q.X, q.Y
	}
	return nil
}
