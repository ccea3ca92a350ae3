// Package intersect computes the part of a target envelope that a source
// envelope in another coordinate system covers, as a polygon in target
// coordinates.
//
// The border tracer follows the image of the source outline and is tried
// first. Whenever it cannot produce a trustworthy answer the request falls
// back to the grid intersector, which always succeeds.
package intersect

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
)

// Path names the strategy that produced a result.
type Path string

const (
	PathEmpty    Path = "empty"
	PathIdentity Path = "identity"
	PathBorder   Path = "border"
	PathGrid     Path = "grid"
	PathSplit    Path = "split"
)

// Result is an intersection together with how it was computed.
type Result struct {
	Geom *geos.Geom
	Path Path
	// Reason is why the border tracer gave up, set on the grid path.
	Reason string
}

// Envelopes intersects with the default effort.
func Envelopes(src, tgt envelope.Envelope) (*geos.Geom, error) {
	return WithEffort(src, tgt, DefaultEffort)
}

// WithEffort intersects with divisions and threshold derived from effort,
// roughly the number of source points the tracer may sample.
func WithEffort(src, tgt envelope.Envelope, effort int) (*geos.Geom, error) {
	return Intersect(src, tgt, OptionsFromEffort(src, tgt, effort))
}

// Intersect returns a Polygon or MultiPolygon in the target CRS. The only
// error is a missing transform between the two systems.
func Intersect(src, tgt envelope.Envelope, opts Options) (*geos.Geom, error) {
	r, err := Explain(src, tgt, opts)
	if err != nil {
		return nil, err
	}
	return r.Geom, nil
}

// Explain is Intersect reporting the path taken.
func Explain(src, tgt envelope.Envelope, opts Options) (*Result, error) {
	r, err := explain(src, tgt, opts.withDefaults())
	if err != nil {
		return nil, err
	}
	pathCount.WithLabelValues(string(r.Path)).Inc()
	return r, nil
}

func explain(src, tgt envelope.Envelope, opts Options) (*Result, error) {
	if src.IsEmpty() || tgt.IsEmpty() {
		return &Result{Geom: geometry.EmptyPolygon(), Path: PathEmpty}, nil
	}
	toTarget, err := crs.Find(src.CRS, tgt.CRS)
	if err != nil {
		return nil, errors.Wrap(err, "intersect")
	}
	if toTarget.IsIdentity() {
		return &Result{Geom: identity(src.WithCRS(tgt.CRS), tgt), Path: PathIdentity}, nil
	}

	parts := NormalizeEnvelope(src)
	if len(parts) > 1 {
		half := opts
		half.MaxHorDivisions = max(opts.MaxHorDivisions/2, 1)
		geoms := make([]*geos.Geom, 0, len(parts))
		for _, part := range parts {
			r, err := explain(part, tgt, half)
			if err != nil {
				return nil, err
			}
			geoms = append(geoms, r.Geom)
		}
		return &Result{Geom: union(geoms), Path: PathSplit}, nil
	}
	src = parts[0]

	r := &Result{Path: PathBorder}
	if opts.ForceGrid {
		r.Path, r.Reason = PathGrid, "forced"
	} else if r.Geom, err = newTracer(src, tgt, toTarget, opts).trace(); err != nil {
		r.Reason = fallbackReason(err)
		if r.Reason == "" {
			return nil, err
		}
		r.Path = PathGrid
	}
	if r.Path == PathGrid {
		fallbackCount.WithLabelValues(r.Reason).Inc()
		logger.Debug("falling back to grid",
			zap.String("reason", r.Reason),
			zap.Stringer("source", src),
			zap.Stringer("target", tgt),
			zap.Error(err))
		if r.Geom, err = BruteForce(src, tgt, opts.MaxHorDivisions, opts.MaxVertDivisions); err != nil {
			return nil, err
		}
	}
	r.Geom = geometry.ToPolygonal(overflow(r.Geom, tgt))
	return r, nil
}

// union merges areas that may overlap or share edges, such as the two
// halves of a split envelope, into one valid polygonal geometry. If GEOS
// cannot buffer them they are only collected.
func union(geoms []*geos.Geom) *geos.Geom {
	all := geometry.Collection(geoms)
	merged, err := geometry.Buffer0(all)
	if err != nil {
		logger.Debug("union failed", zap.Int("parts", len(geoms)), zap.Error(err))
		return geometry.ToPolygonal(all)
	}
	return geometry.ToPolygonal(merged)
}

// identity intersects two envelopes in the same CRS directly. The ring runs
// up the min X side first.
func identity(src, tgt envelope.Envelope) *geos.Geom {
	in, ok := src.Intersection(tgt)
	if !ok {
		return geometry.EmptyPolygon()
	}
	g, err := geometry.Polygon([]r2.Point{
		{X: in.MinX, Y: in.MinY},
		{X: in.MinX, Y: in.MaxY},
		{X: in.MaxX, Y: in.MaxY},
		{X: in.MaxX, Y: in.MinY},
	})
	if err != nil {
		return geometry.EmptyPolygon()
	}
	return g
}
