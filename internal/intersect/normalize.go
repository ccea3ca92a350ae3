package intersect

import (
	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geos"
	"go.uber.org/zap"

	"mapsect/internal/crs"
	"mapsect/internal/envelope"
	"mapsect/internal/geometry"
)

// normalXRange returns the x extent of the whole world in c. It is only
// known for cylindrical systems centred on Greenwich, where x grows without
// wrapping past the antimeridian.
func normalXRange(c crs.CRS) (lo, hi float64, ok bool) {
	p, ok := crs.MapProjection(c)
	if !ok || p.CentralMeridian != 0 {
		return 0, 0, false
	}
	if p.Family != crs.FamilyGeographic && p.Family != crs.FamilyCylindrical {
		return 0, 0, false
	}
	t := crs.FromLatLon(c)
	low, err := t.Transform(r2.Point{X: -180, Y: 0})
	if err != nil {
		return 0, 0, false
	}
	high, err := t.Transform(r2.Point{X: 180, Y: 0})
	if err != nil {
		return 0, 0, false
	}
	return low.X, high.X, true
}

// NormalizeEnvelope folds an envelope that runs past the edge of its CRS's
// normal range back into it. A straddling envelope becomes two; one wider
// than the world becomes the whole range.
func NormalizeEnvelope(env envelope.Envelope) []envelope.Envelope {
	lo, hi, ok := normalXRange(env.CRS)
	if !ok {
		return []envelope.Envelope{env}
	}
	extraLow, extraHigh := env.MinX < lo, env.MaxX > hi
	if !extraLow && !extraHigh {
		return []envelope.Envelope{env}
	}
	width := hi - lo
	if env.Width() >= width {
		env.MinX, env.MaxX = lo, hi
		return []envelope.Envelope{env}
	}
	extra, rest := env, env
	if extraLow {
		extra.MinX, extra.MaxX = env.MinX+width, hi
		rest.MinX = lo
	} else {
		extra.MinX, extra.MaxX = lo, env.MaxX-width
		rest.MaxX = hi
	}
	return []envelope.Envelope{extra, rest}
}

// overflow copies border into the parts of the target envelope that lie past
// the normal range of the target CRS, where the same ground is reachable a
// second time.
func overflow(border *geos.Geom, tgt envelope.Envelope) *geos.Geom {
	lo, hi, ok := normalXRange(tgt.CRS)
	if !ok || border.IsEmpty() || (tgt.MaxX <= hi && tgt.MinX >= lo) {
		return border
	}
	frame := geometry.Rectangle(tgt.Rect())
	width := hi - lo
	var parts []*geos.Geom
	for _, shift := range []struct {
		needed bool
		dx     float64
	}{{tgt.MaxX > hi, width}, {tgt.MinX < lo, -width}} {
		if !shift.needed {
			continue
		}
		moved, err := geometry.Shift(border, shift.dx)
		if err == nil {
			moved, err = geometry.Intersection(moved, frame)
		}
		if err != nil {
			logger.Debug("overflow copy failed", zap.Float64("dx", shift.dx), zap.Error(err))
			return border
		}
		parts = append(parts, moved)
	}
	clipped, err := geometry.Intersection(border, frame)
	if err != nil {
		logger.Debug("overflow clip failed", zap.Error(err))
		return border
	}
	// copies meet the clipped original along the range edge
	return union(append(parts, clipped))
}
