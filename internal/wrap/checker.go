// Package wrap detects and removes the longitude discontinuity ("world
// wrap") a projection has along its inverse central meridian.
package wrap

import (
	"math"

	"github.com/golang/geo/r2"
	"go.uber.org/zap"

	"mapsect/internal/crs"
)

var logger = zap.NewNop()

// SetLogger replaces the package logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Checker knows where a CRS wraps around the globe. The ideal inverse
// central meridians are CM±180; the actual ones are where the transform
// really flips from one edge of the map to the other, which can be a few
// ulps away.
type Checker struct {
	idealLow, idealHigh   float64
	actualLow, actualHigh float64
	needsChecking         bool
}

// NewChecker probes c. CRSs without projection parameters never wrap.
func NewChecker(c crs.CRS) *Checker {
	params, ok := crs.MapProjection(c)
	if !ok {
		nan := math.NaN()
		return &Checker{idealLow: nan, idealHigh: nan, actualLow: nan, actualHigh: nan}
	}
	cm, lat0 := params.CentralMeridian, params.LatitudeOfOrigin
	w := &Checker{idealLow: cm - 180, idealHigh: cm + 180}
	w.actualLow, w.actualHigh = w.idealLow, w.idealHigh

	fromLatLon := crs.FromLatLon(c)
	probe := []float64{
		cm + 179.9, lat0,
		cm + 179.8, lat0,
		cm - 179.8, lat0,
		cm - 179.9, lat0,
	}
	xy := make([]float64, len(probe))
	if err := fromLatLon.TransformBatch(probe, xy); err != nil {
		logger.Debug("wrap probe failed, disabling wrap checks", zap.String("crs", c.ID()), zap.Error(err))
		return w
	}
	at := func(i int) r2.Point { return r2.Point{X: xy[2*i], Y: xy[2*i+1]} }
	inner := at(1).Sub(at(2)).Norm()
	outer := at(0).Sub(at(3)).Norm()
	w.needsChecking = outer > inner

	if w.needsChecking && cm != 0 {
		low, err := findActual(fromLatLon, w.idealLow, lat0, -0.1, xy[6])
		if err != nil {
			logger.Debug("inverse central meridian search failed", zap.String("crs", c.ID()), zap.Error(err))
			return w
		}
		high, err := findActual(fromLatLon, w.idealHigh, lat0, 0.1, xy[0])
		if err != nil {
			logger.Debug("inverse central meridian search failed", zap.String("crs", c.ID()), zap.Error(err))
			return w
		}
		w.actualLow, w.actualHigh = low, high
	}
	return w
}

// findActual walks a trial longitude around ideal with a halving step,
// keeping the last value whose projected x falls on the same side as sampleX.
func findActual(t crs.Transform, ideal, lat0, step, sampleX float64) (float64, error) {
	sign := signum(sampleX)
	result, test, last := ideal, ideal, math.NaN()
	for test != last {
		last = test
		p, err := t.Transform(r2.Point{X: test, Y: lat0})
		if err != nil {
			return ideal, err
		}
		if signum(p.X) == sign {
			result = test
			test += step
		} else {
			test -= step
		}
		step /= 2
	}
	return result, nil
}

func signum(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return v
}

// Check reports whether the segment between two longitudes crosses the wrap
// line.
func (w *Checker) Check(aLon, bLon float64) bool {
	if !w.needsChecking {
		return false
	}
	return math.Abs(w.ToProjectionRange(aLon)-w.ToProjectionRange(bLon)) > 180
}

// ToProjectionRange shifts lon by whole turns into [actualLow, actualHigh].
// It only ever shifts in one direction, so a range slightly wider than 360
// degrees cannot make it oscillate.
func (w *Checker) ToProjectionRange(lon float64) float64 {
	if math.IsInf(lon, 0) {
		return lon
	}
	if lon < w.actualLow {
		for lon < w.actualLow {
			lon += 360
		}
		return lon
	}
	for lon > w.actualHigh {
		lon -= 360
	}
	return lon
}

// NeedsChecking is false when the target CRS has no wrap line at all.
func (w *Checker) NeedsChecking() bool { return w.needsChecking }

// LowInverseCentralMeridian is the western edge of the ideal range, half a
// turn west of the central meridian.
func (w *Checker) LowInverseCentralMeridian() float64 { return w.idealLow }

// HighInverseCentralMeridian is the eastern edge of the ideal range.
func (w *Checker) HighInverseCentralMeridian() float64 { return w.idealHigh }

// ActualRange is where the transform really wraps.
func (w *Checker) ActualRange() (low, high float64) { return w.actualLow, w.actualHigh }
