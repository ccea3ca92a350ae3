package intersect

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var logger = zap.NewNop()

// SetLogger replaces the package logger. Passing nil restores the no-op logger.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

var (
	pathCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsect",
		Name:      "intersections_total",
		Help:      "Envelope intersections by the path that produced the result.",
	}, []string{"path"})

	fallbackCount = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapsect",
		Name:      "fallbacks_total",
		Help:      "Border tracer fallbacks to the grid intersector by reason.",
	}, []string{"reason"})
)

// Register adds the package metrics to r.
func Register(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{pathCount, fallbackCount} {
		if err := r.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
