package intersect

import (
	"math"

	"mapsect/internal/envelope"
)

const (
	// DefaultEffort is used when the caller gives no subdivision settings.
	DefaultEffort = 1000

	// DefaultRemovalBudget scales how much source area the border tracer may
	// drop when repairing a missing edge or corner: the budget is
	// area * RemovalBudget / (MaxHorDivisions + MaxVertDivisions).
	DefaultRemovalBudget = 3.0
)

// Options bound the work and accuracy of an intersection.
type Options struct {
	// Threshold is the largest deviation, in target units, at which an edge
	// segment is accepted as straight.
	Threshold float64
	// MaxHorDivisions and MaxVertDivisions cap edge subdivision and size the
	// fallback grid.
	MaxHorDivisions  int
	MaxVertDivisions int
	RemovalBudget    float64
	// ForceGrid skips the border tracer.
	ForceGrid bool
}

// OptionsFromEffort spreads effort over the two axes in proportion to the
// source aspect ratio and derives the threshold from the target size.
func OptionsFromEffort(src, tgt envelope.Envelope, effort int) Options {
	if effort < 1 {
		effort = 1
	}
	aspect := src.Width() / src.Height()
	hor := 1
	if h := math.Sqrt(float64(effort) * aspect); !math.IsNaN(h) && !math.IsInf(h, 0) && h >= 1 {
		hor = min(int(h), effort)
	}
	return Options{
		Threshold:        (tgt.Width() + tgt.Height()) / (2 * float64(effort)),
		MaxHorDivisions:  hor,
		MaxVertDivisions: max(effort/hor, 1),
		RemovalBudget:    DefaultRemovalBudget,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxHorDivisions < 1 {
		o.MaxHorDivisions = 1
	}
	if o.MaxVertDivisions < 1 {
		o.MaxVertDivisions = 1
	}
	if o.RemovalBudget <= 0 {
		o.RemovalBudget = DefaultRemovalBudget
	}
	return o
}
