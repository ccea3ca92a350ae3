package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"mapsect/internal/config"
	"mapsect/internal/intersect"
	"mapsect/internal/scene"
)

// resultMsg carries a finished intersection back into Update. seq ties it to
// the request it was computed for.
type resultMsg struct {
	seq int
	res *intersect.Result
	err error
}

// setRequest resolves req and resets the view to its target envelope. The
// previous result is dropped.
func (m *Model) setRequest(req config.Request) error {
	src, tgt, err := req.Envelopes()
	if err != nil {
		return err
	}
	m.req, m.src, m.tgt, m.hasReq = req, src, tgt, true
	m.seq++
	m.res = nil
	m.result = scene.NewData()
	m.frame = scene.Outline(tgt)
	m.trace = scene.Trace(src, tgt.CRS, traceSamples)
	m.reprojectOverlay()
	m.fitView()
	m.status = "request: " + describe(req)
	return nil
}

// compute runs the current request off the update loop.
func (m Model) compute() tea.Cmd {
	req, src, tgt, seq := m.req, m.src, m.tgt, m.seq
	return func() tea.Msg {
		res, err := intersect.Explain(src, tgt, req.Options(src, tgt))
		return resultMsg{seq: seq, res: res, err: err}
	}
}

func (m *Model) applyResult(msg resultMsg) {
	if msg.seq != m.seq {
		// superseded by a newer request
		return
	}
	m.running = false
	if msg.err != nil {
		m.status = "intersection failed: " + msg.err.Error()
		return
	}
	m.res = msg.res
	m.result = scene.FromGeometry(msg.res.Geom)
	m.status = fmt.Sprintf("%s  path=%s  polygons=%d  vertices=%d",
		describe(m.req), msg.res.Path, len(m.result.Polygons), m.result.Vertices())
	if msg.res.Reason != "" {
		m.status += "  (" + msg.res.Reason + ")"
	}
	if m.showAttrs {
		m.refreshAttrsFromCurrent()
	}
}

// rerun sets req and returns the command computing it.
func (m *Model) rerun(req config.Request) tea.Cmd {
	if err := m.setRequest(req); err != nil {
		m.status = "request error: " + errors.Cause(err).Error()
		return nil
	}
	m.running = true
	return m.compute()
}

func (m *Model) reprojectOverlay() {
	if !m.hasReq || m.overlay.IsEmpty() {
		m.projected = m.overlay
		return
	}
	m.projected = scene.Project(m.overlay, m.tgt.CRS)
}

// fitView frames the target envelope, or the overlay when there is no
// request yet.
func (m *Model) fitView() {
	b := scene.EmptyBBox()
	for _, p := range m.frame {
		b.Extend(p)
	}
	if b.IsEmpty() {
		b = m.projected.BBox
	}
	m.bbox = b
	m.zoom = 1.0
	m.offsetX, m.offsetY = 0, 0
}

func describe(r config.Request) string {
	name := r.Name
	if name == "" {
		name = r.Source.CRS + " -> " + r.Target.CRS
	}
	grid := ""
	if r.Grid {
		grid = " grid"
	}
	effort := r.Effort
	if effort <= 0 {
		effort = intersect.DefaultEffort
	}
	return fmt.Sprintf("%s effort=%d%s", name, effort, grid)
}
