package tui

import (
	"fmt"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"

	"mapsect/internal/config"
	"mapsect/internal/geometry"
	"mapsect/internal/intersect"
)

const (
	sidebarWidth = 28
	headerHeight = 1
	footerHeight = 2
	minEffort    = 10
	maxEffort    = 1 << 20
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.showSidebar {
			m.l.SetSize(sidebarWidth-2, m.height-1-2) // provisional; will be refined in View
		}
	case resultMsg:
		m.applyResult(msg)
		return m, nil
	case tea.KeyMsg:
		// If list is visible and filtering, send keys to list and ignore global commands
		if m.showSidebar && m.l.FilterState() == list.Filtering {
			var cmd tea.Cmd
			m.l, cmd = m.l.Update(msg)
			return m, cmd
		}
		if m.pasteMode {
			return m.updatePaste(msg)
		}
		if cmd := m.handleKey(msg.String()); cmd != nil {
			return m, cmd
		}
	case tea.MouseMsg:
		m.updateHover(msg.X, msg.Y)
	}
	// Pass messages to list when visible
	if m.showSidebar {
		var cmd tea.Cmd
		m.l, cmd = m.l.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updatePaste(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pasteMode = false
		m.ta.Blur()
		return m, nil
	case "ctrl+s":
		text := strings.TrimSpace(m.ta.Value())
		if text == "" {
			m.status = "paste: empty"
			return m, nil
		}
		req, err := config.ParseRequest(text)
		if err != nil {
			m.status = "request error: " + errors.Cause(err).Error()
			return m, nil
		}
		m.pasteMode = false
		m.ta.Blur()
		m.selPath = ""
		return m, m.rerun(req)
	}
	var cmd tea.Cmd
	m.ta, cmd = m.ta.Update(msg)
	return m, cmd
}

// handleKey applies a global key binding. The key still reaches the file
// list unless a command is returned.
func (m *Model) handleKey(key string) tea.Cmd {
	switch key {
	case "ctrl+c", "q":
		return tea.Quit
	case "1":
		m.showResult = !m.showResult
		m.status = fmt.Sprintf("result: %v", m.showResult)
	case "2":
		m.showOutlines = !m.showOutlines
		m.status = fmt.Sprintf("outlines: %v", m.showOutlines)
	case "3":
		m.showOverlay = !m.showOverlay
		m.status = fmt.Sprintf("overlay: %v", m.showOverlay)
	case "+", "=":
		if m.zoom < 64 {
			m.zoom *= 1.2
			m.status = fmt.Sprintf("zoom: %.2fx", m.zoom)
		}
	case "-", "_":
		if m.zoom > 0.05 {
			m.zoom /= 1.2
			m.status = fmt.Sprintf("zoom: %.2fx", m.zoom)
		}
	case "0":
		m.fitView()
	case "tab":
		m.showSidebar = !m.showSidebar
		if m.showSidebar {
			m.refreshDir()
			m.l.SetSize(sidebarWidth-2, m.height-1-2)
		}
	case "p":
		m.pasteMode = true
		m.ta.SetValue("")
		m.status = "paste mode"
		m.ta.Focus()
	case "h":
		m.helpVisible = !m.helpVisible
	case "a":
		m.showAttrs = !m.showAttrs
		if m.showAttrs {
			m.refreshAttrsFromCurrent()
		}
	case "i":
		m.inspect()
	case "esc":
		m.inspectPopup = ""
	case "l":
		// toggle all layers
		all := m.showResult && m.showOutlines && m.showOverlay
		m.showResult = !all
		m.showOutlines = !all
		m.showOverlay = !all
		m.status = fmt.Sprintf("layers: result=%v outlines=%v overlay=%v", m.showResult, m.showOutlines, m.showOverlay)
	case "e", "E", "g", "r":
		if !m.hasReq {
			m.status = "no request: open a YAML file or press p"
			return nil
		}
		req := m.req
		effort := req.Effort
		if effort <= 0 {
			effort = intersect.DefaultEffort
		}
		switch key {
		case "e":
			req.Effort = min(maxEffort, effort*2)
		case "E":
			req.Effort = max(minEffort, effort/2)
		case "g":
			req.Grid = !req.Grid
		}
		return m.rerun(req)
	case "enter":
		if m.showSidebar {
			if it, ok := m.l.SelectedItem().(fileItem); ok {
				return m.loadPath(it.path)
			}
		}
	case "up":
		m.offsetY -= 1
	case "down":
		m.offsetY += 1
	case "left":
		m.offsetX -= 2
	case "right":
		m.offsetX += 2
	}
	return nil
}

// inspect builds the popup describing the request and how it was answered.
func (m *Model) inspect() {
	if !m.hasReq {
		m.inspectPopup = "no request loaded"
		m.status = m.inspectPopup
		return
	}
	meta := []string{
		fmt.Sprintf("request: %s", describe(m.req)),
		fmt.Sprintf("source: %s", m.src),
		fmt.Sprintf("target: %s", m.tgt),
	}
	if m.selPath != "" {
		meta = append(meta, fmt.Sprintf("file: %s", m.selPath))
	}
	opts := m.req.Options(m.src, m.tgt)
	meta = append(meta, fmt.Sprintf("divisions: %dx%d  threshold: %.4g", opts.MaxHorDivisions, opts.MaxVertDivisions, opts.Threshold))
	switch {
	case m.running:
		meta = append(meta, "running...")
	case m.res != nil:
		meta = append(meta,
			fmt.Sprintf("path: %s", m.res.Path),
			fmt.Sprintf("polygons: %d  vertices: %d", len(m.result.Polygons), m.result.Vertices()),
			fmt.Sprintf("area: %.6g", m.res.Geom.Area()),
		)
		if m.res.Reason != "" {
			meta = append(meta, fmt.Sprintf("fallback: %s", m.res.Reason))
		}
		if !m.res.Geom.IsEmpty() {
			b := geometry.Bounds(m.res.Geom)
			meta = append(meta, fmt.Sprintf("bounds: [%.6g, %.6g, %.6g, %.6g]", b.X.Lo, b.Y.Lo, b.X.Hi, b.Y.Hi))
		}
	}
	m.inspectPopup = strings.Join(meta, "\n")
	m.status = "inspect popup (esc closes)"
}

// mapArea returns the origin and size of the map canvas; it must match View.
func (m Model) mapArea() (x, y, w, h int) {
	sw := 0
	if m.showSidebar {
		sw = sidebarWidth + 1
	}
	contentHeight := max(4, m.height-headerHeight-footerHeight)
	contentWidth := max(10, m.width)
	return sw, headerHeight, max(10, contentWidth-sw), contentHeight
}

func (m *Model) updateHover(cx, cy int) {
	ox, oy, w, h := m.mapArea()
	if m.showSidebar {
		m.l.SetSize(sidebarWidth-2, h-2)
	}
	if cx < ox || cx >= ox+w || cy < oy || cy >= oy+h {
		m.hovering = false
		return
	}
	m.hovering = true
	m.hoverCellX = cx - ox
	m.hoverCellY = cy - oy
	m.hoverHasGeo, m.hoverHasLL = false, false
	if x, y, ok := m.cellToXY(m.hoverCellX, m.hoverCellY, w, h); ok {
		m.hoverHasGeo = true
		m.hoverX, m.hoverY = x, y
		m.hoverLon, m.hoverLat, m.hoverHasLL = m.hoverLonLat(x, y)
	}
	bx, by, ok := m.nearestVertex(m.hoverCellX*2, m.hoverCellY*4, w, h)
	m.hovering = ok
	m.hoverMicX, m.hoverMicY = bx, by
}
