package tui

import (
	"os"

	list "github.com/charmbracelet/bubbles/list"
	table "github.com/charmbracelet/bubbles/table"
	textarea "github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"mapsect/internal/config"
	"mapsect/internal/envelope"
	"mapsect/internal/intersect"
	"mapsect/internal/scene"
)

// traceSamples is the number of points per side used to draw the source
// envelope in target coordinates.
const traceSamples = 64

type Model struct {
	width  int
	height int

	showSidebar bool
	helpVisible bool

	zoom    float64
	offsetX int
	offsetY int

	status string

	// File explorer
	cwd     string
	l       list.Model
	items   []list.Item
	selPath string

	// Request and its envelopes
	req     config.Request
	hasReq  bool
	src     envelope.Envelope
	tgt     envelope.Envelope
	seq     int
	running bool

	// Result of the last run
	res    *intersect.Result
	result scene.Data
	frame  [][2]float64   // target envelope outline
	trace  [][][2]float64 // source envelope mapped into the target

	// lon/lat overlay and its projection into the target
	overlay   scene.Data
	projected scene.Data

	// view box in target coordinates
	bbox scene.BBox

	// last rendered map size (for inspect)
	mapW int
	mapH int

	// paste mode
	pasteMode bool
	ta        textarea.Model

	// layer visibility
	showResult   bool
	showOutlines bool
	showOverlay  bool

	// inspect popup
	inspectPopup string

	// hover state
	hovering    bool
	hoverCellX  int
	hoverCellY  int
	hoverMicX   int
	hoverMicY   int
	hoverHasGeo bool
	hoverX      float64
	hoverY      float64
	hoverHasLL  bool
	hoverLon    float64
	hoverLat    float64

	// result polygon table
	showAttrs bool
	tbl       table.Model
}

func New() Model {
	m := Model{
		showSidebar:  false,
		helpVisible:  true,
		zoom:         1.0,
		status:       "mapsect ready",
		showResult:   true,
		showOutlines: true,
		showOverlay:  true,
		bbox:         scene.EmptyBBox(),
	}
	m.cwd, _ = os.Getwd()
	// list setup
	d := list.NewDefaultDelegate()
	d.ShowDescription = false
	m.l = list.New(nil, d, 0, 0)
	m.l.Title = "Files"
	m.l.SetShowHelp(false)
	m.l.SetShowStatusBar(false)
	m.l.SetFilteringEnabled(true)
	// textarea setup
	m.ta = textarea.New()
	m.ta.Placeholder = "Paste a YAML request (source/target crs and bounds). Ctrl+S to run; Esc to cancel."
	m.ta.CharLimit = 0
	m.ta.SetWidth(50)
	m.ta.SetHeight(6)
	m.tbl = table.New(table.WithFocused(true))
	m.tbl.SetHeight(12)
	m.refreshDir()
	return m
}

// NewWithRequest starts with req already set; Init runs it.
func NewWithRequest(req config.Request) Model {
	m := New()
	m.setRequest(req)
	return m
}

// NewWithPath preloads a request or overlay file at launch.
func NewWithPath(path string) Model {
	m := New()
	m.loadPath(path)
	return m
}

func (m Model) Init() tea.Cmd {
	if m.hasReq && m.res == nil {
		return m.compute()
	}
	return nil
}
