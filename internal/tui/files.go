package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	list "github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"mapsect/internal/config"
	"mapsect/internal/scene"
)

type fileItem struct {
	title, desc string
	path        string
}

func (f fileItem) Title() string       { return f.title }
func (f fileItem) Description() string { return f.desc }
func (f fileItem) FilterValue() string { return f.title }

func isRequestFile(ext string) bool { return ext == ".yaml" || ext == ".yml" }

func (m *Model) refreshDir() {
	entries, err := os.ReadDir(m.cwd)
	if err != nil {
		m.status = "read dir error: " + err.Error()
		return
	}
	var items []list.Item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(name))
		if isRequestFile(ext) || slices.Contains(scene.Extensions, ext) {
			items = append(items, fileItem{title: name, desc: ext, path: filepath.Join(m.cwd, name)})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].(fileItem).Title() < items[j].(fileItem).Title() })
	m.items = items
	m.l.SetItems(items)
	if len(items) == 0 {
		m.status = "no supported files in current directory"
	}
}

// loadPath opens a request file (YAML) or a lon/lat overlay. A request file
// holding a batch uses its first request.
func (m *Model) loadPath(p string) tea.Cmd {
	m.selPath = p
	ext := strings.ToLower(filepath.Ext(p))
	if isRequestFile(ext) {
		req, err := loadRequest(p)
		if err != nil {
			m.status = "load error: " + err.Error()
			return nil
		}
		return m.rerun(req)
	}
	d, err := scene.Load(p)
	if err != nil {
		m.status = "load error: " + err.Error()
		return nil
	}
	m.overlay = d
	m.reprojectOverlay()
	if !m.hasReq {
		m.fitView()
	}
	m.showOverlay = true
	m.status = "overlay: " + filepath.Base(p) +
		fmt.Sprintf("  counts: pts=%d ls=%d poly=%d", len(d.Points), len(d.Lines), len(d.Polygons))
	if m.hasReq {
		m.status += fmt.Sprintf("  shown=%d vertices", m.projected.Vertices())
	}
	return nil
}

func loadRequest(p string) (config.Request, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return config.Request{}, err
	}
	req, err := config.ParseRequest(string(b))
	if err == nil {
		return req, nil
	}
	reqs, berr := config.LoadBatch(p)
	if berr != nil {
		return config.Request{}, err
	}
	return reqs[0], nil
}
