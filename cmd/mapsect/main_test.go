package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"mapsect/internal/config"
	"mapsect/internal/crs"
	"mapsect/internal/intersect"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestIntersectCommand(t *testing.T) {
	out, stderr, err := execute(t, "intersect",
		"--source-crs", "latlon", "--source-bounds", "0,0,20,20",
		"--target-crs", "latlon", "--target-bounds", "10,10,30,30",
		"--explain", "--log-level", "error")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "POLYGON"), out)
	require.Contains(t, stderr, "path=identity")

	out, _, err = execute(t, "intersect",
		"--source-crs", "latlon", "--source-bounds", "0,0,20,20",
		"--target-crs", "latlon", "--target-bounds", "10,10,30,30",
		"--format", "geojson", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, `"type":"Polygon"`)

	_, _, err = execute(t, "intersect", "--source-crs", "latlon", "--log-level", "error")
	require.Error(t, err)
}

func writeBatchFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
requests:
  - name: overlap
    source: {crs: latlon, bounds: "0,0,20,20"}
    target: {crs: latlon, bounds: "10,10,30,30"}
  - name: mercator
    source: {crs: latlon, bounds: "0,0,10,10"}
    target: {crs: merc, bounds: "-2e7,-2e7,2e7,2e7"}
    grid: true
  - name: lab
    source: {crs: "local:lab", bounds: "0,0,1,1"}
    target: {crs: latlon, bounds: "0,0,1,1"}
`), 0o644))
	return path
}

func TestRunBatchKeepsOrder(t *testing.T) {
	reqs, err := config.LoadBatch(writeBatchFile(t))
	require.NoError(t, err)

	_, err = runBatch(context.Background(), reqs, batchOptions{jobs: 2})
	require.ErrorIs(t, err, crs.ErrNoTransform)

	results, err := runBatch(context.Background(), reqs, batchOptions{jobs: 2, keepGo: true})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, intersect.PathIdentity, results[0].res.Path)
	require.Equal(t, intersect.PathGrid, results[1].res.Path)
	require.Equal(t, "forced", results[1].res.Reason)
	require.Error(t, results[2].err)

	var buf bytes.Buffer
	require.NoError(t, writeBatch(&buf, reqs, results, "wkt"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Equal(t, "# overlap path=identity", lines[0])
	require.True(t, strings.HasPrefix(lines[2], `# mercator path=grid reason="forced"`))
	require.True(t, strings.HasPrefix(lines[4], "# lab error="))

	buf.Reset()
	require.NoError(t, writeBatch(&buf, reqs, results, "geojson"))
	var fc struct {
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	require.Len(t, fc.Features, 3)
	require.Equal(t, "overlap", fc.Features[0].Properties["name"])
	require.Equal(t, "grid", fc.Features[1].Properties["path"])
	require.Contains(t, fc.Features[2].Properties, "error")

	require.Error(t, writeBatch(&buf, reqs, results, "svg"))
}

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, intersect.Register(reg))
	reqs, err := config.LoadBatch(writeBatchFile(t))
	require.NoError(t, err)
	_, err = runBatch(context.Background(), reqs[:2], batchOptions{jobs: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeMetrics(&buf, reg))
	require.Contains(t, buf.String(), `mapsect_intersections_total{path="identity"}`)
	require.Contains(t, buf.String(), `mapsect_fallbacks_total{reason="forced"}`)
}

func TestBatchCommand(t *testing.T) {
	out, stderr, err := execute(t, "batch", writeBatchFile(t), "--keep-going", "--metrics", "--log-level", "error")
	require.NoError(t, err)
	require.Contains(t, out, "# overlap path=identity")
	require.Contains(t, stderr, "mapsect_intersections_total")

	_, _, err = execute(t, "batch", writeBatchFile(t), "--log-level", "error")
	require.Error(t, err)
}
