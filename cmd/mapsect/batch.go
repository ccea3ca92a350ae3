package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mapsect/internal/config"
	"mapsect/internal/geometry"
	"mapsect/internal/intersect"
)

type batchOptions struct {
	jobs    int
	metrics bool
	keepGo  bool
}

func batchCmd() *cobra.Command {
	var opt batchOptions
	cmd := &cobra.Command{
		Use:   "batch <requests.yaml>",
		Short: "Run every request of a YAML batch file",
		Long: "Requests run concurrently and are printed in file order. With --format geojson\n" +
			"the output is one FeatureCollection whose properties carry name, path and reason.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(cmd.Flags())
			if err != nil {
				return err
			}
			if err := setupLogging(v.GetString("log-level")); err != nil {
				return err
			}
			reqs, err := config.LoadBatch(args[0])
			if err != nil {
				return err
			}
			var reg *prometheus.Registry
			if opt.metrics {
				reg = prometheus.NewRegistry()
				if err := intersect.Register(reg); err != nil {
					return errors.Wrap(err, "registering metrics")
				}
			}
			results, err := runBatch(cmd.Context(), reqs, opt)
			if err != nil {
				return err
			}
			if err := writeBatch(cmd.OutOrStdout(), reqs, results, v.GetString("format")); err != nil {
				return err
			}
			if reg != nil {
				return writeMetrics(cmd.ErrOrStderr(), reg)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opt.jobs, "jobs", "j", runtime.NumCPU(), "Requests computed at once.")
	cmd.Flags().BoolVar(&opt.metrics, "metrics", false, "Print path and fallback counters on stderr when done.")
	cmd.Flags().BoolVar(&opt.keepGo, "keep-going", false, "Report failed requests instead of stopping at the first.")
	return cmd
}

type batchResult struct {
	res *intersect.Result
	err error
}

// runBatch computes every request, at most opt.jobs at a time. Results keep
// the order of reqs.
func runBatch(ctx context.Context, reqs []config.Request, opt batchOptions) ([]batchResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	out := make([]batchResult, len(reqs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opt.jobs))
	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, tgt, err := req.Envelopes()
			if err == nil {
				out[i].res, err = intersect.Explain(src, tgt, req.Options(src, tgt))
			}
			if err != nil {
				zap.L().Named("batch").Warn("request failed", zap.String("name", req.Name), zap.Error(err))
				out[i].err = errors.Wrapf(err, "request %s", req.Name)
				if !opt.keepGo {
					return out[i].err
				}
			}
			return nil
		})
	}
	return out, g.Wait()
}

func writeBatch(w io.Writer, reqs []config.Request, results []batchResult, format string) error {
	switch format {
	case "", "wkt":
		for i, r := range results {
			if r.err != nil {
				fmt.Fprintf(w, "# %s error=%q\n", reqs[i].Name, r.err.Error())
				continue
			}
			wkt, err := geometry.Encode(r.res.Geom, "wkt")
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "# %s path=%s", reqs[i].Name, r.res.Path)
			if r.res.Reason != "" {
				fmt.Fprintf(w, " reason=%q", r.res.Reason)
			}
			fmt.Fprintf(w, "\n%s\n", wkt)
		}
		return nil
	case "geojson", "json":
		fc := geojson.FeatureCollection{}
		for i, r := range results {
			props := map[string]any{"name": reqs[i].Name}
			f := &geojson.Feature{Geometry: geom.NewMultiPolygon(geom.XY), Properties: props}
			if r.err != nil {
				props["error"] = r.err.Error()
			} else {
				mp, err := geometry.ToGeom(r.res.Geom)
				if err != nil {
					return err
				}
				f.Geometry = mp
				props["path"] = string(r.res.Path)
				if r.res.Reason != "" {
					props["reason"] = r.res.Reason
				}
			}
			fc.Features = append(fc.Features, f)
		}
		b, err := json.Marshal(&fc)
		if err != nil {
			return errors.Wrap(err, "encoding geojson")
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	return errors.Errorf("unknown output format %q", format)
}

// writeMetrics prints the counters gathered from reg, one line per series.
func writeMetrics(w io.Writer, reg prometheus.Gatherer) error {
	mfs, err := reg.Gather()
	if err != nil {
		return errors.Wrap(err, "gathering metrics")
	}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "%s%s %g\n", mf.GetName(), labels(m.GetLabel()), value(mf.GetType(), m))
		}
	}
	return nil
}

func labels(ls []*dto.LabelPair) string {
	if len(ls) == 0 {
		return ""
	}
	parts := make([]string, 0, len(ls))
	for _, l := range ls {
		parts = append(parts, fmt.Sprintf("%s=%q", l.GetName(), l.GetValue()))
	}
	sort.Strings(parts)
	return "{" + strings.Join(parts, ",") + "}"
}

func value(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	}
	return m.GetUntyped().GetValue()
}
