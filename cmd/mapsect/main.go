package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mapsect/internal/config"
	"mapsect/internal/intersect"
	"mapsect/internal/tui"
	"mapsect/internal/wrap"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logFile string
	root := &cobra.Command{
		Use:   "mapsect [file]",
		Short: "Intersect envelopes across coordinate systems",
		Long: "Without a subcommand mapsect opens the terminal viewer. The optional file is a\n" +
			"YAML request or a lon/lat overlay (geojson, csv, kml or wkt).",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := config.New(cmd.Flags())
			if err != nil {
				return err
			}
			// the viewer owns the terminal, so logs only go to a file
			if logFile != "" {
				if err := setupLogging(v.GetString("log-level"), logFile); err != nil {
					return err
				}
			}
			var m tea.Model = tui.New()
			switch {
			case len(args) == 1:
				m = tui.NewWithPath(args[0])
			case v.GetString("source.crs") != "":
				req, err := config.Load(v)
				if err != nil {
					return err
				}
				m = tui.NewWithRequest(req)
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion()).Run()
			return err
		},
	}
	config.RegisterFlags(root.PersistentFlags())
	root.Flags().StringVar(&logFile, "log-file", "", "Write viewer logs to this file.")
	root.AddCommand(intersectCmd(), batchCmd())
	return root
}

// setupLogging installs a JSON logger at level for the engine packages.
func setupLogging(level string, paths ...string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return errors.Wrap(err, "log level")
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Sampling = nil
	if len(paths) > 0 {
		cfg.OutputPaths = paths
	} else {
		cfg.OutputPaths = []string{"stderr"}
	}
	l, err := cfg.Build()
	if err != nil {
		return errors.Wrap(err, "building logger")
	}
	zap.ReplaceGlobals(l)
	intersect.SetLogger(l.Named("intersect"))
	wrap.SetLogger(l.Named("wrap"))
	return nil
}
