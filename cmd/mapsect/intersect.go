package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mapsect/internal/config"
	"mapsect/internal/geometry"
	"mapsect/internal/intersect"
)

func intersectCmd() *cobra.Command {
	var explain bool
	cmd := &cobra.Command{
		Use:   "intersect",
		Short: "Print the part of the target envelope covered by the source envelope",
		Example: "  mapsect intersect --source-crs latlon --source-bounds 170,-10,190,10 \\\n" +
			"    --target-crs merc --target-bounds=-2e7,-2e7,2e7,2e7",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.New(cmd.Flags())
			if err != nil {
				return err
			}
			if err := setupLogging(v.GetString("log-level")); err != nil {
				return err
			}
			req, err := config.Load(v)
			if err != nil {
				return err
			}
			src, tgt, err := req.Envelopes()
			if err != nil {
				return err
			}
			res, err := intersect.Explain(src, tgt, req.Options(src, tgt))
			if err != nil {
				return err
			}
			out, err := geometry.Encode(res.Geom, v.GetString("format"))
			if err != nil {
				return err
			}
			if explain {
				fmt.Fprintf(cmd.ErrOrStderr(), "path=%s reason=%q area=%g\n", res.Path, res.Reason, res.Geom.Area())
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&explain, "explain", false, "Report the path taken on stderr.")
	return cmd
}
