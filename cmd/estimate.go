package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/roof-estimate/internal/estimate"
	"github.com/JakeFAU/roof-estimate/internal/locations"
)

func newEstimateCmd() *cobra.Command {
	var (
		in       estimate.Input
		location string
	)
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Price a roof replacement and print the range as JSON",
		Example: `  roofestimate estimate --sqft 2000 --material architectural-shingle --pitch medium --region northeast
  roofestimate estimate --sqft 1800 --material metal-standing-seam --pitch low --location austin-tx --tear-off`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if location != "" {
				loc, err := locations.Lookup(location)
				if err != nil {
					return err
				}
				in.Region = loc.Region
			}
			calc := estimate.NewCalculator(estimate.Config{
				MinSquareFeet: rt.cfg.Estimate.MinSquareFeet,
				MaxSquareFeet: rt.cfg.Estimate.MaxSquareFeet,
				DefaultRegion: rt.cfg.Estimate.DefaultRegion,
			})
			est, err := calc.Calculate(in)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), est)
		},
	}
	cmd.Flags().Float64Var(&in.SquareFeet, "sqft", 0, "roof area in square feet")
	cmd.Flags().StringVar(&in.Material, "material", "", "material key (see GET /v1/materials)")
	cmd.Flags().StringVar(&in.Pitch, "pitch", "", "pitch key (see GET /v1/pitches)")
	cmd.Flags().StringVar(&in.Region, "region", "", "region key; defaults to estimate.default_region")
	cmd.Flags().StringVar(&location, "location", "", "location slug; sets the region from the city table")
	cmd.Flags().BoolVar(&in.TearOff, "tear-off", false, "include removal of the existing roof")
	_ = cmd.MarkFlagRequired("sqft")
	_ = cmd.MarkFlagRequired("material")
	_ = cmd.MarkFlagRequired("pitch")
	return cmd
}
