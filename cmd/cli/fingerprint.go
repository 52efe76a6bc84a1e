package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"

	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
)

type fingerprintReport struct {
	Path         string    `json:"path"`
	Coefficients int       `json:"coefficients"`
	Frames       int       `json:"frames"`
	Values       []float32 `json:"values,omitempty"`
}

func newFingerprintCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "fingerprint <file>",
		Short: "Compute (or load from cache) the fingerprint of one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			svc, err := createService(settings)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			fp, err := svc.Fingerprint(context.Background(), args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				return enc.Encode(fingerprintReport{
					Path:         args[0],
					Coefficients: fp.Coeffs,
					Frames:       fp.Frames,
					Values:       fp.Data,
				})
			}
			printFingerprint(cmd, args[0], fp)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the full matrix as JSON")
	return cmd
}

func printFingerprint(cmd *cobra.Command, path string, fp soundalike.Fingerprint) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "🎵 %s\n", path)
	fmt.Fprintf(out, "   Shape: %d coefficients x %d frames\n\n", fp.Coeffs, fp.Frames)
	fmt.Fprintf(out, "   %-5s %10s %10s %10s\n", "coef", "min", "mean", "max")

	row := make([]float64, fp.Frames)
	for c := 0; c < fp.Coeffs; c++ {
		for t := range row {
			row[t] = float64(fp.At(c, t))
		}
		fmt.Fprintf(out, "   %-5d %10.2f %10.2f %10.2f\n",
			c, floats.Min(row), floats.Sum(row)/float64(len(row)), floats.Max(row))
	}
}

func newCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a> <b>",
		Short: "Print the fingerprint distance between two files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			svc, err := createService(settings)
			if err != nil {
				return fmt.Errorf("failed to create service: %w", err)
			}
			defer svc.Close()

			d, err := svc.Compare(context.Background(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%.4f\n", d)
			return nil
		},
	}
}
