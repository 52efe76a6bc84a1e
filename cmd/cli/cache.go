package main

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the fingerprint cache",
	}

	var jsonOutput bool
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Show cache location, size and entry count",
		Args:  cobra.NoArgs,
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

			st, err := svc.CacheStats()
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(st)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "💾 Backend: %s\n", st.Backend)
			fmt.Fprintf(out, "   Path:    %s\n", st.Path)
			fmt.Fprintf(out, "   Size:    %s\n", humanize.Bytes(diskUsage(st.Path)))
			fmt.Fprintf(out, "   Entries: %s\n", humanize.Comma(st.Entries))
			return nil
		},
	}
	stats.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")

	cmd.AddCommand(stats)
	return cmd
}

// diskUsage sums file sizes under path, which may be a file or a directory.
func diskUsage(path string) uint64 {
	var total uint64
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += uint64(info.Size())
		}
		return nil
	})
	return total
}
