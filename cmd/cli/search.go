package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/SoundAlike/pkg/logger"
	"github.com/himanishpuri/SoundAlike/pkg/soundalike"
)

type searchOptions struct {
	roots      []string
	extensions []string
	top        int
	jsonOutput bool
	quiet      bool
}

type searchReport struct {
	Reference string             `json:"reference"`
	Total     int                `json:"total"`
	Skipped   int                `json:"skipped"`
	Matches   []soundalike.Match `json:"matches"`
}

func newSearchCmd() *cobra.Command {
	opts := &searchOptions{}
	cmd := &cobra.Command{
		Use:   "search <reference>",
		Short: "Rank library files by similarity to a reference clip",
		Long: `Fingerprint the reference clip, then walk every library root and rank the
audio files it contains by MFCC distance, closest first. Press Ctrl-C to stop
a running search.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.roots, "root", "r", nil, "Library root to scan (repeatable, default: configured roots)")
	cmd.Flags().StringArrayVarP(&opts.extensions, "ext", "e", nil, "Library file extension (repeatable, default: configured extensions)")
	cmd.Flags().IntVarP(&opts.top, "top", "n", 10, "Number of matches to show, 0 for all")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print results as JSON")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Hide the progress bar")
	return cmd
}

func runSearch(cmd *cobra.Command, reference string, opts *searchOptions) error {
	log := logger.GetLogger()

	settings, err := loadSettings()
	if err != nil {
		return err
	}
	if len(opts.extensions) > 0 {
		settings.Extensions = opts.extensions
	}
	roots := opts.roots
	if len(roots) == 0 {
		roots = settings.LibraryRoots
	}
	if len(roots) == 0 {
		return errors.New("no library roots: pass --root or run 'soundalike config add-root <dir>'")
	}

	ext := strings.ToLower(filepath.Ext(reference))
	if !slices.Contains(settings.ReferenceExtensions, ext) {
		return fmt.Errorf("reference must be one of %s, got %q", strings.Join(settings.ReferenceExtensions, " "), ext)
	}

	svc, err := createService(settings)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	status := cmd.ErrOrStderr()
	fmt.Fprintf(status, "🔍 Fingerprinting %s...\n", reference)
	job, err := svc.StartSearch(context.Background(), reference, roots)
	if err != nil {
		return err
	}
	log.Infof("Search %s started over %d roots", job.ID(), len(roots))

	var bar *progressbar.ProgressBar
	newBar := func(total int) *progressbar.ProgressBar {
		return progressbar.NewOptions(total,
			progressbar.OptionSetWriter(status),
			progressbar.OptionSetDescription("Scanning library"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowIts(),
			progressbar.OptionThrottle(time.Duration(settings.RefreshRateMs)*time.Millisecond),
			progressbar.OptionSetVisibility(!opts.quiet && !opts.jsonOutput),
		)
	}

	var last soundalike.Event
	events := job.Events()
	for done := false; !done; {
		select {
		case <-ctx.Done():
			fmt.Fprintln(status, "\n⏹  Stopping search...")
			job.Cancel()
			ctx = context.Background()
		case ev, ok := <-events:
			if !ok {
				done = true
				break
			}
			switch ev.Type {
			case soundalike.EventProgress:
				if bar == nil {
					bar = newBar(ev.Total)
				}
				bar.Set(ev.Processed)
			case soundalike.EventFileError:
				log.Debugf("Skipped %s: %s", ev.Path, ev.Error)
			default:
				last = ev
			}
		}
	}
	if bar != nil {
		bar.Finish()
		fmt.Fprintln(status)
	}

	st := job.Status()
	switch last.Type {
	case soundalike.EventCanceled:
		return fmt.Errorf("search canceled after %d of %d files", st.Processed, st.Total)
	case soundalike.EventFailed:
		return fmt.Errorf("search failed: %s", last.Error)
	}

	matches := st.Matches
	if opts.top > 0 && len(matches) > opts.top {
		matches = matches[:opts.top]
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(searchReport{
			Reference: reference,
			Total:     st.Total,
			Skipped:   len(st.Skipped),
			Matches:   matches,
		})
	}

	printMatches(cmd, st, matches)
	return nil
}

func printMatches(cmd *cobra.Command, st soundalike.JobStatus, matches []soundalike.Match) {
	out := cmd.OutOrStdout()
	if st.Total == 0 {
		fmt.Fprintln(out, "📭 No audio files found in the library")
		return
	}

	fmt.Fprintf(out, "✅ Ranked %s files", humanize.Comma(int64(len(st.Matches))))
	if n := len(st.Skipped); n > 0 {
		fmt.Fprintf(out, " (%s skipped)", humanize.Comma(int64(n)))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out)

	for i, m := range matches {
		size := ""
		if info, err := os.Stat(m.Path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		fmt.Fprintf(out, "%3d. %-40s distance %10.2f  %8s\n", i+1, m.Name, m.Distance, size)
		fmt.Fprintf(out, "     %s\n", m.Path)
	}

	if rest := len(st.Matches) - len(matches); rest > 0 {
		fmt.Fprintf(out, "\n... and %s more (use --top 0 to list all)\n", humanize.Comma(int64(rest)))
	}
}
