package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dwetterau/photo-manager"
)

const barThrottle = 50 * time.Millisecond

// scanOptions holds CLI flags for the scan command.
type scanOptions struct {
	noProgress bool
	verbose    bool
}

// newScanCmd creates the scan subcommand.
func newScanCmd() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan [directories...]",
		Short: "Scan directories for related files and exact duplicates",
		Long: `Walks the given directories, groups RAW/preview/sidecar files that share a
stem, and identifies byte-for-byte duplicates using staged content hashing.

Results are printed as a summary; photomanager does not move, rename, or
delete anything.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runScan(args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noProgress, "no-progress", false, "Disable progress output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log skipped files and cache errors")

	return cmd
}

// runScan runs one scan via the public facade, rendering a progress bar
// that switches phases as ScanProgress events arrive.
func runScan(directories []string, opts *scanOptions) error {
	logger, err := newLogger(opts.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	scanner, err := photomanager.Open(logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer func() { _ = scanner.Close() }()

	var bar *phaseBar
	sink := func(ev photomanager.ScanProgress) {
		if opts.noProgress {
			return
		}
		if bar == nil {
			bar = newPhaseBar()
		}
		bar.update(ev)
	}

	records, err := scanner.Scan(context.Background(), directories, sink)
	if bar != nil {
		bar.close()
	}
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	printSummary(records)
	return nil
}

// newLogger builds the logger the core reports swallowed per-file and cache
// errors through. Non-verbose runs only surface warnings (a failed cache
// open, for example); --verbose also shows every skipped file.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

// phaseBar renders a single progressbar.ProgressBar that is recreated
// whenever ScanProgress reports a new phase, since phase boundaries reset
// both the label and the total.
type phaseBar struct {
	bar   *progressbar.ProgressBar
	phase string
}

func newPhaseBar() *phaseBar {
	return &phaseBar{}
}

func (b *phaseBar) update(ev photomanager.ScanProgress) {
	if b.bar == nil || ev.Phase != b.phase {
		if b.bar != nil {
			_ = b.bar.Finish()
		}
		b.phase = ev.Phase
		total := int64(ev.Total)
		if total == 0 {
			total = -1
		}
		b.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionThrottle(barThrottle),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetDescription(ev.Phase),
		)
	}
	_ = b.bar.Set64(int64(ev.Current))
	if ev.Message != "" {
		b.bar.Describe(ev.Phase + ": " + ev.Message)
	}
}

func (b *phaseBar) close() {
	if b.bar != nil {
		_ = b.bar.Finish()
	}
}

// printSummary writes a one-line-per-duplicate summary plus a total count.
func printSummary(records []photomanager.PhotoRecord) {
	var dupes, totalBytes int
	for _, r := range records {
		totalBytes += int(r.Size)
		if !r.IsDuplicate {
			continue
		}
		dupes++
		fmt.Printf("duplicate: %s (of %s)\n", r.Path, r.DuplicateOf)
	}
	fmt.Printf("\n%d files scanned, %d duplicates found, %s total\n",
		len(records), dupes, humanize.Bytes(uint64(totalBytes)))
}
