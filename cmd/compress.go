package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"squeeze/internal/processor"
	"squeeze/internal/report"
	"squeeze/internal/selection"
	"squeeze/internal/settings"
	"squeeze/internal/tui"
)

var (
	compressNoTUI    bool
	compressPreview  bool
	compressExcludes []string
)

var compressBindings = map[string]string{
	"format":                     "format",
	"quality":                    "quality",
	"dimension.strategy":         "resize",
	"dimension.percentage":       "percentage",
	"dimension.primary_edge":     "edge",
	"dimension.frame.long_edge":  "frame-long",
	"dimension.frame.short_edge": "frame-short",
	"dimension.frame.margin":     "frame-margin",
	"location":                   "location",
	"output_folder":              "output",
	"keep_folder_structure":      "keep-structure",
	"naming.prefix":              "prefix",
	"naming.suffix":              "suffix",
	"naming.replace_from":        "replace-from",
	"naming.replace_to":          "replace-to",
	"metadata":                   "metadata",
	"watermark.image":            "watermark",
	"watermark.opacity":          "watermark-opacity",
	"watermark.position":         "watermark-position",
	"watermark.scale":            "watermark-scale",
	"cache_dir":                  "cache-dir",
	"workers":                    "workers",
}

var compressCmd = &cobra.Command{
	Use:   "compress [flags] <path>...",
	Short: "Compress images and folders of images",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := loadConfig(cmd, compressBindings)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("watermark") {
			file.Watermark.Enabled = file.Watermark.Image != ""
		}
		out, err := file.Output()
		if err != nil {
			return err
		}

		closer, err := setupLogger(file, !compressNoTUI)
		if err != nil {
			return err
		}
		defer closer.Close()

		var skip []string
		if out.Location == settings.UserSpecificFolder {
			skip = append(skip, out.OutputFolder)
		}
		store := selection.NewStore(skip...)
		for _, arg := range args {
			added, err := store.Add(arg)
			if err != nil {
				return err
			}
			logger.Debug().Str("root", arg).Int("files", added).Msg("selected")
		}
		for _, path := range compressExcludes {
			if !store.Exclude(path, true) {
				logger.Warn().Str("path", path).Msg("exclude matched no selected file")
			}
		}
		if store.Len() == 0 {
			return fmt.Errorf("no supported images found")
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		collector := report.New()
		opts := processor.OrchestratorOptions{Collector: collector, Logger: logger}

		var updates chan processor.ProgressUpdate
		if !compressNoTUI {
			updates = make(chan processor.ProgressUpdate, 64)
			opts.Updates = updates
		}
		orchestrator := processor.NewOrchestrator(opts)

		uiDone := make(chan struct{})
		if updates != nil {
			program := tea.NewProgram(tui.NewModel(updates, orchestrator.Stop))
			go func() {
				_, _ = program.Run()
				close(uiDone)
			}()
		} else {
			close(uiDone)
		}

		results := make(chan processor.Result, 64)
		drained := make(chan struct{})
		go func() {
			defer close(drained)
			for res := range results {
				logResult(res)
			}
		}()

		summary, err := orchestrator.Run(ctx, store.Descriptors(), processor.RunOptions{
			Settings:            out,
			FromMultiSelectRoot: store.MultiRoot(),
			ForPreview:          compressPreview,
		}, results)

		close(results)
		<-drained
		if updates != nil {
			close(updates)
		}
		<-uiDone
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stdout, tui.RenderSummary(tui.SummaryRows(summary)))
		if issues := tui.RenderIssues(collector.Errors(), collector.Warnings()); issues != "" {
			fmt.Fprintln(os.Stdout, issues)
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total)
		}
		return nil
	},
}

func logResult(res processor.Result) {
	event := logger.Info()
	switch {
	case res.Error == processor.Cancelled:
		event = logger.Debug()
	case !res.Succeeded:
		event = logger.Error().Err(res.Err)
	}
	event = event.Str("file", res.Descriptor.SourcePath).Str("result", res.Error.String())
	if res.Succeeded {
		event = event.Str("output", res.OutputPath).
			Int64("original", res.OriginalSize).
			Int64("compressed", res.CompressedSize)
	}
	if len(res.Warnings) > 0 {
		names := make([]string, len(res.Warnings))
		for i, w := range res.Warnings {
			names[i] = w.String()
		}
		event = event.Strs("warnings", names)
	}
	event.Msg("processed")
}

func init() {
	flags := compressCmd.Flags()
	flags.StringP("format", "f", "keep", "output format: keep, jpg, png, tiff, webp, avif, gif")
	flags.IntP("quality", "q", 80, "quality 0-100 for jpg, webp and avif")
	flags.String("resize", "keep", "resize strategy: keep, percentage, long-edge, max-height, max-width, fixed-height, fixed-width, fit-in-frame, fixed-in-frame")
	flags.Float64("percentage", 100, "scale for the percentage strategy")
	flags.Int("edge", 0, "edge length in pixels for edge strategies")
	flags.Float64("frame-long", 0, "print frame long edge in inches")
	flags.Float64("frame-short", 0, "print frame short edge in inches")
	flags.Float64("frame-margin", 0, "print frame margin in inches")
	flags.StringP("location", "l", "compressed-folder", "output location: replace, compressed-folder, folder, suffix")
	flags.StringP("output", "o", "", "output folder for --location folder")
	flags.Bool("keep-structure", true, "keep sub-folders under the output folder")
	flags.String("prefix", "", "file name prefix for --location suffix")
	flags.String("suffix", "_compressed", "file name suffix for --location suffix")
	flags.String("replace-from", "", "replace this text in file names for --location suffix")
	flags.String("replace-to", "", "replacement text for --replace-from")
	flags.StringP("metadata", "m", "none", "metadata to keep: none, all, all-except-sensitive")
	flags.String("watermark", "", "overlay this image on every output")
	flags.Float64("watermark-opacity", 1, "watermark opacity 0-1")
	flags.String("watermark-position", "bottom-right", "watermark position: top-left, top-right, bottom-left, bottom-right, center")
	flags.Float64("watermark-scale", 0.2, "watermark size as a fraction of the short edge")
	flags.String("cache-dir", "", "cache for replace and preview runs")
	flags.IntP("workers", "w", 0, "files processed at once (default half the CPUs)")

	flags.BoolVar(&compressNoTUI, "no-tui", false, "log progress instead of drawing it")
	flags.BoolVar(&compressPreview, "preview", false, "write to the cache only, leaving originals untouched")
	flags.StringSliceVar(&compressExcludes, "exclude", nil, "skip these selected files")

	rootCmd.AddCommand(compressCmd)
}
