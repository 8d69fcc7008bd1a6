package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"squeeze/internal/metadata"
	"squeeze/internal/selection"
	"squeeze/internal/tui"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>...",
	Short: "Report privacy metadata without modifying files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		closer, err := setupLogger(file, false)
		if err != nil {
			return err
		}
		defer closer.Close()

		store := selection.NewStore()
		for _, arg := range args {
			if _, err := store.Add(arg); err != nil {
				return err
			}
		}

		leaks := 0
		for i, d := range store.Descriptors() {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			fmt.Fprintf(os.Stdout, "%s\n", inspectFileStyle.Render(d.SourcePath))

			f, err := os.Open(d.SourcePath)
			if err != nil {
				logger.Error().Err(err).Str("file", d.SourcePath).Msg("open failed")
				fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render("-"), inspectErrorStyle.Render(err.Error()))
				continue
			}
			report, err := metadata.Inspect(f)
			_ = f.Close()
			if err != nil {
				logger.Warn().Err(err).Str("file", d.SourcePath).Msg("metadata unreadable")
				fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render("-"), inspectErrorStyle.Render(err.Error()))
				continue
			}
			leaks += report.Leaks()
			printReport(report)
		}

		fmt.Fprintf(os.Stdout, "\n%s\n", inspectDimStyle.Render(
			fmt.Sprintf("%d files, %d sensitive values", store.Len(), leaks)))
		return nil
	},
}

func printReport(report metadata.Report) {
	if len(report.Details) == 0 && !report.HasXMP && !report.HasIPTC {
		fmt.Fprintf(os.Stdout, "  %s %s\n",
			inspectBulletStyle.Render("-"),
			inspectDimStyle.Render("none"),
		)
		return
	}
	for _, detail := range report.Details {
		if len(detail.Values) == 0 {
			continue
		}
		fmt.Fprintf(os.Stdout, "  %s\n", inspectCategoryStyle.Render(detail.Category+":"))
		for _, value := range detail.Values {
			fmt.Fprintf(os.Stdout, "    %s %s\n", inspectBulletStyle.Render("-"), inspectValueStyle.Render(value))
		}
	}
	if report.HasXMP {
		fmt.Fprintf(os.Stdout, "  %s\n", inspectCategoryStyle.Render("XMP packet present"))
	}
	if report.HasIPTC {
		fmt.Fprintf(os.Stdout, "  %s\n", inspectCategoryStyle.Render("IPTC block present"))
	}
	for _, insight := range report.Insights {
		fmt.Fprintf(os.Stdout, "  %s %s\n", inspectBulletStyle.Render(">"), inspectValueStyle.Render(insight))
	}
}

var (
	inspectFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.Heading)
	inspectCategoryStyle = lipgloss.NewStyle().Foreground(tui.Subhead)
	inspectValueStyle    = lipgloss.NewStyle().Foreground(tui.Text)
	inspectDimStyle      = lipgloss.NewStyle().Foreground(tui.Muted)
	inspectBulletStyle   = lipgloss.NewStyle().Foreground(tui.Muted)
	inspectErrorStyle    = lipgloss.NewStyle().Foreground(tui.Failed)
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}
