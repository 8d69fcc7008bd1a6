package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"squeeze/internal/dimension"
	"squeeze/internal/encode"
)

var planBindings = map[string]string{
	"dimension.strategy":         "resize",
	"dimension.percentage":       "percentage",
	"dimension.primary_edge":     "edge",
	"dimension.frame.long_edge":  "frame-long",
	"dimension.frame.short_edge": "frame-short",
	"dimension.frame.margin":     "frame-margin",
}

var planCmd = &cobra.Command{
	Use:   "plan <WIDTHxHEIGHT|image>...",
	Short: "Show the size each input would be resized to",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := loadConfig(cmd, planBindings)
		if err != nil {
			return err
		}
		out, err := file.Output()
		if err != nil {
			return err
		}

		codec := encode.NewCodec()
		for _, arg := range args {
			width, height, err := sourceSize(codec, arg)
			if err != nil {
				return fmt.Errorf("%s: %w", arg, err)
			}
			h, w := dimension.Plan(out.Dimension.Strategy, out.Dimension.Params, height, width)
			fmt.Fprintf(os.Stdout, "%s  %dx%d -> %dx%d\n", arg, width, height, w, h)
		}
		return nil
	},
}

// sourceSize reads WIDTHxHEIGHT literally, or the header of an image file.
func sourceSize(codec encode.Codec, arg string) (int, int, error) {
	if w, h, ok := parseSize(arg); ok {
		return w, h, nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return 0, 0, err
	}
	w, h, _, err := codec.DecodeConfig(data)
	return w, h, err
}

func parseSize(s string) (int, int, bool) {
	ws, hs, found := strings.Cut(strings.ToLower(s), "x")
	if !found {
		return 0, 0, false
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, false
	}
	return w, h, true
}

func init() {
	flags := planCmd.Flags()
	flags.String("resize", "keep", "resize strategy, as for compress")
	flags.Float64("percentage", 100, "scale for the percentage strategy")
	flags.Int("edge", 0, "edge length in pixels for edge strategies")
	flags.Float64("frame-long", 0, "print frame long edge in inches")
	flags.Float64("frame-short", 0, "print frame short edge in inches")
	flags.Float64("frame-margin", 0, "print frame margin in inches")

	rootCmd.AddCommand(planCmd)
}
