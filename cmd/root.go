package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"squeeze/internal/logging"
	"squeeze/internal/settings"
)

var (
	configPath string
	logFile    string

	loader = settings.NewLoader()
	logger = logging.Nop()
)

var rootCmd = &cobra.Command{
	Use:           "squeeze",
	Short:         "squeeze - batch image compression",
	Long:          "squeeze resizes, re-encodes and strips metadata from batches of images, writing the results next to, over, or away from the originals.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ./squeeze.yaml or the user config dir)")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", false, "always log JSON")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file")
}

// loadConfig binds the command's flags to their config keys and reads the
// merged configuration.
func loadConfig(cmd *cobra.Command, bindings map[string]string) (*settings.File, error) {
	loader.SetConfigFile(configPath)

	all := map[string]string{"log.level": "log-level", "log.json": "log-json"}
	for key, name := range bindings {
		all[key] = name
	}
	for key, name := range all {
		if err := loader.BindFlag(key, lookupFlag(cmd, name)); err != nil {
			return nil, err
		}
	}

	file, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return file, nil
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.InheritedFlags().Lookup(name)
}

// setupLogger builds the command logger. quiet is set while the progress view
// owns the terminal; logs then go only to --log-file.
func setupLogger(file *settings.File, quiet bool) (io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer = io.NopCloser(nil)

	switch {
	case logFile != "":
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, err
		}
		out, closer = f, f
	case quiet:
		logger = zerolog.Nop()
		return closer, nil
	}

	logger = logging.New(logging.Options{Level: file.Log.Level, JSON: file.Log.JSON, Out: out})
	if used := loader.ConfigFileUsed(); used != "" {
		logger.Debug().Str("config", used).Msg("loaded config")
	}
	return closer, nil
}
