package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"squeeze/internal/dimension"
	"squeeze/internal/media"
	"squeeze/internal/metadata"
)

// EnvPrefix is prepended to every environment override, e.g. SQUEEZE_QUALITY.
const EnvPrefix = "SQUEEZE"

// File mirrors squeeze.yaml.
type File struct {
	Format              string              `mapstructure:"format"`
	Quality             int                 `mapstructure:"quality"`
	Dimension           DimensionFile       `mapstructure:"dimension"`
	Location            string              `mapstructure:"location"`
	OutputFolder        string              `mapstructure:"output_folder"`
	KeepFolderStructure bool                `mapstructure:"keep_folder_structure"`
	Naming              NamingFile          `mapstructure:"naming"`
	Metadata            string              `mapstructure:"metadata"`
	Watermark           WatermarkFile       `mapstructure:"watermark"`
	CacheDir            string              `mapstructure:"cache_dir"`
	Optimizers          map[string][]string `mapstructure:"optimizers"`
	Workers             int                 `mapstructure:"workers"`
	Log                 LogFile             `mapstructure:"log"`
}

type DimensionFile struct {
	Strategy    string          `mapstructure:"strategy"`
	Percentage  float64         `mapstructure:"percentage"`
	PrimaryEdge int             `mapstructure:"primary_edge"`
	Frame       dimension.Frame `mapstructure:"frame"`
}

type NamingFile struct {
	Prefix      string `mapstructure:"prefix"`
	Suffix      string `mapstructure:"suffix"`
	ReplaceFrom string `mapstructure:"replace_from"`
	ReplaceTo   string `mapstructure:"replace_to"`
}

type WatermarkFile struct {
	Enabled  bool    `mapstructure:"enabled"`
	Image    string  `mapstructure:"image"`
	Opacity  float64 `mapstructure:"opacity"`
	Position string  `mapstructure:"position"`
	Scale    float64 `mapstructure:"scale"`
}

type LogFile struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Loader reads configuration from file, environment and bound flags, in
// increasing order of precedence.
type Loader struct {
	viper *viper.Viper
}

// NewLoader returns a loader searching ./squeeze.yaml and the user config dir.
func NewLoader() *Loader {
	v := viper.New()
	v.SetConfigName("squeeze")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "squeeze"))
	}

	v.SetDefault("format", "keep")
	v.SetDefault("quality", 80)
	v.SetDefault("dimension.strategy", "keep")
	v.SetDefault("dimension.percentage", 100)
	v.SetDefault("dimension.primary_edge", 0)
	v.SetDefault("dimension.frame.long_edge", 0)
	v.SetDefault("dimension.frame.short_edge", 0)
	v.SetDefault("dimension.frame.margin", 0)
	v.SetDefault("location", "compressed-folder")
	v.SetDefault("output_folder", "")
	v.SetDefault("keep_folder_structure", true)
	v.SetDefault("naming.prefix", "")
	v.SetDefault("naming.suffix", "_compressed")
	v.SetDefault("naming.replace_from", "")
	v.SetDefault("naming.replace_to", "")
	v.SetDefault("metadata", "none")
	v.SetDefault("watermark.enabled", false)
	v.SetDefault("watermark.image", "")
	v.SetDefault("watermark.opacity", 1.0)
	v.SetDefault("watermark.position", "bottom-right")
	v.SetDefault("watermark.scale", 0.2)
	v.SetDefault("cache_dir", "")
	v.SetDefault("optimizers", map[string][]string{})
	v.SetDefault("workers", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{viper: v}
}

// SetConfigFile pins an explicit config path instead of searching.
func (l *Loader) SetConfigFile(path string) {
	if path != "" {
		l.viper.SetConfigFile(path)
	}
}

// BindFlag ties a config key to a command-line flag.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for config key %q", key)
	}
	return l.viper.BindPFlag(key, flag)
}

// Load reads the config file if one exists and decodes the merged view.
func (l *Loader) Load() (*File, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var f File
	if err := l.viper.Unmarshal(&f); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &f, nil
}

// ConfigFileUsed is empty when no config file was found.
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}

// Output validates f and converts it to a run snapshot.
func (f *File) Output() (Output, error) {
	var errs []error

	format, err := media.ParseFormat(f.Format)
	errs = append(errs, err)
	strategy, err := dimension.ParseStrategy(f.Dimension.Strategy)
	errs = append(errs, err)
	location, err := ParseLocation(f.Location)
	errs = append(errs, err)
	mode, err := metadata.ParseCopyMode(f.Metadata)
	errs = append(errs, err)
	position, err := ParsePosition(f.Watermark.Position)
	errs = append(errs, err)

	if f.Quality < 0 || f.Quality > 100 {
		errs = append(errs, fmt.Errorf("quality must be between 0 and 100, got %d", f.Quality))
	}
	if strategy == dimension.Percentage && f.Dimension.Percentage <= 0 {
		errs = append(errs, errors.New("dimension.percentage must be positive"))
	}
	if f.Watermark.Enabled && f.Watermark.Image == "" {
		errs = append(errs, errors.New("watermark.image is required when the watermark is enabled"))
	}
	if f.Workers < 0 {
		errs = append(errs, errors.New("workers cannot be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return Output{}, err
	}

	cacheDir := f.CacheDir
	if cacheDir == "" {
		cacheDir = DefaultCacheDir()
	}

	out := Output{
		Format:  format,
		Quality: f.Quality,
		Dimension: Dimension{
			Strategy: strategy,
			Params: dimension.Params{
				Percentage:  f.Dimension.Percentage,
				PrimaryEdge: f.Dimension.PrimaryEdge,
				Frame:       f.Dimension.Frame,
			},
		},
		Location:            location,
		OutputFolder:        f.OutputFolder,
		KeepFolderStructure: f.KeepFolderStructure,
		Naming: Naming{
			Prefix:      f.Naming.Prefix,
			Suffix:      f.Naming.Suffix,
			ReplaceFrom: f.Naming.ReplaceFrom,
			ReplaceTo:   f.Naming.ReplaceTo,
		},
		Metadata: mode,
		Watermark: Watermark{
			Enabled:   f.Watermark.Enabled,
			ImagePath: f.Watermark.Image,
			Opacity:   f.Watermark.Opacity,
			Position:  position,
			Scale:     f.Watermark.Scale,
		},
		CacheDir:   cacheDir,
		Optimizers: f.Optimizers,
		Workers:    f.Workers,
	}
	return out.Normalize(), nil
}

// DefaultCacheDir is the user cache dir, or the system temp dir when the
// platform has none.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "squeeze")
	}
	return filepath.Join(os.TempDir(), "squeeze")
}
