// Package config resolves the settings shared by the carprice tools.
//
// Values are layered: built-in defaults, then a dotenv file and the process
// environment (CARPRICE_* variables, the environment wins), then command-line
// flags.
package config

import (
	"flag"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/YuminosukeSato/carprice/chart"
	"github.com/YuminosukeSato/carprice/dataset"
	"github.com/YuminosukeSato/carprice/linear"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
	"github.com/YuminosukeSato/carprice/store"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CARPRICE_"

// DefaultEnvFile is read when present.
const DefaultEnvFile = ".env"

// Config holds the tool settings.
type Config struct {
	DataPath      string
	MileageColumn string
	PriceColumn   string
	ThetaPath     string
	TracePath     string

	LearningRate float64
	MaxIter      int
	LossTol      float64
	GradTol      float64

	LogLevel string
	PlotDir  string
	Frames   int
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		DataPath:      "data.csv",
		MileageColumn: dataset.DefaultMileageColumn,
		PriceColumn:   dataset.DefaultPriceColumn,
		ThetaPath:     store.DefaultThetaPath,
		TracePath:     store.DefaultTracePath,
		LearningRate:  linear.DefaultLearningRate,
		MaxIter:       linear.DefaultMaxIter,
		LossTol:       linear.DefaultLossTol,
		GradTol:       linear.DefaultGradTol,
		LogLevel:      "info",
		PlotDir:       ".",
		Frames:        chart.DefaultFrames,
	}
}

// Load builds the configuration for a tool: defaults, then envFile (ignored
// when it does not exist; empty means DefaultEnvFile) and the process
// environment, then the flags in args parsed with fs. The result is
// validated.
func Load(fs *flag.FlagSet, args []string, envFile string) (Config, error) {
	cfg := Default()

	if envFile == "" {
		envFile = DefaultEnvFile
	}
	fileEnv, err := godotenv.Read(envFile)
	if err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrapf(err, "read %s", envFile)
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileEnv[key]
		return v, ok
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return Config{}, err
	}

	cfg.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CARPRICE_* variables found by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *float64) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+name, "must be a number", v)
		}
		*dst = f
		return nil
	}
	integer := func(name string, dst *int) error {
		v, ok := lookup(EnvPrefix + name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.NewValidationError(EnvPrefix+name, "must be an integer", v)
		}
		*dst = n
		return nil
	}

	str("DATA", &c.DataPath)
	str("MILEAGE_COLUMN", &c.MileageColumn)
	str("PRICE_COLUMN", &c.PriceColumn)
	str("THETA_PATH", &c.ThetaPath)
	str("TRACE_PATH", &c.TracePath)
	str("LOG_LEVEL", &c.LogLevel)
	str("PLOT_DIR", &c.PlotDir)

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"LEARNING_RATE", &c.LearningRate},
		{"LOSS_TOL", &c.LossTol},
		{"GRAD_TOL", &c.GradTol},
	} {
		if err := num(f.name, f.dst); err != nil {
			return err
		}
	}
	if err := integer("MAX_ITER", &c.MaxIter); err != nil {
		return err
	}
	return integer("FRAMES", &c.Frames)
}

// RegisterFlags defines one flag per field on fs, defaulting to the current
// values.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.DataPath, "data", c.DataPath, "sample CSV file")
	fs.StringVar(&c.MileageColumn, "mileage-column", c.MileageColumn, "mileage column name")
	fs.StringVar(&c.PriceColumn, "price-column", c.PriceColumn, "price column name")
	fs.StringVar(&c.ThetaPath, "thetas", c.ThetaPath, "coefficient artifact")
	fs.StringVar(&c.TracePath, "history", c.TracePath, "training trace artifact (.zst for compressed)")
	fs.Float64Var(&c.LearningRate, "learning-rate", c.LearningRate, "gradient descent step size")
	fs.IntVar(&c.MaxIter, "max-iter", c.MaxIter, "iteration cap")
	fs.Float64Var(&c.LossTol, "loss-tol", c.LossTol, "loss-delta convergence threshold (0 disables)")
	fs.Float64Var(&c.GradTol, "grad-tol", c.GradTol, "gradient convergence threshold (0 disables)")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "debug, info, warn or error")
	fs.StringVar(&c.PlotDir, "plot-dir", c.PlotDir, "directory for rendered charts")
	fs.IntVar(&c.Frames, "frames", c.Frames, "iterations drawn in the evolution chart")
}

// Validate checks every field.
func (c Config) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"data", c.DataPath},
		{"mileage-column", c.MileageColumn},
		{"price-column", c.PriceColumn},
		{"thetas", c.ThetaPath},
		{"history", c.TracePath},
		{"plot-dir", c.PlotDir},
	} {
		if f.value == "" {
			return errors.NewValidationError(f.name, "must not be empty", f.value)
		}
	}
	if c.MileageColumn == c.PriceColumn {
		return errors.NewValidationError("price-column", "must differ from mileage-column", c.PriceColumn)
	}
	if !errors.IsFinite(c.LearningRate) || c.LearningRate <= 0 {
		return errors.NewValidationError("learning-rate", "must be a positive finite number", c.LearningRate)
	}
	if c.MaxIter < 1 {
		return errors.NewValidationError("max-iter", "must be at least 1", c.MaxIter)
	}
	if !errors.IsFinite(c.LossTol) || c.LossTol < 0 {
		return errors.NewValidationError("loss-tol", "must be a non-negative finite number", c.LossTol)
	}
	if !errors.IsFinite(c.GradTol) || c.GradTol < 0 {
		return errors.NewValidationError("grad-tol", "must be a non-negative finite number", c.GradTol)
	}
	if c.Frames < 1 {
		return errors.NewValidationError("frames", "must be at least 1", c.Frames)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the parsed log level. Call Validate first.
func (c Config) Level() log.Level {
	level, _ := log.ParseLevel(c.LogLevel)
	return level
}

// RegressorOptions returns the gradient descent options for these settings.
func (c Config) RegressorOptions() []linear.Option {
	return []linear.Option{
		linear.WithLearningRate(c.LearningRate),
		linear.WithMaxIter(c.MaxIter),
		linear.WithLossTol(c.LossTol),
		linear.WithGradTol(c.GradTol),
	}
}

// Loader returns a CSV loader for the configured columns.
func (c Config) Loader() *dataset.Loader {
	return dataset.NewLoader(dataset.WithColumns(c.MileageColumn, c.PriceColumn))
}

// Store returns the artifact store for the configured paths.
func (c Config) Store() *store.FileStore {
	return store.New(c.ThetaPath, c.TracePath)
}
