package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fumitoshi0524/mcdropout/internal/logger"
	"github.com/fumitoshi0524/mcdropout/nn"
)

var (
	configFile string
	logLevel   string
	logFormat  string
	debug      bool

	rate       float64
	noiseShape string
	seed       int64
	layerName  string

	// fileConfig is loaded once by setup before any command runs.
	fileConfig Config
)

func rootFlags() []cli.Flag {
	return append(loggingFlags(),
		&cli.StringFlag{
			Name:        "config",
			Usage:       "path to config.yaml (default: $XDG_CONFIG_HOME/mcdropout/config.yaml)",
			Destination: &configFile,
		},
	)
}

func loggingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "log level (debug, info, warn, error)",
			Value:       "info",
			Destination: &logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "log format (text, json)",
			Value:       "text",
			Destination: &logFormat,
		},
		&cli.BoolFlag{
			Name:        "debug",
			Usage:       "enable debug logging (shorthand for --log-level=debug)",
			Destination: &debug,
		},
	}
}

func layerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{
			Name:        "rate",
			Aliases:     []string{"r"},
			Usage:       "fraction of units to drop, clamped to [0, 1]",
			Value:       0.5,
			Destination: &rate,
		},
		&cli.StringFlag{
			Name:        "noise-shape",
			Usage:       "mask shape, comma separated; ? or _ takes the input's size (e.g. 1,?,8)",
			Destination: &noiseShape,
		},
		&cli.Int64Flag{
			Name:        "seed",
			Usage:       "fixed seed; every call then draws the same mask",
			Destination: &seed,
		},
		&cli.StringFlag{
			Name:        "name",
			Usage:       "layer name",
			Destination: &layerName,
		},
	}
}

// setup loads the config file and stores the logger in the command context.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := configFile
	if path == "" {
		path = configPath()
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return ctx, err
	}
	fileConfig = cfg
	applyLoggingConfig(cmd, cfg, &logLevel, &logFormat)

	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}
	log := logger.ForFormat(os.Stderr, logFormat, level)
	return logger.WithContext(ctx, log), nil
}

// buildLayer turns the layer flags, falling back to the config file, into an
// AlwaysOnDropout.
func buildLayer(cmd flagSetter, cfg Config) (*nn.AlwaysOnDropout, error) {
	hasSeed := applyLayerConfig(cmd, cfg, &rate, &seed)
	shape, err := nn.ParseNoiseShape(noiseShape)
	if err != nil {
		return nil, err
	}
	var opts []nn.Option
	if shape != nil {
		opts = append(opts, nn.WithNoiseShape(shape))
	}
	if hasSeed {
		opts = append(opts, nn.WithSeed(seed))
	}
	if layerName != "" {
		opts = append(opts, nn.WithName(layerName))
	}
	return nn.NewAlwaysOnDropout(rate, opts...), nil
}
