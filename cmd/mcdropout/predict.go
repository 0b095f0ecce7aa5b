package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fumitoshi0524/mcdropout/internal/logger"
	"github.com/fumitoshi0524/mcdropout/mc"
	"github.com/fumitoshi0524/mcdropout/nn"
	"github.com/fumitoshi0524/mcdropout/tensor"
)

func predictCmd() *cli.Command {
	var (
		archPath    string
		weightsPath string
		inputPath   string
		outputPath  string
		samples     int
	)

	return &cli.Command{
		Name:  "predict",
		Usage: "Sample a model with always-on dropout and report mean and spread",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "arch",
				Aliases:     []string{"a"},
				Usage:       "architecture file (.json, .yaml)",
				Required:    true,
				Destination: &archPath,
			},
			&cli.StringFlag{
				Name:        "weights",
				Aliases:     []string{"w"},
				Usage:       "weights file written by SaveModule",
				Destination: &weightsPath,
			},
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "tensor file of model inputs",
				Required:    true,
				Destination: &inputPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output tensor file (default: stdout)",
				Destination: &outputPath,
			},
			&cli.IntFlag{
				Name:        "samples",
				Aliases:     []string{"n"},
				Usage:       "forward passes per input",
				Value:       mc.DefaultSamples,
				Destination: &samples,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyPredictConfig(cmd, fileConfig, &samples)

			model, err := loadModel(archPath, weightsPath)
			if err != nil {
				return err
			}
			inputs, err := tensor.LoadTensors(inputPath)
			if err != nil {
				return err
			}
			outputs, err := predictAll(ctx, model, inputs, mc.Options{Samples: samples, Logger: log})
			if err != nil {
				return err
			}
			log.Info("prediction finished", "model", model.Name(), "inputs", len(inputs), "samples", samples)
			return writeTensors(outputPath, os.Stdout, outputs)
		},
	}
}

// loadModel builds a model from its architecture file, loads weights when a
// path is given and switches it to inference mode.
func loadModel(archPath, weightsPath string) (*nn.Sequential, error) {
	model, err := nn.LoadArchitecture(archPath)
	if err != nil {
		return nil, err
	}
	if weightsPath != "" {
		if err := nn.LoadModule(weightsPath, model); err != nil {
			return nil, fmt.Errorf("load weights: %w", err)
		}
	}
	nn.SetTraining(model, false)
	return model, nil
}

// predictAll writes <name>.mean and <name>.stddev for every input tensor.
func predictAll(ctx context.Context, model nn.Module, inputs map[string]*tensor.Tensor, opts mc.Options) (map[string]*tensor.Tensor, error) {
	outputs := make(map[string]*tensor.Tensor, 2*len(inputs))
	for _, name := range tensor.SortedNames(inputs) {
		est, err := mc.Predict(ctx, model, inputs[name], opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		outputs[name+".mean"] = est.Mean
		outputs[name+".stddev"] = est.StdDev
	}
	return outputs, nil
}
