package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/fumitoshi0524/mcdropout/internal/logger"
	"github.com/fumitoshi0524/mcdropout/nn"
	"github.com/fumitoshi0524/mcdropout/tensor"
)

func applyCmd() *cli.Command {
	var (
		inputPath  string
		outputPath string
		training   bool
	)

	return &cli.Command{
		Name:  "apply",
		Usage: "Apply an always-on dropout layer to every tensor in a file",
		Flags: append(layerFlags(),
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "tensor file (JSON name -> {shape, data})",
				Required:    true,
				Destination: &inputPath,
			},
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output tensor file (default: stdout)",
				Destination: &outputPath,
			},
			&cli.BoolFlag{
				Name:        "training",
				Usage:       "forward in training mode (has no effect on always-on dropout)",
				Destination: &training,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			layer, err := buildLayer(cmd, fileConfig)
			if err != nil {
				return err
			}
			inputs, err := tensor.LoadTensors(inputPath)
			if err != nil {
				return err
			}
			outputs, err := applyLayer(layer, inputs, training)
			if err != nil {
				return err
			}
			log.Info("dropout applied", "layer", layer.String(), "tensors", len(outputs))
			return writeTensors(outputPath, os.Stdout, outputs)
		},
	}
}

func applyLayer(layer *nn.AlwaysOnDropout, inputs map[string]*tensor.Tensor, training bool) (map[string]*tensor.Tensor, error) {
	outputs := make(map[string]*tensor.Tensor, len(inputs))
	for _, name := range tensor.SortedNames(inputs) {
		out, err := layer.ForwardMode(inputs[name], training)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		outputs[name] = out
	}
	return outputs, nil
}

// writeTensors saves to path, or encodes to w when path is empty.
func writeTensors(path string, w io.Writer, tensors map[string]*tensor.Tensor) error {
	if path == "" {
		return tensor.EncodeTensors(w, tensors)
	}
	return tensor.SaveTensors(path, tensors)
}
