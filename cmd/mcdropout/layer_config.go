package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/fumitoshi0524/mcdropout/nn"
)

func configCmd() *cli.Command {
	var format string

	return &cli.Command{
		Name:  "config",
		Usage: "Print the exported configuration of an always-on dropout layer",
		Flags: append(layerFlags(),
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (json, yaml)",
				Value:       "json",
				Destination: &format,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := nn.ParseFormat(format)
			if err != nil {
				return err
			}
			layer, err := buildLayer(cmd, fileConfig)
			if err != nil {
				return err
			}
			spec, err := nn.SerializeLayer(layer)
			if err != nil {
				return err
			}
			return nn.Encode(cmd.Root().Writer, f, spec)
		},
	}
}
