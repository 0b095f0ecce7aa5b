package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/fumitoshi0524/mcdropout/internal/api"
	"github.com/fumitoshi0524/mcdropout/internal/logger"
	"github.com/fumitoshi0524/mcdropout/mc"
	"github.com/fumitoshi0524/mcdropout/nn"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		archPath    string
		weightsPath string
		samples     int
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the dropout and prediction REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8080",
				Destination: &addr,
			},
			&cli.StringFlag{
				Name:        "arch",
				Usage:       "architecture file for /v1/predict",
				Destination: &archPath,
			},
			&cli.StringFlag{
				Name:        "weights",
				Usage:       "weights file for the model",
				Destination: &weightsPath,
			},
			&cli.IntFlag{
				Name:        "samples",
				Usage:       "default forward passes per prediction",
				Value:       mc.DefaultSamples,
				Destination: &samples,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			applyServeConfig(cmd, fileConfig, &addr, &samples)

			var model *nn.Sequential
			if archPath != "" {
				m, err := loadModel(archPath, weightsPath)
				if err != nil {
					return err
				}
				model = m
				log.Info("model loaded", "name", model.Name(), "layers", len(model.Modules()))
			}
			server, err := api.NewServer(api.Config{
				Model:   model,
				Samples: samples,
				Logger:  log,
			})
			if err != nil {
				return err
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}
