package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/refgen/internal/api"
	"github.com/samcharles93/refgen/internal/logger"
)

const defaultServerAddress = "127.0.0.1:8080"

func serveCmd() *cli.Command {
	s := defaultGenerateSettings()
	var (
		addr        string
		readTimeout time.Duration
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve fixture records over HTTP",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       defaultServerAddress,
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.StringSliceFlag{
				Name:        "scheme",
				Aliases:     []string{"s"},
				Usage:       "schemes used when a request names none (repeatable, default: all built-in)",
				Destination: &s.schemes,
			},
		}, schemeSourceFlags(&s)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := LoadConfig()
			if cfg.ServerAddress != "" && !cmd.IsSet("addr") {
				addr = cfg.ServerAddress
			}
			if len(cfg.Schemes) > 0 && !cmd.IsSet("scheme") {
				s.schemes = cfg.Schemes
			}
			applySourceConfig(cmd, cfg, &s)

			defaults, err := schemeNames(s.schemes, nil)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			reg, err := buildRegistry(&s)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			for _, name := range defaults {
				if _, err := reg.Get(name); err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
			}

			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			api.NewServer(reg, defaults).Register(e)

			log.Info("starting server", "address", addr, "schemes", defaults)
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
