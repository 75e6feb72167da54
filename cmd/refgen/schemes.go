package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/refgen/internal/scheme"
)

func schemesCmd() *cli.Command {
	s := defaultGenerateSettings()
	var showModels bool

	return &cli.Command{
		Name:  "schemes",
		Usage: "List the available encoding schemes",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:        "models",
				Usage:       "also list known model names and their schemes",
				Destination: &showModels,
			},
		}, schemeSourceFlags(&s)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			applySourceConfig(cmd, LoadConfig(), &s)
			reg, err := buildRegistry(&s)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			for _, name := range reg.Names() {
				fmt.Println(name)
			}
			if !showModels {
				return nil
			}

			models := scheme.Models()
			fmt.Printf("\nModels:\n\n")
			for _, m := range models {
				fmt.Printf("  %-32s %-12s %8d\n", m.Name, m.Scheme, m.MaxContextLength)
			}
			fmt.Printf("\n%d model(s)\n", len(models))
			return nil
		},
	}
}
