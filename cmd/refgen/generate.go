package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/refgen/internal/fixture"
	"github.com/samcharles93/refgen/internal/logger"
	"github.com/samcharles93/refgen/internal/scheme"
)

func generateCmd() *cli.Command {
	s := defaultGenerateSettings()
	return &cli.Command{
		Name:  "generate",
		Usage: "Write <scheme>_encodings.csv for every configured scheme",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "input",
				Aliases:     []string{"i"},
				Usage:       "prompt CSV (header row, prompt text in the first column)",
				Value:       s.input,
				Destination: &s.input,
			},
			&cli.StringFlag{
				Name:        "out-dir",
				Aliases:     []string{"o"},
				Usage:       "directory for the fixture files",
				Value:       s.outDir,
				Destination: &s.outDir,
			},
			&cli.StringSliceFlag{
				Name:        "scheme",
				Aliases:     []string{"s"},
				Usage:       "encoding scheme to generate (repeatable, default: all built-in)",
				Destination: &s.schemes,
			},
			&cli.StringSliceFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "generate for the scheme a model uses, e.g. gpt-4o (repeatable)",
				Destination: &s.models,
			},
			&cli.Int64Flag{
				Name:        "max-tokens",
				Usage:       "upper bound on the truncated encoding length",
				Value:       s.maxTokens,
				Destination: &s.maxTokens,
			},
			&cli.Int64Flag{
				Name:        "parallel",
				Aliases:     []string{"p"},
				Usage:       "number of schemes to generate concurrently",
				Value:       s.parallel,
				Destination: &s.parallel,
			},
		}, schemeSourceFlags(&s)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runGenerate(ctx, cmd, &s)
		},
	}
}

func runGenerate(ctx context.Context, cmd *cli.Command, s *generateSettings) error {
	applyGenerateConfig(cmd, LoadConfig(), s)
	log := logger.FromContext(ctx).With("run_id", uuid.NewString())

	names, err := schemeNames(s.schemes, s.models)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	reg, err := buildRegistry(s)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	gen, err := fixture.NewGenerator(reg, fixture.Options{
		Input:       s.input,
		OutDir:      s.outDir,
		Schemes:     names,
		MaxTokens:   int(s.maxTokens),
		Parallelism: int(s.parallel),
	}, log)
	if err != nil {
		return cli.Exit(fmt.Sprintf("error: %v", err), 2)
	}

	start := time.Now()
	log.Info("generating fixtures", "input", s.input, "out_dir", s.outDir, "schemes", names)
	results, err := gen.Run(ctx)
	if err != nil {
		if errors.Is(err, scheme.ErrUnknownScheme) {
			return cli.Exit(fmt.Sprintf("error: %v (known: %v)", err, reg.Names()), 1)
		}
		return cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	rows, skipped := 0, 0
	for _, r := range results {
		rows += r.Rows
		skipped += r.Skipped
	}
	log.Info("done", "files", len(results), "rows", rows, "skipped", skipped, "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}
