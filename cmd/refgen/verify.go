package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/refgen/internal/fixture"
	"github.com/samcharles93/refgen/internal/logger"
)

// maxReportedMismatches caps per-file mismatch output.
const maxReportedMismatches = 20

func verifyCmd() *cli.Command {
	s := defaultGenerateSettings()
	var fixturePath string

	return &cli.Command{
		Name:  "verify",
		Usage: "Check existing fixture files against the schemes that produced them",
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:        "out-dir",
				Aliases:     []string{"o"},
				Usage:       "directory holding the fixture files",
				Value:       s.outDir,
				Destination: &s.outDir,
			},
			&cli.StringSliceFlag{
				Name:        "scheme",
				Aliases:     []string{"s"},
				Usage:       "scheme to verify (repeatable, default: all built-in)",
				Destination: &s.schemes,
			},
			&cli.StringSliceFlag{
				Name:        "model",
				Aliases:     []string{"m"},
				Usage:       "verify the scheme a model uses (repeatable)",
				Destination: &s.models,
			},
			&cli.StringFlag{
				Name:        "fixture",
				Aliases:     []string{"f"},
				Usage:       "explicit fixture path (requires exactly one scheme)",
				Destination: &fixturePath,
			},
		}, schemeSourceFlags(&s)...),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := LoadConfig()
			if cfg.OutDir != "" && !cmd.IsSet("out-dir") {
				s.outDir = cfg.OutDir
			}
			applySourceConfig(cmd, cfg, &s)

			names, err := schemeNames(s.schemes, s.models)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if fixturePath != "" && len(names) != 1 {
				return cli.Exit("error: --fixture needs exactly one --scheme or --model", 2)
			}
			reg, err := buildRegistry(&s)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			log := logger.FromContext(ctx)
			failed := 0
			for _, name := range names {
				sch, err := reg.Get(name)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				path := fixturePath
				if path == "" {
					path = fixture.OutputPath(s.outDir, name)
				}
				rep, err := fixture.VerifyFile(ctx, sch, path)
				if err != nil {
					return cli.Exit(fmt.Sprintf("error: %v", err), 1)
				}
				log.Debug("verified fixture", "scheme", name, "path", path, "rows", rep.Rows)
				if !rep.OK() {
					failed++
				}
				printReport(os.Stdout, name, rep)
			}
			if failed > 0 {
				return cli.Exit(fmt.Sprintf("%d of %d fixture files do not match", failed, len(names)), 1)
			}
			return nil
		},
	}
}

func printReport(w io.Writer, name string, rep fixture.Report) {
	if rep.OK() {
		_, _ = fmt.Fprintf(w, "ok   %-12s %s (%d rows)\n", name, rep.Path, rep.Rows)
		return
	}
	_, _ = fmt.Fprintf(w, "FAIL %-12s %s (%d of %d rows differ)\n", name, rep.Path, len(rep.Mismatches), rep.Rows)
	for i, m := range rep.Mismatches {
		if i == maxReportedMismatches {
			_, _ = fmt.Fprintf(w, "     ... %d more\n", len(rep.Mismatches)-i)
			break
		}
		_, _ = fmt.Fprintf(w, "     line %d %q: %s\n", m.Line, m.Input, m.Reason)
	}
}
