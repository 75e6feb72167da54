package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/refgen/internal/version"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	settings := defaultGenerateSettings()
	return &cli.Command{
		Name:    "refgen",
		Usage:   "Generate reference encoding fixtures for tokenizer test suites",
		Version: version.String(),
		Description: "With no subcommand, refgen runs generate with the configured defaults:\n" +
			"every scheme encodes ../resources/test/base_prompts.csv into\n" +
			"../resources/test/<scheme>_encodings.csv.",
		Flags:  loggingFlags(),
		Before: setupLogging,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return runGenerate(ctx, cmd, &settings)
		},
		Commands: []*cli.Command{
			generateCmd(),
			verifyCmd(),
			schemesCmd(),
			serveCmd(),
			versionCmd(),
		},
	}
}
