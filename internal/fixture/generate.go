package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samcharles93/refgen/internal/logger"
	"github.com/samcharles93/refgen/internal/scheme"
)

// Resolver looks up schemes by identifier.
type Resolver interface {
	Get(name string) (scheme.Scheme, error)
}

// Options configures a generation run.
type Options struct {
	// Input is the prompt CSV.
	Input string
	// OutDir receives one <scheme>_encodings.csv per scheme.
	OutDir string
	// Schemes are processed in order.
	Schemes   []string
	MaxTokens int
	// Parallelism > 1 processes that many schemes at once.
	Parallelism int
}

// DefaultOptions matches the layout of the tokenizer reference test suite.
func DefaultOptions() Options {
	return Options{
		Input:       filepath.Join("..", "resources", "test", "base_prompts.csv"),
		OutDir:      filepath.Join("..", "resources", "test"),
		Schemes:     scheme.Defaults(),
		MaxTokens:   DefaultMaxTokens,
		Parallelism: 1,
	}
}

func (o Options) validate() error {
	if o.Input == "" {
		return errors.New("input path is empty")
	}
	if len(o.Schemes) == 0 {
		return errors.New("no schemes configured")
	}
	if o.MaxTokens < 0 {
		return fmt.Errorf("max tokens must be >= 0, got %d", o.MaxTokens)
	}
	return nil
}

// OutputPath is where the fixture for a scheme is written.
func OutputPath(dir, name string) string {
	return filepath.Join(dir, name+"_encodings.csv")
}

// Result summarises one scheme's output.
type Result struct {
	Scheme string
	Path   string
	// Rows is the number of records written.
	Rows int
	// Skipped counts prompts for which no truncation satisfied the prefix
	// property.
	Skipped int
}

// Generator writes fixture files.
type Generator struct {
	resolver Resolver
	opts     Options
	log      logger.Logger
}

func NewGenerator(resolver Resolver, opts Options, log logger.Logger) (*Generator, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Generator{resolver: resolver, opts: opts, log: log}, nil
}

// Run generates a fixture per configured scheme. Every scheme identifier is
// resolved before any file is written; any error aborts the run.
func (g *Generator) Run(ctx context.Context) ([]Result, error) {
	schemes := make([]scheme.Scheme, len(g.opts.Schemes))
	for i, name := range g.opts.Schemes {
		s, err := g.resolver.Get(name)
		if err != nil {
			return nil, err
		}
		schemes[i] = s
	}
	if err := os.MkdirAll(g.opts.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	results := make([]Result, len(schemes))
	if g.opts.Parallelism == 1 {
		for i, s := range schemes {
			res, err := g.generate(ctx, g.opts.Schemes[i], s)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.opts.Parallelism)
	for i, s := range schemes {
		eg.Go(func() error {
			res, err := g.generate(ctx, g.opts.Schemes[i], s)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// generate writes to a temp file next to the target and renames it into
// place, so a failed scheme leaves any previous fixture untouched.
func (g *Generator) generate(ctx context.Context, name string, s scheme.Scheme) (Result, error) {
	start := time.Now()
	log := g.log.With("scheme", name)
	path := OutputPath(g.opts.OutDir, name)

	in, err := os.Open(g.opts.Input)
	if err != nil {
		return Result{}, fmt.Errorf("%s: open input: %w", name, err)
	}
	defer func() { _ = in.Close() }()

	tmp, err := os.CreateTemp(g.opts.OutDir, "."+name+"_encodings-*.tmp")
	if err != nil {
		return Result{}, fmt.Errorf("%s: create output: %w", name, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	res, err := g.writeFixture(ctx, log, s, in, tmp)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("%s: close output: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Result{}, fmt.Errorf("%s: %w", name, err)
	}
	committed = true

	res.Scheme = name
	res.Path = path
	log.Info("wrote fixture", "path", path, "rows", res.Rows, "skipped", res.Skipped, "elapsed", time.Since(start).Round(time.Millisecond))
	return res, nil
}

func (g *Generator) writeFixture(ctx context.Context, log logger.Logger, s scheme.Scheme, in io.Reader, out io.Writer) (Result, error) {
	prompts, err := NewPromptReader(in)
	if err != nil {
		return Result{}, err
	}
	w := NewWriter(out)
	if err := w.Write(Header(g.opts.MaxTokens)); err != nil {
		return Result{}, err
	}

	var res Result
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		prompt, err := prompts.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, err
		}

		rec, err := Build(s, prompt, g.opts.MaxTokens)
		if errors.Is(err, ErrNoPrefix) {
			log.Warn("no truncation decodes to a prefix, skipping", "row", row)
			res.Skipped++
			continue
		}
		if err != nil {
			return Result{}, fmt.Errorf("row %d: %w", row, err)
		}
		if err := w.Write(rec.Row()); err != nil {
			return Result{}, err
		}
		res.Rows++
		log.Debug("encoded prompt", "row", row, "tokens", len(rec.Output), "truncated", len(rec.Truncated))
	}
	if err := w.Flush(); err != nil {
		return Result{}, err
	}
	return res, nil
}
