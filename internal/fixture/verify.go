package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/samcharles93/refgen/internal/scheme"
)

// Mismatch describes a fixture row that does not agree with the scheme.
type Mismatch struct {
	Line   int
	Input  string
	Reason string
}

// Report is the outcome of verifying one fixture file.
type Report struct {
	Path       string
	MaxTokens  int
	Rows       int
	Mismatches []Mismatch
}

// OK reports whether every row matched.
func (r Report) OK() bool { return len(r.Mismatches) == 0 }

// VerifyFile checks an existing fixture against s. The truncation bound is
// taken from the header's third column.
func VerifyFile(ctx context.Context, s scheme.Scheme, path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, err
	}
	defer func() { _ = f.Close() }()

	rep, err := Verify(ctx, s, f)
	rep.Path = path
	if err != nil {
		return rep, fmt.Errorf("%s: %w", path, err)
	}
	return rep, nil
}

// Verify checks each fixture row: the output column must equal the scheme's
// encoding of the input, and the truncated column must be exactly what
// Truncate computes for it.
func Verify(ctx context.Context, s scheme.Scheme, r io.Reader) (Report, error) {
	fr := newFixtureReader(r)
	header, _, err := fr.read()
	if err != nil {
		return Report{}, fmt.Errorf("read header: %w", err)
	}
	maxTokens, err := parseHeader(header)
	if err != nil {
		return Report{}, err
	}

	rep := Report{MaxTokens: maxTokens}
	for {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		row, line, err := fr.read()
		if errors.Is(err, io.EOF) {
			return rep, nil
		}
		if err != nil {
			return rep, err
		}
		rep.Rows++
		if reason := checkRow(s, row, maxTokens); reason != "" {
			rep.Mismatches = append(rep.Mismatches, Mismatch{Line: line, Input: row[0], Reason: reason})
		}
	}
}

func parseHeader(header []string) (int, error) {
	if len(header) < 3 || header[0] != "input" || header[1] != "output" {
		return 0, fmt.Errorf("unexpected fixture header %q", header)
	}
	n, ok := strings.CutPrefix(header[2], "outputMaxTokens")
	if !ok {
		return 0, fmt.Errorf("unexpected fixture header %q", header)
	}
	maxTokens, err := strconv.Atoi(n)
	if err != nil || maxTokens < 0 {
		return 0, fmt.Errorf("invalid truncation bound in header column %q", header[2])
	}
	return maxTokens, nil
}

func checkRow(s scheme.Scheme, row []string, maxTokens int) string {
	if len(row) < 3 {
		return fmt.Sprintf("expected 3 columns, got %d", len(row))
	}
	wantOutput, err := ParseTokens(row[1])
	if err != nil {
		return err.Error()
	}
	wantTruncated, err := ParseTokens(row[2])
	if err != nil {
		return err.Error()
	}

	got, err := Build(s, row[0], maxTokens)
	if err != nil {
		return err.Error()
	}
	if !slices.Equal(got.Output, wantOutput) {
		return fmt.Sprintf("output: fixture has %s, scheme gives %s", row[1], FormatTokens(got.Output))
	}
	if !slices.Equal(got.Truncated, wantTruncated) {
		return fmt.Sprintf("%s: fixture has %s, scheme gives %s", TruncatedColumn(maxTokens), row[2], FormatTokens(got.Truncated))
	}
	return ""
}
