package fixture

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// PromptReader yields the first column of each data row of a prompt CSV.
// The header row is skipped and extra columns are ignored.
type PromptReader struct {
	r     *csv.Reader
	empty bool
}

// NewPromptReader consumes the header row. A completely empty input is
// treated as a file with no prompts.
func NewPromptReader(r io.Reader) (*PromptReader, error) {
	cr := newCSVReader(r)
	if _, err := cr.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return &PromptReader{r: cr, empty: true}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	return &PromptReader{r: cr}, nil
}

// Next returns the next prompt, or io.EOF once the input is exhausted.
func (p *PromptReader) Next() (string, error) {
	if p.empty {
		return "", io.EOF
	}
	record, err := p.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		return "", fmt.Errorf("read prompt: %w", err)
	}
	return record[0], nil
}

func newCSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// Writer writes rows in the dialect of Python's csv.writer defaults: fields
// are quoted only when they contain a comma, a double quote, CR or LF, quotes
// are doubled, and every row ends with CRLF. Fixture files produced by other
// generators use this dialect, and encoding/csv differs from it (it quotes
// fields with leading spaces and rewrites embedded newlines under UseCRLF).
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Write writes a single row.
func (w *Writer) Write(record []string) error {
	for i, field := range record {
		if i > 0 {
			if err := w.w.WriteByte(','); err != nil {
				return err
			}
		}
		if err := w.writeField(field, len(record) == 1); err != nil {
			return err
		}
	}
	_, err := w.w.WriteString("\r\n")
	return err
}

func (w *Writer) writeField(field string, only bool) error {
	// A lone empty field is quoted so the row is not mistaken for a blank line.
	if !fieldNeedsQuotes(field) && !(only && field == "") {
		_, err := w.w.WriteString(field)
		return err
	}
	if err := w.w.WriteByte('"'); err != nil {
		return err
	}
	if _, err := w.w.WriteString(strings.ReplaceAll(field, `"`, `""`)); err != nil {
		return err
	}
	return w.w.WriteByte('"')
}

// Flush writes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

func fieldNeedsQuotes(field string) bool {
	return strings.ContainsAny(field, ",\"\r\n")
}

// fixtureReader reads rows of an existing fixture file.
type fixtureReader struct {
	r *csv.Reader
}

func newFixtureReader(r io.Reader) *fixtureReader {
	return &fixtureReader{r: newCSVReader(r)}
}

func (f *fixtureReader) read() ([]string, int, error) {
	record, err := f.r.Read()
	if err != nil {
		return nil, 0, err
	}
	line, _ := f.r.FieldPos(0)
	return record, line, nil
}
