package main

import (
	"fmt"
	"strings"

	"github.com/samcharles93/refgen/internal/fixture"
	"github.com/samcharles93/refgen/internal/scheme"
)

// generateSettings holds the flag values shared by generate, verify, schemes
// and serve.
type generateSettings struct {
	input     string
	outDir    string
	schemes   []string
	models    []string
	maxTokens int64
	parallel  int64
	ranks     string
	hfSchemes []string
}

func defaultGenerateSettings() generateSettings {
	opts := fixture.DefaultOptions()
	return generateSettings{
		input:     opts.Input,
		outDir:    opts.OutDir,
		maxTokens: int64(opts.MaxTokens),
		parallel:  int64(opts.Parallelism),
		ranks:     string(scheme.RanksOffline),
	}
}

// buildRegistry returns the built-in schemes plus any tokenizer.json schemes.
// When a name is given more than once the first entry wins, so flags take
// precedence over the config file.
func buildRegistry(s *generateSettings) (*scheme.Registry, error) {
	src, err := scheme.ParseRanksSource(s.ranks)
	if err != nil {
		return nil, err
	}
	reg := scheme.NewDefaultRegistry(src)
	seen := make(map[string]bool, len(s.hfSchemes))
	for _, entry := range s.hfSchemes {
		name, path, err := parseHFScheme(entry)
		if err != nil {
			return nil, err
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := reg.RegisterBPEFile(name, path); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func parseHFScheme(entry string) (string, string, error) {
	name, path, ok := strings.Cut(entry, "=")
	name, path = strings.TrimSpace(name), strings.TrimSpace(path)
	if !ok || name == "" || path == "" {
		return "", "", fmt.Errorf("invalid --hf-scheme %q (want name=path)", entry)
	}
	return name, path, nil
}

// schemeNames merges explicit schemes with the schemes of the given models,
// dropping duplicates and keeping first-seen order. With neither, the
// built-in defaults are used.
func schemeNames(schemes, models []string) ([]string, error) {
	if len(schemes) == 0 && len(models) == 0 {
		return scheme.Defaults(), nil
	}
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, name := range schemes {
		add(strings.TrimSpace(name))
	}
	for _, model := range models {
		name, err := scheme.SchemeForModel(strings.TrimSpace(model))
		if err != nil {
			return nil, err
		}
		add(name)
	}
	return out, nil
}
