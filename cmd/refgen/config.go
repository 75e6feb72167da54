package main

import (
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const envRefgenConfig = "REFGEN_CONFIG"

// Config represents the refgen configuration file
// (~/.config/refgen/config.yaml). Pointer fields distinguish "not set" from
// zero values.
type Config struct {
	Input     string   `yaml:"input"`
	OutDir    string   `yaml:"out_dir"`
	Schemes   []string `yaml:"schemes"`
	Models    []string `yaml:"models"`
	MaxTokens *int64   `yaml:"max_tokens"`
	Parallel  *int64   `yaml:"parallel"`

	// Ranks is the tiktoken rank source: offline or remote.
	Ranks string `yaml:"ranks"`
	// HFSchemes maps scheme names to tokenizer.json paths.
	HFSchemes map[string]string `yaml:"hf_schemes"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	if p := os.Getenv(envRefgenConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "refgen", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't
// exist or does not parse.
func LoadConfig() Config {
	path := configPath()
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyGenerateConfig applies config file values to s where the
// corresponding flag was not given on the command line.
func applyGenerateConfig(c *cli.Command, cfg Config, s *generateSettings) {
	if cfg.Input != "" && !c.IsSet("input") {
		s.input = cfg.Input
	}
	if cfg.OutDir != "" && !c.IsSet("out-dir") {
		s.outDir = cfg.OutDir
	}
	if len(cfg.Schemes) > 0 && !c.IsSet("scheme") && !c.IsSet("model") {
		s.schemes = cfg.Schemes
	}
	if len(cfg.Models) > 0 && !c.IsSet("scheme") && !c.IsSet("model") {
		s.models = cfg.Models
	}
	if cfg.MaxTokens != nil && !c.IsSet("max-tokens") {
		s.maxTokens = *cfg.MaxTokens
	}
	if cfg.Parallel != nil && !c.IsSet("parallel") {
		s.parallel = *cfg.Parallel
	}
	applySourceConfig(c, cfg, s)
}

// applySourceConfig applies the scheme source settings only.
func applySourceConfig(c *cli.Command, cfg Config, s *generateSettings) {
	if cfg.Ranks != "" && !c.IsSet("ranks") {
		s.ranks = cfg.Ranks
	}
	// Config-file tokenizers are registered in addition to --hf-scheme ones.
	for _, name := range slices.Sorted(maps.Keys(cfg.HFSchemes)) {
		s.hfSchemes = append(s.hfSchemes, name+"="+cfg.HFSchemes[name])
	}
}
