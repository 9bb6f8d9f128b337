package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// options holds every setting the command accepts, from flags or from a
// config file.
type options struct {
	languagePrefix string
	headingIDs     bool
	frontMatter    bool
	simulate       bool
	chunkSize      int
	delay          time.Duration
	listen         string
	outPath        string
	logPath        string
	verbose        bool
}

// fileConfig is the YAML layout of --config. Absent keys keep the flag value.
type fileConfig struct {
	LanguagePrefix *string `yaml:"language-prefix"`
	HeadingIDs     *bool   `yaml:"heading-ids"`
	FrontMatter    *bool   `yaml:"front-matter"`
	ChunkSize      *int    `yaml:"chunk-size"`
	Delay          *string `yaml:"delay"`
	Listen         *string `yaml:"listen"`
	Log            *string `yaml:"log"`
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	data, err := os.ReadFile(normalizePath(path))
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// apply copies file values into opts for every flag that was not given on
// the command line.
func (cfg fileConfig) apply(flags *pflag.FlagSet, opts *options) error {
	if cfg.LanguagePrefix != nil && !flags.Changed("language-prefix") {
		opts.languagePrefix = *cfg.LanguagePrefix
	}
	if cfg.HeadingIDs != nil && !flags.Changed("heading-ids") {
		opts.headingIDs = *cfg.HeadingIDs
	}
	if cfg.FrontMatter != nil && !flags.Changed("front-matter") {
		opts.frontMatter = *cfg.FrontMatter
	}
	if cfg.ChunkSize != nil && !flags.Changed("simulate-chunk") {
		if *cfg.ChunkSize <= 0 {
			return fmt.Errorf("config: chunk-size must be > 0")
		}
		opts.chunkSize = *cfg.ChunkSize
	}
	if cfg.Delay != nil && !flags.Changed("simulate-delay") {
		d, err := time.ParseDuration(*cfg.Delay)
		if err != nil {
			return fmt.Errorf("config: delay: %w", err)
		}
		opts.delay = d
	}
	if cfg.Listen != nil && !flags.Changed("serve") {
		opts.listen = *cfg.Listen
	}
	if cfg.Log != nil && !flags.Changed("log") {
		opts.logPath = *cfg.Log
	}
	return nil
}
