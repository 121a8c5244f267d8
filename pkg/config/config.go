// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/classify"
	"github.com/walteh/sortrc/pkg/pool"
	"github.com/walteh/sortrc/pkg/work"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse parses the config from bytes
	Parse(ctx context.Context, data []byte) (*Config, error)

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📏 Rule routes files matching a doublestar pattern to a work class
type Rule struct {
	Pattern string `json:"pattern" yaml:"pattern" hcl:"pattern"`
	Class   string `json:"class" yaml:"class" hcl:"class"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Source        string   `json:"source,omitempty" yaml:"source,omitempty" hcl:"source,optional"`
	Destination   string   `json:"destination,omitempty" yaml:"destination,omitempty" hcl:"destination,optional"`
	CPUWorkers    int      `json:"cpu_workers,omitempty" yaml:"cpu_workers,omitempty" hcl:"cpu_workers,optional"`
	IOLimit       int      `json:"io_limit,omitempty" yaml:"io_limit,omitempty" hcl:"io_limit,optional"`
	CPUExtensions []string `json:"cpu_extensions,omitempty" yaml:"cpu_extensions,omitempty" hcl:"cpu_extensions,optional"`
	Rules         []Rule   `json:"rules,omitempty" yaml:"rules,omitempty" hcl:"rule,block"`
	Ignore        []string `json:"ignore,omitempty" yaml:"ignore,omitempty" hcl:"ignore,optional"`
	Lock          *bool    `json:"lock,omitempty" yaml:"lock,omitempty" hcl:"lock,optional"`
}

// 🏭 Default returns a validated config with every default applied.
func Default() *Config {
	cfg := &Config{}
	_ = cfg.Validate()
	return cfg
}

// 🎯 Load loads the configuration from a file
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg, err := p.Parse(ctx, data)
	if err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// 🔍 Validate checks the configuration and fills in defaults
func (cfg *Config) Validate() error {
	if cfg.CPUWorkers < 0 {
		return errors.Errorf("cpu_workers must not be negative: %d", cfg.CPUWorkers)
	}
	if cfg.IOLimit < 0 {
		return errors.Errorf("io_limit must not be negative: %d", cfg.IOLimit)
	}

	for i, r := range cfg.Rules {
		if !doublestar.ValidatePattern(r.Pattern) {
			return errors.Errorf("rules[%d]: invalid pattern %q", i, r.Pattern)
		}
		class := work.Class(strings.ToLower(strings.TrimSpace(r.Class)))
		if !class.Valid() {
			return errors.Errorf("rules[%d]: unknown class %q", i, r.Class)
		}
		cfg.Rules[i].Class = string(class)
	}

	for _, pattern := range cfg.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	if cfg.Source != "" {
		cfg.Source = filepath.Clean(cfg.Source)
	}
	if cfg.Destination != "" {
		cfg.Destination = filepath.Clean(cfg.Destination)
	}

	// Set defaults
	if cfg.CPUWorkers == 0 {
		cfg.CPUWorkers = runtime.NumCPU()
	}
	if cfg.IOLimit == 0 {
		cfg.IOLimit = pool.DefaultIOLimit
	}
	if len(cfg.CPUExtensions) == 0 {
		cfg.CPUExtensions = append([]string(nil), classify.DefaultCPUExtensions...)
	}
	exts := make([]string, 0, len(cfg.CPUExtensions))
	for _, ext := range cfg.CPUExtensions {
		if ext = classify.NormalizeExtension(ext); ext != "" {
			exts = append(exts, ext)
		}
	}
	cfg.CPUExtensions = exts
	if cfg.Lock == nil {
		lock := true
		cfg.Lock = &lock
	}

	return nil
}

// LockEnabled reports whether runs should hold the destination lock.
func (cfg *Config) LockEnabled() bool {
	return cfg.Lock == nil || *cfg.Lock
}

// Classifier builds the classifier described by the config.
func (cfg *Config) Classifier() (classify.Classifier, error) {
	base := classify.NewExtensionClassifier(cfg.CPUExtensions...)
	if len(cfg.Rules) == 0 {
		return base, nil
	}

	rules := make([]classify.Rule, 0, len(cfg.Rules))
	for _, r := range cfg.Rules {
		rules = append(rules, classify.Rule{Pattern: r.Pattern, Class: work.Class(r.Class)})
	}
	c, err := classify.NewRuleClassifier(base, rules...)
	if err != nil {
		return nil, errors.Errorf("building rule classifier: %w", err)
	}
	return c, nil
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	return fmt.Sprintf("%s -> %s (cpu=%d io=%d cpu_ext=%s)",
		cfg.Source, cfg.Destination, cfg.CPUWorkers, cfg.IOLimit, strings.Join(cfg.CPUExtensions, ","))
}
