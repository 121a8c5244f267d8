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
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sortrc/pkg/work"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		filename    string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, cfg *Config)
	}{
		{
			name:     "full_yaml",
			filename: "sortrc.yaml",
			config: `
source: /data/in/
destination: /data/out
cpu_workers: 3
io_limit: 16
cpu_extensions: [".ZIP", "7z"]
rules:
  - pattern: "**/*.iso"
    class: CPU
ignore:
  - "**/*.tmp"
lock: false
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "/data/in", cfg.Source, "source should be cleaned")
				assert.Equal(t, "/data/out", cfg.Destination)
				assert.Equal(t, 3, cfg.CPUWorkers)
				assert.Equal(t, 16, cfg.IOLimit)
				assert.Equal(t, []string{"zip", "7z"}, cfg.CPUExtensions, "extensions should be normalized")
				require.Len(t, cfg.Rules, 1)
				assert.Equal(t, "cpu", cfg.Rules[0].Class, "class should be lowercased")
				assert.Equal(t, []string{"**/*.tmp"}, cfg.Ignore)
				assert.False(t, cfg.LockEnabled())
			},
		},
		{
			name:     "minimal_yaml_gets_defaults",
			filename: "sortrc.yml",
			config:   "destination: out\n",
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, runtime.NumCPU(), cfg.CPUWorkers)
				assert.Equal(t, 256, cfg.IOLimit)
				assert.Equal(t, []string{"zip", "rar"}, cfg.CPUExtensions)
				assert.True(t, cfg.LockEnabled())
			},
		},
		{
			name:        "yaml_unknown_field",
			filename:    "sortrc.yaml",
			config:      "destinaton: out\n",
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name:     "hcl_with_num_cpu",
			filename: "sortrc.hcl",
			config: `
destination    = "/data/out"
cpu_workers    = num_cpu * 2
cpu_extensions = ["zip", "rar", "7z"]

rule {
  pattern = "**/*.iso"
  class   = "cpu"
}

rule {
  pattern = "big/**"
  class   = "io"
}
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, runtime.NumCPU()*2, cfg.CPUWorkers)
				assert.Equal(t, []string{"zip", "rar", "7z"}, cfg.CPUExtensions)
				require.Len(t, cfg.Rules, 2)
				assert.Equal(t, Rule{Pattern: "big/**", Class: "io"}, cfg.Rules[1])
			},
		},
		{
			name:        "hcl_syntax_error",
			filename:    "sortrc.hcl",
			config:      `destination = `,
			wantErr:     true,
			errContains: "parsing HCL",
		},
		{
			name:     "json",
			filename: "sortrc.json",
			config:   `{"io_limit": 8, "ignore": ["*.log"], "lock": true}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.IOLimit)
				assert.Equal(t, []string{"*.log"}, cfg.Ignore)
				assert.True(t, cfg.LockEnabled())
			},
		},
		{
			name:        "json_unknown_field",
			filename:    "sortrc.json",
			config:      `{"workers": 2}`,
			wantErr:     true,
			errContains: "parsing JSON",
		},
		{
			name:     "json_uppercase_extension",
			filename: "SORTRC.JSON",
			config:   `{"cpu_workers": 3}`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 3, cfg.CPUWorkers)
			},
		},
		{
			name:        "json_syntax_error_position",
			filename:    "sortrc.json",
			config:      "{\n  \"source\": \"a\",\n  \"io_limit\": }\n",
			wantErr:     true,
			errContains: "parsing JSON at 3:",
		},
		{
			name:        "json_wrong_type",
			filename:    "sortrc.json",
			config:      `{"io_limit": "many"}`,
			wantErr:     true,
			errContains: `field "io_limit"`,
		},
		{
			name:        "json_trailing_data",
			filename:    "sortrc.json",
			config:      `{"source": "a"} {"destination": "b"}`,
			wantErr:     true,
			errContains: "unexpected data after config object",
		},
		{
			name:        "json_empty",
			filename:    "sortrc.json",
			config:      "  \n",
			wantErr:     true,
			errContains: "empty document",
		},
		{
			name:        "invalid_rule_class",
			filename:    "sortrc.yaml",
			config:      "rules:\n  - pattern: '*.iso'\n    class: gpu\n",
			wantErr:     true,
			errContains: "unknown class",
		},
		{
			name:        "invalid_rule_pattern",
			filename:    "sortrc.yaml",
			config:      "rules:\n  - pattern: '[a'\n    class: cpu\n",
			wantErr:     true,
			errContains: "invalid pattern",
		},
		{
			name:        "invalid_ignore_pattern",
			filename:    "sortrc.json",
			config:      `{"ignore": ["{a"]}`,
			wantErr:     true,
			errContains: "invalid ignore pattern",
		},
		{
			name:        "negative_workers",
			filename:    "sortrc.yaml",
			config:      "cpu_workers: -1\n",
			wantErr:     true,
			errContains: "cpu_workers must not be negative",
		},
		{
			name:        "unsupported_extension",
			filename:    "sortrc.toml",
			config:      "destination = 'x'",
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := zerolog.New(zerolog.NewTestWriter(t))
			ctx := logger.WithContext(context.Background())

			path := filepath.Join(t.TempDir(), tt.filename)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0o644))

			cfg, err := Load(ctx, path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, runtime.NumCPU(), cfg.CPUWorkers)
	assert.Equal(t, 256, cfg.IOLimit)
	assert.Equal(t, []string{"zip", "rar"}, cfg.CPUExtensions)
	assert.True(t, cfg.LockEnabled())
	assert.NotEmpty(t, cfg.String())
}

func TestClassifier(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
		path string
		want work.Classification
	}{
		{
			name: "default_extensions",
			cfg:  &Config{},
			path: "a/b.ZIP",
			want: work.Classification{Class: work.CPUBound, Bucket: "zip"},
		},
		{
			name: "custom_extensions",
			cfg:  &Config{CPUExtensions: []string{"iso"}},
			path: "b.zip",
			want: work.Classification{Class: work.IOBound, Bucket: "zip"},
		},
		{
			name: "rule_overrides_extension",
			cfg:  &Config{Rules: []Rule{{Pattern: "big/**", Class: "cpu"}}},
			path: "big/movie.mkv",
			want: work.Classification{Class: work.CPUBound, Bucket: "mkv"},
		},
		{
			name: "rule_miss_falls_back",
			cfg:  &Config{Rules: []Rule{{Pattern: "big/**", Class: "cpu"}}},
			path: "small/notes.txt",
			want: work.Classification{Class: work.IOBound, Bucket: "txt"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.cfg.Validate())
			c, err := tt.cfg.Classifier()
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Classify(tt.path))
		})
	}
}

func TestPackageDocHCLExample(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "doc.go", nil, parser.ParseComments|parser.PackageClauseOnly)
	require.NoError(t, err)
	require.NotNil(t, f.Doc)

	doc := f.Doc.Text()
	start := strings.Index(doc, "HCL files can use num_cpu in expressions:")
	end := strings.Index(doc, "🔍 Example:")
	require.True(t, start >= 0 && end > start, "doc should carry the HCL example")

	var lines []string
	for _, line := range strings.Split(doc[start:end], "\n")[1:] {
		lines = append(lines, strings.TrimPrefix(line, "\t"))
	}

	path := filepath.Join(t.TempDir(), "sortrc.hcl")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644))

	ctx := zerolog.New(zerolog.NewTestWriter(t)).WithContext(context.Background())
	cfg, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, runtime.NumCPU()*2, cfg.CPUWorkers)
	assert.Equal(t, []string{"zip", "rar", "7z"}, cfg.CPUExtensions)
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, Rule{Pattern: "images/**", Class: "cpu"}, cfg.Rules[0])
}
