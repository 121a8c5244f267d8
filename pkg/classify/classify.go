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

// Package classify decides which work class and bucket a file belongs to.
//
// Classification is a pure function of the path. Classifiers never touch the
// filesystem and never fail; every path yields a classification.
package classify

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/walteh/sortrc/pkg/work"
)

// 🎯 Classifier maps a path to its work class and bucket.
type Classifier interface {
	Classify(path string) work.Classification
}

// ClassifierFunc adapts a plain function to a Classifier.
type ClassifierFunc func(path string) work.Classification

func (f ClassifierFunc) Classify(path string) work.Classification {
	return f(path)
}

// DefaultCPUExtensions are the extensions treated as cpu bound when nothing
// else is configured.
var DefaultCPUExtensions = []string{"zip", "rar"}

// 🧩 ExtensionClassifier buckets files by lowercased extension and sends a
// configured set of extensions to the cpu pool.
type ExtensionClassifier struct {
	cpu map[string]struct{}
}

// 🏭 NewExtensionClassifier creates a classifier with the given cpu bound
// extensions. Extensions may be given with or without a leading dot.
func NewExtensionClassifier(cpuExtensions ...string) *ExtensionClassifier {
	cpu := make(map[string]struct{}, len(cpuExtensions))
	for _, ext := range cpuExtensions {
		ext = NormalizeExtension(ext)
		if ext == "" {
			continue
		}
		cpu[ext] = struct{}{}
	}
	return &ExtensionClassifier{cpu: cpu}
}

func (c *ExtensionClassifier) Classify(p string) work.Classification {
	bucket := Bucket(p)
	class := work.IOBound
	if _, ok := c.cpu[bucket]; ok && bucket != work.UnknownBucket {
		class = work.CPUBound
	}
	return work.Classification{Class: class, Bucket: bucket}
}

// Bucket returns the lowercased extension of p without the dot, or
// work.UnknownBucket. A leading dot on its own does not make an extension, so
// ".bashrc" and "Makefile." both land in the unknown bucket.
func Bucket(p string) string {
	name := filepath.Base(filepath.FromSlash(p))
	if name == "." || name == string(filepath.Separator) {
		return work.UnknownBucket
	}
	stem := strings.TrimLeft(name, ".")
	ext := path.Ext(stem)
	ext = NormalizeExtension(ext)
	if ext == "" {
		return work.UnknownBucket
	}
	return ext
}

// NormalizeExtension lowercases ext and strips a single leading dot.
func NormalizeExtension(ext string) string {
	ext = strings.TrimSpace(ext)
	ext = strings.TrimPrefix(ext, ".")
	return strings.ToLower(ext)
}
