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

// Package work holds the values that flow through the sort pipeline: the
// classification of a file, the item handed to an executor, the plan for where
// it lands, and the outcome produced once it has been processed.
package work

import (
	"time"
)

// 🏷️ Class is an opaque work class label. Executors are keyed by it, so new
// classes can be introduced without touching pool wiring.
type Class string

const (
	IOBound  Class = "io"
	CPUBound Class = "cpu"
)

// UnknownBucket is the bucket used for files without an extension.
const UnknownBucket = "unknown"

func (c Class) String() string {
	return string(c)
}

// Valid reports whether c is one of the known classes.
func (c Class) Valid() bool {
	switch c {
	case IOBound, CPUBound:
		return true
	default:
		return false
	}
}

// 🎯 Classification is what a classifier decides about a single path.
type Classification struct {
	Class  Class  // Which pool processes the file
	Bucket string // Destination subdirectory name
}

// 📦 Item is a single discovered file. It is created by the dispatcher and
// consumed exactly once by an executor.
type Item struct {
	SourcePath string // Absolute or root-joined path of the source file
	RelPath    string // Slash separated path relative to the source root
	Class      Class
	Bucket     string
}

// 🗺️ Plan is where an item is copied to.
type Plan struct {
	TargetDir  string
	TargetFile string
}

// 📝 Outcome is the terminal result of processing one item.
type Outcome struct {
	SourcePath string
	TargetPath string // Empty when Err is set
	Class      Class
	Bucket     string
	Bytes      int64
	Checksum   string // Hex SHA-256, only set by the cpu pool
	Duration   time.Duration
	Err        error
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Succeeded builds a success outcome for item.
func Succeeded(item Item, plan Plan) Outcome {
	return Outcome{
		SourcePath: item.SourcePath,
		TargetPath: plan.TargetFile,
		Class:      item.Class,
		Bucket:     item.Bucket,
	}
}

// Failed builds a failure outcome for item.
func Failed(item Item, err error) Outcome {
	return Outcome{
		SourcePath: item.SourcePath,
		Class:      item.Class,
		Bucket:     item.Bucket,
		Err:        err,
	}
}
