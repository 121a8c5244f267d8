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

// Package destination turns a classified item into the place it is copied to,
// creating the bucket directory on the way.
package destination

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/walteh/sortrc/pkg/work"
	"gitlab.com/tozd/go/errors"
)

// DirPerm is the mode used for bucket directories.
const DirPerm os.FileMode = 0o755

// 🗺️ Resolver computes destRoot/<bucket>/<name> for items and makes sure the
// bucket directory exists. It is safe for concurrent use.
type Resolver struct {
	created sync.Map // bucket dir -> struct{}
	mkdir   func(path string, perm os.FileMode) error
}

// 🏭 NewResolver creates a resolver backed by the real filesystem.
func NewResolver() *Resolver {
	return &Resolver{mkdir: os.MkdirAll}
}

// Resolve returns the plan for item under destRoot. The only side effect is
// creating the bucket directory; an existing directory is not an error.
func (r *Resolver) Resolve(item work.Item, destRoot string) (work.Plan, error) {
	plan := Plan(item, destRoot)

	if _, ok := r.created.Load(plan.TargetDir); ok {
		return plan, nil
	}

	if err := r.ensureDir(plan.TargetDir); err != nil {
		return work.Plan{}, &work.DestinationError{Dir: plan.TargetDir, Err: err}
	}

	r.created.Store(plan.TargetDir, struct{}{})
	return plan, nil
}

// Plan computes the destination for item without touching the filesystem.
func Plan(item work.Item, destRoot string) work.Plan {
	bucket := item.Bucket
	if bucket == "" {
		bucket = work.UnknownBucket
	}
	dir := filepath.Join(destRoot, bucket)
	return work.Plan{
		TargetDir:  dir,
		TargetFile: filepath.Join(dir, filepath.Base(item.SourcePath)),
	}
}

func (r *Resolver) ensureDir(dir string) error {
	if err := r.mkdir(dir, DirPerm); err != nil {
		// a racing creator can still surface as EEXIST
		if errors.Is(err, os.ErrExist) {
			if fi, statErr := os.Stat(dir); statErr == nil && fi.IsDir() {
				return nil
			}
		}
		return errors.Errorf("mkdir: %w", err)
	}
	return nil
}
