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

// Package dispatch walks a source tree and hands every file to the pool that
// matches its work class.
//
// The dispatcher only submits; it never waits on a task. Anything that goes
// wrong for a single entry (an unreadable directory, a bucket that cannot be
// created) is turned into an already resolved handle, so the caller always
// gets exactly one handle per discovered entry.
package dispatch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/classify"
	"github.com/walteh/sortrc/pkg/pool"
	"github.com/walteh/sortrc/pkg/work"
	"gitlab.com/tozd/go/errors"
)

// Resolver computes and prepares the destination of an item.
type Resolver interface {
	Resolve(item work.Item, destRoot string) (work.Plan, error)
}

// Options configures a Dispatcher.
type Options struct {
	Classifier classify.Classifier
	Resolver   Resolver
	Pools      []pool.Pool
	// Ignore holds doublestar patterns matched against the slash separated
	// path relative to the source root. Matching files are not dispatched.
	Ignore []string
	// Exclude holds paths that are never dispatched; directories are
	// skipped with their whole subtree.
	Exclude []string
}

// 🚦 Dispatcher routes files to pools.
type Dispatcher struct {
	classifier classify.Classifier
	resolver   Resolver
	pools      map[work.Class]pool.Pool
	ignore     []string
	exclude    []string
}

// 🏭 New creates a dispatcher. An io pool is required because it is the
// fallback for classes without a dedicated pool.
func New(opts Options) (*Dispatcher, error) {
	if opts.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("resolver is required")
	}

	pools := make(map[work.Class]pool.Pool, len(opts.Pools))
	for _, p := range opts.Pools {
		if _, dup := pools[p.Class()]; dup {
			return nil, errors.Errorf("duplicate pool for class %q", p.Class())
		}
		pools[p.Class()] = p
	}
	if _, ok := pools[work.IOBound]; !ok {
		return nil, errors.Errorf("a pool for class %q is required", work.IOBound)
	}

	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	exclude := make([]string, 0, len(opts.Exclude))
	for _, x := range opts.Exclude {
		abs, err := filepath.Abs(x)
		if err != nil {
			return nil, errors.Errorf("resolving exclude path %q: %w", x, err)
		}
		exclude = append(exclude, abs)
	}

	return &Dispatcher{
		classifier: opts.Classifier,
		resolver:   opts.Resolver,
		pools:      pools,
		ignore:     opts.Ignore,
		exclude:    exclude,
	}, nil
}

// ValidateSource checks that root exists and is a directory.
func ValidateSource(root string) error {
	fi, err := os.Stat(root)
	if err != nil {
		return &work.InvalidSourceError{Path: root, Err: err}
	}
	if !fi.IsDir() {
		return &work.InvalidSourceError{Path: root, Err: errors.New("not a directory")}
	}
	return nil
}

// Dispatch walks sourceRoot and submits every regular file. The returned
// error is only set for fatal pre-flight failures, in which case nothing was
// submitted.
func (d *Dispatcher) Dispatch(ctx context.Context, sourceRoot, destRoot string) ([]*pool.Handle, error) {
	logger := zerolog.Ctx(ctx)

	if err := ValidateSource(sourceRoot); err != nil {
		return nil, err
	}

	root, err := walkRoot(sourceRoot)
	if err != nil {
		return nil, &work.InvalidSourceError{Path: sourceRoot, Err: err}
	}

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return nil, &work.DestinationError{Dir: destRoot, Err: err}
	}
	destAbs, err := filepath.Abs(destRoot)
	if err != nil {
		return nil, &work.DestinationError{Dir: destRoot, Err: err}
	}

	space := newWalkSpace(root)
	destPaths := space.locate(destAbs)
	for _, p := range destPaths {
		if p == root {
			return nil, &work.DestinationError{Dir: destRoot, Err: errors.New("destination is the source root")}
		}
	}
	exclude := destPaths
	for _, x := range d.exclude {
		exclude = append(exclude, space.locate(x)...)
	}

	logger.Debug().Str("source", root).Str("destination", destAbs).Msg("dispatching files")

	var handles []*pool.Handle
	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			// the root itself was validated above; anything failing here is
			// an individual entry
			handles = append(handles, d.failed(root, path, entry, err))
			return nil
		}

		if isExcluded(path, exclude) {
			if entry.IsDir() {
				logger.Debug().Str("dir", path).Msg("skipping excluded directory")
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			return nil
		}

		ok, err := regularFile(path, entry)
		if err != nil {
			handles = append(handles, d.failed(root, path, entry, err))
			return nil
		}
		if !ok {
			logger.Debug().Str("path", path).Str("type", entry.Type().String()).Msg("skipping non-regular file")
			return nil
		}

		rel := relPath(root, path)
		if d.ignored(rel) {
			logger.Debug().Str("path", rel).Msg("file ignored by pattern")
			return nil
		}

		handles = append(handles, d.submit(ctx, path, rel, destAbs))
		return nil
	})
	if walkErr != nil {
		// the callback never returns an error other than SkipDir
		return handles, errors.Errorf("walking source: %w", walkErr)
	}

	logger.Info().Int("files", len(handles)).Msg("dispatched files")
	return handles, nil
}

func (d *Dispatcher) submit(ctx context.Context, path, rel, destRoot string) *pool.Handle {
	c := d.classifier.Classify(rel)
	item := work.Item{
		SourcePath: path,
		RelPath:    rel,
		Class:      c.Class,
		Bucket:     c.Bucket,
	}

	plan, err := d.resolver.Resolve(item, destRoot)
	if err != nil {
		return pool.Resolved(item, work.Failed(item, err))
	}

	p := d.route(item.Class)
	zerolog.Ctx(ctx).Debug().
		Str("source", rel).
		Str("class", item.Class.String()).
		Str("bucket", item.Bucket).
		Str("pool", p.Name()).
		Msg("submitting file")

	return p.Submit(ctx, item, plan)
}

// route picks the pool for class, falling back to the io pool.
func (d *Dispatcher) route(class work.Class) pool.Pool {
	if p, ok := d.pools[class]; ok {
		return p
	}
	return d.pools[work.IOBound]
}

// failed resolves a handle for an entry that could not be visited. Only files
// are classified; directories and unknown entries land in the unknown bucket.
func (d *Dispatcher) failed(root, path string, entry fs.DirEntry, err error) *pool.Handle {
	rel := relPath(root, path)
	item := work.Item{SourcePath: path, RelPath: rel, Class: work.IOBound, Bucket: work.UnknownBucket}
	if entry != nil && !entry.IsDir() {
		c := d.classifier.Classify(rel)
		item.Class, item.Bucket = c.Class, c.Bucket
	}
	return pool.Resolved(item, work.Failed(item, &work.CopyError{Source: path, Err: err}))
}

func (d *Dispatcher) ignored(rel string) bool {
	for _, pattern := range d.ignore {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

// walkRoot returns an absolute root to walk. A symlinked root is resolved
// since WalkDir does not descend into a symlink passed as its root.
func walkRoot(sourceRoot string) (string, error) {
	root, err := filepath.Abs(sourceRoot)
	if err != nil {
		return "", err
	}
	fi, err := os.Lstat(root)
	if err != nil {
		return "", err
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		return filepath.EvalSymlinks(root)
	}
	return root, nil
}

// regularFile reports whether entry should be copied. Symlinks to regular
// files are followed; symlinks to directories never are.
func regularFile(path string, entry fs.DirEntry) (bool, error) {
	mode := entry.Type()
	if mode.IsRegular() {
		return true, nil
	}
	if mode&fs.ModeSymlink == 0 {
		return false, nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false, errors.Errorf("following symlink: %w", err)
	}
	return fi.Mode().IsRegular(), nil
}

func relPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func isExcluded(path string, excluded []string) bool {
	for _, base := range excluded {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// walkSpace maps paths onto the tree being walked, so a path reached through
// a symlink is still recognised under the walk root.
type walkSpace struct {
	root  string
	canon string
}

func newWalkSpace(root string) walkSpace {
	canon, err := filepath.EvalSymlinks(root)
	if err != nil {
		canon = root
	}
	return walkSpace{root: root, canon: canon}
}

// locate returns p together with its location under the walk root once
// symlinks are resolved, if it lies there.
func (s walkSpace) locate(p string) []string {
	out := []string{p}
	real, err := evalPath(p)
	if err != nil {
		return out
	}
	rel, err := filepath.Rel(s.canon, real)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return out
	}
	if mapped := filepath.Join(s.root, rel); mapped != p {
		out = append(out, mapped)
	}
	return out
}

// evalPath resolves symlinks in p. A missing final element is allowed.
func evalPath(p string) (string, error) {
	real, err := filepath.EvalSymlinks(p)
	if err == nil {
		return real, nil
	}
	dir, dirErr := filepath.EvalSymlinks(filepath.Dir(p))
	if dirErr != nil {
		return "", err
	}
	return filepath.Join(dir, filepath.Base(p)), nil
}
