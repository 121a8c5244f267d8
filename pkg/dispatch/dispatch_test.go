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

package dispatch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walteh/sortrc/pkg/classify"
	"github.com/walteh/sortrc/pkg/destination"
	"github.com/walteh/sortrc/pkg/pool"
	"github.com/walteh/sortrc/pkg/work"
)

// 🔧 MockPool is a mock implementation of the pool.Pool interface
type MockPool struct {
	mock.Mock
	class work.Class
}

func newMockPool(class work.Class) *MockPool {
	return &MockPool{class: class}
}

func (m *MockPool) Name() string      { return string(m.class) }
func (m *MockPool) Class() work.Class { return m.class }
func (m *MockPool) Shutdown()         { m.Called() }

func (m *MockPool) Submit(ctx context.Context, item work.Item, plan work.Plan) *pool.Handle {
	m.Called(ctx, item, plan)
	return pool.Resolved(item, work.Succeeded(item, plan))
}

func itemNamed(name string) interface{} {
	return mock.MatchedBy(func(item work.Item) bool {
		return filepath.Base(item.SourcePath) == name
	})
}

type testEnv struct {
	ctx context.Context
	src string
	dst string
	io  *MockPool
	cpu *MockPool
}

func newTestEnv(t *testing.T) *testEnv {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return &testEnv{
		ctx: logger.WithContext(context.Background()),
		src: t.TempDir(),
		dst: filepath.Join(t.TempDir(), "out"),
		io:  newMockPool(work.IOBound),
		cpu: newMockPool(work.CPUBound),
	}
}

func (e *testEnv) dispatcher(t *testing.T, opts Options) *Dispatcher {
	t.Helper()
	if opts.Classifier == nil {
		opts.Classifier = classify.NewExtensionClassifier(classify.DefaultCPUExtensions...)
	}
	if opts.Resolver == nil {
		opts.Resolver = destination.NewResolver()
	}
	if opts.Pools == nil {
		opts.Pools = []pool.Pool{e.io, e.cpu}
	}
	d, err := New(opts)
	require.NoError(t, err)
	return d
}

func (e *testEnv) write(t *testing.T, rel string, content string) string {
	t.Helper()
	p := filepath.Join(e.src, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func basenames(handles []*pool.Handle) []string {
	names := make([]string, 0, len(handles))
	for _, h := range handles {
		names = append(names, filepath.Base(h.Item().SourcePath))
	}
	sort.Strings(names)
	return names
}

func TestDispatchRoutesByClass(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "a.txt", "a")
	env.write(t, "b.zip", "b")
	env.write(t, "c", "c")

	env.io.On("Submit", mock.Anything, itemNamed("a.txt"), work.Plan{
		TargetDir:  filepath.Join(env.dst, "txt"),
		TargetFile: filepath.Join(env.dst, "txt", "a.txt"),
	}).Once()
	env.io.On("Submit", mock.Anything, itemNamed("c"), work.Plan{
		TargetDir:  filepath.Join(env.dst, "unknown"),
		TargetFile: filepath.Join(env.dst, "unknown", "c"),
	}).Once()
	env.cpu.On("Submit", mock.Anything, itemNamed("b.zip"), work.Plan{
		TargetDir:  filepath.Join(env.dst, "zip"),
		TargetFile: filepath.Join(env.dst, "zip", "b.zip"),
	}).Once()

	handles, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.txt", "b.zip", "c"}, basenames(handles))
	env.io.AssertExpectations(t)
	env.cpu.AssertExpectations(t)

	for _, bucket := range []string{"txt", "zip", "unknown"} {
		assert.DirExists(t, filepath.Join(env.dst, bucket))
	}
}

func TestDispatchVisitsNestedFilesOnce(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "one.md", "1")
	env.write(t, "deep/two.md", "2")
	env.write(t, "deep/er/three.md", "3")
	env.write(t, "deep/er/four.rar", "4")

	env.io.On("Submit", mock.Anything, mock.Anything, mock.Anything).Times(3)
	env.cpu.On("Submit", mock.Anything, mock.Anything, mock.Anything).Once()

	handles, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"four.rar", "one.md", "three.md", "two.md"}, basenames(handles))

	for _, h := range handles {
		if filepath.Base(h.Item().SourcePath) == "three.md" {
			assert.Equal(t, "deep/er/three.md", h.Item().RelPath)
		}
	}
	env.io.AssertExpectations(t)
	env.cpu.AssertExpectations(t)
}

func TestDispatchInvalidSource(t *testing.T) {
	tests := []struct {
		name   string
		source func(t *testing.T) string
	}{
		{
			name: "missing",
			source: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
		},
		{
			name: "regular_file",
			source: func(t *testing.T) string {
				p := filepath.Join(t.TempDir(), "file.txt")
				require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			handles, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, tt.source(t), env.dst)

			require.Error(t, err)
			assert.True(t, work.IsInvalidSource(err), "want InvalidSourceError, got %v", err)
			assert.Empty(t, handles)
			assert.NoDirExists(t, env.dst, "no work should have started")
			env.io.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
			env.cpu.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestDispatchRejectsDestinationEqualToSource(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "a.txt", "a")

	_, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, env.src)
	require.Error(t, err)
	assert.True(t, work.IsDestination(err))
}

func TestDispatchDoesNotFollowSymlinkedDirectories(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "real/x.txt", "x")
	require.NoError(t, os.Symlink(filepath.Join(env.src, "real"), filepath.Join(env.src, "loop")))
	require.NoError(t, os.Symlink(filepath.Join(env.src, "real", "x.txt"), filepath.Join(env.src, "alias.txt")))
	require.NoError(t, os.Symlink(filepath.Join(env.src, "missing"), filepath.Join(env.src, "dangling.txt")))

	env.io.On("Submit", mock.Anything, mock.Anything, mock.Anything).Twice()

	handles, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)

	assert.Equal(t, []string{"alias.txt", "dangling.txt", "x.txt"}, basenames(handles))
	for _, h := range handles {
		out := h.Wait()
		if filepath.Base(out.SourcePath) == "dangling.txt" {
			assert.True(t, work.IsCopy(out.Err), "dangling symlink should be a copy error")
		} else {
			assert.NoError(t, out.Err)
		}
	}
	env.io.AssertExpectations(t)
}

func TestDispatchSkipsDestinationInsideSource(t *testing.T) {
	env := newTestEnv(t)
	env.dst = filepath.Join(env.src, "sorted")
	env.write(t, "a.txt", "a")
	env.write(t, "sorted/txt/old.txt", "already sorted")

	env.io.On("Submit", mock.Anything, itemNamed("a.txt"), mock.Anything).Once()

	handles, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, basenames(handles))
	env.io.AssertExpectations(t)
}

func TestDispatchIgnoreAndExclude(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "keep.txt", "k")
	env.write(t, "debug.log", "l")
	env.write(t, "node_modules/pkg/index.js", "j")
	lock := env.write(t, "run.lock", "")

	env.io.On("Submit", mock.Anything, itemNamed("keep.txt"), mock.Anything).Once()

	d := env.dispatcher(t, Options{
		Ignore:  []string{"*.log", "node_modules/**"},
		Exclude: []string{lock},
	})
	handles, err := d.Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, basenames(handles))
	env.io.AssertExpectations(t)
}

func TestDispatchDestinationErrorIsPerFile(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "a.txt", "a")
	env.write(t, "b.md", "b")
	require.NoError(t, os.MkdirAll(env.dst, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.dst, "txt"), []byte("collision"), 0o644))

	env.io.On("Submit", mock.Anything, itemNamed("b.md"), mock.Anything).Once()

	handles, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)
	require.Len(t, handles, 2)

	for _, h := range handles {
		out := h.Wait()
		switch filepath.Base(out.SourcePath) {
		case "a.txt":
			assert.True(t, work.IsDestination(out.Err), "a.txt should carry a destination error")
		case "b.md":
			assert.NoError(t, out.Err)
		}
	}
	env.io.AssertExpectations(t)
}

func TestDispatchUnreadableDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}

	env := newTestEnv(t)
	env.write(t, "ok.txt", "ok")
	env.write(t, "photos.d/secret.txt", "s")
	locked := filepath.Join(env.src, "photos.d")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	env.io.On("Submit", mock.Anything, itemNamed("ok.txt"), mock.Anything).Once()

	handles, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)
	require.Len(t, handles, 2)

	var failed int
	for _, h := range handles {
		if out := h.Wait(); out.Err != nil {
			failed++
			assert.True(t, work.IsCopy(out.Err))
			assert.Equal(t, locked, out.SourcePath)
			assert.Equal(t, work.UnknownBucket, out.Bucket, "directories are not classified by name")
		}
	}
	assert.Equal(t, 1, failed)
}

func TestFailedEntryBucket(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "photos.d/x.txt", "x")
	env.write(t, "b.zip", "b")

	entries, err := os.ReadDir(env.src)
	require.NoError(t, err)
	byName := map[string]fs.DirEntry{}
	for _, e := range entries {
		byName[e.Name()] = e
	}

	tests := []struct {
		name       string
		entry      fs.DirEntry
		wantBucket string
		wantClass  work.Class
	}{
		{name: "directory", entry: byName["photos.d"], wantBucket: work.UnknownBucket, wantClass: work.IOBound},
		{name: "file", entry: byName["b.zip"], wantBucket: "zip", wantClass: work.CPUBound},
		{name: "no_entry", entry: nil, wantBucket: work.UnknownBucket, wantClass: work.IOBound},
	}

	d := env.dispatcher(t, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name := "photos.d"
			if tt.entry != nil {
				name = tt.entry.Name()
			}
			out := d.failed(env.src, filepath.Join(env.src, name), tt.entry, assert.AnError).Wait()
			assert.True(t, work.IsCopy(out.Err))
			assert.Equal(t, tt.wantBucket, out.Bucket)
			assert.Equal(t, tt.wantClass, out.Class)
		})
	}
}

func TestDispatchSymlinkedPaths(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, env *testEnv) (src, dst string, exclude []string)
	}{
		{
			name: "destination_is_symlink_into_source",
			setup: func(t *testing.T, env *testEnv) (string, string, []string) {
				require.NoError(t, os.MkdirAll(filepath.Join(env.src, "zz_out"), 0o755))
				env.write(t, "zz_out/txt/old.txt", "already sorted")
				link := filepath.Join(t.TempDir(), "out-link")
				require.NoError(t, os.Symlink(filepath.Join(env.src, "zz_out"), link))
				return env.src, link, nil
			},
		},
		{
			name: "source_under_symlinked_parent",
			setup: func(t *testing.T, env *testEnv) (string, string, []string) {
				env.write(t, "sorted/txt/old.txt", "already sorted")
				parentLink := filepath.Join(t.TempDir(), "parent-link")
				require.NoError(t, os.Symlink(filepath.Dir(env.src), parentLink))
				src := filepath.Join(parentLink, filepath.Base(env.src))
				return src, filepath.Join(env.src, "sorted"), nil
			},
		},
		{
			name: "exclude_through_symlink",
			setup: func(t *testing.T, env *testEnv) (string, string, []string) {
				env.write(t, "run.lock", "")
				link := filepath.Join(t.TempDir(), "src-link")
				require.NoError(t, os.Symlink(env.src, link))
				return env.src, env.dst, []string{filepath.Join(link, "run.lock")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.write(t, "a.txt", "a")
			src, dst, exclude := tt.setup(t, env)

			env.io.On("Submit", mock.Anything, itemNamed("a.txt"), mock.Anything).Once()

			handles, err := env.dispatcher(t, Options{Exclude: exclude}).Dispatch(env.ctx, src, dst)
			require.NoError(t, err)
			assert.Equal(t, []string{"a.txt"}, basenames(handles), "only the source file should be dispatched")
			env.io.AssertExpectations(t)
		})
	}
}

func TestDispatchRejectsSymlinkToSourceAsDestination(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "a.txt", "a")
	link := filepath.Join(t.TempDir(), "src-link")
	require.NoError(t, os.Symlink(env.src, link))

	_, err := env.dispatcher(t, Options{}).Dispatch(env.ctx, env.src, link)
	require.Error(t, err)
	assert.True(t, work.IsDestination(err))
}

func TestDispatchFallsBackToIOPool(t *testing.T) {
	env := newTestEnv(t)
	env.write(t, "b.zip", "b")

	env.io.On("Submit", mock.Anything, itemNamed("b.zip"), mock.Anything).Once()

	d := env.dispatcher(t, Options{Pools: []pool.Pool{env.io}})
	handles, err := d.Dispatch(env.ctx, env.src, env.dst)
	require.NoError(t, err)
	require.Len(t, handles, 1)
	assert.Equal(t, work.CPUBound, handles[0].Item().Class, "class is kept even when routed to io")
	env.io.AssertExpectations(t)
}

func TestNewValidation(t *testing.T) {
	io := newMockPool(work.IOBound)
	cpu := newMockPool(work.CPUBound)
	c := classify.NewExtensionClassifier()
	r := destination.NewResolver()

	tests := []struct {
		name        string
		opts        Options
		errContains string
	}{
		{name: "missing_classifier", opts: Options{Resolver: r, Pools: []pool.Pool{io}}, errContains: "classifier is required"},
		{name: "missing_resolver", opts: Options{Classifier: c, Pools: []pool.Pool{io}}, errContains: "resolver is required"},
		{name: "missing_io_pool", opts: Options{Classifier: c, Resolver: r, Pools: []pool.Pool{cpu}}, errContains: `pool for class "io" is required`},
		{name: "duplicate_pool", opts: Options{Classifier: c, Resolver: r, Pools: []pool.Pool{io, io}}, errContains: "duplicate pool"},
		{name: "bad_ignore", opts: Options{Classifier: c, Resolver: r, Pools: []pool.Pool{io}, Ignore: []string{"["}}, errContains: "invalid ignore pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}
