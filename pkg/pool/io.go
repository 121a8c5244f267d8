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

package pool

import (
	"context"
	"sync"

	"github.com/walteh/sortrc/pkg/transfer"
	"github.com/walteh/sortrc/pkg/work"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultIOLimit is the default cap on io copies in flight.
const DefaultIOLimit = 256

// IOOptions configures an IOPool.
type IOOptions struct {
	Name  string     // Defaults to "io"
	Class work.Class // Defaults to work.IOBound
	Limit int        // Max tasks in flight, 0 means unbounded
	Task  Task       // Defaults to a plain copy
}

// 🚰 IOPool runs every task on its own goroutine. An optional semaphore caps
// how many copies run at once.
type IOPool struct {
	name  string
	class work.Class
	task  Task
	sem   *semaphore.Weighted

	mu     sync.RWMutex
	closed bool
	group  errgroup.Group
}

// 🏭 NewIOPool creates an io pool.
func NewIOPool(opts IOOptions) *IOPool {
	p := &IOPool{
		name:  opts.Name,
		class: opts.Class,
		task:  opts.Task,
	}
	if p.name == "" {
		p.name = "io"
	}
	if p.class == "" {
		p.class = work.IOBound
	}
	if p.task == nil {
		p.task = CopyTask(transfer.Copy)
	}
	if opts.Limit > 0 {
		p.sem = semaphore.NewWeighted(int64(opts.Limit))
	}
	return p
}

func (p *IOPool) Name() string      { return p.name }
func (p *IOPool) Class() work.Class { return p.class }

func (p *IOPool) Submit(ctx context.Context, item work.Item, plan work.Plan) *Handle {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		panic(submitAfterShutdown(p.name))
	}

	h := newHandle(item)
	p.group.Go(func() error {
		if p.sem != nil {
			// background context: admission is never cancelled
			_ = p.sem.Acquire(context.Background(), 1)
			defer p.sem.Release(1)
		}
		h.resolve(execute(ctx, p.name, p.task, item, plan))
		return nil
	})
	return h
}

func (p *IOPool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	_ = p.group.Wait()
}
