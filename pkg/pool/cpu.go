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
	"runtime"
	"sync"

	"github.com/walteh/sortrc/pkg/transfer"
	"github.com/walteh/sortrc/pkg/work"
	"golang.org/x/sync/errgroup"
)

// CPUOptions configures a CPUPool.
type CPUOptions struct {
	Name    string     // Defaults to "cpu"
	Class   work.Class // Defaults to work.CPUBound
	Workers int        // Defaults to runtime.NumCPU()
	Task    Task       // Defaults to a digesting copy
}

type job struct {
	ctx    context.Context
	item   work.Item
	plan   work.Plan
	handle *Handle
}

// 🏭 CPUPool runs tasks on a fixed set of workers sized to the available
// cores. Submit only enqueues; a task waits for a free worker before it
// starts.
type CPUPool struct {
	name    string
	class   work.Class
	task    Task
	workers int

	mu     sync.Mutex
	cond   *sync.Cond
	queue  []job
	closed bool
	group  errgroup.Group
}

// 🏭 NewCPUPool creates a cpu pool and starts its workers.
func NewCPUPool(opts CPUOptions) *CPUPool {
	p := &CPUPool{
		name:    opts.Name,
		class:   opts.Class,
		task:    opts.Task,
		workers: opts.Workers,
	}
	if p.name == "" {
		p.name = "cpu"
	}
	if p.class == "" {
		p.class = work.CPUBound
	}
	if p.task == nil {
		p.task = CopyTask(transfer.DigestCopy)
	}
	if p.workers < 1 {
		p.workers = runtime.NumCPU()
	}
	p.cond = sync.NewCond(&p.mu)

	for i := 0; i < p.workers; i++ {
		p.group.Go(p.work)
	}
	return p
}

func (p *CPUPool) Name() string      { return p.name }
func (p *CPUPool) Class() work.Class { return p.class }

// Workers returns the number of worker goroutines.
func (p *CPUPool) Workers() int { return p.workers }

func (p *CPUPool) Submit(ctx context.Context, item work.Item, plan work.Plan) *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		panic(submitAfterShutdown(p.name))
	}

	h := newHandle(item)
	p.queue = append(p.queue, job{ctx: ctx, item: item, plan: plan, handle: h})
	p.cond.Signal()
	return h
}

func (p *CPUPool) Shutdown() {
	p.mu.Lock()
	p.closed = true
	p.cond.Broadcast()
	p.mu.Unlock()

	_ = p.group.Wait()
}

// work drains the queue until the pool is closed and empty.
func (p *CPUPool) work() error {
	for {
		p.mu.Lock()
		for len(p.queue) == 0 && !p.closed {
			p.cond.Wait()
		}
		if len(p.queue) == 0 {
			p.mu.Unlock()
			return nil
		}
		j := p.queue[0]
		p.queue[0] = job{}
		p.queue = p.queue[1:]
		p.mu.Unlock()

		j.handle.resolve(execute(j.ctx, p.name, p.task, j.item, j.plan))
	}
}
