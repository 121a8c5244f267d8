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

/*
Package pool provides the executors that run copy tasks.

	+-----------+      Submit       +-----------+
	| dispatch  | ----------------> |  IOPool   |  goroutine per task
	|           | ----------------> |  CPUPool  |  N fixed workers
	+-----------+                   +-----+-----+
	      ^                               |
	      |          *Handle              |
	      +-------------------------------+

Both executors share one interface: Submit returns a Handle right away, and
the Handle yields exactly one work.Outcome. Task bodies never return errors
and never panic past the task boundary: every failure becomes an Outcome
carrying a *work.CopyError, so waiting on a Handle needs no failure handling.

The two pools have independent concurrency budgets, so a saturated cpu pool
never throttles io work.

Submitting to a pool after Shutdown is a programming error and panics.
*/
package pool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/transfer"
	"github.com/walteh/sortrc/pkg/work"
	"gitlab.com/tozd/go/errors"
)

// 🏊 Pool is an execution context for one work class.
type Pool interface {
	// Name identifies the pool in logs
	Name() string
	// Class is the work class this pool serves
	Class() work.Class
	// Submit schedules the copy of item to plan and returns without waiting
	Submit(ctx context.Context, item work.Item, plan work.Plan) *Handle
	// Shutdown waits for every submitted task and rejects further submissions
	Shutdown()
}

// Task is the body run for each submitted item. It must always return an
// outcome for item.
type Task func(ctx context.Context, item work.Item, plan work.Plan) work.Outcome

// 🔧 CopyTask adapts a transfer function into a Task, turning failures into
// CopyError outcomes.
func CopyTask(fn transfer.Func) Task {
	return func(ctx context.Context, item work.Item, plan work.Plan) work.Outcome {
		res, err := fn(ctx, item.SourcePath, plan.TargetFile)
		if err != nil {
			return work.Failed(item, &work.CopyError{Source: item.SourcePath, Target: plan.TargetFile, Err: err})
		}
		out := work.Succeeded(item, plan)
		out.Bytes = res.Bytes
		out.Checksum = res.Checksum
		return out
	}
}

// 🎫 Handle is a future for a single Outcome.
type Handle struct {
	item    work.Item
	done    chan struct{}
	once    sync.Once
	outcome work.Outcome
}

func newHandle(item work.Item) *Handle {
	return &Handle{item: item, done: make(chan struct{})}
}

// Resolved returns a handle that is already complete. It is used for items
// that failed before reaching a pool.
func Resolved(item work.Item, outcome work.Outcome) *Handle {
	h := newHandle(item)
	h.resolve(outcome)
	return h
}

func (h *Handle) resolve(o work.Outcome) {
	h.once.Do(func() {
		h.outcome = o
		close(h.done)
	})
}

// Item returns the item this handle was created for.
func (h *Handle) Item() work.Item { return h.item }

// Done is closed once the outcome is available.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the outcome is available.
func (h *Handle) Wait() work.Outcome {
	<-h.done
	return h.outcome
}

// execute runs task with failure capture and timing. Tasks are detached from
// ctx cancellation: once dispatched, a task always runs to completion.
func execute(ctx context.Context, pool string, task Task, item work.Item, plan work.Plan) (out work.Outcome) {
	ctx = context.WithoutCancel(ctx)
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			out = work.Failed(item, &work.CopyError{
				Source: item.SourcePath,
				Target: plan.TargetFile,
				Err:    errors.Errorf("task panicked: %v", r),
			})
		}
		out.Duration = time.Since(start)

		evt := logger.Debug()
		if out.Err != nil {
			evt = logger.Warn().Err(out.Err)
		}
		evt.
			Str("pool", pool).
			Str("source", item.SourcePath).
			Str("target", out.TargetPath).
			Str("class", item.Class.String()).
			Str("bucket", item.Bucket).
			Dur("duration", out.Duration).
			Msg("task finished")
	}()

	return task(ctx, item, plan)
}

func submitAfterShutdown(name string) string {
	return fmt.Sprintf("pool %s: submit after shutdown", name)
}
