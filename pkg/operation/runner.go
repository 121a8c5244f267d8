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

package operation

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/config"
	"github.com/walteh/sortrc/pkg/pool"
)

// 🏃 runPools owns the two executors of a run
type runPools struct {
	io   *pool.IOPool
	cpu  *pool.CPUPool
	once sync.Once
}

// 🏗️ newPools creates both executors from cfg
func newPools(ctx context.Context, cfg *config.Config) *runPools {
	p := &runPools{
		io:  pool.NewIOPool(pool.IOOptions{Limit: cfg.IOLimit}),
		cpu: pool.NewCPUPool(pool.CPUOptions{Workers: cfg.CPUWorkers}),
	}
	zerolog.Ctx(ctx).Debug().
		Int("io_limit", cfg.IOLimit).
		Int("cpu_workers", p.cpu.Workers()).
		Msg("pools started")
	return p
}

func (p *runPools) list() []pool.Pool {
	return []pool.Pool{p.io, p.cpu}
}

// 🔄 shutdown waits for both pools concurrently. Safe to call more than once.
func (p *runPools) shutdown(ctx context.Context) {
	p.once.Do(func() {
		start := time.Now()
		var wg sync.WaitGroup
		for _, pl := range p.list() {
			wg.Add(1)
			go func(pl pool.Pool) {
				defer wg.Done()
				pl.Shutdown()
			}(pl)
		}
		wg.Wait()
		zerolog.Ctx(ctx).Debug().Dur("elapsed", time.Since(start)).Msg("pools shut down")
	})
}
