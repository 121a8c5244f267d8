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

// Package aggregate joins the handles produced by a dispatch and summarizes
// the outcomes.
package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/pool"
	"github.com/walteh/sortrc/pkg/status"
	"github.com/walteh/sortrc/pkg/work"
)

type indexed struct {
	i   int
	out work.Outcome
}

// ⏳ AwaitAll waits for every handle and returns the outcomes in handle
// order. A failed outcome never stops the wait. Outcomes are forwarded to
// reporter (which may be nil) in completion order.
func AwaitAll(ctx context.Context, handles []*pool.Handle, reporter status.Reporter) []work.Outcome {
	start := time.Now()
	if reporter != nil {
		reporter.StartOperation(ctx, len(handles))
	}

	results := make(chan indexed, len(handles))
	for i, h := range handles {
		go func(i int, h *pool.Handle) {
			results <- indexed{i: i, out: h.Wait()}
		}(i, h)
	}

	outcomes := make([]work.Outcome, len(handles))
	for range handles {
		r := <-results
		outcomes[r.i] = r.out
		if reporter != nil {
			reporter.TrackOutcome(ctx, r.out)
		}
	}

	if reporter != nil {
		reporter.FinishOperation(ctx)
	}
	zerolog.Ctx(ctx).Debug().
		Int("outcomes", len(outcomes)).
		Dur("elapsed", time.Since(start)).
		Msg("all outcomes collected")
	return outcomes
}

// 📊 BucketSummary counts outcomes for one bucket.
type BucketSummary struct {
	Bucket    string
	Class     work.Class
	Succeeded int
	Failed    int
	Bytes     int64
}

// 📋 Report partitions a run's outcomes.
type Report struct {
	RunID     string
	Outcomes  []work.Outcome
	Succeeded []work.Outcome
	Failed    []work.Outcome
	Buckets   []BucketSummary // Sorted by bucket name
	Bytes     int64           // Total bytes copied
}

// Total is the number of outcomes in the report.
func (r *Report) Total() int {
	return len(r.Outcomes)
}

// OK reports whether every file was copied.
func (r *Report) OK() bool {
	return len(r.Failed) == 0
}

// Summarize builds a report from outcomes.
func Summarize(outcomes []work.Outcome) *Report {
	r := &Report{Outcomes: outcomes}
	buckets := make(map[string]*BucketSummary)

	for _, o := range outcomes {
		b, ok := buckets[o.Bucket]
		if !ok {
			b = &BucketSummary{Bucket: o.Bucket, Class: o.Class}
			buckets[o.Bucket] = b
		}
		if o.OK() {
			r.Succeeded = append(r.Succeeded, o)
			r.Bytes += o.Bytes
			b.Succeeded++
			b.Bytes += o.Bytes
		} else {
			r.Failed = append(r.Failed, o)
			b.Failed++
		}
	}

	r.Buckets = make([]BucketSummary, 0, len(buckets))
	for _, b := range buckets {
		r.Buckets = append(r.Buckets, *b)
	}
	sort.Slice(r.Buckets, func(i, j int) bool { return r.Buckets[i].Bucket < r.Buckets[j].Bucket })
	return r
}
