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

package status

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/work"
)

// 📊 FileStatus represents the state of a file in the run
type FileStatus int

const (
	StatusUnknown FileStatus = iota
	StatusPending            // Dispatched, no outcome yet
	StatusCopied             // Copied to its bucket
	StatusFailed             // Outcome carries an error
)

// String returns a human-readable representation of the status
func (s FileStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCopied:
		return "copied"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// 📡 Reporter receives outcomes as they complete
type Reporter interface {
	StartOperation(ctx context.Context, total int)
	TrackOutcome(ctx context.Context, outcome work.Outcome)
	FinishOperation(ctx context.Context)
}

// 🎯 Manager tracks progress for a run
type Manager struct {
	formatter FileFormatter

	mu        sync.RWMutex
	total     int
	processed int
	failed    int
}

var _ Reporter = (*Manager)(nil)

// 🏭 NewManager creates a new status manager
func NewManager(formatter FileFormatter) *Manager {
	if formatter == nil {
		formatter = NewDefaultFileFormatter()
	}
	return &Manager{
		formatter: formatter,
	}
}

// StartOperation resets progress for a run of total files.
func (m *Manager) StartOperation(ctx context.Context, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = total
	m.processed = 0
	m.failed = 0
	zerolog.Ctx(ctx).Info().Int("total", total).Msg(m.formatter.FormatProgress(0, total))
}

// TrackOutcome records outcome and advances progress.
func (m *Manager) TrackOutcome(ctx context.Context, outcome work.Outcome) {
	st := StatusCopied
	if outcome.Err != nil {
		st = StatusFailed
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.processed++
	if st == StatusFailed {
		m.failed++
	}

	logger := zerolog.Ctx(ctx)
	if outcome.Err != nil {
		logger.Debug().Str("path", outcome.SourcePath).Msg(m.formatter.FormatError(outcome.Err))
	} else {
		logger.Debug().Str("path", outcome.SourcePath).Msg(m.formatter.FormatFileOperation(outcome.SourcePath, outcome.Bucket, st))
	}
	logger.Debug().
		Int("processed", m.processed).
		Int("total", m.total).
		Msg(m.formatter.FormatProgress(m.processed, m.total))
}

// FinishOperation logs the final progress line.
func (m *Manager) FinishOperation(ctx context.Context) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zerolog.Ctx(ctx).Info().
		Int("processed", m.processed).
		Int("total", m.total).
		Int("failed", m.failed).
		Msg(m.formatter.FormatProgress(m.processed, m.total))
}

// Progress returns processed, failed and total counts.
func (m *Manager) Progress() (processed, failed, total int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processed, m.failed, m.total
}

// 🔀 Tee fans every call out to each non-nil reporter in order.
func Tee(reporters ...Reporter) Reporter {
	out := make(tee, 0, len(reporters))
	for _, r := range reporters {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

type tee []Reporter

func (t tee) StartOperation(ctx context.Context, total int) {
	for _, r := range t {
		r.StartOperation(ctx, total)
	}
}

func (t tee) TrackOutcome(ctx context.Context, outcome work.Outcome) {
	for _, r := range t {
		r.TrackOutcome(ctx, outcome)
	}
}

func (t tee) FinishOperation(ctx context.Context) {
	for _, r := range t {
		r.FinishOperation(ctx)
	}
}
