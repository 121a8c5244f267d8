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
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/walteh/sortrc/pkg/aggregate"
	"github.com/walteh/sortrc/pkg/config"
	"github.com/walteh/sortrc/pkg/destination"
	"github.com/walteh/sortrc/pkg/dispatch"
	"github.com/walteh/sortrc/pkg/status"
	"github.com/walteh/sortrc/pkg/work"
	"gitlab.com/tozd/go/errors"
)

// 🔧 Options contains configuration for a sort run
type Options struct {
	// Config holds source, destination and pool settings
	Config *config.Config
	// Reporter receives outcomes as they complete, optional
	Reporter status.Reporter
}

// 🎯 Sort copies every regular file under the configured source into
// destination/<bucket>/<name>.
//
// The returned error is only set for fatal pre-flight failures: an invalid
// source, an unusable destination, a held lock, or bad configuration. Per
// file failures are reported in the returned report.
func Sort(ctx context.Context, opts Options) (*aggregate.Report, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}
	if cfg.Source == "" {
		return nil, errors.New("source is required")
	}
	if cfg.Destination == "" {
		return nil, errors.New("destination is required")
	}

	runID := uuid.NewString()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()

	if err := dispatch.ValidateSource(cfg.Source); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.Destination, destination.DirPerm); err != nil {
		return nil, &work.DestinationError{Dir: cfg.Destination, Err: err}
	}

	if cfg.LockEnabled() {
		lock, err := acquireLock(ctx, cfg.Destination)
		if err != nil {
			return nil, err
		}
		defer lock.release(ctx)
	}

	classifier, err := cfg.Classifier()
	if err != nil {
		return nil, errors.Errorf("building classifier: %w", err)
	}

	pools := newPools(ctx, cfg)
	d, err := dispatch.New(dispatch.Options{
		Classifier: classifier,
		Resolver:   destination.NewResolver(),
		Pools:      pools.list(),
		Ignore:     cfg.Ignore,
		Exclude:    []string{filepath.Join(cfg.Destination, LockFile)},
	})
	if err != nil {
		pools.shutdown(ctx)
		return nil, errors.Errorf("creating dispatcher: %w", err)
	}

	handles, err := d.Dispatch(ctx, cfg.Source, cfg.Destination)
	if err != nil {
		// anything already submitted still runs to completion
		aggregate.AwaitAll(ctx, handles, nil)
		pools.shutdown(ctx)
		return nil, err
	}

	outcomes := aggregate.AwaitAll(ctx, handles, opts.Reporter)
	pools.shutdown(ctx)

	report := aggregate.Summarize(outcomes)
	report.RunID = runID

	logger.Info().
		Int("total", report.Total()).
		Int("succeeded", len(report.Succeeded)).
		Int("failed", len(report.Failed)).
		Int64("bytes", report.Bytes).
		Dur("elapsed", time.Since(start)).
		Msg("sort finished")

	return report, nil
}
