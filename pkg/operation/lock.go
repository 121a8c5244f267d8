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
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// LockFile is the name of the lock file kept in the destination root. It is
// left in place after a run; only the flock on it matters.
const LockFile = ".sortrc.lock"

// ErrDestinationLocked is returned when another run holds the destination.
var ErrDestinationLocked = errors.New("destination is locked by another sortrc run")

// 🔒 destLock wraps a flock held for the duration of a run
type destLock struct {
	flock *flock.Flock
	path  string
}

func acquireLock(ctx context.Context, destRoot string) (*destLock, error) {
	path := filepath.Join(destRoot, LockFile)
	fl := flock.New(path)

	ok, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("acquiring lock %s: %w", path, err)
	}
	if !ok {
		return nil, errors.Errorf("%w: %s", ErrDestinationLocked, path)
	}

	zerolog.Ctx(ctx).Debug().Str("lock", path).Msg("destination locked")
	return &destLock{flock: fl, path: path}, nil
}

func (l *destLock) release(ctx context.Context) {
	if err := l.flock.Unlock(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("lock", l.path).Msg("releasing lock")
	}
}
