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

package work

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// ❌ InvalidSourceError means the source root is missing or not a directory.
// It is fatal and reported before any work is dispatched.
type InvalidSourceError struct {
	Path string
	Err  error
}

func (e *InvalidSourceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid source %q", e.Path)
	}
	return fmt.Sprintf("invalid source %q: %v", e.Path, e.Err)
}

func (e *InvalidSourceError) Unwrap() error { return e.Err }

// 📁 DestinationError means a destination directory could not be created.
type DestinationError struct {
	Dir string
	Err error
}

func (e *DestinationError) Error() string {
	return fmt.Sprintf("creating destination %q: %v", e.Dir, e.Err)
}

func (e *DestinationError) Unwrap() error { return e.Err }

// 📄 CopyError is any failure while copying a single file, including failures
// to even read its directory entry during the walk.
type CopyError struct {
	Source string
	Target string
	Err    error
}

func (e *CopyError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("copying %q: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("copying %q to %q: %v", e.Source, e.Target, e.Err)
}

func (e *CopyError) Unwrap() error { return e.Err }

// IsInvalidSource reports whether err carries an InvalidSourceError.
func IsInvalidSource(err error) bool {
	var e *InvalidSourceError
	return errors.As(err, &e)
}

// IsDestination reports whether err carries a DestinationError.
func IsDestination(err error) bool {
	var e *DestinationError
	return errors.As(err, &e)
}

// IsCopy reports whether err carries a CopyError.
func IsCopy(err error) bool {
	var e *CopyError
	return errors.As(err, &e)
}
