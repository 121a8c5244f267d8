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

// Package transfer implements the file copies executed by the pools.
//
// Copies write to a temp file next to the target and rename it into place, so
// a reader never sees a half written target and an existing target is
// replaced in one step. Mode, access time and modification time are carried
// over.
package transfer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"io"
	"os"
	"path/filepath"

	"gitlab.com/tozd/go/errors"
)

// tempPattern names in-flight copies. It stays short so any target name the
// filesystem accepts also leaves room for the temp name.
const tempPattern = ".sortrc-*.tmp"

// 📦 Result describes a finished copy.
type Result struct {
	Bytes    int64
	Checksum string // Hex SHA-256, empty for plain copies
}

// Func is the shape shared by Copy and DigestCopy.
type Func func(ctx context.Context, src, dst string) (Result, error)

// 📄 Copy copies src to dst, preserving mode and modification time.
func Copy(ctx context.Context, src, dst string) (Result, error) {
	return copyFile(src, dst, nil)
}

// 🔐 DigestCopy copies src to dst like Copy while hashing the content, and
// returns the digest.
func DigestCopy(ctx context.Context, src, dst string) (Result, error) {
	h := sha256.New()
	res, err := copyFile(src, dst, h)
	if err != nil {
		return Result{}, err
	}
	res.Checksum = hex.EncodeToString(h.Sum(nil))
	return res, nil
}

func copyFile(src, dst string, digest hash.Hash) (Result, error) {
	source, err := os.Open(src)
	if err != nil {
		return Result{}, errors.Errorf("opening source file: %w", err)
	}
	defer source.Close()

	info, err := source.Stat()
	if err != nil {
		return Result{}, errors.Errorf("stat source file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return Result{}, errors.Errorf("source is not a regular file: %s", info.Mode().Type())
	}

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, tempPattern)
	if err != nil {
		return Result{}, errors.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName) // no-op once renamed
	}()

	var w io.Writer = tmp
	if digest != nil {
		w = io.MultiWriter(tmp, digest)
	}

	n, err := io.Copy(w, source)
	if err != nil {
		return Result{}, errors.Errorf("copying file content: %w", err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return Result{}, errors.Errorf("setting mode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return Result{}, errors.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, errors.Errorf("closing temp file: %w", err)
	}
	atime, ok := accessTime(info)
	if !ok {
		atime = info.ModTime()
	}
	if err := os.Chtimes(tmpName, atime, info.ModTime()); err != nil {
		return Result{}, errors.Errorf("setting times: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return Result{}, errors.Errorf("renaming temp file: %w", err)
	}

	return Result{Bytes: n}, nil
}
