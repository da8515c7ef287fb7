// Package store holds the file primitives shared by the four state files:
// atomic JSON writes, tolerant reads, quarantine of malformed files and the
// advisory lock on the data directory.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"

	"github.com/cleared-dev/libro/internal/apperr"
)

// LockFile is the advisory lock file name inside the data directory.
const LockFile = ".libro.lock"

// ErrLocked is returned by Lock when another process holds the data directory.
var ErrLocked = errors.New("data directory is locked by another process")

// WriteJSON marshals v with two-space indentation and writes it atomically:
// the bytes go to a temp file in the same directory which is then renamed
// over path. A crash leaves either the old or the new file, never a torn one.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.KindStorageWrite, "encoding "+filepath.Base(path), err)
	}
	data = append(data, '\n')
	return WriteFile(path, data)
}

// WriteFile writes data to path atomically (temp file + rename).
func WriteFile(path string, data []byte) error {
	op := "writing " + filepath.Base(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Wrap(apperr.KindStorageWrite, op, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperr.Wrap(apperr.KindStorageWrite, op, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return apperr.Wrap(apperr.KindStorageWrite, op, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return apperr.Wrap(apperr.KindStorageWrite, op, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return apperr.Wrap(apperr.KindStorageWrite, op, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return apperr.Wrap(apperr.KindStorageWrite, op, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return apperr.Wrap(apperr.KindStorageWrite, op, err)
	}
	return nil
}

// ReadFile returns the contents of path. A missing file yields (nil, false, nil).
func ReadFile(path string) ([]byte, bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindStorageRead, "reading "+filepath.Base(path), err)
	}
	return data, true, nil
}

// IsBlank reports whether data holds only whitespace.
func IsBlank(data []byte) bool {
	return len(bytes.TrimSpace(data)) == 0
}

// Quarantine copies a malformed file aside as <path>.corrupt-<timestamp> so
// that a later save of a blank structure cannot destroy the user's data.
// Returns the quarantine path.
func Quarantine(path string, now time.Time) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s for quarantine: %w", path, err)
	}
	dst := fmt.Sprintf("%s.corrupt-%s", path, now.Format("20060102-150405"))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("writing quarantine copy: %w", err)
	}
	return dst, nil
}

// ReadWithRetry reads path and hands the bytes to decode. If decode fails
// (for instance because the writer is mid-rename) the read is retried once
// after delay. Read errors other than parse failures are not retried.
func ReadWithRetry(path string, delay time.Duration, decode func([]byte) error) error {
	policy := backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), 1)
	return backoff.Retry(func() error {
		data, ok, err := ReadFile(path)
		if err != nil {
			return backoff.Permanent(err)
		}
		if !ok {
			return backoff.Permanent(apperr.Wrap(apperr.KindStorageRead, "reading "+filepath.Base(path), fs.ErrNotExist))
		}
		if err := decode(data); err != nil {
			return apperr.Wrap(apperr.KindStorageRead, "parsing "+filepath.Base(path), err)
		}
		return nil
	}, policy)
}

// Lock is an advisory lock on a data directory.
type Lock struct {
	fl *flock.Flock
}

// AcquireLock takes the advisory lock in dir without blocking.
func AcquireLock(dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	fl := flock.New(filepath.Join(dir, LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking data dir: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. Safe to call on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
