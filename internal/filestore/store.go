// Package filestore keeps a slice of records in one JSON document on disk.
//
// Every access is a full read-modify-write cycle run through a FIFO Queue,
// and writes replace the document atomically (temp file, fsync, rename), so
// a reader sees either the previous or the next complete state.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrCorrupt is returned when the document exists but is not a JSON array of records.
var ErrCorrupt = errors.New("corrupt document")

// Document is a JSON array of T stored at a single path.
type Document[T any] struct {
	path  string
	queue *Queue
}

// Open returns a document bound to path. The file is created lazily.
func Open[T any](path string) *Document[T] {
	return &Document[T]{path: path, queue: NewQueue()}
}

// Path returns the backing file path.
func (d *Document[T]) Path() string { return d.path }

// View runs fn over the current records. fn must not retain the slice.
func (d *Document[T]) View(ctx context.Context, fn func(items []T) error) error {
	return d.queue.Do(ctx, func() error {
		items, err := d.readAll()
		if err != nil {
			return err
		}
		return fn(items)
	})
}

// Update runs fn over the current records and persists what it returns.
// Returning changed=false skips the write; a non-nil error aborts it.
func (d *Document[T]) Update(ctx context.Context, fn func(items []T) (next []T, changed bool, err error)) error {
	return d.queue.Do(ctx, func() error {
		items, err := d.readAll()
		if err != nil {
			return err
		}
		next, changed, err := fn(items)
		if err != nil || !changed {
			return err
		}
		return d.writeAll(next)
	})
}

// Replace overwrites the document with items.
func (d *Document[T]) Replace(ctx context.Context, items []T) error {
	return d.queue.Do(ctx, func() error {
		return d.writeAll(items)
	})
}

func (d *Document[T]) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(d.path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(d.path), err)
	}
	_, err := os.Stat(d.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %s: %w", d.path, err)
	}
	return d.writeAll([]T{})
}

func (d *Document[T]) readAll() ([]T, error) {
	if err := d.ensureFile(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(d.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, d.path, err)
	}
	if items == nil {
		// a literal null is as unusable as garbage
		return nil, fmt.Errorf("%w: %s: not an array", ErrCorrupt, d.path)
	}
	return items, nil
}

func (d *Document[T]) writeAll(items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", d.path, err)
	}
	raw = append(raw, '\n')

	tmp := d.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}
