package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// AtomicWriteFile writes content to path with the temp + fsync + rename
// discipline shared by every filesystem mutation in this repository:
//
//  1. Parent directories are created idempotently.
//  2. Content goes to a sibling temp file ".<name>.<rand>.tmp".
//  3. The temp file is fsynced before the rename.
//  4. The rename onto the target is atomic.
//  5. On any failure the temp file is unlinked; the target is never
//     partially written.
func AtomicWriteFile(path string, content []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Base(dir), err)
	}

	tmpName := fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.New().String()[:8])
	tmpPath := filepath.Join(dir, tmpName)

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	cleanup := func() {
		f.Close()
		os.Remove(tmpPath)
	}

	if _, err := f.Write(content); err != nil {
		cleanup()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// AtomicCopyFile copies src to dst using the atomic write discipline.
func AtomicCopyFile(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return AtomicWriteFile(dst, data, perm)
}
