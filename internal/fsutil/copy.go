// Package fsutil provides metadata-preserving copy primitives over an afero filesystem.
package fsutil

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/errors"
)

const (
	copyBufferSize = 32 * 1024
	dirPerm        = 0o755

	// FilePerm is the permission used for generated text files.
	FilePerm os.FileMode = 0o644
)

// CopyFile copies src to dst, preserving the source's permission bits and
// modification time. The destination is written to a temporary file in the
// same directory and renamed into place.
func CopyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return errors.FileError(err, src)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return errors.FileError(err, src)
	}
	if info.IsDir() {
		return errors.Newf("copy source %s is a directory", src).
			Component("fsutil").
			Category(errors.CategoryFileIO).
			FileContext(src, 0).
			Build()
	}

	err = atomicWriteFile(fs, dst, info.Mode().Perm(), func(out afero.File) error {
		buf := make([]byte, copyBufferSize)
		_, err := io.CopyBuffer(out, in, buf)
		return err
	})
	if err != nil {
		return errors.New(err).
			Component("fsutil").
			Category(errors.CategoryFileIO).
			FileContext(dst, info.Size()).
			Context("source", src).
			Build()
	}

	if err := fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.FileError(err, dst)
	}
	return nil
}

// WriteFile writes data to path atomically with the given permissions.
func WriteFile(fs afero.Fs, path string, data []byte, perm os.FileMode) error {
	err := atomicWriteFile(fs, path, perm, func(out afero.File) error {
		_, err := out.Write(data)
		return err
	})
	if err != nil {
		return errors.New(err).
			Component("fsutil").
			Category(errors.CategoryFileIO).
			FileContext(path, int64(len(data))).
			Build()
	}
	return nil
}

// CopyTree copies the directory src to dst recursively. dst must not exist.
func CopyTree(fs afero.Fs, src, dst string) error {
	if exists, err := afero.Exists(fs, dst); err != nil {
		return errors.FileError(err, dst)
	} else if exists {
		return errors.Newf("copy destination %s already exists", dst).
			Component("fsutil").
			Category(errors.CategoryConflict).
			FileContext(dst, 0).
			Build()
	}

	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.FileError(err, path)
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return errors.FileError(err, path)
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			if err := fs.MkdirAll(target, info.Mode().Perm()|0o700); err != nil {
				return errors.FileError(err, target)
			}
			return nil
		}
		return CopyFile(fs, path, target)
	})
}

// atomicWriteFile writes through a temporary file and renames it to targetPath.
func atomicWriteFile(fs afero.Fs, targetPath string, perm os.FileMode, write func(afero.File) error) error {
	dir := filepath.Dir(targetPath)
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(targetPath)+".*.tmp")
	if err != nil {
		return errors.Newf("failed to create temporary file: %w", err).Build()
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = fs.Remove(tmpPath)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return errors.Newf("failed to sync file: %w", err).Build()
	}
	if err := tmp.Close(); err != nil {
		return errors.Newf("failed to close temporary file: %w", err).Build()
	}
	if err := fs.Chmod(tmpPath, perm); err != nil {
		return errors.Newf("failed to set file permissions: %w", err).Build()
	}
	if err := fs.Rename(tmpPath, targetPath); err != nil {
		return errors.Newf("failed to rename temporary file: %w", err).Build()
	}

	success = true
	return nil
}

// EnsureDir creates path and any missing parents.
func EnsureDir(fs afero.Fs, path string) error {
	if err := fs.MkdirAll(path, dirPerm); err != nil {
		return errors.FileError(err, path)
	}
	return nil
}
