// Package archive packs generated project directories into zip files.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrArchiveFailed is returned when writing the zip archive fails. The
// partially-written archive, if any, is removed before returning.
var ErrArchiveFailed = errors.New("failed to create zip archive")

// ZipDir writes a deflate-compressed zip of srcDir to zipPath. Entry names
// are relative to srcDir's root, so the archive unpacks without a leading
// output-area path segment.
func ZipDir(srcDir, zipPath string) error {
	info, err := os.Stat(srcDir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: source %q is not a directory", ErrArchiveFailed, srcDir)
	}

	if err := writeZip(srcDir, zipPath); err != nil {
		// Ignore-missing removal keeps the error path free of partial output.
		os.Remove(zipPath)
		return fmt.Errorf("%w: %v", ErrArchiveFailed, err)
	}

	return nil
}

func writeZip(srcDir, zipPath string) error {
	f, err := os.Create(zipPath)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(f)

	walkErr := filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}

		header := &zip.FileHeader{
			Name:     filepath.ToSlash(rel),
			Method:   zip.Deflate,
			Modified: info.ModTime(),
		}
		header.SetMode(info.Mode())

		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}

		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()

		_, err = io.Copy(w, in)
		return err
	})

	if walkErr != nil {
		zw.Close()
		f.Close()
		return walkErr
	}

	if err := zw.Close(); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
