package transform

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

// Extract unpacks every entry of the zip archive into dir, creating it if needed and
// overwriting existing files. It returns the number of files written.
func Extract(archive, dir string) (int, error) {
	rd, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		rd.Close()

		return 0, errors.Wrapf(ErrUnsafePath, "opening %s: %s", archive, err)
	}

	if err != nil {
		return 0, errors.Wrapf(ErrArchive, "opening %s: %s", archive, err)
	}
	defer rd.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, errors.Wrapf(ErrStorage, "creating %s: %s", dir, err)
	}

	var (
		files int
		size  uint64
	)

	for _, entry := range rd.File {
		target, err := entryPath(dir, entry.Name)
		if err != nil {
			return files, err
		}

		if entry.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, errors.Wrapf(ErrStorage, "creating %s: %s", target, err)
			}

			continue
		}

		if err := extractFile(entry, target); err != nil {
			return files, err
		}

		files++
		size += entry.UncompressedSize64
	}

	logger.Debugf("extracted %d files (%s) from %s", files, humanize.Bytes(size), archive)

	return files, nil
}

// entryPath resolves name under dir and rejects names escaping it.
func entryPath(dir, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", errors.Wrapf(ErrUnsafePath, "absolute entry %q", name)
	}

	target := filepath.Join(dir, name)

	rel, err := filepath.Rel(dir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrUnsafePath, "entry %q escapes %s", name, dir)
	}

	return target, nil
}

func extractFile(entry *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errors.Wrapf(ErrStorage, "creating %s: %s", filepath.Dir(target), err)
	}

	src, err := entry.Open()
	if err != nil {
		return errors.Wrapf(ErrArchive, "opening entry %s: %s", entry.Name, err)
	}
	defer src.Close()

	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errors.Wrapf(ErrStorage, "creating %s: %s", target, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()

		return errors.Wrapf(ErrArchive, "extracting %s: %s", entry.Name, err)
	}

	if err := dst.Close(); err != nil {
		return errors.Wrapf(ErrStorage, "closing %s: %s", target, err)
	}

	return nil
}
