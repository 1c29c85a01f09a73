package cache

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/zerr"
)

// packDir serializes a directory into a gzip-compressed tarball.
func packDir(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		hdr := &tar.Header{
			Name: filepath.ToSlash(rel),
			Mode: int64(info.Mode().Perm()),
			Size: info.Size(),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}

		f, err := os.Open(path) //nolint:gosec // Path is under the artifact directory
		if err != nil {
			return err
		}
		defer f.Close() //nolint:errcheck // Best effort close in defer

		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, zerr.Wrap(err, "failed to pack artifact")
	}

	if err := tw.Close(); err != nil {
		return nil, zerr.Wrap(err, "failed to finalize tar")
	}
	if err := gz.Close(); err != nil {
		return nil, zerr.Wrap(err, "failed to finalize gzip")
	}
	return buf.Bytes(), nil
}

// unpackDir extracts a gzip-compressed tarball into dir.
func unpackDir(blob []byte, dir string) error {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return zerr.Wrap(err, "failed to open gzip stream")
	}
	tr := tar.NewReader(gz)

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return zerr.Wrap(err, "failed to read tar entry")
		}

		name := filepath.FromSlash(hdr.Name)
		if strings.Contains(name, "..") {
			return zerr.With(zerr.New("tar entry escapes target directory"), "name", hdr.Name)
		}
		target := filepath.Join(dir, name)

		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return zerr.Wrap(err, "failed to create artifact directory")
		}

		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode)) //nolint:gosec // Entry name is validated above
		if err != nil {
			return zerr.Wrap(err, "failed to create artifact file")
		}
		if _, err := io.Copy(out, tr); err != nil { //nolint:gosec // Blob size is bounded by the cache backend
			_ = out.Close()
			return zerr.Wrap(err, "failed to extract artifact file")
		}
		if err := out.Close(); err != nil {
			return zerr.Wrap(err, "failed to close artifact file")
		}
	}
	return nil
}
