package bundle

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/sentinelvnc/sentinel/forensics/pkg/storage"
)

// Export writes the incident's raw and manifest directories to w as a
// zstd-compressed tar and returns the archived paths in write order.
// Paths inside the archive are relative to the incident directory.
func Export(layout storage.Layout, incidentID string, w io.Writer) ([]string, error) {
	root := layout.IncidentDir(incidentID)
	if _, err := os.Stat(filepath.Join(root, "manifest")); err != nil {
		return nil, fmt.Errorf("incident %s has no manifest directory: %w", incidentID, err)
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zw)

	var files []string
	for _, sub := range []string{"manifest", "raw"} {
		err := filepath.WalkDir(filepath.Join(root, sub), func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			name := filepath.ToSlash(rel)
			if err := addFile(tw, path, name); err != nil {
				return err
			}
			files = append(files, name)
			return nil
		})
		if err != nil && !os.IsNotExist(err) {
			tw.Close()
			zw.Close()
			return nil, fmt.Errorf("archive %s: %w", sub, err)
		}
	}

	if err := tw.Close(); err != nil {
		zw.Close()
		return nil, fmt.Errorf("failed to finish tar: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish zstd stream: %w", err)
	}
	return files, nil
}

func addFile(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
