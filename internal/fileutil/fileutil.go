// Package fileutil provides small filesystem helpers shared by the pipeline
// and the upload batch.
package fileutil

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VideoExtensions lists the container extensions the upload batch considers.
var VideoExtensions = []string{".mp4", ".mkv", ".mov", ".avi", ".mts", ".m2ts"}

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// VideosByModTime returns the video files directly under dir, ordered by
// modification time then name. The upload metadata file is positionally
// aligned with this ordering.
func VideosByModTime(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		path    string
		modTime int64
	}
	candidates := make([]candidate, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isVideo(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{
			path:    filepath.Join(dir, entry.Name()),
			modTime: info.ModTime().UnixNano(),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].modTime != candidates[j].modTime {
			return candidates[i].modTime < candidates[j].modTime
		}
		return candidates[i].path < candidates[j].path
	})

	paths := make([]string, len(candidates))
	for i, c := range candidates {
		paths[i] = c.path
	}
	return paths, nil
}

func isVideo(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, known := range VideoExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
