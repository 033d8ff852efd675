// Package util - Input discovery helpers for the command line tools.
package util

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-foodvision/images"
)

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the number at the end of the file name, or -1 if there is none.
	Frame int
}

// CollectImageFiles expands paths into the image files to process.
//
// Files are taken as given, whatever their extension. Directories contribute
// their supported images (non-recursive), ordered by trailing frame number
// ("frame-12.jpg" before "frame-100.jpg") and then by name.
//
// Arguments:
//   - paths: Files and directories.
//
// Returns:
//   - []ImageFile: The image files, in processing order.
//   - error: Error if a path does not exist or a directory cannot be read.
func CollectImageFiles(paths ...string) ([]ImageFile, error) {
	var files []ImageFile
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", p)
		}
		if !info.IsDir() {
			files = append(files, ImageFile{Path: p, Frame: frameNumber(p)})
			continue
		}

		dirFiles, err := LoadDirectoryImageFiles(p)
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}
	return files, nil
}

// LoadDirectoryImageFiles lists the supported image files in a directory.
//
// Arguments:
//   - dir: Directory path containing image files.
//
// Returns:
//   - []ImageFile: The image files ordered by frame number, then name.
//   - error: Error if the directory cannot be read.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var files []ImageFile
	for _, entry := range entries {
		if entry.IsDir() || !images.IsSupported(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		files = append(files, ImageFile{Path: path, Frame: frameNumber(path)})
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Frame != files[j].Frame {
			return files[i].Frame < files[j].Frame
		}
		return files[i].Path < files[j].Path
	})

	return files, nil
}

// frameNumber parses the digits at the end of the base name, without extension.
func frameNumber(path string) int {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	end := len(name)
	start := end
	for start > 0 && unicode.IsDigit(rune(name[start-1])) {
		start--
	}
	if start == end {
		return -1
	}
	n, err := strconv.Atoi(name[start:end])
	if err != nil {
		return -1
	}
	return n
}
