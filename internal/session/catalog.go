package session

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/itsmostafa/goplay/internal/lesson"
)

// Catalog discovers lesson files below a root directory.
type Catalog struct {
	// Root is the directory scanned. A lesson file is accepted as well and
	// yields just itself.
	Root string

	// ExcludeDirs is a list of directory names skipped while walking.
	ExcludeDirs []string
}

// NewCatalog creates a catalog for root.
func NewCatalog(root string, exclude []string) *Catalog {
	return &Catalog{Root: root, ExcludeDirs: exclude}
}

// Discover returns the lesson files below Root in lexical path order.
func (c *Catalog) Discover() ([]string, error) {
	info, err := os.Stat(c.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to read lessons directory: %w", err)
	}
	if !info.IsDir() {
		if !isLessonFile(c.Root) {
			return nil, fmt.Errorf("%s is not a lesson file (expected one of %s)", c.Root, strings.Join(lesson.Extensions, ", "))
		}
		return []string{c.Root}, nil
	}

	var paths []string
	err = filepath.WalkDir(c.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != c.Root && c.isExcludedDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if isLessonFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", c.Root, err)
	}
	slices.Sort(paths)
	return paths, nil
}

// isExcludedDir checks if a directory name should be skipped.
func (c *Catalog) isExcludedDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	return slices.Contains(c.ExcludeDirs, name)
}

func isLessonFile(path string) bool {
	return slices.Contains(lesson.Extensions, strings.ToLower(filepath.Ext(path)))
}
