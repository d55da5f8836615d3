package registry

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"koboldswitch/internal/common/fsutil"
	"koboldswitch/pkg/types"
)

// GGUFScanner lists *.gguf model files below a models directory.
type GGUFScanner struct {
	// MaxDepth limits how many directory levels below the root are visited.
	// 0 scans only the root.
	MaxDepth int
}

// NewGGUFScanner returns a scanner that also looks one directory level down,
// matching the "family/model.gguf" layout koboldcpp users commonly keep.
func NewGGUFScanner() *GGUFScanner { return &GGUFScanner{MaxDepth: 1} }

// Scan walks dir and returns the models sorted by ID. ID is the path relative
// to dir using forward slashes, which is what PUT /model accepts.
func (s *GGUFScanner) Scan(dir string) ([]types.Model, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	var models []types.Model
	err = filepath.WalkDir(abs, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == abs {
				return err
			}
			// Unreadable subdirectories are skipped.
			return nil
		}
		rel, _ := filepath.Rel(abs, p)
		if d.IsDir() {
			if p != abs && strings.Count(rel, string(filepath.Separator)) >= s.MaxDepth {
				return fs.SkipDir
			}
			return nil
		}
		name := d.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			return nil
		}
		var size int64
		if info, ierr := d.Info(); ierr == nil {
			size = info.Size()
		}
		models = append(models, types.Model{
			ID:        filepath.ToSlash(rel),
			Name:      strings.TrimSuffix(name, filepath.Ext(name)),
			Path:      p,
			SizeBytes: size,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// LoadDir scans dir with the default scanner.
func LoadDir(dir string) ([]types.Model, error) {
	return NewGGUFScanner().Scan(dir)
}
