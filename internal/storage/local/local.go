// Package local reads receipt images from a directory tree.
package local

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/ProstoyVadila/ml-service/internal/port"
	"github.com/ProstoyVadila/ml-service/internal/storage"
)

// ImageSource serves images below a root directory. Keys are slash-separated
// paths relative to the root.
type ImageSource struct {
	root string
}

var _ port.ImageSource = (*ImageSource)(nil)

func NewImageSource(root string) *ImageSource {
	return &ImageSource{root: root}
}

// List walks the root and returns image keys sorted by path.
func (s *ImageSource) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !storage.IsImage(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Load reads one image. Keys escaping the root are rejected.
func (s *ImageSource) Load(_ context.Context, key string) (*port.ImageObject, error) {
	rel := filepath.FromSlash(key)
	if !filepath.IsLocal(rel) {
		return nil, fmt.Errorf("invalid key %q", key)
	}
	data, err := os.ReadFile(filepath.Join(s.root, rel))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return &port.ImageObject{Key: key, Body: data}, nil
}
