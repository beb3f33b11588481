package demo

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// AssetLoader serves the pre-rendered scenario images. Files are read from
// disk once and memoized in an expirable LRU so repeated demo serves do
// not hit the filesystem.
type AssetLoader struct {
	dir   string
	cache *expirable.LRU[string, string]
}

func NewAssetLoader(dir string) *AssetLoader {
	return &AssetLoader{
		dir:   dir,
		cache: expirable.NewLRU[string, string](16, nil, 30*time.Minute),
	}
}

// Image returns the named asset as a base64 data URL.
func (l *AssetLoader) Image(file string) (string, error) {
	if file == "" {
		return "", fmt.Errorf("asset file name is empty")
	}
	if v, ok := l.cache.Get(file); ok {
		return v, nil
	}
	b, err := os.ReadFile(filepath.Join(l.dir, filepath.Clean(file)))
	if err != nil {
		return "", fmt.Errorf("demo asset %q: %w", file, err)
	}
	payload := "data:" + mimeFor(file) + ";base64," + base64.StdEncoding.EncodeToString(b)
	l.cache.Add(file, payload)
	return payload, nil
}

func mimeFor(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
