// Package logo resolves brand logos and turns them into banner-sized rasters.
package logo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/klog/v2"
)

var (
	// ErrNotFound is returned by a Resolver that has no asset for a key.
	ErrNotFound = errors.New("logo not found")

	// ErrDecode is returned for assets that are neither SVG nor a decodable raster.
	ErrDecode = errors.New("logo undecodable")
)

// Asset is an unparsed logo file.
type Asset struct {
	Key  string
	Data []byte
}

// Resolver finds the logo asset for a brand key such as "LEICA".
type Resolver interface {
	Resolve(ctx context.Context, key string) (Asset, error)
}

var extensions = []string{".svg", ".png", ".jpg", ".jpeg"}

// DirResolver looks for <key>.svg, .png or .jpg in Dir, trying the key as given,
// lower-case and upper-case.
type DirResolver struct {
	Dir string
}

// Resolve reads the first matching file.
func (d DirResolver) Resolve(ctx context.Context, key string) (Asset, error) {
	if d.Dir == "" || key == "" {
		return Asset{}, ErrNotFound
	}

	for _, k := range []string{key, strings.ToLower(key), strings.ToUpper(key)} {
		for _, ext := range extensions {
			if err := ctx.Err(); err != nil {
				return Asset{}, err
			}
			p := filepath.Join(d.Dir, k+ext)
			bs, err := os.ReadFile(p)
			if err != nil {
				if !errors.Is(err, os.ErrNotExist) {
					klog.Warningf("read %s: %v", p, err)
				}
				continue
			}
			klog.V(1).Infof("logo %s -> %s", key, p)
			return Asset{Key: key, Data: bs}, nil
		}
	}
	return Asset{}, fmt.Errorf("%s in %s: %w", key, d.Dir, ErrNotFound)
}

// None never finds a logo; every render falls back to the placeholder.
type None struct{}

func (None) Resolve(_ context.Context, key string) (Asset, error) {
	return Asset{}, fmt.Errorf("%s: %w", key, ErrNotFound)
}
