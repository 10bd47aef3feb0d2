package framemark

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"k8s.io/klog/v2"
)

// Extensions are the source file types picked up by Find.
var Extensions = []string{".jpg", ".jpeg", ".png"}

// OutSuffix marks rendered files so that an OutDir inside InDir is not re-rendered.
var OutSuffix = "_framed"

func wanted(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return !strings.Contains(filepath.Base(path), OutSuffix)
		}
	}
	return false
}

// Find returns the photos under root, skipping dot files and directories.
func Find(root string) ([]*Photo, error) {
	found := []*Photo{}

	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && filepath.Base(path)[0] == '.' {
				return godirwalk.SkipThis
			}
			if de.IsDir() || !wanted(path) {
				return nil
			}

			klog.V(1).Infof("found %s", path)
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			fi, err := os.Stat(path)
			if err != nil {
				klog.Errorf("stat failure: %v", err)
				return err
			}

			found = append(found, &Photo{InPath: path, RelPath: rel, ModTime: fi.ModTime(), Size: fi.Size()})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].RelPath < found[j].RelPath })
	return found, nil
}

// Dirs returns root and every directory below it, skipping dot directories.
func Dirs(root string) ([]string, error) {
	dirs := []string{}
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if path != root && filepath.Base(path)[0] == '.' {
				return godirwalk.SkipThis
			}
			if de.IsDir() {
				dirs = append(dirs, path)
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return dirs, nil
}
