// Package headers enumerates the header files of a library's exported
// include directories.
package headers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/abitools/abilinker/lib/fsext"
)

// Set is a set of header file paths.
type Set map[string]struct{}

// Has reports whether path is in s.
func (s Set) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Sorted returns the members of s in ascending order.
func (s Set) Sorted() []string {
	res := make([]string, 0, len(s))
	for k := range s {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// Collect walks every dir recursively and returns the paths of the regular
// files found. Hidden directories and editor backup files are skipped.
// Relative dirs are resolved against cwd; both the relative and the
// absolute path of each file are added so dumps using either form match.
func Collect(fs fsext.Fs, cwd string, dirs []string) (Set, error) {
	res := make(Set)
	for _, dir := range dirs {
		root := dir
		relative := !filepath.IsAbs(dir) && cwd != ""
		if relative {
			root = fsext.Abs(cwd, dir)
		}
		if isDir, err := fsext.IsDir(fs, root); err != nil || !isDir {
			return nil, fmt.Errorf("exported header directory %q does not exist or is not a directory", dir)
		}

		err := fsext.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			name := info.Name()
			if info.IsDir() {
				if path != root && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !info.Mode().IsRegular() || strings.HasSuffix(name, "~") {
				return nil
			}

			path = filepath.Clean(path)
			res[path] = struct{}{}
			if relative {
				rel, err := filepath.Rel(root, path)
				if err != nil {
					return err
				}
				res[filepath.Join(dir, rel)] = struct{}{}
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("couldn't collect headers from %q: %w", dir, err)
		}
	}
	return res, nil
}
