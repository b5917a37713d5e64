// Package filter selects files based on include/exclude patterns using find -path semantics.
package filter

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Filter selects files based on include/exclude patterns using find -path semantics.
// Empty includes means "match all". Excludes always win.
type Filter struct {
	includes []pattern
	excludes []pattern
}

// NewFilter compiles include/exclude patterns into a reusable filter.
func NewFilter(includes, excludes []string) (*Filter, error) {
	inc, err := compilePatterns(includes)
	if err != nil {
		return nil, fmt.Errorf("compiling include patterns: %w", err)
	}

	exc, err := compilePatterns(excludes)
	if err != nil {
		return nil, fmt.Errorf("compiling exclude patterns: %w", err)
	}

	return &Filter{includes: inc, excludes: exc}, nil
}

// match returns true if the relative path should be included.
func (f *Filter) match(path string, hasIncludes bool) bool {
	included := !hasIncludes || matchAny(f.includes, path)

	return included && !matchAny(f.excludes, path)
}

// Resolve expands positional args into the files to decrypt. Files are added
// directly (bypassing filtering). Directories are walked and filtered; without
// include patterns only TrackPatterns are picked up.
// Returns matched files and total candidates scanned.
func Resolve(args []string, sel Selection) (files []string, scanned int, err error) {
	includes, excludes, hasIncludes, err := sel.Patterns()
	if err != nil {
		return nil, 0, err
	}

	if !hasIncludes {
		includes = append(includes, TrackPatterns()...)
		hasIncludes = true
	}

	flt, err := NewFilter(includes, excludes)
	if err != nil {
		return nil, 0, err
	}

	seen := make(map[string]struct{})

	for _, arg := range args {
		arg = filepath.Clean(arg)

		info, err := os.Stat(arg)
		if err != nil {
			return nil, 0, fmt.Errorf("stat %q: %w", arg, err)
		}

		if !info.IsDir() {
			// Explicit file: bypass filtering, add directly.
			scanned++

			if _, ok := seen[arg]; ok {
				continue
			}

			seen[arg] = struct{}{}
			files = append(files, arg)

			continue
		}

		// Directory: walk and filter.
		walked, total, err := walkDir(arg, flt, hasIncludes)
		if err != nil {
			return nil, 0, err
		}

		scanned += total

		for _, path := range walked {
			if _, ok := seen[path]; ok {
				continue
			}

			seen[path] = struct{}{}
			files = append(files, path)
		}
	}

	if len(files) == 0 {
		return nil, scanned, fmt.Errorf("no tracks matched the provided patterns: %v", args)
	}

	return files, scanned, nil
}

// Walk returns every file below args with forward slashes, without filtering.
func Walk(args []string) ([]string, error) {
	var paths []string

	seen := make(map[string]struct{})

	add := func(path string) {
		clean := filepath.ToSlash(filepath.Clean(path))
		if _, ok := seen[clean]; !ok {
			seen[clean] = struct{}{}
			paths = append(paths, clean)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("stat %q: %w", arg, err)
		}

		if !info.IsDir() {
			add(arg)

			continue
		}

		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() {
				add(path)
			}

			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %q: %w", arg, err)
		}
	}

	return paths, nil
}

// walkDir walks root recursively, returning files that pass the filter.
// Paths are relative to cwd (e.g. "music/song.mflac" when root is ".").
func walkDir(root string, flt *Filter, hasIncludes bool) (files []string, total int, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		total++

		// Use forward slashes for pattern matching consistency.
		clean := filepath.ToSlash(filepath.Clean(path))

		if !flt.match(clean, hasIncludes) {
			return nil
		}

		files = append(files, path)

		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("walking %q: %w", root, err)
	}

	return files, total, nil
}
