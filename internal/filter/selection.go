package filter

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// trackFamilies maps the extension of each encrypted track family to the glob
// selecting all of its variants (".mflac0", ".mggl", ...).
//
//nolint:gochecknoglobals
var trackFamilies = []struct {
	extension string
	glob      string
}{
	{".mflac", "*.mflac*"},
	{".mgg", "*.mgg*"},
	{".mmp4", "*.mmp4"},
}

// TrackPatterns select encrypted tracks when walking directories without
// explicit includes.
func TrackPatterns() []string {
	patterns := make([]string, 0, len(trackFamilies))

	for _, family := range trackFamilies {
		patterns = append(patterns, family.glob)
	}

	return patterns
}

// Selection gathers the include/exclude patterns given on the command line and in
// pattern files.
type Selection struct {
	Include     []string
	Exclude     []string
	IncludeFrom string
	ExcludeFrom string
}

// Patterns merges flag and file patterns into globs. hasIncludes reports whether
// include filtering was requested at all.
func (s Selection) Patterns() (includes, excludes []string, hasIncludes bool, err error) {
	includes = append(includes, s.Include...)
	excludes = append(excludes, s.Exclude...)

	if s.IncludeFrom != "" {
		patterns, err := loadPatterns(s.IncludeFrom)
		if err != nil {
			return nil, nil, false, fmt.Errorf("loading include patterns: %w", err)
		}

		includes = append(includes, patterns...)
	}

	if s.ExcludeFrom != "" {
		patterns, err := loadPatterns(s.ExcludeFrom)
		if err != nil {
			return nil, nil, false, fmt.Errorf("loading exclude patterns: %w", err)
		}

		excludes = append(excludes, patterns...)
	}

	hasIncludes = len(s.Include) > 0 || s.IncludeFrom != ""

	return normalize(includes), normalize(excludes), hasIncludes, nil
}

// loadPatterns reads a JSONC array of patterns. Comments and trailing commas are
// allowed.
func loadPatterns(path string) ([]string, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is from user-supplied config
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", path, err)
	}

	var patterns []string
	if err := json.Unmarshal(jsonc.ToJSONInPlace(data), &patterns); err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}

	return patterns, nil
}

// normalize strips a leading "./" so patterns match cleaned paths, and widens a
// bare track extension such as ".mgg" to its whole family.
func normalize(patterns []string) []string {
	for i, p := range patterns {
		p = strings.TrimPrefix(p, "./")

		for _, family := range trackFamilies {
			if strings.EqualFold(p, family.extension) {
				p = family.glob

				break
			}
		}

		patterns[i] = p
	}

	return patterns
}
