package logic

import (
	"errors"
	"fmt"
	"os"

	"github.com/idelchi/unqmc/internal/config"
	"github.com/idelchi/unqmc/internal/filter"
)

// RunCheck validates that every include/exclude pattern matches at least one file.
func RunCheck(cfg *config.Config) error {
	includes, excludes, _, err := selection(cfg).Patterns()
	if err != nil {
		return err
	}

	if len(includes) == 0 && len(excludes) == 0 {
		return errors.New("no include or exclude patterns to check")
	}

	candidates, err := filter.Walk(cfg.Files)
	if err != nil {
		return err
	}

	var failures int

	failures += checkPatterns("include", includes, candidates, cfg.Quiet)
	failures += checkPatterns("exclude", excludes, candidates, cfg.Quiet)

	if failures > 0 {
		return fmt.Errorf("%d pattern(s) matched no files", failures)
	}

	return nil
}

// checkPatterns tests each pattern individually against candidates.
// Returns the number of patterns that matched zero files.
func checkPatterns(kind string, patterns, candidates []string, quiet bool) int {
	var failures int

	for _, pattern := range patterns {
		count, err := filter.Count(pattern, candidates)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", kind, err)

			failures++

			continue
		}

		if count == 0 {
			fmt.Fprintf(os.Stderr, "%s: %s: 0 files (ERROR)\n", kind, pattern)

			failures++
		} else if !quiet {
			fmt.Fprintf(os.Stderr, "%s: %s: %d files\n", kind, pattern, count)
		}
	}

	return failures
}
