package logic

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"

	"github.com/idelchi/unqmc/internal/config"
	"github.com/idelchi/unqmc/internal/decryption"
)

// RunInspect prints a YAML report per track without writing any output file.
func RunInspect(cfg *config.Config, log *logrus.Logger) error {
	if _, err := resolveFiles(cfg); err != nil {
		return fmt.Errorf("resolving files: %w", err)
	}

	proc, err := decryption.NewProcessor(cfg, decryption.WithLogger(log))
	if err != nil {
		return fmt.Errorf("creating processor: %w", err)
	}

	failures, err := inspect(os.Stdout, proc, cfg.Files)
	if err != nil {
		return err
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d file(s) could not be inspected", failures, len(cfg.Files))
	}

	return nil
}

// inspect writes one YAML document per file to w and returns the number of failures.
func inspect(w io.Writer, proc *decryption.Processor, files []string) (int, error) {
	var failures int

	for i, file := range files {
		report, err := proc.Inspect(file)
		if err != nil {
			failures++
		}

		out, err := yaml.Marshal(report)
		if err != nil {
			return failures, fmt.Errorf("encoding report: %w", err)
		}

		if i > 0 {
			fmt.Fprintln(w, "---")
		}

		if _, err := w.Write(out); err != nil {
			return failures, fmt.Errorf("writing report: %w", err)
		}
	}

	return failures, nil
}
