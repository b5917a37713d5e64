package decryption

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/idelchi/unqmc/internal/config"
	"github.com/idelchi/unqmc/internal/ekey"
	"github.com/idelchi/unqmc/internal/fileutil"
)

// Processor handles the decryption of files.
type Processor struct {
	// cfg contains runtime configuration options
	cfg *config.Config

	// log receives per-file diagnostics
	log *logrus.Logger

	// unwrapper recovers content keys from encoded keys
	unwrapper *ekey.Unwrapper

	// ekey is the external encoded key for tracks without an embedded one
	ekey string

	// results channels processing outcomes to the printer goroutine
	results chan Result
}

// Option configures a Processor.
type Option func(*Processor)

// WithUnwrapper replaces the default key unwrapper.
func WithUnwrapper(u *ekey.Unwrapper) Option {
	return func(p *Processor) {
		p.unwrapper = u
	}
}

// WithLogger sets the diagnostics logger.
func WithLogger(log *logrus.Logger) Option {
	return func(p *Processor) {
		p.log = log
	}
}

// NewProcessor creates a new Processor with the given configuration.
func NewProcessor(cfg *config.Config, opts ...Option) (*Processor, error) {
	encoded, err := cfg.ResolveEKey()
	if err != nil {
		return nil, fmt.Errorf("reading key: %w", err)
	}

	processor := &Processor{
		cfg:       cfg,
		ekey:      encoded,
		unwrapper: ekey.New(),
		results:   make(chan Result, len(cfg.Files)),
	}

	for _, opt := range opts {
		opt(processor)
	}

	if processor.log == nil {
		processor.log = logrus.New()
	}

	return processor, nil
}

// ProcessFiles concurrently decrypts all files specified in the configuration.
// Returns the number of successfully processed files and the number of errors.
//
//nolint:cyclop,gocognit
func (p *Processor) ProcessFiles() (processed, errored int, totalSize int64, err error) {
	group := errgroup.Group{}
	group.SetLimit(p.cfg.Parallel)

	done := make(chan struct{})

	go func() {
		defer close(done)

		for result := range p.results {
			if result.Error != nil {
				errored++

				fmt.Fprintf(os.Stderr, "Error processing %q: %v\n", result.Input, result.Error)

				continue
			}

			processed++

			totalSize += result.OutputSize

			if !p.cfg.Quiet {
				fmt.Printf("Processed %q -> %q\n", result.Input, result.Output) //nolint:forbidigo
			}

			if p.cfg.Delete {
				if err := os.Remove(result.Input); err != nil {
					fmt.Fprintf(os.Stderr, "Error deleting %q: %v\n", result.Input, err)
				} else if !p.cfg.Quiet {
					fmt.Printf("Deleted %q\n", result.Input) //nolint:forbidigo
				}
			}
		}
	}()

	for _, file := range p.cfg.Files {
		group.Go(func() error {
			outPath, size, err := p.processFile(file)
			if err != nil {
				p.results <- Result{Input: file, Error: err}

				return err
			}

			p.results <- Result{Input: file, Output: outPath, OutputSize: size}

			return nil
		})
	}

	err = group.Wait()

	close(p.results)

	<-done // Wait for printer to finish

	if err != nil {
		return processed, errored, totalSize, fmt.Errorf("processing files: %w", err)
	}

	return processed, errored, totalSize, nil
}

// processFile decrypts a single file into a temporary file next to it and
// renames it once the output name is known.
func (p *Processor) processFile(filename string) (outPath string, size int64, err error) {
	t, err := p.open(filename)
	if err != nil {
		return "", 0, err
	}
	defer t.Close()

	tc, err := fileutil.NewTempContext(filename, filepath.Dir(filename))
	if err != nil {
		return "", 0, fmt.Errorf("preparing atomic write: %w", err)
	}

	defer tc.CleanupOnError(&err)

	head, err := p.decrypt(t, tc.TmpFile, math.MaxInt64)
	if err != nil {
		return "", 0, err
	}

	outPath = OutputPath(filename, p.extension(filename, head))

	size, err = tc.Commit(outPath, p.cfg.PreserveTimestamps)
	if err != nil {
		return "", 0, fmt.Errorf("committing output: %w", err)
	}

	return outPath, size, nil
}

// extension returns the sniffed container extension, or an empty string to fall
// back to the extension map.
func (p *Processor) extension(filename string, head []byte) string {
	if p.cfg.NoSniff || len(head) == 0 {
		return ""
	}

	mime, ext, ok := Sniff(head)
	if !ok {
		p.log.WithFields(logrus.Fields{
			"file": filename,
			"mime": mime,
		}).Warn("decrypted data is not a known audio container; the key may be wrong")

		return ""
	}

	return ext
}
