// Package config holds the runtime configuration of unqmc.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/idelchi/gogen/pkg/validator"
)

// ErrUsage indicates an error in command-line usage or configuration.
var ErrUsage = errors.New("usage error")

// Config holds the flags shared by all commands, bound through viper.
type Config struct {
	// Show prints the resolved configuration and exits.
	Show bool `json:"-"`
	// Parallel is the number of files decrypted concurrently.
	Parallel int `validate:"gte=1" label:"--parallel"`
	// Quiet suppresses non-error output.
	Quiet bool
	// Verbose enables debug diagnostics.
	Verbose bool
	// Delete removes the encrypted input after a successful decryption.
	Delete bool
	// Dry lists what would be processed without writing anything.
	Dry bool
	// Stats prints a summary after processing.
	Stats bool
	// PreserveTimestamps copies the input modification time to the output.
	PreserveTimestamps bool `mapstructure:"preserve-timestamps" json:"preserve-timestamps"`

	// Include and Exclude select files while walking directories.
	Include     []string
	Exclude     []string
	IncludeFrom string `mapstructure:"include-from" json:"include-from" validate:"omitempty,file" label:"--include-from"`
	ExcludeFrom string `mapstructure:"exclude-from" json:"exclude-from" validate:"omitempty,file" label:"--exclude-from"`

	// EKey is an encoded key used for files whose tail carries no key.
	EKey string `mapstructure:"ekey" json:"ekey" mask:"filled" validate:"exclusive=EKeyFile" label:"--ekey"`
	// EKeyFile reads EKey from a file.
	EKeyFile string `mapstructure:"ekey-file" json:"ekey-file" validate:"omitempty,file" label:"--ekey-file"`

	// WindowSize is the initial number of trailing bytes read to locate the tail.
	WindowSize int `mapstructure:"window-size" json:"window-size" validate:"gte=4" label:"--window-size"`
	// NoSniff names outputs from the input extension only.
	NoSniff bool `mapstructure:"no-sniff" json:"no-sniff"`

	// Files are the positional arguments: files or directories.
	Files []string `mapstructure:"-" validate:"min=1"`
}

// Display returns the value of the Show field.
func (c Config) Display() bool {
	return c.Show
}

// Validate performs configuration validation using the validator package.
// It returns a wrapped ErrUsage if any validation rules are violated.
func (c Config) Validate(config any) error {
	validator := validator.NewValidator()

	if err := registerExclusive(validator); err != nil {
		return fmt.Errorf("registering exclusive: %w", err)
	}

	errs := validator.Validate(config)

	switch {
	case errs == nil:
		return nil
	case len(errs) == 1:
		return fmt.Errorf("%w: %w", ErrUsage, errs[0])
	case len(errs) > 1:
		return fmt.Errorf("%ws:\n%w", ErrUsage, errors.Join(errs...))
	}

	return nil
}

// ResolveEKey returns the external encoded key from --ekey or --ekey-file, or an
// empty string if neither is set.
func (c *Config) ResolveEKey() (string, error) {
	if c.EKeyFile == "" {
		return strings.TrimSpace(c.EKey), nil
	}

	data, err := os.ReadFile(c.EKeyFile)
	if err != nil {
		return "", fmt.Errorf("reading ekey file: %w", err)
	}

	return strings.TrimSpace(string(data)), nil
}
