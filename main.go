// Command unqmc decrypts QMC2 protected audio tracks.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/idelchi/gogen/pkg/cobraext"
	"github.com/idelchi/unqmc/internal/commands"
	"github.com/idelchi/unqmc/internal/config"
)

// version is set at build time.
var version = "unknown"

func main() {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	cfg := &config.Config{}

	if err := commands.NewRootCommand(cfg, log, version).Execute(); err != nil {
		if errors.Is(err, cobraext.ErrExitGracefully) {
			return
		}

		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
