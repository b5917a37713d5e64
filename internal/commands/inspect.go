package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/idelchi/unqmc/internal/config"
	"github.com/idelchi/unqmc/internal/logic"
)

// NewInspectCommand creates a new cobra command for the inspect subcommand.
func NewInspectCommand(cfg *config.Config, log *logrus.Logger) *cobra.Command {
	return &cobra.Command{
		Use:     "inspect [flags] [paths...]",
		Aliases: []string{"info"},
		Short:   "Report tail shape, key and cipher of tracks without decrypting them",
		Args:    cobra.ArbitraryArgs,
		PreRunE: preRun(cfg),
		RunE: func(_ *cobra.Command, _ []string) error {
			return logic.RunInspect(cfg, log)
		},
	}
}
