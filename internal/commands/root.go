package commands

import (
	"runtime"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/idelchi/gogen/pkg/cobraext"
	"github.com/idelchi/unqmc/internal/config"
	"github.com/idelchi/unqmc/internal/tail"
)

// NewRootCommand creates the root command with common configuration.
// It sets up environment variable binding (UNQMC_*) and flag handling.
func NewRootCommand(cfg *config.Config, log *logrus.Logger, version string) *cobra.Command {
	root := cobraext.NewDefaultRootCommand(version, func(_ *cobra.Command, _ []string) error {
		if viper.GetBool("verbose") {
			log.SetLevel(logrus.DebugLevel)
		}

		return nil
	})

	root.Use = "unqmc [flags] command [flags]"
	root.Short = "QMC2 track decryption utility"
	root.Long = `Decrypts QMC2 protected tracks (.mflac, .mgg, .mmp4).
The content key is read from the tail of each file, or supplied with --ekey for
tracks that only carry a filename.`

	flags := root.PersistentFlags()

	flags.BoolP("show", "s", false, "Show the configuration and exit")
	flags.IntP("parallel", "j", runtime.NumCPU(), "Number of parallel workers, defaults to number of CPUs")
	flags.BoolP("quiet", "q", false, "Suppress non-error output")
	flags.BoolP("verbose", "v", false, "Log per-file diagnostics")
	flags.BoolP("delete", "d", false, "Delete the original file after successful decryption")
	flags.Bool("dry", false, "Show what would be processed without writing anything")
	flags.Bool("stats", false, "Print a summary after processing")
	flags.Bool("preserve-timestamps", false, "Copy the modification time of the input to the output")

	flags.StringSliceP("include", "i", nil, "Include files matching the pattern (find -path semantics), repeatable")
	flags.StringSliceP("exclude", "e", nil, "Exclude files matching the pattern (find -path semantics), repeatable")
	flags.String("include-from", "", "Read include patterns from a JSONC file")
	flags.String("exclude-from", "", "Read exclude patterns from a JSONC file")

	flags.String("ekey", "", "Encoded key for tracks whose tail carries no key")
	flags.String("ekey-file", "", "Path to a file with the encoded key")
	flags.Int("window-size", tail.DefaultWindowSize, "Initial number of trailing bytes read to find the tail")
	flags.Bool("no-sniff", false, "Name outputs from the input extension instead of the detected container")

	root.AddCommand(NewDecryptCommand(cfg, log), NewInspectCommand(cfg, log), NewCheckCommand(cfg))

	return root
}
