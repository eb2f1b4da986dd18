package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	syncCmd "github.com/findsync/findsync/cmd/sync"
	"github.com/findsync/findsync/cmd/version"
	"github.com/findsync/findsync/pkg/shared/config"
	sharederrors "github.com/findsync/findsync/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "findsync [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Findsync replicates finding triage state between analysis servers.",
		Long: `Findsync reconciles static-analysis findings between two branches or projects,
	potentially on two different server instances, and replicates manually entered
	triage state (false-positive and won't-fix marking, severity and type overrides,
	comments, assignment) from source to target where the match is unambiguous.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")
	rootCmd.AddCommand(version.NewVersionCmd())
	rootCmd.AddCommand(syncCmd.NewSyncCmd(&AppConfig))
}

// Execute runs the root command and returns the process exit code. Only
// configuration and top-level lookup errors reach this point; everything else
// is absorbed into the sync report.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		var ve *sharederrors.ValidationError
		if errors.As(err, &ve) {
			return 2
		}
		return 1
	}
	return 0
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = "config.yml"
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize config: %v\n", err)
		os.Exit(1)
	}
	if err := config.ValidateConfig(AppConfig); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
