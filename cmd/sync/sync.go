package sync

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/findsync/findsync/internal/platform"
	"github.com/findsync/findsync/internal/syncer"
	"github.com/findsync/findsync/pkg/shared/config"
	"github.com/findsync/findsync/pkg/shared/logger"
)

// RunOptionsSync holds the arguments for the sync command.
type RunOptionsSync struct {
	SourceURL        string
	TargetURL        string
	SourceProject    string
	TargetProject    string
	SourceBranch     string
	TargetBranch     string
	AddComments      bool
	AddLink          bool
	CopyAssignments  bool
	ServiceAccounts  []string
	Since            string
	IgnoreComponents bool
	Threads          int
	DryRun           bool
	ReportFile       string
	SarifFile        string
}

var allArgumentsSync RunOptionsSync

// NewSyncCmd creates the sync command. The config pointer is resolved at run
// time because cobra initializes the config after command registration.
func NewSyncCmd(appConfig **config.Config) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:          "sync [flags]",
		SilenceUsage: true,
		Short:        "Synchronize finding triage state from a source project or branch to a target",
		Long: `The command matches the findings of a source branch/project against a target
	branch/project and replicates manually entered triage state where the match
	is unambiguous. Ambiguous matches and targets with pre-existing manual
	history are reported, never overwritten.`,

		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := *appConfig
			if err := validateSyncArgs(&allArgumentsSync, cfg); err != nil {
				return err
			}
			return runSync(cmd.Context(), &allArgumentsSync, cfg)
		},
	}

	flags := syncCmd.Flags()
	flags.StringVar(&allArgumentsSync.SourceURL, "source-url", "", "source server URL or endpoint alias from the config file")
	flags.StringVar(&allArgumentsSync.TargetURL, "target-url", "", "target server URL or endpoint alias; defaults to the source server")
	flags.StringVar(&allArgumentsSync.SourceProject, "source-project", "", "source project key")
	flags.StringVar(&allArgumentsSync.TargetProject, "target-project", "", "target project key; defaults to the source project key")
	flags.StringVar(&allArgumentsSync.SourceBranch, "source-branch", "", "source branch; omit together with target-branch to sync all aligned branches")
	flags.StringVar(&allArgumentsSync.TargetBranch, "target-branch", "", "target branch")
	flags.BoolVar(&allArgumentsSync.AddComments, "comments", true, "post an explanatory comment on synchronized target findings")
	flags.BoolVar(&allArgumentsSync.AddLink, "link", true, "post a back-reference comment with the source finding permalink")
	flags.BoolVar(&allArgumentsSync.CopyAssignments, "assign", false, "copy the source assignee to the target")
	flags.StringSliceVar(&allArgumentsSync.ServiceAccounts, "service-accounts", nil, "logins whose source changes are ignored as automation noise")
	flags.StringVar(&allArgumentsSync.Since, "since", "", "skip source findings with no changelog on or after this date (YYYY-MM-DD)")
	flags.BoolVar(&allArgumentsSync.IgnoreComponents, "ignore-components", false, "exclude file paths from matching, for cross-project sync")
	flags.IntVar(&allArgumentsSync.Threads, "threads", 0, "number of branch pairs to synchronize in parallel")
	flags.BoolVar(&allArgumentsSync.DryRun, "dry-run", false, "plan mutations but do not apply them")
	flags.StringVar(&allArgumentsSync.ReportFile, "report", "", "write the JSON sync report to this file")
	flags.StringVar(&allArgumentsSync.SarifFile, "sarif", "", "write unreconciled findings as SARIF to this file")

	return syncCmd
}

func runSync(ctx context.Context, options *RunOptionsSync, cfg *config.Config) error {
	lg := logger.NewLogger(cfg, "sync")

	sourceURL, sourceToken := resolveEndpoint(cfg, options.SourceURL, "FINDSYNC_SOURCE_TOKEN")
	targetURL, targetToken := resolveEndpoint(cfg, options.TargetURL, "FINDSYNC_TARGET_TOKEN")

	sourceClient := platform.New(cfg, sourceURL, sourceToken, lg.Named("source"))
	targetClient := platform.New(cfg, targetURL, targetToken, lg.Named("target"))

	settings, err := buildSettings(options)
	if err != nil {
		return err
	}

	cache := platform.NewCache()
	ruleMap, err := resolveRuleMap(ctx, sourceURL, targetURL, targetClient, cache, lg)
	if err != nil {
		return err
	}

	s := syncer.New(
		syncer.Side{API: sourceClient, Project: options.SourceProject},
		syncer.Side{API: targetClient, Project: options.TargetProject},
		settings, ruleMap, lg,
	)

	rep, err := runPipeline(ctx, s, options)
	if err != nil {
		return err
	}

	rep.LogSummary(lg)
	return writeReports(rep, options, lg)
}
