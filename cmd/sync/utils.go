package sync

import (
	"context"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/findsync/findsync/internal/engine"
	"github.com/findsync/findsync/internal/platform"
	"github.com/findsync/findsync/internal/report"
	"github.com/findsync/findsync/internal/syncer"
	"github.com/findsync/findsync/pkg/shared/config"
)

// resolveEndpoint maps an endpoint alias from the config file to its URL and
// token. A value that is not a configured alias is taken as a literal URL
// with the token read from tokenEnvFallback.
func resolveEndpoint(cfg *config.Config, urlOrAlias, tokenEnvFallback string) (string, string) {
	if cfg != nil {
		if ep, ok := cfg.Endpoints[urlOrAlias]; ok {
			return ep.URL, ep.Token()
		}
	}
	token := ""
	if tokenEnvFallback != "" {
		token = os.Getenv(tokenEnvFallback)
	}
	return urlOrAlias, token
}

// buildSettings converts validated command options into engine settings.
func buildSettings(options *RunOptionsSync) (engine.Settings, error) {
	settings := engine.Settings{
		AddComments:      options.AddComments,
		AddLink:          options.AddLink,
		CopyAssignments:  options.CopyAssignments,
		ServiceAccounts:  options.ServiceAccounts,
		IgnoreComponents: options.IgnoreComponents,
		Concurrency:      options.Threads,
		DryRun:           options.DryRun,
	}
	if options.Since != "" {
		since, err := time.Parse("2006-01-02", options.Since)
		if err != nil {
			return settings, err
		}
		settings.SinceDate = since
	}
	return settings, nil
}

// resolveRuleMap fetches the rule equivalence table when source and target
// are different servers. Same-server sync compares rule keys directly. The
// cache is owned by the invocation and shared across all lookups of the run.
func resolveRuleMap(ctx context.Context, sourceURL, targetURL string, target *platform.Client, cache *platform.Cache, lg hclog.Logger) (map[string]string, error) {
	if sourceURL == targetURL {
		return nil, nil
	}
	ruleMap, err := platform.RuleEquivalence(ctx, target, cache)
	if err != nil {
		// Cross-server sync still works rule-for-rule without the catalog.
		lg.Warn("failed to load rule equivalence catalog, falling back to exact rule keys", "error", err)
		return nil, nil
	}
	return ruleMap, nil
}

// runPipeline dispatches to the branch-pair or whole-project entry point.
func runPipeline(ctx context.Context, s *syncer.Syncer, options *RunOptionsSync) (*report.Report, error) {
	if options.SourceBranch != "" || options.TargetBranch != "" {
		return s.SyncBranches(ctx, options.SourceBranch, options.TargetBranch)
	}
	return s.SyncProjects(ctx)
}

// writeReports writes the optional JSON and SARIF artifacts.
func writeReports(rep *report.Report, options *RunOptionsSync, lg hclog.Logger) error {
	if options.ReportFile != "" {
		if err := rep.WriteJSON(options.ReportFile); err != nil {
			return err
		}
		lg.Info("sync report written", "path", options.ReportFile)
	}
	if options.SarifFile != "" {
		if err := rep.WriteSARIF(options.SarifFile); err != nil {
			return err
		}
		lg.Info("SARIF export written", "path", options.SarifFile)
	}
	return nil
}
