package sync

import (
	"time"

	"github.com/findsync/findsync/pkg/shared/config"
	"github.com/findsync/findsync/pkg/shared/errors"
)

// validateSyncArgs validates the arguments provided to the sync command and
// fills the defaulted ones. All failures here are configuration errors raised
// before any network call.
func validateSyncArgs(options *RunOptionsSync, cfg *config.Config) error {
	if options.SourceURL == "" {
		return errors.NewValidationError("the 'source-url' flag must be specified")
	}
	if options.SourceProject == "" {
		return errors.NewValidationError("the 'source-project' flag must be specified")
	}

	if options.TargetURL == "" {
		options.TargetURL = options.SourceURL
	}
	if options.TargetProject == "" {
		options.TargetProject = options.SourceProject
	}

	sourceURL, _ := resolveEndpoint(cfg, options.SourceURL, "")
	targetURL, _ := resolveEndpoint(cfg, options.TargetURL, "")

	branchMode := options.SourceBranch != "" || options.TargetBranch != ""
	if branchMode {
		if options.SourceBranch == "" || options.TargetBranch == "" {
			return errors.NewValidationError("'source-branch' and 'target-branch' must be specified together")
		}
	}

	if sourceURL == targetURL && options.SourceProject == options.TargetProject {
		if !branchMode {
			return errors.NewValidationError(
				"source and target are the same project '%s' on '%s'; specify distinct branches",
				options.SourceProject, sourceURL)
		}
		if options.SourceBranch == options.TargetBranch {
			return errors.NewValidationError(
				"source and target are the same branch '%s' of project '%s'",
				options.SourceBranch, options.SourceProject)
		}
	}

	if options.Since != "" {
		if _, err := time.Parse("2006-01-02", options.Since); err != nil {
			return errors.NewValidationError("the 'since' flag must be a date in YYYY-MM-DD format: %v", err)
		}
	}

	if options.Threads < 0 {
		return errors.NewValidationError("the 'threads' flag must not be negative")
	}

	return nil
}
