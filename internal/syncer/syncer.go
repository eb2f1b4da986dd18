package syncer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/findsync/findsync/internal/engine"
	"github.com/findsync/findsync/internal/findings"
	"github.com/findsync/findsync/internal/platform"
	"github.com/findsync/findsync/internal/report"
	"github.com/findsync/findsync/pkg/shared/errors"
)

// Endpoint is the server surface the orchestrator needs. The platform client
// implements it; tests substitute fakes.
type Endpoint interface {
	FetchFindings(ctx context.Context, projectKey, branch string) (map[string]*findings.Finding, error)
	ListBranches(ctx context.Context, projectKey string) ([]platform.Branch, error)
	ApplyChange(ctx context.Context, findingKey string, hotspot bool, m engine.Mutation) (bool, error)
	BaseURL() string
}

// Side binds an endpoint to the project being synchronized on it.
type Side struct {
	API     Endpoint
	Project string
}

// Syncer drives the reconciliation pipeline: fetch both sides, match, plan,
// apply, fold outcomes into a report.
type Syncer struct {
	source   Side
	target   Side
	settings engine.Settings
	ruleMap  map[string]string
	logger   hclog.Logger
}

// New creates a Syncer. ruleMap maps source rule keys into the target's rule
// family; nil means identity.
func New(source, target Side, settings engine.Settings, ruleMap map[string]string, logger hclog.Logger) *Syncer {
	settings.SourceBaseURL = source.API.BaseURL()
	return &Syncer{
		source:   source,
		target:   target,
		settings: settings,
		ruleMap:  ruleMap,
		logger:   logger,
	}
}

// branchPair is one source/target branch combination to reconcile.
type branchPair struct {
	sourceBranch string
	targetBranch string
}

func (s *Syncer) newReport() *report.Report {
	return &report.Report{
		RunID:         uuid.NewString(),
		StartedAt:     time.Now().UTC(),
		SourceProject: s.source.Project,
		TargetProject: s.target.Project,
		Counters:      report.NewCounters(),
	}
}

// SyncBranches reconciles a single branch pair.
func (s *Syncer) SyncBranches(ctx context.Context, sourceBranch, targetBranch string) (*report.Report, error) {
	if err := s.validate(sourceBranch, targetBranch); err != nil {
		return nil, err
	}

	rep := s.newReport()
	result, counters := s.syncPair(ctx, branchPair{sourceBranch: sourceBranch, targetBranch: targetBranch})
	rep.Branches = append(rep.Branches, result)
	rep.Counters.Merge(counters)
	return rep, nil
}

// SyncProjects reconciles every branch pair of the two projects whose names
// align, up to settings.Concurrency pairs in parallel. A pair failing its
// fetch is recorded in the report and never aborts its siblings.
func (s *Syncer) SyncProjects(ctx context.Context) (*report.Report, error) {
	if err := s.validate("", ""); err != nil {
		return nil, err
	}

	pairs, err := s.pairBranches(ctx)
	if err != nil {
		return nil, err
	}

	rep := s.newReport()

	// Bounded worker pool over independent branch pairs. Each worker owns its
	// counters; merging happens under one lock after the worker completes, so
	// no counter update races another.
	guard := make(chan struct{}, s.settings.Workers())
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, pair := range pairs {
		guard <- struct{}{}
		wg.Add(1)
		go func(pair branchPair) {
			defer wg.Done()
			result, counters := s.syncPair(ctx, pair)
			mu.Lock()
			rep.Branches = append(rep.Branches, result)
			rep.Counters.Merge(counters)
			mu.Unlock()
			<-guard
		}(pair)
	}
	wg.Wait()

	return rep, nil
}

// validate rejects configurations where source and target denote the same
// finding collection. This is the only error class raised before any fetch.
func (s *Syncer) validate(sourceBranch, targetBranch string) error {
	if s.source.API.BaseURL() == s.target.API.BaseURL() &&
		s.source.Project == s.target.Project &&
		sourceBranch == targetBranch {
		return errors.NewValidationError(
			"source and target are the same project '%s' and branch '%s' on '%s'",
			s.source.Project, sourceBranch, s.source.API.BaseURL())
	}
	return nil
}

// pairBranches aligns the branches of the two projects by name. A side
// without branch support contributes its single implicit branch. When exactly
// one side has a single branch it is paired with the other side's main
// branch; when both sides have exactly one branch they are paired regardless
// of name.
func (s *Syncer) pairBranches(ctx context.Context) ([]branchPair, error) {
	sourceBranches, err := s.listBranches(ctx, s.source)
	if err != nil {
		return nil, err
	}
	targetBranches, err := s.listBranches(ctx, s.target)
	if err != nil {
		return nil, err
	}

	if len(sourceBranches) == 1 && len(targetBranches) == 1 {
		return []branchPair{{sourceBranch: sourceBranches[0].Name, targetBranch: targetBranches[0].Name}}, nil
	}
	if len(sourceBranches) == 1 {
		return []branchPair{{sourceBranch: sourceBranches[0].Name, targetBranch: mainBranch(targetBranches)}}, nil
	}
	if len(targetBranches) == 1 {
		return []branchPair{{sourceBranch: mainBranch(sourceBranches), targetBranch: targetBranches[0].Name}}, nil
	}

	targetSet := make(map[string]bool, len(targetBranches))
	for _, b := range targetBranches {
		targetSet[b.Name] = true
	}

	var pairs []branchPair
	for _, b := range sourceBranches {
		if targetSet[b.Name] {
			pairs = append(pairs, branchPair{sourceBranch: b.Name, targetBranch: b.Name})
		} else {
			s.logger.Debug("source branch has no counterpart on target", "branch", b.Name)
		}
	}
	if len(pairs) == 0 {
		return nil, errors.NewValidationError(
			"no branch of '%s' aligns with a branch of '%s'", s.source.Project, s.target.Project)
	}
	return pairs, nil
}

// mainBranch returns the name of the main branch, falling back to the first
// branch when the server flags none.
func mainBranch(branches []platform.Branch) string {
	for _, b := range branches {
		if b.IsMain {
			return b.Name
		}
	}
	return branches[0].Name
}

func (s *Syncer) listBranches(ctx context.Context, side Side) ([]platform.Branch, error) {
	branches, err := side.API.ListBranches(ctx, side.Project)
	if err != nil {
		if errors.IsUnsupported(err) {
			// Community edition: one implicit branch.
			return []platform.Branch{{Name: "", IsMain: true}}, nil
		}
		return nil, err
	}
	if len(branches) == 0 {
		return []platform.Branch{{Name: "", IsMain: true}}, nil
	}
	return branches, nil
}

// syncPair walks one branch pair through fetch, match, plan and apply. It
// always completes: fetch failures yield a result carrying the error and zero
// outcomes instead of propagating.
func (s *Syncer) syncPair(ctx context.Context, pair branchPair) (report.BranchResult, report.Counters) {
	result := report.BranchResult{SourceBranch: pair.sourceBranch, TargetBranch: pair.targetBranch}
	counters := report.NewCounters()
	logger := s.logger.With("source_branch", pair.sourceBranch, "target_branch", pair.targetBranch)

	// The two fetches touch different servers or branches and have no
	// ordering dependency.
	var source, target map[string]*findings.Finding
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		source, err = s.source.API.FetchFindings(gctx, s.source.Project, pair.sourceBranch)
		if err != nil {
			return fmt.Errorf("failed to fetch source findings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		target, err = s.target.API.FetchFindings(gctx, s.target.Project, pair.targetBranch)
		if err != nil {
			return fmt.Errorf("failed to fetch target findings: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logger.Error("branch pair fetch failed", "error", err)
		result.Error = err.Error()
		return result, counters
	}

	logger.Info("findings fetched", "source", len(source), "target", len(target))

	corrs := engine.Match(source, target, s.ruleMap, s.settings)
	changeSet := engine.Plan(corrs, source, target, s.settings)
	outcomes := engine.Apply(ctx, s.target.API, changeSet, s.settings, logger)

	for _, outcome := range outcomes {
		counters.Accumulate(outcome)
		if outcome.Decision == engine.DecisionUnmatched || outcome.Decision == engine.DecisionAmbiguous {
			if f := source[outcome.SourceKey]; f != nil {
				result.AddUnreconciled(f, outcome.Decision, outcome.Reason)
			}
		}
	}
	result.Outcomes = outcomes

	return result, counters
}
