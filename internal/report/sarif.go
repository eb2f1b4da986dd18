package report

import (
	"fmt"

	"github.com/owenrumney/go-sarif/v2/sarif"

	"github.com/findsync/findsync/internal/engine"
	"github.com/findsync/findsync/internal/findings"
)

// Unreconciled pairs a source finding with the decision that left it
// unreconciled, for reviewer triage outside the JSON report.
type Unreconciled struct {
	Finding  *findings.Finding
	Decision engine.Decision
	Reason   string
}

// AddUnreconciled records a source finding that could not be synchronized.
func (b *BranchResult) AddUnreconciled(f *findings.Finding, decision engine.Decision, reason string) {
	b.unreconciled = append(b.unreconciled, Unreconciled{Finding: f, Decision: decision, Reason: reason})
}

// WriteSARIF exports every unmatched and ambiguous source finding of the run
// as a SARIF report, so reviewers can walk the leftovers with the same
// tooling they use for scanner output.
func (r *Report) WriteSARIF(path string) error {
	sarifReport, err := sarif.New(sarif.Version210)
	if err != nil {
		return fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI("findsync", "https://github.com/findsync/findsync")
	seenRules := make(map[string]bool)

	for _, branch := range r.Branches {
		for _, u := range branch.unreconciled {
			f := u.Finding
			if !seenRules[f.Rule] {
				run.AddRule(f.Rule).WithDescription(f.Rule)
				seenRules[f.Rule] = true
			}

			message := fmt.Sprintf("%s (decision: %s, %s)", f.Message, u.Decision, u.Reason)
			result := run.CreateResultForRule(f.Rule).
				WithLevel("note").
				WithMessage(sarif.NewTextMessage(message))

			uri := f.File
			if uri == "" {
				uri = f.Project
			}
			location := sarif.NewPhysicalLocation().
				WithArtifactLocation(sarif.NewSimpleArtifactLocation(uri))
			if f.Line > 0 {
				location = location.WithRegion(sarif.NewSimpleRegion(f.Line, f.Line))
			}
			result.AddLocation(sarif.NewLocationWithPhysicalLocation(location))
		}
	}

	sarifReport.AddRun(run)
	if err := sarifReport.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write SARIF report to '%s': %w", path, err)
	}
	return nil
}
