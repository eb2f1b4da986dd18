package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/findsync/findsync/internal/engine"
)

// Counter keys accumulated over a sync run.
const (
	CounterToSync          = "nb_to_sync"
	CounterApplies         = "nb_applies"
	CounterNoMatch         = "nb_no_match"
	CounterMultipleMatches = "nb_multiple_matches"
	CounterApproxMatch     = "nb_approx_match"
	CounterTgtHasChangelog = "nb_tgt_has_changelog"
)

// Counters maps outcome kinds to counts. Instances are owned by a single
// branch-pair worker and merged after the worker completes; they are never
// shared between goroutines.
type Counters map[string]int

// NewCounters returns a zeroed counter set with all known keys present.
func NewCounters() Counters {
	return Counters{
		CounterToSync:          0,
		CounterApplies:         0,
		CounterNoMatch:         0,
		CounterMultipleMatches: 0,
		CounterApproxMatch:     0,
		CounterTgtHasChangelog: 0,
	}
}

// Merge folds other into c. Addition is commutative and associative, so the
// merge order across workers does not matter.
func (c Counters) Merge(other Counters) {
	for key, value := range other {
		c[key] += value
	}
}

// Accumulate folds one apply outcome into the counters.
func (c Counters) Accumulate(o engine.Outcome) {
	switch o.Decision {
	case engine.DecisionUnmatched:
		c[CounterNoMatch]++
	case engine.DecisionAmbiguous:
		c[CounterMultipleMatches]++
	case engine.DecisionTargetModified:
		c[CounterTgtHasChangelog]++
	case engine.DecisionApproxMatched:
		c[CounterApproxMatch]++
		c.accumulateMatched(o)
	case engine.DecisionMatched:
		c.accumulateMatched(o)
	}
}

func (c Counters) accumulateMatched(o engine.Outcome) {
	if len(o.FieldsChanged) > 0 {
		c[CounterToSync]++
	}
	c[CounterApplies] += o.Applied
}

// BranchResult is the outcome of one branch-pair sync, including pairs that
// failed before any finding was processed.
type BranchResult struct {
	SourceBranch string           `json:"sourceBranch,omitempty"`
	TargetBranch string           `json:"targetBranch,omitempty"`
	Error        string           `json:"error,omitempty"`
	Outcomes     []engine.Outcome `json:"outcomes,omitempty"`

	// unreconciled feeds the SARIF export only, it stays out of the JSON.
	unreconciled []Unreconciled
}

// Report is the full artifact of a sync run. Outcome order is stable within
// one branch pair; branch order follows completion order of the workers.
type Report struct {
	RunID         string         `json:"runId"`
	StartedAt     time.Time      `json:"startedAt"`
	SourceProject string         `json:"sourceProject"`
	TargetProject string         `json:"targetProject"`
	Branches      []BranchResult `json:"branches"`
	Counters      Counters       `json:"counters"`
}

// WriteJSON serializes the report to path.
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report to '%s': %w", path, err)
	}
	return nil
}

// LogSummary prints the human-readable counter lines.
func (r *Report) LogSummary(logger hclog.Logger) {
	logger.Info(fmt.Sprintf("%d issues needed to be synchronized", r.Counters[CounterToSync]))
	logger.Info(fmt.Sprintf("%d changes were applied", r.Counters[CounterApplies]))
	logger.Info(fmt.Sprintf("%d issues had no match", r.Counters[CounterNoMatch]))
	logger.Info(fmt.Sprintf("%d issues had multiple matches", r.Counters[CounterMultipleMatches]))
	logger.Info(fmt.Sprintf("%d issues were matched approximately", r.Counters[CounterApproxMatch]))
	logger.Info(fmt.Sprintf("%d target issues already had a changelog", r.Counters[CounterTgtHasChangelog]))
}
