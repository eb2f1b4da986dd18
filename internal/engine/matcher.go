package engine

import (
	"fmt"
	"sort"

	"github.com/findsync/findsync/internal/findings"
)

// Decision is the matcher's verdict for one source finding.
type Decision string

const (
	// DecisionMatched marks an unambiguous correspondence.
	DecisionMatched Decision = "MATCHED"
	// DecisionApproxMatched marks a correspondence resolved by the secondary
	// tuple tie-break. The decision is still definite; it is tracked
	// separately so the report makes the weaker evidence visible.
	DecisionApproxMatched Decision = "APPROX_MATCHED"
	// DecisionUnmatched marks a source finding without any candidate.
	DecisionUnmatched Decision = "UNMATCHED"
	// DecisionAmbiguous marks a source finding with several candidates and no
	// valid disambiguator. Ambiguity is a first-class outcome, never an error.
	DecisionAmbiguous Decision = "AMBIGUOUS"
	// DecisionTargetModified marks a matched pair whose target already
	// carries manual history this engine did not produce.
	DecisionTargetModified Decision = "TARGET_ALREADY_MODIFIED"
)

// Correspondence is the per-source-finding result of matching.
type Correspondence struct {
	SourceKey  string
	TargetKey  string   // set for matched decisions
	Candidates []string // set for ambiguous decisions
	Decision   Decision
	Reason     string
}

// Match computes the correspondence between two finding collections. There is
// exactly one Correspondence per source finding, ordered by source key so the
// output is deterministic. Unmatched target findings are simply ignored: sync
// flows from source to target only.
//
// Each target candidate can be consumed by at most one source finding. A
// second source finding mapping to an already-claimed candidate is reported
// ambiguous rather than silently collapsing many-to-one. Ambiguity is always
// judged against the full original bucket: a claim by an earlier source
// finding is not a valid tie-break.
func Match(source, target map[string]*findings.Finding, ruleMap map[string]string, settings Settings) []Correspondence {
	buckets := make(map[Fingerprint][]string, len(target))
	for key, f := range target {
		fp := ComputeFingerprint(f, nil, settings.IgnoreComponents)
		buckets[fp] = append(buckets[fp], key)
	}
	for _, keys := range buckets {
		sort.Strings(keys)
	}

	sourceKeys := make([]string, 0, len(source))
	for key := range source {
		sourceKeys = append(sourceKeys, key)
	}
	sort.Strings(sourceKeys)

	claimed := make(map[string]bool)
	out := make([]Correspondence, 0, len(sourceKeys))

	// Source fingerprints are mapped through the rule equivalence table so
	// they land in the target's rule-key family.
	for _, sourceKey := range sourceKeys {
		sf := source[sourceKey]
		fp := ComputeFingerprint(sf, ruleMap, settings.IgnoreComponents)
		out = append(out, matchOne(sourceKey, sf, buckets[fp], target, claimed))
	}
	return out
}

func matchOne(sourceKey string, sf *findings.Finding, candidates []string, target map[string]*findings.Finding, claimed map[string]bool) Correspondence {
	corr := Correspondence{SourceKey: sourceKey}

	switch len(candidates) {
	case 0:
		corr.Decision = DecisionUnmatched
		corr.Reason = "no target finding shares the fingerprint"
		return corr
	case 1:
		targetKey := candidates[0]
		if claimed[targetKey] {
			corr.Decision = DecisionAmbiguous
			corr.Candidates = []string{targetKey}
			corr.Reason = "single candidate already claimed by another source finding"
			return corr
		}
		claimed[targetKey] = true
		corr.Decision = DecisionMatched
		corr.TargetKey = targetKey
		return corr
	}

	// Several candidates: the only valid disambiguator is an exact secondary
	// tuple match on line and creation date.
	secondary := ComputeTieBreak(sf)
	var survivors []string
	for _, key := range candidates {
		if ComputeTieBreak(target[key]) == secondary {
			survivors = append(survivors, key)
		}
	}

	if len(survivors) != 1 {
		corr.Decision = DecisionAmbiguous
		corr.Candidates = append([]string(nil), candidates...)
		corr.Reason = fmt.Sprintf("%d candidates share the fingerprint, %d survive the line/date tie-break", len(candidates), len(survivors))
		return corr
	}

	targetKey := survivors[0]
	if claimed[targetKey] {
		corr.Decision = DecisionAmbiguous
		corr.Candidates = append([]string(nil), candidates...)
		corr.Reason = "tie-break winner already claimed by another source finding"
		return corr
	}
	claimed[targetKey] = true
	corr.Decision = DecisionApproxMatched
	corr.TargetKey = targetKey
	corr.Reason = "resolved by exact line and creation date"
	return corr
}
