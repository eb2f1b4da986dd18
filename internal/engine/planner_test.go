package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/findsync/findsync/internal/findings"
)

func matchedCorr(sourceKey, targetKey string) []Correspondence {
	return []Correspondence{{SourceKey: sourceKey, TargetKey: targetKey, Decision: DecisionMatched}}
}

func resolvedSource(resolution string, by string, at time.Time) *findings.Finding {
	return &findings.Finding{
		Key:        "s1",
		Kind:       findings.KindIssue,
		Rule:       "S1234",
		File:       "a.py",
		Line:       10,
		Message:    "Fix foo",
		Severity:   "MAJOR",
		Type:       "BUG",
		Resolution: resolution,
		CreatedAt:  t0,
		Changelog: []findings.ChangelogEntry{
			{
				Login: by,
				Date:  at,
				Changes: []findings.FieldChange{
					{Field: "resolution", NewValue: resolution},
				},
			},
		},
	}
}

func cleanTarget() *findings.Finding {
	return &findings.Finding{
		Key:      "t1",
		Kind:     findings.KindIssue,
		Rule:     "S1234",
		File:     "a.py",
		Line:     10,
		Message:  "Fix foo",
		Severity: "MAJOR",
		Type:     "BUG",
	}
}

func TestPlan_PropagatesResolution(t *testing.T) {
	source := map[string]*findings.Finding{"s1": resolvedSource("FALSE-POSITIVE", "alice", t0)}
	target := map[string]*findings.Finding{"t1": cleanTarget()}

	cs := Plan(matchedCorr("s1", "t1"), source, target, Settings{})
	if len(cs.Items) != 1 {
		t.Fatalf("expected 1 planned change, got %d", len(cs.Items))
	}
	item := cs.Items[0]
	if len(item.Mutations) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(item.Mutations))
	}
	if item.Mutations[0].Kind != MutationTransition || item.Mutations[0].Value != "falsepositive" {
		t.Fatalf("expected falsepositive transition, got %+v", item.Mutations[0])
	}
}

func TestPlan_TargetAlreadyModifiedGuard(t *testing.T) {
	source := map[string]*findings.Finding{"s1": resolvedSource("FALSE-POSITIVE", "alice", t0)}
	tf := cleanTarget()
	tf.Resolution = "WONTFIX"
	tf.Changelog = []findings.ChangelogEntry{
		{Login: "bob", Date: t0, Changes: []findings.FieldChange{{Field: "resolution", NewValue: "WONTFIX"}}},
	}
	target := map[string]*findings.Finding{"t1": tf}

	cs := Plan(matchedCorr("s1", "t1"), source, target, Settings{})
	item := cs.Items[0]
	if item.Corr.Decision != DecisionTargetModified {
		t.Fatalf("expected TARGET_ALREADY_MODIFIED, got %s", item.Corr.Decision)
	}
	if len(item.Mutations) != 0 {
		t.Fatalf("manual target history must never be touched, got %d mutations", len(item.Mutations))
	}
}

func TestPlan_EngineHistoryIsNotManual(t *testing.T) {
	// A target whose only history carries the engine marker was produced by a
	// previous sync run; the guard must not fire.
	source := map[string]*findings.Finding{"s1": resolvedSource("FALSE-POSITIVE", "alice", t0)}
	tf := cleanTarget()
	tf.Resolution = "FALSE-POSITIVE"
	tf.Comments = []findings.Comment{{Login: "syncbot", Text: MarkerComment("synchronized resolution from source finding")}}
	target := map[string]*findings.Finding{"t1": tf}

	cs := Plan(matchedCorr("s1", "t1"), source, target, Settings{AddComments: true, AddLink: true})
	item := cs.Items[0]
	if item.Corr.Decision != DecisionMatched {
		t.Fatalf("expected MATCHED, got %s (%s)", item.Corr.Decision, item.Corr.Reason)
	}
	// Resolution already equal: the second run plans nothing, and in
	// particular no duplicate link comment.
	if len(item.Mutations) != 0 {
		t.Fatalf("expected idempotent second run with 0 mutations, got %d", len(item.Mutations))
	}
}

func TestPlan_ServiceAccountChangesIgnored(t *testing.T) {
	source := map[string]*findings.Finding{"s1": resolvedSource("FALSE-POSITIVE", "ci-bot", t0)}
	target := map[string]*findings.Finding{"t1": cleanTarget()}

	cs := Plan(matchedCorr("s1", "t1"), source, target, Settings{ServiceAccounts: []string{"ci-bot"}})
	if len(cs.Items[0].Mutations) != 0 {
		t.Fatalf("service account changes must not propagate, got %d mutations", len(cs.Items[0].Mutations))
	}
}

func TestPlan_SinceDateFilter(t *testing.T) {
	source := map[string]*findings.Finding{"s1": resolvedSource("FALSE-POSITIVE", "alice", t0)}
	target := map[string]*findings.Finding{"t1": cleanTarget()}

	cs := Plan(matchedCorr("s1", "t1"), source, target, Settings{SinceDate: t0.Add(24 * time.Hour)})
	if len(cs.Items[0].Mutations) != 0 {
		t.Fatalf("changes before the cutoff must not propagate, got %d mutations", len(cs.Items[0].Mutations))
	}

	cs = Plan(matchedCorr("s1", "t1"), source, target, Settings{SinceDate: t0.Add(-24 * time.Hour)})
	if len(cs.Items[0].Mutations) != 1 {
		t.Fatalf("changes after the cutoff must propagate, got %d mutations", len(cs.Items[0].Mutations))
	}
}

func TestPlan_CommentAndLinkMutations(t *testing.T) {
	sf := resolvedSource("WONTFIX", "alice", t0)
	sf.Comments = []findings.Comment{{Login: "alice", Text: "acceptable in test code"}}
	sf.Project = "proj"
	source := map[string]*findings.Finding{"s1": sf}
	target := map[string]*findings.Finding{"t1": cleanTarget()}

	settings := Settings{AddComments: true, AddLink: true, SourceBaseURL: "https://sonar.example.com"}
	cs := Plan(matchedCorr("s1", "t1"), source, target, settings)
	item := cs.Items[0]

	if len(item.Mutations) != 3 {
		t.Fatalf("expected transition + comment + link, got %d mutations", len(item.Mutations))
	}
	if item.Mutations[0].Kind != MutationTransition {
		t.Fatalf("status must be applied before comments")
	}
	for _, m := range item.Mutations[1:] {
		if m.Kind != MutationComment {
			t.Fatalf("expected comment mutation, got %v", m.Kind)
		}
		if !strings.Contains(m.Value, "[fs-sync]") {
			t.Fatalf("engine comments must carry the marker: %q", m.Value)
		}
	}
	if !strings.Contains(item.Mutations[1].Value, "acceptable in test code") {
		t.Fatalf("explanatory comment should quote the source rationale: %q", item.Mutations[1].Value)
	}
	if !strings.Contains(item.Mutations[2].Value, "https://sonar.example.com") {
		t.Fatalf("link comment should carry the source permalink: %q", item.Mutations[2].Value)
	}
}

func TestPlan_HotspotStatusOnly(t *testing.T) {
	sf := &findings.Finding{
		Key: "s1", Kind: findings.KindHotspot, Rule: "S5146", File: "a.py", Line: 3,
		Message: "hotspot", Status: "REVIEWED", Resolution: "SAFE",
		Changelog: []findings.ChangelogEntry{
			{Login: "alice", Date: t0, Changes: []findings.FieldChange{{Field: "status", NewValue: "REVIEWED"}}},
		},
	}
	tf := &findings.Finding{
		Key: "t1", Kind: findings.KindHotspot, Rule: "S5146", File: "a.py", Line: 3,
		Message: "hotspot", Status: "TO_REVIEW",
	}
	source := map[string]*findings.Finding{"s1": sf}
	target := map[string]*findings.Finding{"t1": tf}

	cs := Plan(matchedCorr("s1", "t1"), source, target, Settings{})
	item := cs.Items[0]
	if len(item.Mutations) != 1 {
		t.Fatalf("expected 1 mutation, got %d", len(item.Mutations))
	}
	if item.Mutations[0].Kind != MutationHotspotStatus || item.Mutations[0].Value != "REVIEWED" {
		t.Fatalf("expected hotspot status mutation, got %+v", item.Mutations[0])
	}
	if !item.Hotspot {
		t.Fatalf("planned change should be flagged as hotspot")
	}
}

func TestPlan_NonMatchedPassThrough(t *testing.T) {
	corrs := []Correspondence{
		{SourceKey: "s1", Decision: DecisionUnmatched, Reason: "no target finding shares the fingerprint"},
		{SourceKey: "s2", Decision: DecisionAmbiguous, Candidates: []string{"t1", "t2"}},
	}

	cs := Plan(corrs, nil, nil, Settings{})
	if len(cs.Items) != 2 {
		t.Fatalf("expected 2 pass-through items, got %d", len(cs.Items))
	}
	for _, item := range cs.Items {
		if len(item.Mutations) != 0 {
			t.Fatalf("non-matched correspondences must not produce mutations")
		}
	}
}

func TestPlan_AssignmentRespectsSetting(t *testing.T) {
	sf := resolvedSource("FALSE-POSITIVE", "alice", t0)
	sf.Assignee = "alice"
	source := map[string]*findings.Finding{"s1": sf}
	target := map[string]*findings.Finding{"t1": cleanTarget()}

	cs := Plan(matchedCorr("s1", "t1"), source, target, Settings{})
	for _, m := range cs.Items[0].Mutations {
		if m.Kind == MutationAssign {
			t.Fatalf("assignment must not propagate when disabled")
		}
	}

	cs = Plan(matchedCorr("s1", "t1"), source, target, Settings{CopyAssignments: true})
	found := false
	for _, m := range cs.Items[0].Mutations {
		if m.Kind == MutationAssign && m.Value == "alice" {
			found = true
		}
	}
	if !found {
		t.Fatalf("assignment should propagate when enabled")
	}
}
