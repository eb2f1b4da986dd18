package engine

import (
	"fmt"
	"strings"

	"github.com/findsync/findsync/internal/findings"
)

// MutationKind enumerates the target mutations the applier knows how to send.
// The declaration order is the application order: status first, then severity
// and type, then assignment, comments last so they narrate the state already
// reached.
type MutationKind int

const (
	MutationTransition MutationKind = iota
	MutationSeverity
	MutationType
	MutationHotspotStatus
	MutationAssign
	MutationComment
)

func (k MutationKind) String() string {
	switch k {
	case MutationTransition:
		return "transition"
	case MutationSeverity:
		return "severity"
	case MutationType:
		return "type"
	case MutationHotspotStatus:
		return "hotspot-status"
	case MutationAssign:
		return "assign"
	case MutationComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Mutation is one field change to perform on a target finding.
type Mutation struct {
	Kind  MutationKind
	Value string // transition name, severity, type, assignee login, or comment text
	Field string // reported field name, empty for comments
}

// PlannedChange groups the mutations planned for one correspondence.
type PlannedChange struct {
	Corr      Correspondence
	TargetKey string
	Hotspot   bool
	Mutations []Mutation
}

// FieldsChanged lists the field names of the planned non-comment mutations.
func (p PlannedChange) FieldsChanged() []string {
	var out []string
	for _, m := range p.Mutations {
		if m.Field != "" {
			out = append(out, m.Field)
		}
	}
	return out
}

// ChangeSet is the ordered sequence of planned target changes for one
// branch-pair sync.
type ChangeSet struct {
	Items []PlannedChange
}

// markerTag is the sentinel embedded in every comment this engine posts. Its
// presence on a target finding means earlier history there was produced by a
// sync run, not by a human. The platform has no extensible metadata field, so
// comment sniffing is the only durable marker available.
const markerTag = "[fs-sync]"

// MarkerComment formats an engine comment carrying the marker tag.
func MarkerComment(text string) string {
	return fmt.Sprintf("%s %s", markerTag, text)
}

// HasMarker reports whether any comment on the finding was posted by this
// engine.
func HasMarker(f *findings.Finding) bool {
	for _, c := range f.Comments {
		if strings.Contains(c.Text, markerTag) {
			return true
		}
	}
	return false
}

// resolution transitions accepted by the issue workflow.
var resolutionTransitions = map[string]string{
	"FALSE-POSITIVE": "falsepositive",
	"WONTFIX":        "wontfix",
	"ACCEPTED":       "accept",
}

// Plan decides, per matched correspondence, which target mutations are
// needed. Non-matched correspondences pass through untouched so the report
// still carries them. The core guarantee lives here: a target finding with
// manual history this engine did not produce is never mutated.
func Plan(corrs []Correspondence, source, target map[string]*findings.Finding, settings Settings) *ChangeSet {
	cs := &ChangeSet{Items: make([]PlannedChange, 0, len(corrs))}
	serviceAccounts := settings.ServiceAccountSet()

	for _, corr := range corrs {
		item := PlannedChange{Corr: corr, TargetKey: corr.TargetKey}

		if corr.Decision != DecisionMatched && corr.Decision != DecisionApproxMatched {
			cs.Items = append(cs.Items, item)
			continue
		}

		sf := source[corr.SourceKey]
		tf := target[corr.TargetKey]
		if sf == nil || tf == nil {
			item.Corr.Decision = DecisionUnmatched
			item.Corr.Reason = "finding disappeared between match and plan"
			cs.Items = append(cs.Items, item)
			continue
		}
		item.Hotspot = tf.IsHotspot()

		// Non-destructive guard: pre-existing manual history on the target
		// that does not carry our marker was entered by a human and wins.
		if targetManuallyModified(tf) {
			item.Corr.Decision = DecisionTargetModified
			item.Corr.Reason = "target finding already carries manual history"
			cs.Items = append(cs.Items, item)
			continue
		}

		if !sf.ModifiedAfter(settings.SinceDate) {
			item.Corr.Reason = "no source activity since the cutoff date"
			cs.Items = append(cs.Items, item)
			continue
		}

		item.Mutations = planFieldMutations(sf, tf, serviceAccounts, settings)

		if len(item.Mutations) > 0 {
			if settings.AddComments {
				item.Mutations = append(item.Mutations, Mutation{
					Kind:  MutationComment,
					Value: MarkerComment(explanatoryComment(sf, item.FieldsChanged())),
				})
			}
			if settings.AddLink && !HasMarker(tf) {
				item.Mutations = append(item.Mutations, Mutation{
					Kind:  MutationComment,
					Value: MarkerComment(fmt.Sprintf("synchronized from %s", sf.Permalink(settings.SourceBaseURL))),
				})
			}
		}

		cs.Items = append(cs.Items, item)
	}
	return cs
}

// targetManuallyModified reports whether the target finding carries manual
// history that was not produced by a previous run of this engine.
func targetManuallyModified(tf *findings.Finding) bool {
	if HasMarker(tf) {
		// Earlier runs of this engine left the history there.
		return false
	}
	if len(tf.Changelog) > 0 {
		return true
	}
	if tf.Resolution != "" {
		return true
	}
	for _, c := range tf.Comments {
		if !strings.Contains(c.Text, markerTag) {
			return true
		}
	}
	return false
}

func planFieldMutations(sf, tf *findings.Finding, serviceAccounts map[string]bool, settings Settings) []Mutation {
	var out []Mutation

	if sf.IsHotspot() || tf.IsHotspot() {
		// Hotspots have no type or severity override, only a review status.
		if sf.Status != "" && sf.Status != tf.Status && ownedByHuman(sf, "status", serviceAccounts, settings) {
			out = append(out, Mutation{Kind: MutationHotspotStatus, Value: sf.Status, Field: "status"})
		}
	} else {
		if sf.Resolution != "" && sf.Resolution != tf.Resolution && ownedByHuman(sf, "resolution", serviceAccounts, settings) {
			if transition, ok := resolutionTransitions[sf.Resolution]; ok {
				out = append(out, Mutation{Kind: MutationTransition, Value: transition, Field: "resolution"})
			}
		}
		if sf.Severity != "" && sf.Severity != tf.Severity && ownedByHuman(sf, "severity", serviceAccounts, settings) {
			out = append(out, Mutation{Kind: MutationSeverity, Value: sf.Severity, Field: "severity"})
		}
		if sf.Type != "" && sf.Type != tf.Type && ownedByHuman(sf, "type", serviceAccounts, settings) {
			out = append(out, Mutation{Kind: MutationType, Value: sf.Type, Field: "type"})
		}
	}

	if settings.CopyAssignments && sf.Assignee != "" && sf.Assignee != tf.Assignee && !serviceAccounts[sf.Assignee] {
		out = append(out, Mutation{Kind: MutationAssign, Value: sf.Assignee, Field: "assignee"})
	}

	return out
}

// ownedByHuman checks that the source change owning the field was not made by
// a service account and, when a cutoff is set, is recent enough. A field with
// no changelog entry is attributed to an unknown human: manual state such as
// a resolution cannot appear without someone having entered it, and losing
// the author must not silence the propagation.
func ownedByHuman(sf *findings.Finding, field string, serviceAccounts map[string]bool, settings Settings) bool {
	entry, ok := sf.LastFieldChange(field)
	if !ok {
		return true
	}
	if serviceAccounts[entry.Login] {
		return false
	}
	if !settings.SinceDate.IsZero() && entry.Date.Before(settings.SinceDate) {
		return false
	}
	return true
}

// explanatoryComment summarizes the propagated fields, quoting the original
// source rationale when one was written.
func explanatoryComment(sf *findings.Finding, fields []string) string {
	text := fmt.Sprintf("synchronized %s from source finding", strings.Join(fields, ", "))
	for _, c := range sf.Comments {
		if strings.Contains(c.Text, markerTag) {
			continue
		}
		text = fmt.Sprintf("%s; original comment: %q", text, c.Text)
		break
	}
	return text
}
