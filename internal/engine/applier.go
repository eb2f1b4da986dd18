package engine

import (
	"context"

	"github.com/hashicorp/go-hclog"
)

// Mutator performs one field mutation against a target finding. The bool
// result distinguishes ordinary API rejection (false, nil) from transport
// failure (err != nil). The platform client implements it.
type Mutator interface {
	ApplyChange(ctx context.Context, findingKey string, hotspot bool, m Mutation) (bool, error)
}

// Outcome records what happened to one source finding after apply.
type Outcome struct {
	SourceKey     string   `json:"sourceKey"`
	TargetKey     string   `json:"targetKey,omitempty"`
	Decision      Decision `json:"decision"`
	FieldsChanged []string `json:"fieldsChanged,omitempty"`
	Reason        string   `json:"reason,omitempty"`
	Applied       int      `json:"applied,omitempty"`
	Failed        int      `json:"failed,omitempty"`
	DryRun        bool     `json:"dryRun,omitempty"`
}

// Apply executes the change-set against the target, one mutation call per
// affected finding. Mutations for a single finding run in their planned
// order; a failure is recorded on the outcome and does not abort the
// remaining mutations of that finding nor the other findings.
func Apply(ctx context.Context, mutator Mutator, cs *ChangeSet, settings Settings, logger hclog.Logger) []Outcome {
	out := make([]Outcome, 0, len(cs.Items))

	for _, item := range cs.Items {
		outcome := Outcome{
			SourceKey:     item.Corr.SourceKey,
			TargetKey:     item.Corr.TargetKey,
			Decision:      item.Corr.Decision,
			FieldsChanged: item.FieldsChanged(),
			Reason:        item.Corr.Reason,
		}

		if settings.DryRun && len(item.Mutations) > 0 {
			outcome.DryRun = true
			logger.Info("dry run, skipping mutations",
				"target", item.TargetKey, "mutations", len(item.Mutations))
			out = append(out, outcome)
			continue
		}

		for _, m := range item.Mutations {
			ok, err := mutator.ApplyChange(ctx, item.TargetKey, item.Hotspot, m)
			switch {
			case err != nil:
				outcome.Failed++
				logger.Error("mutation failed",
					"target", item.TargetKey, "mutation", m.Kind.String(), "error", err)
			case !ok:
				// The server refused the change, typically because the target
				// was resolved differently between fetch and apply. Refusal
				// is surfaced, never overwritten.
				outcome.Failed++
				logger.Warn("mutation rejected by server",
					"target", item.TargetKey, "mutation", m.Kind.String())
			default:
				outcome.Applied++
			}
		}

		out = append(out, outcome)
	}
	return out
}
