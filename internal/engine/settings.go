package engine

import "time"

// DefaultConcurrency bounds the branch-pair worker pool when the caller does
// not choose a level.
const DefaultConcurrency = 8

// Settings is the immutable configuration of one sync run.
type Settings struct {
	// AddComments posts an explanatory comment on the target summarizing the
	// propagated fields.
	AddComments bool
	// AddLink posts a back-reference comment with the source finding permalink.
	AddLink bool
	// CopyAssignments propagates the source assignee.
	CopyAssignments bool
	// ServiceAccounts lists logins whose source-side changes are treated as
	// automation noise and never propagated.
	ServiceAccounts []string
	// SinceDate, when set, skips source findings with no changelog on or after
	// that date.
	SinceDate time.Time
	// IgnoreComponents excludes file paths from fingerprints, for
	// cross-project sync where paths differ structurally.
	IgnoreComponents bool
	// Concurrency bounds the number of branch pairs synchronized in parallel.
	Concurrency int
	// DryRun plans mutations but does not send them.
	DryRun bool
	// SourceBaseURL is the browser URL of the source server, used to build
	// permalinks for back-reference comments.
	SourceBaseURL string
}

// ServiceAccountSet returns the service account logins as a lookup set.
func (s Settings) ServiceAccountSet() map[string]bool {
	set := make(map[string]bool, len(s.ServiceAccounts))
	for _, login := range s.ServiceAccounts {
		set[login] = true
	}
	return set
}

// Workers returns the effective worker pool size.
func (s Settings) Workers() int {
	if s.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return s.Concurrency
}
