package findings

import (
	"fmt"
	"net/url"
	"time"
)

// Kind discriminates the two flavours of findings an analysis produces.
// The set is closed: matching and planning switch on it explicitly.
type Kind string

const (
	KindIssue   Kind = "ISSUE"
	KindHotspot Kind = "HOTSPOT"
)

// Comment is one entry of a finding's comment thread.
type Comment struct {
	Key       string    `json:"key,omitempty"`
	Login     string    `json:"login,omitempty"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// FieldChange records one field transition inside a changelog entry.
type FieldChange struct {
	Field    string `json:"field"`
	OldValue string `json:"old_value,omitempty"`
	NewValue string `json:"new_value,omitempty"`
}

// ChangelogEntry is one manual action recorded on a finding: who did it,
// when, and which fields it touched.
type ChangelogEntry struct {
	Login   string        `json:"login,omitempty"`
	Date    time.Time     `json:"date"`
	Changes []FieldChange `json:"changes"`
}

// Finding is one static-analysis issue or security hotspot. The Key is
// server-assigned and opaque: it addresses apply calls but is never compared
// across servers or projects.
type Finding struct {
	Key  string `json:"key"`
	Kind Kind   `json:"kind"`

	Rule    string `json:"rule"`
	File    string `json:"file,omitempty"` // project-relative, empty for project-level findings
	Line    int    `json:"line,omitempty"` // 0 when absent, e.g. after the line was deleted
	Message string `json:"message"`

	Project string `json:"project,omitempty"`
	Branch  string `json:"branch,omitempty"`

	Severity   string `json:"severity,omitempty"`
	Type       string `json:"type,omitempty"` // issues only; hotspots carry a review status instead
	Status     string `json:"status,omitempty"`
	Resolution string `json:"resolution,omitempty"`
	Assignee   string `json:"assignee,omitempty"`

	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Comments  []Comment        `json:"comments,omitempty"`
	Changelog []ChangelogEntry `json:"changelog,omitempty"`
}

// IsHotspot reports whether the finding is a security hotspot.
func (f *Finding) IsHotspot() bool {
	return f.Kind == KindHotspot
}

// HasChangelog reports whether any manual action was ever recorded on the
// finding, ignoring actions made by the given logins.
func (f *Finding) HasChangelog(ignoreLogins map[string]bool) bool {
	for _, entry := range f.Changelog {
		if ignoreLogins[entry.Login] {
			continue
		}
		return true
	}
	return false
}

// HasComments reports whether the finding carries at least one comment.
func (f *Finding) HasComments() bool {
	return len(f.Comments) > 0
}

// LastFieldChange returns the most recent changelog entry that touched the
// given field. The second return value is false when no entry touched it.
func (f *Finding) LastFieldChange(field string) (ChangelogEntry, bool) {
	var found ChangelogEntry
	ok := false
	for _, entry := range f.Changelog {
		for _, change := range entry.Changes {
			if change.Field != field {
				continue
			}
			if !ok || entry.Date.After(found.Date) {
				found = entry
				ok = true
			}
		}
	}
	return found, ok
}

// ModifiedAfter reports whether any changelog entry is on or after the given
// time. A zero since always passes.
func (f *Finding) ModifiedAfter(since time.Time) bool {
	if since.IsZero() {
		return true
	}
	for _, entry := range f.Changelog {
		if !entry.Date.Before(since) {
			return true
		}
	}
	return false
}

// Permalink builds the browser URL of the finding on its home server.
func (f *Finding) Permalink(baseURL string) string {
	values := url.Values{}
	values.Set("id", f.Project)
	if f.Branch != "" {
		values.Set("branch", f.Branch)
	}
	if f.IsHotspot() {
		values.Set("hotspots", f.Key)
		return fmt.Sprintf("%s/security_hotspots?%s", baseURL, values.Encode())
	}
	values.Set("issues", f.Key)
	values.Set("open", f.Key)
	return fmt.Sprintf("%s/project/issues?%s", baseURL, values.Encode())
}
