package platform

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/findsync/findsync/internal/findings"
)

// SearchIssues returns all issues of a project branch keyed by issue key,
// walking the paginated search API. Changelogs are fetched for issues that
// carry manual state, since those are the only ones whose history the engine
// consults.
func (c *Client) SearchIssues(ctx context.Context, projectKey, branch string) (map[string]*findings.Finding, error) {
	out := make(map[string]*findings.Finding)

	page := 1
	for {
		var result searchIssuesResult
		resp, err := c.httpc.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"componentKeys":    projectKey,
				"branch":           branch,
				"additionalFields": "comments",
				"ps":               strconv.Itoa(pageSize),
				"p":                strconv.Itoa(page),
			}).
			SetResult(&result).
			Get("/api/issues/search")
		if err != nil {
			return nil, fmt.Errorf("failed to search issues of '%s': %w", projectKey, err)
		}
		if err := c.checkStatus(resp, "project branch", fmt.Sprintf("%s@%s", projectKey, branch)); err != nil {
			return nil, err
		}

		for i := range result.Issues {
			f := convertIssue(&result.Issues[i], branch)
			out[f.Key] = f
		}

		if page*pageSize >= result.Paging.Total || page*pageSize >= maxPageOffset {
			if result.Paging.Total > maxPageOffset {
				c.logger.Warn("issue search truncated by server paging cap",
					"project", projectKey, "branch", branch, "total", result.Paging.Total)
			}
			break
		}
		page++
	}

	for _, f := range out {
		if !needsChangelog(f) {
			continue
		}
		if err := c.fetchChangelog(ctx, f); err != nil {
			// A missing changelog degrades the match quality, it does not
			// abort the fetch.
			c.logger.Warn("failed to fetch issue changelog", "issue", f.Key, "error", err)
		}
	}

	return out, nil
}

func needsChangelog(f *findings.Finding) bool {
	return f.Resolution != "" || f.Assignee != "" || f.Status == "RESOLVED" || f.Status == "REVIEWED"
}

func (c *Client) fetchChangelog(ctx context.Context, f *findings.Finding) error {
	var result changelogResult
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetQueryParam("issue", f.Key).
		SetResult(&result).
		Get("/api/issues/changelog")
	if err != nil {
		return err
	}
	if err := c.checkStatus(resp, "issue changelog", f.Key); err != nil {
		return err
	}

	f.Changelog = make([]findings.ChangelogEntry, 0, len(result.Changelog))
	for _, entry := range result.Changelog {
		converted := findings.ChangelogEntry{
			Login: entry.User,
			Date:  parseAPITime(entry.CreationDate),
		}
		for _, diff := range entry.Diffs {
			converted.Changes = append(converted.Changes, findings.FieldChange{
				Field:    diff.Key,
				OldValue: diff.OldValue,
				NewValue: diff.NewValue,
			})
		}
		f.Changelog = append(f.Changelog, converted)
	}
	return nil
}

func convertIssue(issue *apiIssue, branch string) *findings.Finding {
	f := &findings.Finding{
		Key:        issue.Key,
		Kind:       findings.KindIssue,
		Rule:       issue.Rule,
		File:       componentPath(issue.Component, issue.Project),
		Line:       issue.Line,
		Message:    issue.Message,
		Project:    issue.Project,
		Branch:     branch,
		Severity:   issue.Severity,
		Type:       issue.Type,
		Status:     issue.Status,
		Resolution: normalizeResolution(issue.Resolution),
		Assignee:   issue.Assignee,
		Tags:       issue.Tags,
		CreatedAt:  parseAPITime(issue.CreationDate),
	}
	for _, comment := range issue.Comments {
		f.Comments = append(f.Comments, findings.Comment{
			Key:       comment.Key,
			Login:     comment.Login,
			Text:      comment.Markdown,
			CreatedAt: parseAPITime(comment.CreatedAt),
		})
	}
	return f
}

// componentPath strips the project prefix from a component key, leaving the
// project-relative file path. Project-level issues have no path part.
func componentPath(component, project string) string {
	if component == "" || component == project {
		return ""
	}
	if idx := strings.Index(component, ":"); idx >= 0 {
		return component[idx+1:]
	}
	return component
}

// normalizeResolution maps server spellings to the engine vocabulary.
func normalizeResolution(resolution string) string {
	switch strings.ToUpper(resolution) {
	case "FALSE-POSITIVE", "FALSE_POSITIVE":
		return "FALSE-POSITIVE"
	case "WONTFIX":
		return "WONTFIX"
	case "ACCEPTED":
		return "ACCEPTED"
	default:
		return strings.ToUpper(resolution)
	}
}
