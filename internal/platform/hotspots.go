package platform

import (
	"context"
	"fmt"
	"strconv"

	"github.com/findsync/findsync/internal/findings"
	"github.com/findsync/findsync/pkg/shared/errors"
)

// SearchHotspots returns all security hotspots of a project branch keyed by
// hotspot key. Community edition instances reject the hotspot branch
// parameter; that surfaces as an UnsupportedError the caller downgrades to a
// reduced-scope sync.
func (c *Client) SearchHotspots(ctx context.Context, projectKey, branch string) (map[string]*findings.Finding, error) {
	out := make(map[string]*findings.Finding)

	page := 1
	for {
		var result searchHotspotsResult
		resp, err := c.httpc.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"projectKey": projectKey,
				"branch":     branch,
				"ps":         strconv.Itoa(pageSize),
				"p":          strconv.Itoa(page),
			}).
			SetResult(&result).
			Get("/api/hotspots/search")
		if err != nil {
			return nil, fmt.Errorf("failed to search hotspots of '%s': %w", projectKey, err)
		}
		if err := c.checkStatus(resp, "hotspots", fmt.Sprintf("%s@%s", projectKey, branch)); err != nil {
			return nil, err
		}

		for i := range result.Hotspots {
			f := convertHotspot(&result.Hotspots[i], branch)
			out[f.Key] = f
		}

		if page*pageSize >= result.Paging.Total || page*pageSize >= maxPageOffset {
			break
		}
		page++
	}

	return out, nil
}

// FetchFindings returns the union of issues and hotspots of a project branch,
// deduplicated by key. An unsupported hotspot API shrinks the scope to issues
// only instead of failing the fetch.
func (c *Client) FetchFindings(ctx context.Context, projectKey, branch string) (map[string]*findings.Finding, error) {
	issues, err := c.SearchIssues(ctx, projectKey, branch)
	if err != nil {
		return nil, err
	}

	hotspots, err := c.SearchHotspots(ctx, projectKey, branch)
	if err != nil {
		if errors.IsUnsupported(err) {
			c.logger.Warn("hotspot search unsupported on this edition, syncing issues only",
				"endpoint", c.baseURL, "project", projectKey)
			return issues, nil
		}
		return nil, err
	}

	for key, f := range hotspots {
		if _, exists := issues[key]; !exists {
			issues[key] = f
		}
	}
	return issues, nil
}

func convertHotspot(h *apiHotspot, branch string) *findings.Finding {
	return &findings.Finding{
		Key:        h.Key,
		Kind:       findings.KindHotspot,
		Rule:       h.RuleKey,
		File:       componentPath(h.Component, h.Project),
		Line:       h.Line,
		Message:    h.Message,
		Project:    h.Project,
		Branch:     branch,
		Status:     h.Status,
		Resolution: normalizeResolution(h.Resolution),
		Assignee:   h.Assignee,
		CreatedAt:  parseAPITime(h.CreationDate),
	}
}
