package platform

import (
	"context"
	"fmt"
)

// Branch is one analyzed branch of a project.
type Branch struct {
	Name   string
	IsMain bool
}

// ListBranches returns the analyzed branches of a project. Community edition
// instances do not support branches; that maps to an UnsupportedError which
// callers treat as "single unnamed branch".
func (c *Client) ListBranches(ctx context.Context, projectKey string) ([]Branch, error) {
	var result listBranchesResult
	resp, err := c.httpc.R().
		SetContext(ctx).
		SetQueryParam("project", projectKey).
		SetResult(&result).
		Get("/api/project_branches/list")
	if err != nil {
		return nil, fmt.Errorf("failed to list branches of '%s': %w", projectKey, err)
	}
	if err := c.checkStatus(resp, "project", projectKey); err != nil {
		return nil, err
	}

	branches := make([]Branch, 0, len(result.Branches))
	for _, b := range result.Branches {
		branches = append(branches, Branch{Name: b.Name, IsMain: b.IsMain})
	}
	return branches, nil
}
