package platform

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/findsync/findsync/internal/engine"
)

// ApplyChange performs one field mutation on a target finding. Ordinary API
// rejection (4xx) returns (false, nil): the server refusing a transition is a
// reportable outcome, not a transport failure. Only transport-level errors
// return err.
func (c *Client) ApplyChange(ctx context.Context, findingKey string, hotspot bool, m engine.Mutation) (bool, error) {
	var resp *resty.Response
	var err error

	switch m.Kind {
	case engine.MutationTransition:
		resp, err = c.post(ctx, "/api/issues/do_transition", map[string]string{
			"issue":      findingKey,
			"transition": m.Value,
		})
	case engine.MutationSeverity:
		resp, err = c.post(ctx, "/api/issues/set_severity", map[string]string{
			"issue":    findingKey,
			"severity": m.Value,
		})
	case engine.MutationType:
		resp, err = c.post(ctx, "/api/issues/set_type", map[string]string{
			"issue": findingKey,
			"type":  m.Value,
		})
	case engine.MutationHotspotStatus:
		resp, err = c.post(ctx, "/api/hotspots/change_status", map[string]string{
			"hotspot": findingKey,
			"status":  m.Value,
		})
	case engine.MutationAssign:
		endpoint, param := "/api/issues/assign", "issue"
		if hotspot {
			endpoint, param = "/api/hotspots/assign", "hotspot"
		}
		resp, err = c.post(ctx, endpoint, map[string]string{
			param:      findingKey,
			"assignee": m.Value,
		})
	case engine.MutationComment:
		endpoint, param := "/api/issues/add_comment", "issue"
		if hotspot {
			endpoint, param = "/api/hotspots/add_comment", "hotspot"
		}
		resp, err = c.post(ctx, endpoint, map[string]string{
			param:  findingKey,
			"text": m.Value,
		})
	default:
		return false, fmt.Errorf("unsupported mutation kind: %v", m.Kind)
	}

	if err != nil {
		return false, err
	}
	if resp.StatusCode() >= http.StatusOK && resp.StatusCode() < http.StatusMultipleChoices {
		return true, nil
	}
	if resp.StatusCode() >= http.StatusBadRequest && resp.StatusCode() < http.StatusInternalServerError {
		c.logger.Warn("mutation rejected",
			"finding", findingKey, "mutation", m.Kind.String(), "status", resp.StatusCode())
		return false, nil
	}
	return false, fmt.Errorf("%d on %s mutation of '%s'", resp.StatusCode(), m.Kind.String(), findingKey)
}

func (c *Client) post(ctx context.Context, endpoint string, form map[string]string) (*resty.Response, error) {
	return c.httpc.R().
		SetContext(ctx).
		SetFormData(form).
		Post(endpoint)
}
