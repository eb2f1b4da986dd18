package platform

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/findsync/findsync/pkg/shared/config"
	"github.com/findsync/findsync/pkg/shared/errors"
	"github.com/findsync/findsync/pkg/shared/httpclient"
)

// pageSize is the server page size for search APIs. The server caps paged
// search results at 10000 entries per query.
const (
	pageSize      = 500
	maxPageOffset = 10000
)

// Client talks to one analysis server. One Client per endpoint; safe for
// concurrent use by branch-pair workers because all mutable state lives in
// the per-run Cache passed explicitly by the caller.
type Client struct {
	httpc   *resty.Client
	baseURL string
	logger  hclog.Logger
}

// New creates a Client for the given endpoint. Every endpoint owns its resty
// client because base URL and auth are client-level state. The token rides as
// a basic auth user, the scheme the platform uses for API tokens.
func New(cfg *config.Config, baseURL, token string, logger hclog.Logger) *Client {
	httpc := httpclient.InitializeRestyClient(logger, cfg)
	return newWithClient(httpc, baseURL, token, logger)
}

func newWithClient(httpc *resty.Client, baseURL, token string, logger hclog.Logger) *Client {
	base := strings.TrimRight(baseURL, "/")
	httpc.SetBaseURL(base)
	if token != "" {
		httpc.SetBasicAuth(token, "")
	}
	return &Client{
		httpc:   httpc,
		baseURL: base,
		logger:  logger,
	}
}

// BaseURL returns the endpoint browser URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// checkStatus maps the response status to the typed error taxonomy. 404 means
// the resource does not exist; 400 on capability endpoints means the edition
// does not support the API.
func (c *Client) checkStatus(resp *resty.Response, resource, key string) error {
	switch {
	case resp.StatusCode() == http.StatusOK:
		return nil
	case resp.StatusCode() == http.StatusNotFound:
		return errors.NewNotFoundError(resource, key)
	case resp.StatusCode() == http.StatusBadRequest:
		return errors.NewUnsupportedError(resource, c.baseURL)
	default:
		return fmt.Errorf("%d on %s '%s'", resp.StatusCode(), resource, key)
	}
}

// apiTime is the timestamp layout used by the server API.
const apiTime = "2006-01-02T15:04:05-0700"

func parseAPITime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(apiTime, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
