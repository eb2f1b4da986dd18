package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/findsync/findsync/internal/engine"
	"github.com/findsync/findsync/pkg/shared/errors"
)

func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client := newWithClient(resty.New(), server.URL, "token", hclog.NewNullLogger())
	return client, server
}

func TestSearchIssues_Pagination(t *testing.T) {
	const total = 750

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/api/issues/changelog" {
			_ = json.NewEncoder(w).Encode(changelogResult{})
			return
		}
		if r.URL.Path != "/api/issues/search" {
			http.NotFound(w, r)
			return
		}
		page := r.URL.Query().Get("p")
		start, count := 0, 500
		if page == "2" {
			start, count = 500, 250
		}
		result := searchIssuesResult{Paging: paging{Total: total}}
		for i := 0; i < count; i++ {
			result.Issues = append(result.Issues, apiIssue{
				Key:       fmt.Sprintf("issue-%d", start+i),
				Rule:      "S1234",
				Component: "proj:src/a.py",
				Project:   "proj",
				Line:      start + i,
				Message:   "Fix foo",
			})
		}
		_ = json.NewEncoder(w).Encode(result)
	})

	client, _ := testClient(t, handler)
	issues, err := client.SearchIssues(context.Background(), "proj", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(issues) != total {
		t.Fatalf("expected %d issues across pages, got %d", total, len(issues))
	}

	f := issues["issue-0"]
	if f == nil {
		t.Fatalf("missing issue-0")
	}
	if f.File != "src/a.py" {
		t.Fatalf("component path not stripped: %q", f.File)
	}
	if f.Branch != "main" {
		t.Fatalf("expected branch recorded on finding, got %q", f.Branch)
	}
}

func TestSearchIssues_ResolvedIssueGetsChangelog(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/issues/search":
			_ = json.NewEncoder(w).Encode(searchIssuesResult{
				Paging: paging{Total: 1},
				Issues: []apiIssue{{
					Key:        "i1",
					Rule:       "S1",
					Component:  "proj:a.py",
					Project:    "proj",
					Message:    "m",
					Status:     "RESOLVED",
					Resolution: "FALSE_POSITIVE",
				}},
			})
		case "/api/issues/changelog":
			_ = json.NewEncoder(w).Encode(changelogResult{
				Changelog: []apiChangelogEntry{{
					User:         "alice",
					CreationDate: "2025-03-01T10:00:00+0000",
					Diffs:        []apiChangeDiff{{Key: "resolution", NewValue: "FALSE-POSITIVE"}},
				}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	client, _ := testClient(t, handler)
	issues, err := client.SearchIssues(context.Background(), "proj", "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := issues["i1"]
	if f == nil {
		t.Fatalf("missing i1")
	}
	if f.Resolution != "FALSE-POSITIVE" {
		t.Fatalf("resolution spelling not normalized: %q", f.Resolution)
	}
	if len(f.Changelog) != 1 || f.Changelog[0].Login != "alice" {
		t.Fatalf("expected the changelog attached, got %+v", f.Changelog)
	}
}

func TestSearchIssues_NotFound(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	client, _ := testClient(t, handler)
	_, err := client.SearchIssues(context.Background(), "missing", "main")
	if !errors.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFetchFindings_UnsupportedHotspotsDegrades(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/issues/search":
			_ = json.NewEncoder(w).Encode(searchIssuesResult{
				Paging: paging{Total: 1},
				Issues: []apiIssue{{Key: "i1", Rule: "S1", Component: "proj:a.py", Project: "proj", Message: "m"}},
			})
		case "/api/hotspots/search":
			// Community edition rejects the request.
			w.WriteHeader(http.StatusBadRequest)
		default:
			http.NotFound(w, r)
		}
	})

	client, _ := testClient(t, handler)
	found, err := client.FetchFindings(context.Background(), "proj", "main")
	if err != nil {
		t.Fatalf("unsupported hotspots should shrink scope, not fail: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected the issue set, got %d findings", len(found))
	}
}

func TestListBranches_Unsupported(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	client, _ := testClient(t, handler)
	_, err := client.ListBranches(context.Background(), "proj")
	if !errors.IsUnsupported(err) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
}

func TestApplyChange_RejectionIsNotAnError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/issues/do_transition" {
			http.NotFound(w, r)
			return
		}
		// Typical refusal: the issue was already resolved differently.
		w.WriteHeader(http.StatusBadRequest)
	})

	client, _ := testClient(t, handler)
	ok, err := client.ApplyChange(context.Background(), "issue-1", false,
		engine.Mutation{Kind: engine.MutationTransition, Value: "falsepositive"})
	if err != nil {
		t.Fatalf("API rejection must not be a transport error: %v", err)
	}
	if ok {
		t.Fatalf("rejected mutation must not report success")
	}
}

func TestApplyChange_HotspotEndpoints(t *testing.T) {
	var gotPath string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	client, _ := testClient(t, handler)
	ok, err := client.ApplyChange(context.Background(), "hs-1", true,
		engine.Mutation{Kind: engine.MutationComment, Value: "[fs-sync] note"})
	if err != nil || !ok {
		t.Fatalf("unexpected result: ok=%v err=%v", ok, err)
	}
	if gotPath != "/api/hotspots/add_comment" {
		t.Fatalf("hotspot comments must use the hotspot endpoint, got %q", gotPath)
	}
}

func TestRuleEquivalence_CachedPerEndpoint(t *testing.T) {
	calls := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(searchRulesResult{
			Paging: paging{Total: 1},
			Rules:  []apiRule{{Key: "java:S100", DeprecatedKeys: []string{"squid:S100"}}},
		})
	})

	client, _ := testClient(t, handler)
	cache := NewCache()

	ruleMap, err := RuleEquivalence(context.Background(), client, cache)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ruleMap["squid:S100"] != "java:S100" {
		t.Fatalf("expected deprecated key mapped, got %v", ruleMap)
	}

	if _, err := RuleEquivalence(context.Background(), client, cache); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected the catalog fetched once per endpoint, got %d calls", calls)
	}
}
