package platform

// Wire types for the server search APIs. Only the fields the sync engine
// reads are mapped.

type paging struct {
	PageIndex int `json:"pageIndex"`
	PageSize  int `json:"pageSize"`
	Total     int `json:"total"`
}

type apiComment struct {
	Key       string `json:"key"`
	Login     string `json:"login"`
	Markdown  string `json:"markdown"`
	CreatedAt string `json:"createdAt"`
}

type apiChangeDiff struct {
	Key      string `json:"key"`
	OldValue string `json:"oldValue"`
	NewValue string `json:"newValue"`
}

type apiChangelogEntry struct {
	User         string          `json:"user"`
	CreationDate string          `json:"creationDate"`
	Diffs        []apiChangeDiff `json:"diffs"`
}

type apiIssue struct {
	Key          string       `json:"key"`
	Rule         string       `json:"rule"`
	Component    string       `json:"component"`
	Project      string       `json:"project"`
	Line         int          `json:"line"`
	Message      string       `json:"message"`
	Severity     string       `json:"severity"`
	Type         string       `json:"type"`
	Status       string       `json:"status"`
	Resolution   string       `json:"resolution"`
	Assignee     string       `json:"assignee"`
	Tags         []string     `json:"tags"`
	CreationDate string       `json:"creationDate"`
	Comments     []apiComment `json:"comments"`
}

type searchIssuesResult struct {
	Paging paging     `json:"paging"`
	Issues []apiIssue `json:"issues"`
}

type changelogResult struct {
	Changelog []apiChangelogEntry `json:"changelog"`
}

type apiHotspot struct {
	Key          string `json:"key"`
	RuleKey      string `json:"ruleKey"`
	Component    string `json:"component"`
	Project      string `json:"project"`
	Line         int    `json:"line"`
	Message      string `json:"message"`
	Status       string `json:"status"`
	Resolution   string `json:"resolution"`
	Assignee     string `json:"assignee"`
	CreationDate string `json:"creationDate"`
}

type searchHotspotsResult struct {
	Paging   paging       `json:"paging"`
	Hotspots []apiHotspot `json:"hotspots"`
}

type apiBranch struct {
	Name   string `json:"name"`
	IsMain bool   `json:"isMain"`
	Type   string `json:"type"`
}

type listBranchesResult struct {
	Branches []apiBranch `json:"branches"`
}

type apiRule struct {
	Key            string   `json:"key"`
	DeprecatedKeys []string `json:"deprecatedKeys"`
}

type searchRulesResult struct {
	Paging paging    `json:"paging"`
	Rules  []apiRule `json:"rules"`
}
