package platform

import (
	"context"
	"fmt"
	"strconv"
)

// RuleEquivalence builds a mapping from the source server's rule keys to the
// target server's, using the target's deprecated-key catalog. Source and
// target on the same version family yield an empty map, which the matcher
// treats as identity. Lookup failure is not an error: an unmapped rule simply
// cannot match by rule, which is the graceful degradation the engine wants.
func RuleEquivalence(ctx context.Context, target *Client, cache *Cache) (map[string]string, error) {
	if cached := cache.RuleMap(target.baseURL); cached != nil {
		return cached, nil
	}

	mapping := make(map[string]string)
	page := 1
	for {
		var result searchRulesResult
		resp, err := target.httpc.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"f":  "deprecatedKeys",
				"ps": strconv.Itoa(pageSize),
				"p":  strconv.Itoa(page),
			}).
			SetResult(&result).
			Get("/api/rules/search")
		if err != nil {
			return nil, fmt.Errorf("failed to search rules: %w", err)
		}
		if err := target.checkStatus(resp, "rules", target.baseURL); err != nil {
			return nil, err
		}

		for _, rule := range result.Rules {
			for _, deprecated := range rule.DeprecatedKeys {
				mapping[deprecated] = rule.Key
			}
		}

		if page*pageSize >= result.Paging.Total || page*pageSize >= maxPageOffset {
			break
		}
		page++
	}

	cache.SetRuleMap(target.baseURL, mapping)
	return mapping, nil
}
