package platform

import "sync"

// Cache holds objects fetched once per sync invocation and reused across
// branch-pair workers: today the rule equivalence catalog per endpoint. It is
// created by the orchestrator and passed explicitly, never package-level, so
// two concurrent sync invocations cannot share state by accident.
type Cache struct {
	mu       sync.Mutex
	ruleMaps map[string]map[string]string
}

// NewCache creates an empty per-invocation cache.
func NewCache() *Cache {
	return &Cache{ruleMaps: make(map[string]map[string]string)}
}

// RuleMap returns the cached rule equivalence map for an endpoint, or nil.
func (c *Cache) RuleMap(endpoint string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ruleMaps[endpoint]
}

// SetRuleMap stores the rule equivalence map for an endpoint.
func (c *Cache) SetRuleMap(endpoint string, m map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ruleMaps[endpoint] = m
}
