package config

import (
	"fmt"
	"net/url"
	"time"
)

// ValidateConfig checks if the global configuration has valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateHTTPConfig(&cfg.HTTPClient); err != nil {
		return fmt.Errorf("YAML global config: http_client directive is invalid: %w", err)
	}
	if err := validateEndpoints(cfg.Endpoints); err != nil {
		return fmt.Errorf("YAML global config: endpoints directive is invalid: %w", err)
	}
	return nil
}

// ValidateHTTPConfig checks if the HTTP configuration has valid values.
func ValidateHTTPConfig(httpConfig *HTTPClient) error {
	if httpConfig == nil {
		return fmt.Errorf("HTTP configuration is nil")
	}
	if httpConfig.RetryCount < 0 || httpConfig.RetryCount > 20 {
		return fmt.Errorf("retry_count must be between 0 and 20: %d", httpConfig.RetryCount)
	}

	durations := map[string]time.Duration{
		"retry_wait_time":     httpConfig.RetryWaitTime,
		"retry_max_wait_time": httpConfig.RetryMaxWaitTime,
		"timeout":             httpConfig.Timeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%s must not be negative: %v", name, d)
		}
	}

	if httpConfig.Proxy.Host != "" && httpConfig.Proxy.Port == "" {
		return fmt.Errorf("proxy host is set but proxy port is empty")
	}
	return nil
}

func validateEndpoints(endpoints map[string]Endpoint) error {
	for name, ep := range endpoints {
		if ep.URL == "" {
			return fmt.Errorf("endpoint '%s' has no url", name)
		}
		u, err := url.Parse(ep.URL)
		if err != nil {
			return fmt.Errorf("endpoint '%s' url is invalid: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("endpoint '%s' url must use http or https: %s", name, ep.URL)
		}
	}
	return nil
}
