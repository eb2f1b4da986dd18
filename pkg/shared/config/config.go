package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config holds the global configuration for findsync.
type Config struct {
	Logger     Logger              `yaml:"logger"`
	HTTPClient HTTPClient          `yaml:"http_client"`
	Endpoints  map[string]Endpoint `yaml:"endpoints"`
}

type Logger struct {
	Level string `yaml:"level"`
}

// HTTPClient tunes the resty client shared by all platform API calls.
type HTTPClient struct {
	Debug            bool            `yaml:"debug"`
	RetryCount       int             `yaml:"retry_count"`
	RetryWaitTime    time.Duration   `yaml:"retry_wait_time"`
	RetryMaxWaitTime time.Duration   `yaml:"retry_max_wait_time"`
	Timeout          time.Duration   `yaml:"timeout"`
	TLSClientConfig  TLSClientConfig `yaml:"tls_client_config"`
	Proxy            Proxy           `yaml:"proxy"`
}

type TLSClientConfig struct {
	Verify bool `yaml:"verify"`
}

type Proxy struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// Endpoint describes one named analysis server. Tokens are not stored in the
// file itself: TokenEnv names the environment variable that carries the token.
type Endpoint struct {
	URL      string `yaml:"url"`
	TokenEnv string `yaml:"token_env"`
}

// Token resolves the endpoint token from the configured environment variable.
func (e Endpoint) Token() string {
	if e.TokenEnv == "" {
		return ""
	}
	return os.Getenv(e.TokenEnv)
}

// DefaultHTTPClientConfig returns the http client defaults applied when the
// config file leaves values unset.
func DefaultHTTPClientConfig() HTTPClient {
	return HTTPClient{
		RetryCount:       3,
		RetryWaitTime:    1 * time.Second,
		RetryMaxWaitTime: 10 * time.Second,
		Timeout:          60 * time.Second,
		TLSClientConfig:  TLSClientConfig{Verify: true},
	}
}

// ValidateConfigPath ensures the given path exists and is a regular file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML reads and decodes a YAML file into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the config file at configPath. A missing file is not an
// error: findsync can run fully from flags and environment variables, so an
// empty config with defaults is returned instead.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		cfg.HTTPClient = DefaultHTTPClientConfig()
		return cfg, nil
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		cfg.HTTPClient = DefaultHTTPClientConfig()
		return cfg, nil
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, err
	}
	applyHTTPDefaults(&cfg.HTTPClient)

	return cfg, nil
}

func applyHTTPDefaults(httpConfig *HTTPClient) {
	defaults := DefaultHTTPClientConfig()
	if httpConfig.RetryCount == 0 {
		httpConfig.RetryCount = defaults.RetryCount
	}
	if httpConfig.RetryWaitTime == 0 {
		httpConfig.RetryWaitTime = defaults.RetryWaitTime
	}
	if httpConfig.RetryMaxWaitTime == 0 {
		httpConfig.RetryMaxWaitTime = defaults.RetryMaxWaitTime
	}
	if httpConfig.Timeout == 0 {
		httpConfig.Timeout = defaults.Timeout
	}
}
