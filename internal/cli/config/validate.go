package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/leapstack-labs/leapexpose/internal/warehouse"
	"github.com/leapstack-labs/leapexpose/pkg/exposure"
)

// Validate checks settings that every command needs.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("server_url must be an absolute URL, got %q", c.ServerURL)
	}
	if c.ScopePasses < 1 {
		return fmt.Errorf("scope_passes must be at least 1, got %d", c.ScopePasses)
	}
	if _, err := exposure.ParseFormat(c.Format); err != nil {
		return err
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout %q: %w", c.Timeout, err)
	}
	if c.Warehouse != nil && c.Warehouse.Enabled() {
		if !warehouse.IsRegistered(strings.ToLower(c.Warehouse.Type)) {
			return &warehouse.UnknownAdapterError{
				Type:      c.Warehouse.Type,
				Available: warehouse.ListSources(),
			}
		}
	}
	return nil
}

// ValidateCredentials checks that a personal access token is configured.
func (c *Config) ValidateCredentials() error {
	if c.TokenName == "" || c.TokenSecret == "" {
		return fmt.Errorf("tableau personal access token is not configured\nHint: set token_name and token_secret, LEAPEXPOSE_TOKEN_NAME/LEAPEXPOSE_TOKEN_SECRET, or %s/%s in .env",
			LegacyTokenNameEnv, LegacyTokenSecretEnv)
	}
	return nil
}

// TimeoutDuration returns the parsed request timeout.
func (c *Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// Classifier returns the dependency classifier for the configured databases.
func (c *Config) Classifier() exposure.Classifier {
	cl := exposure.DefaultClassifier()
	if c.RefDatabases != nil {
		cl.RefDatabases = c.RefDatabases
	}
	if c.SourceDatabase != "" {
		cl.SourceDatabase = c.SourceDatabase
	}
	return cl
}
