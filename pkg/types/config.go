// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by every provider client.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paperfetch/0.1 (mailto:someone@example.org)").
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// VerifySSL disables certificate verification when false.
	VerifySSL bool `json:"verify_ssl" yaml:"verify_ssl"`
}

// Defaults applied by FetchConfig.WithDefaults.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultMaxConcurrency  = 10
	DefaultMetadataWorkers = 4
	DefaultMinInterval     = 2 * time.Second
	DefaultMaxAttempts     = 3
	DefaultRetryBackoff    = 2 * time.Second
	DefaultFailedListName  = "failed_dois.txt"
	DefaultUserAgent       = "paperfetch/0.1"
)

// FetchConfig holds the settings for one download run. The pipeline treats
// it as immutable once a run has started.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// OutputDir receives the PDFs and the failed-identifier list.
	OutputDir string `json:"output_dir" yaml:"output_dir"`

	// ContactEmail is sent to providers that require a polite-pool address
	// (Unpaywall refuses requests without one).
	ContactEmail string `json:"contact_email" yaml:"contact_email"`

	// CoreAPIKey enables the CORE provider.
	CoreAPIKey string `json:"core_api_key,omitempty" yaml:"core_api_key,omitempty"`

	// MaxConcurrency bounds the number of identifiers processed at once (default 10).
	MaxConcurrency int `json:"max_concurrency" yaml:"max_concurrency"`

	// MetadataWorkers bounds concurrent metadata lookups per identifier (default 4).
	MetadataWorkers int `json:"metadata_workers" yaml:"metadata_workers"`

	// MinInterval is the minimum spacing between requests to one provider (default 2s).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval"`

	// MaxAttempts is the number of attempts for a content fetch (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// RetryBackoff is multiplied by the attempt number between retries (default 2s).
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`

	// FailedListName is the file in OutputDir that collects failed identifiers.
	FailedListName string `json:"failed_list_name" yaml:"failed_list_name"`

	// AppendFailed keeps the existing failed list instead of truncating it.
	AppendFailed bool `json:"append_failed" yaml:"append_failed"`
}

// WithDefaults returns a copy of c with zero values replaced by defaults.
func (c FetchConfig) WithDefaults() FetchConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
		if c.ContactEmail != "" {
			c.UserAgent += " (mailto:" + c.ContactEmail + ")"
		}
	}
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	if c.MetadataWorkers <= 0 {
		c.MetadataWorkers = DefaultMetadataWorkers
	}
	if c.MinInterval <= 0 {
		c.MinInterval = DefaultMinInterval
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.FailedListName == "" {
		c.FailedListName = DefaultFailedListName
	}
	if c.OutputDir == "" {
		c.OutputDir = "papers"
	}
	return c
}
