package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration and normalizes it in place.
func (c *Config) Validate() error {
	brokers := c.Brokers[:0:0]
	for i, b := range c.Brokers {
		b = strings.TrimSpace(b)
		if b == "" {
			return fmt.Errorf("brokers[%d]: empty address", i)
		}
		brokers = append(brokers, b)
	}
	if len(brokers) == 0 {
		return fmt.Errorf("at least one broker required")
	}
	c.Brokers = brokers

	seen := make(map[string]struct{}, len(c.Topics))
	topics := c.Topics[:0:0]
	for i, t := range c.Topics {
		t = strings.TrimSpace(t)
		if t == "" {
			return fmt.Errorf("topics[%d]: empty topic name", i)
		}
		if _, dup := seen[t]; dup {
			return fmt.Errorf("topics[%d]: duplicate topic %q", i, t)
		}
		seen[t] = struct{}{}
		topics = append(topics, t)
	}
	if len(topics) == 0 {
		return fmt.Errorf("at least one topic required")
	}
	c.Topics = topics

	if strings.TrimSpace(c.GroupID) == "" {
		return fmt.Errorf("group_id required")
	}

	c.OffsetReset = strings.ToLower(strings.TrimSpace(c.OffsetReset))
	switch c.OffsetReset {
	case "latest", "earliest":
	default:
		return fmt.Errorf("offset_reset must be 'latest' or 'earliest', got %q", c.OffsetReset)
	}

	if c.MostRecentCount < 0 {
		return fmt.Errorf("most_recent_count must be >= 0")
	}

	c.ForwardURL = strings.TrimSpace(c.ForwardURL)
	if c.ForwardURL != "" {
		u, err := url.Parse(c.ForwardURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("forward_url must be an http(s) URL, got %q", c.ForwardURL)
		}
		if c.MostRecentCount == 0 {
			return fmt.Errorf("forward_url requires most_recent_count > 0")
		}
	}
	if c.ForwardTimeoutMS <= 0 {
		return fmt.Errorf("forward_timeout_ms must be > 0")
	}

	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("listen_port %d out of range", c.ListenPort)
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("tls_cert and tls_key must be set together")
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error; got %q", c.LogLevel)
	}
	return nil
}
