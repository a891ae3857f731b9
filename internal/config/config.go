// Package config loads the triage configuration from a properties file.
// Configuration is read once at startup into an explicit value; nothing
// does ambient lookup afterwards.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFileName is the config file the tool looks for next to the
// working directory when no --config flag is given.
const DefaultFileName = "config.properties"

const (
	defaultAuthURL = "https://cloudinfra-gw.portal.checkpoint.com/auth/external"
	defaultAPIURL  = "https://cloudinfra-gw.portal.checkpoint.com/app/xdr/api/xdr/v1/incidents"
)

// XDR holds the incident-source endpoints and credential set.
type XDR struct {
	AuthURL   string
	APIURL    string
	ClientID  string
	AccessKey string
	ClientKey string
	UserEmail string
}

// Splunk holds the log-collector endpoint settings. Insecure disables
// TLS certificate verification and must be set explicitly.
type Splunk struct {
	URL      string
	Token    string
	Insecure bool
}

// Triage holds tool-level settings.
type Triage struct {
	LogLevel     string
	DangerousIPs []string
	Vault        bool
	VaultPath    string
}

// Config is the full configuration for one run. Immutable after Load.
type Config struct {
	XDR    XDR
	Splunk Splunk
	Triage Triage
}

// Load reads the properties file at path. Missing-key validation is
// separate (Validate) so vault-held secrets can be filled in between.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")

	v.SetDefault("xdr.auth_url", defaultAuthURL)
	v.SetDefault("xdr.api_url", defaultAPIURL)
	v.SetDefault("triage.log_level", "info")
	v.SetDefault("triage.vault", false)
	v.SetDefault("triage.vault_path", "xdrtriage.vault")
	v.SetDefault("splunk.insecure", false)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	cfg := &Config{
		XDR: XDR{
			AuthURL:   v.GetString("xdr.auth_url"),
			APIURL:    v.GetString("xdr.api_url"),
			ClientID:  v.GetString("xdr.client_id"),
			AccessKey: v.GetString("xdr.access_key"),
			ClientKey: v.GetString("xdr.client_key"),
			UserEmail: v.GetString("xdr.user_email"),
		},
		Splunk: Splunk{
			URL:      v.GetString("splunk.url"),
			Token:    v.GetString("splunk.token"),
			Insecure: v.GetBool("splunk.insecure"),
		},
		Triage: Triage{
			LogLevel:     v.GetString("triage.log_level"),
			DangerousIPs: splitList(v.GetString("triage.dangerous_ips")),
			Vault:        v.GetBool("triage.vault"),
			VaultPath:    v.GetString("triage.vault_path"),
		},
	}
	return cfg, nil
}

// Validate checks that every key a run needs is present, naming the
// first missing one. It runs before any network call.
func (c *Config) Validate() error {
	required := []struct {
		key   string
		value string
	}{
		{"xdr.auth_url", c.XDR.AuthURL},
		{"xdr.api_url", c.XDR.APIURL},
		{"xdr.client_id", c.XDR.ClientID},
		{"xdr.access_key", c.XDR.AccessKey},
		{"xdr.client_key", c.XDR.ClientKey},
		{"xdr.user_email", c.XDR.UserEmail},
		{"splunk.url", c.Splunk.URL},
		{"splunk.token", c.Splunk.Token},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("config: missing required key %q", r.key)
		}
	}
	return nil
}

// ApplyVaultEntry maps a vault entry onto its config field. Entries
// present in an unlocked vault take precedence over file values.
func (c *Config) ApplyVaultEntry(key, value string) {
	switch key {
	case "xdr.access_key":
		c.XDR.AccessKey = value
	case "xdr.client_key":
		c.XDR.ClientKey = value
	case "splunk.token":
		c.Splunk.Token = value
	}
}

// VaultManagedKeys lists the entry names the vault may hold.
var VaultManagedKeys = []string{"xdr.access_key", "xdr.client_key", "splunk.token"}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
