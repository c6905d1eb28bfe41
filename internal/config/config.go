// Package config assembles vstore settings from defaults, an optional JSON
// file (-c/-config) and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/storage"
	"github.com/dmitrijs2005/vstore/internal/version"
)

// Config holds runtime settings.
//
// Fields:
//   - StoragePath: root directory of the local storage tier.
//   - DatabaseDSN: owner-record database; postgres URL or SQLite path.
//   - S3*: remote tier credentials and placement. The remote tier is
//     configured only when a bucket is set.
//   - ProcessingEnabled: run image transformations; off means byte copies.
//   - TransferEnabled: move remotely stored types to S3 after storing.
//   - DownloadTimeout: per-download deadline, 0 disables it.
//   - MetricsAddr: listen address of the serve command.
//   - Types: declared attachment types.
type Config struct {
	StoragePath       string
	DatabaseDSN       string
	S3AccessKey       string
	S3SecretKey       string
	S3Bucket          string
	S3Region          string
	S3BaseEndpoint    string
	S3PublicURL       string
	ProcessingEnabled bool
	TransferEnabled   bool
	DownloadTimeout   time.Duration
	MetricsAddr       string
	LogLevel          string
	TempDir           string
	Types             []TypeConfig
}

// TypeConfig declares one attachment type.
type TypeConfig struct {
	Name          string          `json:"name"`
	Storage       string          `json:"storage,omitempty"`
	StoreRemotely bool            `json:"store_remotely,omitempty"`
	Meta          bool            `json:"meta,omitempty"`
	Structured    bool            `json:"structured,omitempty"`
	Versions      []VersionConfig `json:"versions"`
}

// VersionConfig declares one version of a type.
type VersionConfig struct {
	Name    string            `json:"name"`
	Options map[string]string `json:"options,omitempty"`
}

// LoadDefaults populates Config with development defaults: a local
// SQLite database and storage directory, no remote tier.
func (c *Config) LoadDefaults() {
	c.StoragePath = "./public"
	c.DatabaseDSN = "vstore.db"
	c.S3Region = "us-east-1"
	c.ProcessingEnabled = true
	c.TransferEnabled = false
	c.DownloadTimeout = 30 * time.Second
	c.MetricsAddr = ":8080"
	c.LogLevel = "info"
	c.Types = []TypeConfig{
		{
			Name: "Post",
			Versions: []VersionConfig{
				{Name: "thumb", Options: map[string]string{version.OptResizeToFill: "200x200"}},
				{Name: "big", Options: map[string]string{version.OptResize: "300x300"}},
			},
		},
	}
}

// LoadConfig applies defaults, then the JSON file named by -c/-config, then
// the recognised flags of args. Unrelated arguments are ignored.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// HasRemote reports whether a remote tier is configured.
func (c *Config) HasRemote() bool {
	return c.S3Bucket != ""
}

// Type returns the named type declaration.
func (c *Config) Type(name string) (TypeConfig, bool) {
	for _, t := range c.Types {
		if t.Name == name {
			return t, true
		}
	}
	return TypeConfig{}, false
}

// Validate checks settings that can be judged without touching storage.
func (c *Config) Validate() error {
	if c.StoragePath == "" && !c.HasRemote() {
		return fmt.Errorf("%w: neither a storage path nor an S3 bucket is configured", common.ErrInvalidInput)
	}
	if c.DownloadTimeout < 0 {
		return fmt.Errorf("%w: negative download timeout", common.ErrInvalidInput)
	}
	seen := make(map[string]struct{}, len(c.Types))
	for _, t := range c.Types {
		if t.Name == "" {
			return fmt.Errorf("%w: attachment type without a name", common.ErrInvalidInput)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: attachment type %s declared twice", common.ErrInvalidInput, t.Name)
		}
		seen[t.Name] = struct{}{}
		if t.Storage != "" {
			if _, err := storage.ParseTier(t.Storage); err != nil {
				return fmt.Errorf("attachment type %s: %w", t.Name, err)
			}
		}
		if t.StoreRemotely && !c.HasRemote() {
			return fmt.Errorf("%w: attachment type %s stores remotely but no S3 bucket is configured", common.ErrInvalidInput, t.Name)
		}
		for _, v := range t.Versions {
			if _, err := version.New(v.Name, v.Options); err != nil {
				return fmt.Errorf("attachment type %s: %w", t.Name, err)
			}
		}
	}
	return nil
}
