package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/vstore/internal/common"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "./public", c.StoragePath)
	assert.Equal(t, "vstore.db", c.DatabaseDSN)
	assert.Equal(t, "us-east-1", c.S3Region)
	assert.True(t, c.ProcessingEnabled)
	assert.False(t, c.TransferEnabled)
	assert.Equal(t, 30*time.Second, c.DownloadTimeout)
	assert.False(t, c.HasRemote())

	post, ok := c.Type("Post")
	require.True(t, ok)
	assert.Len(t, post.Versions, 2)
}

func TestLoadConfig_DefaultsWithoutArgs(t *testing.T) {
	c, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "vstore.db", c.DatabaseDSN)
	assert.Equal(t, ":8080", c.MetricsAddr)
}

func TestLoadConfig_IgnoresSubcommandArgs(t *testing.T) {
	c, err := LoadConfig([]string{"url", "--type", "Post", "--id", "42", "--version", "thumb"})
	require.NoError(t, err)
	assert.Equal(t, "vstore.db", c.DatabaseDSN)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"no tiers", func(c *Config) { c.StoragePath = "" }, common.ErrInvalidInput},
		{"negative timeout", func(c *Config) { c.DownloadTimeout = -time.Second }, common.ErrInvalidInput},
		{"unnamed type", func(c *Config) { c.Types = append(c.Types, TypeConfig{}) }, common.ErrInvalidInput},
		{"duplicate type", func(c *Config) { c.Types = append(c.Types, TypeConfig{Name: "Post"}) }, common.ErrInvalidInput},
		{"unknown storage", func(c *Config) { c.Types[0].Storage = "tape" }, common.ErrUnknownStorage},
		{"remote without bucket", func(c *Config) { c.Types[0].StoreRemotely = true }, common.ErrInvalidInput},
		{"bad version option", func(c *Config) {
			c.Types[0].Versions = append(c.Types[0].Versions, VersionConfig{Name: "x", Options: map[string]string{"rotate": "90"}})
		}, common.ErrBadOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Config
			c.LoadDefaults()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), tt.want)
		})
	}
}

func TestValidate_RemoteOnly(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.StoragePath = ""
	c.S3Bucket = "media"
	c.Types[0].Storage = "remote"
	assert.NoError(t, c.Validate())
}
