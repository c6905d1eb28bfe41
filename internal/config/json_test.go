package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_Overlay(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"storage_path":       "/srv/public",
		"database_dsn":       "postgres://u:p@db:5432/vstore",
		"s3_access_key":      "admin",
		"s3_secret_key":      "secretpassword",
		"s3_bucket":          "media",
		"s3_base_endpoint":   "http://127.0.0.1:9000",
		"processing_enabled": false,
		"transfer_enabled":   true,
		"download_timeout":   "5s",
		"types": []map[string]any{{
			"name":           "Avatar",
			"store_remotely": true,
			"meta":           true,
			"versions": []map[string]any{
				{"name": "small", "options": map[string]string{"resize_to_fill": "32x32", "gravity": "north"}},
			},
		}},
	})

	var cfg Config
	cfg.LoadDefaults()
	require.NoError(t, parseJson(&cfg, []string{"-c", path}))

	assert.Equal(t, "/srv/public", cfg.StoragePath)
	assert.Equal(t, "postgres://u:p@db:5432/vstore", cfg.DatabaseDSN)
	assert.Equal(t, "admin", cfg.S3AccessKey)
	assert.Equal(t, "secretpassword", cfg.S3SecretKey)
	assert.Equal(t, "media", cfg.S3Bucket)
	assert.Equal(t, "us-east-1", cfg.S3Region, "absent keys keep defaults")
	assert.False(t, cfg.ProcessingEnabled)
	assert.True(t, cfg.TransferEnabled)
	assert.Equal(t, 5*time.Second, cfg.DownloadTimeout)
	require.Len(t, cfg.Types, 1)
	assert.Equal(t, "Avatar", cfg.Types[0].Name)
	assert.True(t, cfg.Types[0].StoreRemotely)
	assert.Equal(t, "north", cfg.Types[0].Versions[0].Options["gravity"])
}

func Test_parseJson_NoFileNoChanges(t *testing.T) {
	var cfg, want Config
	cfg.LoadDefaults()
	want.LoadDefaults()
	require.NoError(t, parseJson(&cfg, []string{"store", "--type", "Post"}))
	assert.Equal(t, want, cfg)
}

func Test_parseJson_Errors(t *testing.T) {
	var cfg Config
	assert.Error(t, parseJson(&cfg, []string{"-c", filepath.Join(t.TempDir(), "missing.json")}))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	assert.Error(t, parseJson(&cfg, []string{"--config", bad}))
}

func TestLoadConfig_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"database_dsn": "from-json.db",
		"s3_bucket":    "json-bucket",
	})

	cfg, err := LoadConfig([]string{"store", "-c", path, "-d", "from-flag.db", "--transfer=true"})
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", cfg.DatabaseDSN)
	assert.Equal(t, "json-bucket", cfg.S3Bucket)
	assert.True(t, cfg.TransferEnabled)
}
