package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/vstore/internal/flagx"
	"github.com/dmitrijs2005/vstore/internal/timex"
)

// JsonConfig is the on-disk form of Config. Pointer and zero-able fields
// left out of the file keep their current values.
type JsonConfig struct {
	StoragePath       string          `json:"storage_path"`
	DatabaseDSN       string          `json:"database_dsn"`
	S3AccessKey       string          `json:"s3_access_key"`
	S3SecretKey       string          `json:"s3_secret_key"`
	S3Bucket          string          `json:"s3_bucket"`
	S3Region          string          `json:"s3_region"`
	S3BaseEndpoint    string          `json:"s3_base_endpoint"`
	S3PublicURL       string          `json:"s3_public_url"`
	ProcessingEnabled *bool           `json:"processing_enabled"`
	TransferEnabled   *bool           `json:"transfer_enabled"`
	DownloadTimeout   *timex.Duration `json:"download_timeout"`
	MetricsAddr       string          `json:"metrics_addr"`
	LogLevel          string          `json:"log_level"`
	TempDir           string          `json:"temp_dir"`
	Types             []TypeConfig    `json:"types"`
}

// parseJson overlays the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.JsonConfigFlags(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&config.StoragePath, c.StoragePath)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3PublicURL, c.S3PublicURL)
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.TempDir, c.TempDir)
	if c.ProcessingEnabled != nil {
		config.ProcessingEnabled = *c.ProcessingEnabled
	}
	if c.TransferEnabled != nil {
		config.TransferEnabled = *c.TransferEnabled
	}
	if c.DownloadTimeout != nil {
		config.DownloadTimeout = c.DownloadTimeout.Duration
	}
	if c.Types != nil {
		config.Types = c.Types
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
