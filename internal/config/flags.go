package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/vstore/internal/flagx"
)

// Usage lists the configuration flags, for help output.
const Usage = `Configuration flags (applied over defaults and the -c/--config JSON file):
  -s, --storage string          local storage root
  -d, --dsn string              owner-record database (postgres URL or SQLite path)
  -u, --s3-access-key string    S3 access key
  -p, --s3-secret-key string    S3 secret key
  -b, --s3-bucket string        S3 bucket; enables the remote tier
  -g, --s3-region string        S3 region
  -e, --s3-endpoint string      S3 base endpoint, e.g. http://127.0.0.1:9000
      --s3-public-url string    public base URL of remote objects
      --processing[=bool]       run image processing (default true)
      --transfer[=bool]         move remotely stored types to S3
      --download-timeout dur    download deadline, e.g. 30s; 0 disables it
  -m, --addr string             serve listen address
  -l, --log-level string        debug, info, warn or error
      --tmp-dir string          staging directory`

// parseFlags overlays the configuration flags found in args.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	stringVar(fs, &config.StoragePath, "storage", "s", "local storage root")
	stringVar(fs, &config.DatabaseDSN, "dsn", "d", "database DSN")
	stringVar(fs, &config.S3AccessKey, "s3-access-key", "u", "S3 access key")
	stringVar(fs, &config.S3SecretKey, "s3-secret-key", "p", "S3 secret key")
	stringVar(fs, &config.S3Bucket, "s3-bucket", "b", "S3 bucket")
	stringVar(fs, &config.S3Region, "s3-region", "g", "S3 region")
	stringVar(fs, &config.S3BaseEndpoint, "s3-endpoint", "e", "S3 base endpoint")
	stringVar(fs, &config.S3PublicURL, "s3-public-url", "", "public base URL of remote objects")
	fs.BoolVar(&config.ProcessingEnabled, "processing", config.ProcessingEnabled, "run image processing")
	fs.BoolVar(&config.TransferEnabled, "transfer", config.TransferEnabled, "move remotely stored types to S3")
	fs.DurationVar(&config.DownloadTimeout, "download-timeout", config.DownloadTimeout, "download deadline")
	stringVar(fs, &config.MetricsAddr, "addr", "m", "serve listen address")
	stringVar(fs, &config.LogLevel, "log-level", "l", "log level")
	stringVar(fs, &config.TempDir, "tmp-dir", "", "staging directory")

	if err := flagx.ParseFiltered(fs, args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

func stringVar(fs *flag.FlagSet, p *string, name, short, usage string) {
	fs.StringVar(p, name, *p, usage)
	if short != "" {
		fs.StringVar(p, short, *p, usage+" (short)")
	}
}
