// Package storage provides the byte-level persistence tiers used by the
// attachment engine: a local filesystem backend and a remote S3 backend,
// both addressed by slash-separated keys.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/vstore/internal/common"
)

// Tier names a storage tier.
type Tier string

const (
	TierLocal  Tier = "local"
	TierRemote Tier = "remote"
)

// ParseTier resolves a configuration alias ("local", "remote") to a Tier.
func ParseTier(alias string) (Tier, error) {
	switch Tier(strings.ToLower(strings.TrimSpace(alias))) {
	case TierLocal:
		return TierLocal, nil
	case TierRemote:
		return TierRemote, nil
	default:
		return "", fmt.Errorf("%w: %q", common.ErrUnknownStorage, alias)
	}
}

// Backend is one storage tier.
type Backend interface {
	// Save writes src under key, replacing any existing object.
	// Failures match common.ErrWrite.
	Save(ctx context.Context, key string, src io.ReadSeeker) error

	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error

	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)

	// URL returns the public address of key. It performs no I/O.
	URL(key string, opts ...URLOption) string

	// Read opens key for reading. A missing key matches common.ErrNotFound.
	// The caller closes the returned reader.
	Read(ctx context.Context, key string) (io.ReadCloser, error)

	// Tier reports which tier the backend represents.
	Tier() Tier
}

// Local is a Backend whose objects live on the local filesystem.
type Local interface {
	Backend

	// Path returns the absolute filesystem path of key.
	Path(key string) string
}

type urlOptions struct {
	withProtocol bool
}

// URLOption tunes URL generation.
type URLOption func(*urlOptions)

// WithProtocol asks for an absolute URL including the scheme instead of a
// protocol-relative one.
func WithProtocol() URLOption {
	return func(o *urlOptions) { o.withProtocol = true }
}

func buildURLOptions(opts []URLOption) urlOptions {
	var o urlOptions
	for _, fn := range opts {
		fn(&o)
	}
	return o
}
