package attachment

import (
	"fmt"
	"path"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/imaging"
	"github.com/dmitrijs2005/vstore/internal/keys"
	"github.com/dmitrijs2005/vstore/internal/storage"
	"github.com/dmitrijs2005/vstore/internal/version"
)

// Type is the declaration shared by every attachment of one kind: its
// versions, key layout and storage tiers. It is immutable once built.
type Type struct {
	name          string
	versions      []version.Version
	keyFunc       keys.Func
	local         storage.Local
	remote        storage.Backend
	primary       storage.Tier
	storeRemotely bool
	metaEnabled   bool
	structured    bool
	processor     imaging.Processor
}

// TypeOption configures a Type under construction.
type TypeOption func(*Type) error

// WithVersion declares a named version. Options are validated here.
func WithVersion(name string, opts version.Options) TypeOption {
	return func(t *Type) error {
		v, err := version.New(name, opts)
		if err != nil {
			return err
		}
		t.versions = append(t.versions, v)
		return nil
	}
}

// WithVersions declares already constructed versions.
func WithVersions(vs ...version.Version) TypeOption {
	return func(t *Type) error {
		for _, v := range vs {
			if v.Name() == "" {
				return fmt.Errorf("%w: version without a name", common.ErrInvalidInput)
			}
			if err := v.Options().Validate(); err != nil {
				return fmt.Errorf("version %s: %w", v.Name(), err)
			}
		}
		t.versions = append(t.versions, vs...)
		return nil
	}
}

// WithKeyFunc overrides the default key layout.
func WithKeyFunc(f keys.Func) TypeOption {
	return func(t *Type) error {
		if f == nil {
			return fmt.Errorf("%w: nil key function", common.ErrInvalidInput)
		}
		t.keyFunc = f
		return nil
	}
}

func WithLocal(l storage.Local) TypeOption {
	return func(t *Type) error {
		t.local = l
		return nil
	}
}

func WithRemote(r storage.Backend) TypeOption {
	return func(t *Type) error {
		t.remote = r
		return nil
	}
}

// UseStorage selects the primary tier new files are saved to. Defaults to
// local when a local backend is configured, remote otherwise.
func UseStorage(tier storage.Tier) TypeOption {
	return func(t *Type) error {
		if _, err := storage.ParseTier(string(tier)); err != nil {
			return err
		}
		t.primary = tier
		return nil
	}
}

// StoreRemotely moves every version to the remote tier after it is stored
// locally, when the manager has transfers enabled.
func StoreRemotely() TypeOption {
	return func(t *Type) error {
		t.storeRemotely = true
		return nil
	}
}

// EnableMeta records per-version metadata in the persisted value.
func EnableMeta() TypeOption {
	return func(t *Type) error {
		t.metaEnabled = true
		return nil
	}
}

// StructuredValue persists the JSON form even without metadata.
func StructuredValue() TypeOption {
	return func(t *Type) error {
		t.structured = true
		return nil
	}
}

func WithProcessor(p imaging.Processor) TypeOption {
	return func(t *Type) error {
		if p == nil {
			return fmt.Errorf("%w: nil processor", common.ErrInvalidInput)
		}
		t.processor = p
		return nil
	}
}

// NewType builds a Type named after the owner record type it attaches to.
// An option-less "original" version is prepended unless one is declared.
func NewType(name string, opts ...TypeOption) (*Type, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty attachment type name", common.ErrInvalidInput)
	}
	t := &Type{name: name, keyFunc: keys.Default, processor: imaging.ResizeProcessor{}}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, fmt.Errorf("attachment type %s: %w", name, err)
		}
	}

	seen := make(map[string]struct{}, len(t.versions))
	hasOriginal := false
	for _, v := range t.versions {
		if _, dup := seen[v.Name()]; dup {
			return nil, fmt.Errorf("%w: attachment type %s declares version %q twice", common.ErrInvalidInput, name, v.Name())
		}
		seen[v.Name()] = struct{}{}
		if v.Name() == common.DefaultVersionName {
			hasOriginal = true
		}
	}
	if !hasOriginal {
		t.versions = append([]version.Version{version.MustNew(common.DefaultVersionName, nil)}, t.versions...)
	}

	if t.primary == "" {
		t.primary = storage.TierLocal
		if t.local == nil {
			t.primary = storage.TierRemote
		}
	}
	if t.backend(t.primary) == nil {
		return nil, fmt.Errorf("%w: attachment type %s has no %s backend", common.ErrInvalidInput, name, t.primary)
	}
	if t.storeRemotely && (t.local == nil || t.remote == nil || t.primary != storage.TierLocal) {
		return nil, fmt.Errorf("%w: attachment type %s stores remotely but lacks a local primary and remote backend", common.ErrInvalidInput, name)
	}
	return t, nil
}

func (t *Type) Name() string {
	return t.name
}

// Versions returns the declared versions in declaration order.
func (t *Type) Versions() []version.Version {
	out := make([]version.Version, len(t.versions))
	copy(out, t.versions)
	return out
}

// Primary returns the backend new files are saved to.
func (t *Type) Primary() storage.Backend {
	return t.backend(t.primary)
}

func (t *Type) Local() storage.Local {
	return t.local
}

func (t *Type) Remote() storage.Backend {
	return t.remote
}

func (t *Type) StoresRemotely() bool {
	return t.storeRemotely
}

func (t *Type) MetaEnabled() bool {
	return t.metaEnabled
}

// Structured reports whether the persisted value uses the JSON form.
func (t *Type) Structured() bool {
	return t.structured || t.metaEnabled
}

// DefaultURL is the placeholder served for blank attachments.
func (t *Type) DefaultURL(versionName string) string {
	return path.Join("/default", keys.Snake(t.name), versionName+".png")
}

func (t *Type) backend(tier storage.Tier) storage.Backend {
	switch tier {
	case storage.TierLocal:
		if t.local == nil {
			return nil
		}
		return t.local
	case storage.TierRemote:
		return t.remote
	}
	return nil
}
