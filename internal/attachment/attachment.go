package attachment

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"path"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/logging"
	"github.com/dmitrijs2005/vstore/internal/sanitize"
	"github.com/dmitrijs2005/vstore/internal/storage"
)

// State is the lifecycle position of an attachment.
type State string

const (
	StateEmpty  State = "empty"
	StateLocal  State = "local"
	StateRemote State = "remote"

	// StateMissing is a present value whose original has no stored copy.
	StateMissing State = "missing"
)

// Attachment is one file field of one owner record.
type Attachment struct {
	typ      *Type
	owner    Owner
	field    string
	basename string
	versions *VersionsResolver
	settings Settings
	logger   logging.Logger
}

func (a *Attachment) Type() *Type {
	return a.typ
}

func (a *Attachment) Field() string {
	return a.field
}

// Basename is the sanitized file name, or "" when blank.
func (a *Attachment) Basename() string {
	return a.basename
}

func (a *Attachment) Present() bool {
	return a.basename != ""
}

func (a *Attachment) Blank() bool {
	return !a.Present()
}

func (a *Attachment) Versions() *VersionsResolver {
	return a.versions
}

// Version is shorthand for Versions().Lookup(name).
func (a *Attachment) Version(name string) (*VersionStorage, error) {
	return a.versions.Lookup(name)
}

// State reports where the attachment's files live, judged by the
// original version.
func (a *Attachment) State(ctx context.Context) (State, error) {
	if a.Blank() {
		return StateEmpty, nil
	}
	orig, err := a.versions.Lookup(common.DefaultVersionName)
	if err != nil {
		return "", err
	}
	tier, ok, err := orig.Locate(ctx)
	switch {
	case err != nil:
		return "", err
	case !ok:
		return StateMissing, nil
	case tier == storage.TierLocal:
		return StateLocal, nil
	default:
		return StateRemote, nil
	}
}

// Store writes every version of src and records it on the owner. name
// overrides the file name taken from src.
func (a *Attachment) Store(ctx context.Context, src Source, name string) error {
	if src == nil || src.Name() == "" {
		return fmt.Errorf("%w: store requires a named source", common.ErrInvalidInput)
	}
	original := name
	if original == "" {
		if of, ok := src.(OriginalFilenamer); ok {
			original = of.OriginalFilename()
		}
	}
	if original == "" {
		original = src.Name()
	}
	a.basename = sanitize.Basename(original)
	a.logger.Info(ctx, "storing attachment", "basename", a.basename, "versions", a.versions.Len())

	for _, s := range a.versions.All() {
		if err := s.store(ctx, src); err != nil {
			return fmt.Errorf("store version %s: %w", s.Name(), err)
		}
	}

	if a.typ.storeRemotely && a.settings.TransferEnabled {
		if err := a.transfer(ctx, a.versions.All()); err != nil {
			return err
		}
	}
	return a.persist(ctx)
}

// Download replaces the attachment with the file at rawURL.
func (a *Attachment) Download(ctx context.Context, rawURL string) error {
	if a.settings.Downloader == nil {
		return fmt.Errorf("%w: no downloader configured", common.ErrInvalidInput)
	}
	if a.Present() {
		if err := a.Remove(ctx); err != nil {
			return err
		}
	}

	staged, err := os.CreateTemp(a.settings.TempDir, stagingPattern(rawURL))
	if err != nil {
		return fmt.Errorf("create staging file: %w", err)
	}
	stagedPath := staged.Name()
	defer os.Remove(stagedPath)

	a.logger.Info(ctx, "downloading attachment", "url", rawURL)
	if err := a.settings.Downloader.Download(ctx, rawURL, staged); err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}

	f, err := os.Open(stagedPath)
	if err != nil {
		return fmt.Errorf("open staging file: %w", err)
	}
	defer f.Close()
	return a.Store(ctx, f, rawURL)
}

// Remove deletes every copy of every version and clears the owner field.
func (a *Attachment) Remove(ctx context.Context) error {
	if a.Present() {
		a.logger.Info(ctx, "removing attachment", "basename", a.basename)
		for _, s := range a.versions.All() {
			if err := s.RemoveLocalCopy(ctx); err != nil {
				return fmt.Errorf("remove local %s: %w", s.Name(), err)
			}
			if err := s.RemoveRemoteCopy(ctx); err != nil {
				return fmt.Errorf("remove remote %s: %w", s.Name(), err)
			}
		}
	}
	a.basename = ""
	return a.persist(ctx)
}

// Reprocess regenerates every transformed version from the original.
func (a *Attachment) Reprocess(ctx context.Context) error {
	if a.Blank() {
		return nil
	}
	orig, err := a.versions.Lookup(common.DefaultVersionName)
	if err != nil {
		return err
	}
	src, err := orig.open(ctx)
	if err != nil {
		return fmt.Errorf("open original: %w", err)
	}
	defer func() {
		if err := src.Release(); err != nil {
			a.logger.Warn(ctx, "release original copy", "error", err)
		}
	}()

	var redone []*VersionStorage
	for _, s := range a.versions.All() {
		if s.Name() == common.DefaultVersionName {
			continue
		}
		if !s.version.HasOptions() {
			a.logger.Debug(ctx, "skipping version without options", "version", s.Name())
			continue
		}
		if err := s.store(ctx, src); err != nil {
			return fmt.Errorf("reprocess version %s: %w", s.Name(), err)
		}
		redone = append(redone, s)
	}
	a.logger.Info(ctx, "reprocessed attachment", "basename", a.basename, "versions", len(redone))

	if src.Tier() == storage.TierRemote && a.typ.local != nil && a.typ.primary == storage.TierLocal {
		if err := a.transfer(ctx, redone); err != nil {
			return err
		}
	}
	return a.persist(ctx)
}

// URL addresses the named version, "original" by default. Blank
// attachments resolve to the type's placeholder.
func (a *Attachment) URL(ctx context.Context, versionName ...string) (string, error) {
	name := common.DefaultVersionName
	if len(versionName) > 0 && versionName[0] != "" {
		name = versionName[0]
	}
	return a.VersionURL(ctx, name)
}

// VersionURL is URL for one version, passing opts to the backend.
func (a *Attachment) VersionURL(ctx context.Context, name string, opts ...storage.URLOption) (string, error) {
	s, err := a.versions.Lookup(name)
	if err != nil {
		return "", err
	}
	if a.Blank() {
		return a.typ.DefaultURL(name), nil
	}
	return s.URL(ctx, opts...)
}

// Value builds the persisted description of the attachment.
func (a *Attachment) Value(ctx context.Context) (Value, error) {
	if a.Blank() {
		return Value{}, nil
	}
	v := Value{Filename: a.basename, Versions: make(map[string]VersionValue, a.versions.Len())}
	for _, s := range a.versions.All() {
		tier, err := s.Tier(ctx)
		if err != nil {
			return Value{}, err
		}
		vv := VersionValue{Key: s.RemoteKey(), Storage: tier}
		if a.typ.metaEnabled {
			m := s.Metadata(ctx)
			vv.Meta = &m
		}
		v.Versions[s.Name()] = vv
	}
	return v, nil
}

func (a *Attachment) transfer(ctx context.Context, list []*VersionStorage) error {
	for _, s := range list {
		if err := s.TransferToRemote(ctx); err != nil {
			return fmt.Errorf("transfer version %s: %w", s.Name(), err)
		}
	}
	a.logger.Info(ctx, "transferred attachment to remote storage", "basename", a.basename)
	return nil
}

func (a *Attachment) persist(ctx context.Context) error {
	raw := a.basename
	if a.Present() && a.typ.Structured() {
		v, err := a.Value(ctx)
		if err != nil {
			return err
		}
		if raw, err = v.JSON(); err != nil {
			return err
		}
	}
	if err := a.owner.Update(ctx, a.field, raw); err != nil {
		return fmt.Errorf("update %s.%s: %w", a.owner.TypeName(), a.field, err)
	}
	return nil
}

// stagingPattern names download staging files after the md5 of the URL.
func stagingPattern(rawURL string) string {
	digest := md5.Sum([]byte(rawURL))
	return hex.EncodeToString(digest[:]) + "-*" + path.Ext(sanitize.Basename(rawURL))
}
