package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/imaging"
	"github.com/dmitrijs2005/vstore/internal/storage"
	"github.com/dmitrijs2005/vstore/internal/version"
)

// VersionStorage places one version of an attachment in storage. Its key
// and paths are projections of the attachment's current state.
type VersionStorage struct {
	attachment *Attachment
	version    version.Version
}

func (s *VersionStorage) Name() string {
	return s.version.Name()
}

func (s *VersionStorage) Options() version.Options {
	return s.version.Options()
}

// RemoteKey is the storage key of this version, shared by both tiers.
func (s *VersionStorage) RemoteKey() string {
	a := s.attachment
	return a.typ.keyFunc(a.owner.TypeName(), a.owner.ID(), a.field, s.version.Name(), a.basename)
}

// LocalPath is the filesystem path of the local copy, or "" when the type
// has no local backend.
func (s *VersionStorage) LocalPath() string {
	if s.attachment.typ.local == nil {
		return ""
	}
	return s.attachment.typ.local.Path(s.RemoteKey())
}

func (s *VersionStorage) IsLocallyPresent(ctx context.Context) (bool, error) {
	local := s.attachment.typ.local
	if local == nil {
		return false, nil
	}
	return local.Exists(ctx, s.RemoteKey())
}

// Process renders src into a temporary file positioned at its start. The
// caller must release it.
func (s *VersionStorage) Process(ctx context.Context, src Source) (*os.File, error) {
	a := s.attachment
	tmp, err := os.CreateTemp(a.settings.TempDir, "vstore-"+s.Name()+"-*"+path.Ext(a.basename))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		release(tmp)
		return nil, fmt.Errorf("rewind source: %w", err)
	}

	if a.settings.ProcessingEnabled && s.version.HasOptions() && a.typ.processor != nil {
		err = s.transform(ctx, src, tmp)
	} else {
		_, err = io.CopyBuffer(tmp, src, make([]byte, common.ChunkSize))
	}
	if err != nil {
		release(tmp)
		return nil, fmt.Errorf("process version %s: %w", s.Name(), err)
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		release(tmp)
		return nil, fmt.Errorf("rewind processed file: %w", err)
	}
	return tmp, nil
}

func (s *VersionStorage) transform(ctx context.Context, src io.Reader, dst io.Writer) error {
	img, err := imaging.Decode(src)
	if err != nil {
		return err
	}
	out, err := s.attachment.typ.processor.Process(ctx, img, s.version.Options())
	if err != nil {
		return err
	}
	return imaging.Encode(dst, out, s.attachment.basename, s.version.Options())
}

// Save writes f to the primary backend under RemoteKey.
func (s *VersionStorage) Save(ctx context.Context, f io.ReadSeeker) error {
	return s.attachment.typ.Primary().Save(ctx, s.RemoteKey(), f)
}

// store processes src and saves the result.
func (s *VersionStorage) store(ctx context.Context, src Source) error {
	f, err := s.Process(ctx, src)
	if err != nil {
		return err
	}
	defer release(f)
	return s.Save(ctx, f)
}

// TransferToRemote moves the local copy to the remote tier. A missing
// local copy means the version was already transferred.
func (s *VersionStorage) TransferToRemote(ctx context.Context) error {
	t := s.attachment.typ
	if t.local == nil || t.remote == nil {
		return fmt.Errorf("%w: type %s has no local and remote pair", common.ErrTransfer, t.name)
	}
	key := s.RemoteKey()

	f, err := os.Open(t.local.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", common.ErrTransfer, key, err)
	}
	err = t.remote.Save(ctx, key, f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("%w: upload %s: %w", common.ErrTransfer, key, err)
	}
	if err := t.local.Remove(ctx, key); err != nil {
		return fmt.Errorf("%w: remove local %s: %w", common.ErrTransfer, key, err)
	}
	return nil
}

func (s *VersionStorage) RemoveLocalCopy(ctx context.Context) error {
	if s.attachment.typ.local == nil {
		return nil
	}
	return s.attachment.typ.local.Remove(ctx, s.RemoteKey())
}

func (s *VersionStorage) RemoveRemoteCopy(ctx context.Context) error {
	if s.attachment.typ.remote == nil {
		return nil
	}
	return s.attachment.typ.remote.Remove(ctx, s.RemoteKey())
}

// Metadata describes the local copy. The remote tier is never contacted.
func (s *VersionStorage) Metadata(ctx context.Context) Meta {
	p := s.LocalPath()
	if p == "" {
		return Meta{}
	}
	fi, err := os.Stat(p)
	if err != nil || fi.IsDir() {
		return Meta{}
	}
	return Meta{Size: fi.Size()}
}

// Locate reports the tier that actually holds this version's copy. ok is
// false when neither the local nor the remote backend has it.
func (s *VersionStorage) Locate(ctx context.Context) (tier storage.Tier, ok bool, err error) {
	local, err := s.IsLocallyPresent(ctx)
	if err != nil || local {
		return storage.TierLocal, local, err
	}
	remote := s.attachment.typ.remote
	if remote == nil {
		return "", false, nil
	}
	ok, err = remote.Exists(ctx, s.RemoteKey())
	if err != nil {
		return "", false, fmt.Errorf("check remote copy: %w", err)
	}
	return storage.TierRemote, ok, nil
}

// Tier picks the tier this version is addressed in without contacting the
// remote backend: local when a local copy exists, else remote when the type
// has one, else the primary tier. Locate checks that a copy really exists.
func (s *VersionStorage) Tier(ctx context.Context) (storage.Tier, error) {
	local, err := s.IsLocallyPresent(ctx)
	if err != nil {
		return "", err
	}
	t := s.attachment.typ
	switch {
	case local:
		return storage.TierLocal, nil
	case t.remote != nil:
		return storage.TierRemote, nil
	default:
		return t.primary, nil
	}
}

// URL addresses this version in its current tier.
func (s *VersionStorage) URL(ctx context.Context, opts ...storage.URLOption) (string, error) {
	tier, err := s.Tier(ctx)
	if err != nil {
		return "", err
	}
	return s.attachment.typ.backend(tier).URL(s.RemoteKey(), opts...), nil
}

// Read opens the version's bytes in its current tier.
func (s *VersionStorage) Read(ctx context.Context) (io.ReadCloser, error) {
	tier, err := s.Tier(ctx)
	if err != nil {
		return nil, err
	}
	return s.attachment.typ.backend(tier).Read(ctx, s.RemoteKey())
}

// open returns the bytes of this version from whichever tier holds them.
// Remote bytes are staged into a temporary file that Release deletes.
func (s *VersionStorage) open(ctx context.Context) (*UploadedFile, error) {
	a := s.attachment
	local, err := s.IsLocallyPresent(ctx)
	if err != nil {
		return nil, err
	}
	if local {
		f, err := os.Open(s.LocalPath())
		if err != nil {
			return nil, fmt.Errorf("open local copy: %w", err)
		}
		return &UploadedFile{File: f, original: a.basename, tier: storage.TierLocal}, nil
	}
	if a.typ.remote == nil {
		return nil, fmt.Errorf("%w: version %s has no stored copy", common.ErrNotFound, s.Name())
	}

	rc, err := a.typ.remote.Read(ctx, s.RemoteKey())
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(a.settings.TempDir, "vstore-fetch-*"+path.Ext(a.basename))
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.CopyBuffer(tmp, rc, make([]byte, common.ChunkSize)); err != nil {
		release(tmp)
		return nil, fmt.Errorf("fetch remote copy: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		release(tmp)
		return nil, fmt.Errorf("rewind fetched copy: %w", err)
	}
	return &UploadedFile{File: tmp, original: a.basename, tier: storage.TierRemote, temp: true}, nil
}
