package attachment

import (
	"errors"
	"io"
	"os"

	"github.com/dmitrijs2005/vstore/internal/storage"
)

// Source is what Store accepts: re-readable bytes with a path-like name.
// *os.File satisfies it.
type Source interface {
	io.ReadSeeker
	Name() string
}

// OriginalFilenamer is implemented by sources that know the file name the
// client uploaded, which takes priority over the staging path.
type OriginalFilenamer interface {
	OriginalFilename() string
}

// UploadedFile is an open file plus the name its uploader gave it and the
// tier it was fetched from.
type UploadedFile struct {
	*os.File
	original string
	tier     storage.Tier
	temp     bool
}

// NewUploadedFile wraps f, remembering the client-side file name.
func NewUploadedFile(f *os.File, originalName string) *UploadedFile {
	return &UploadedFile{File: f, original: originalName, tier: storage.TierLocal}
}

func (u *UploadedFile) OriginalFilename() string {
	return u.original
}

// Tier reports where the bytes came from.
func (u *UploadedFile) Tier() storage.Tier {
	return u.tier
}

// Release closes the file and deletes it when it is a temporary copy.
func (u *UploadedFile) Release() error {
	err := u.Close()
	if u.temp {
		if rerr := os.Remove(u.Name()); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			return rerr
		}
	}
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// release closes and deletes a temporary artifact.
func release(f *os.File) {
	if f == nil {
		return
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
}
