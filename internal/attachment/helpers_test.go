package attachment

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/vstore/internal/storage"
	"github.com/dmitrijs2005/vstore/internal/storage/storagetest"
	"github.com/dmitrijs2005/vstore/internal/version"
)

type memOwner struct {
	typeName  string
	id        string
	persisted bool
	fields    map[string]string
	updates   int
}

func newOwner(id string) *memOwner {
	return &memOwner{typeName: "Post", id: id, persisted: true, fields: map[string]string{}}
}

func (o *memOwner) TypeName() string  { return o.typeName }
func (o *memOwner) ID() string        { return o.id }
func (o *memOwner) IsPersisted() bool { return o.persisted }

func (o *memOwner) Read(_ context.Context, field string) (string, error) {
	return o.fields[field], nil
}

func (o *memOwner) Update(_ context.Context, field, value string) error {
	o.updates++
	o.fields[field] = value
	return nil
}

type fixture struct {
	local  *storage.LocalBackend
	s3     *storagetest.FakeS3
	remote *storage.RemoteBackend
	owner  *memOwner
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fake := storagetest.NewFakeS3("media")
	return &fixture{
		local:  storage.NewLocalBackend(t.TempDir()),
		s3:     fake,
		remote: storage.NewRemoteBackendWithClient(fake, storage.RemoteConfig{Bucket: "media", Region: "us-east-1"}),
		owner:  newOwner("1"),
	}
}

func (f *fixture) localType(t *testing.T, opts ...TypeOption) *Type {
	t.Helper()
	base := []TypeOption{
		WithVersion("thumb", version.Options{version.OptResizeToFill: "20x20"}),
		WithVersion("big", version.Options{version.OptResize: "60x60"}),
		WithLocal(f.local),
	}
	typ, err := NewType("Post", append(base, opts...)...)
	require.NoError(t, err)
	return typ
}

func (f *fixture) remoteType(t *testing.T, opts ...TypeOption) *Type {
	t.Helper()
	return f.localType(t, append([]TypeOption{WithRemote(f.remote), StoreRemotely()}, opts...)...)
}

func attach(t *testing.T, s Settings, typ *Type, owner Owner) *Attachment {
	t.Helper()
	a, err := NewManager(s).Attach(context.Background(), typ, owner, "cover")
	require.NoError(t, err)
	return a
}

// pngFile writes a w x h PNG into a temp dir and opens it.
func pngFile(t *testing.T, name string, w, h int) *os.File {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o644))
	f, err := os.Open(p)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func fileBytes(t *testing.T, p string) []byte {
	t.Helper()
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	return b
}

func pngSize(t *testing.T, data []byte) image.Point {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return image.Pt(cfg.Width, cfg.Height)
}
