package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/storage"
	"github.com/dmitrijs2005/vstore/internal/version"
)

func versionNames(vs []version.Version) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Name()
	}
	return out
}

func TestNewType_PrependsOriginal(t *testing.T) {
	f := newFixture(t)
	typ := f.localType(t)
	assert.Equal(t, []string{"original", "thumb", "big"}, versionNames(typ.Versions()))
	assert.Equal(t, storage.TierLocal, typ.Primary().Tier())
}

func TestNewType_KeepsDeclaredOriginal(t *testing.T) {
	f := newFixture(t)
	typ, err := NewType("Post",
		WithVersion("thumb", nil),
		WithVersion("original", version.Options{version.OptResizeToLimit: "1000x1000"}),
		WithLocal(f.local),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"thumb", "original"}, versionNames(typ.Versions()))
}

func TestNewType_WithVersions(t *testing.T) {
	f := newFixture(t)
	thumb := version.MustNew("thumb", version.Options{version.OptResize: "50x50"})
	typ, err := NewType("Post", WithLocal(f.local), WithVersions(thumb))
	require.NoError(t, err)
	assert.Equal(t, []string{"original", "thumb"}, versionNames(typ.Versions()))
}

func TestNewType_Rejects(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		opts []TypeOption
		want error
	}{
		{"duplicate version", []TypeOption{WithLocal(f.local), WithVersion("a", nil), WithVersion("a", nil)}, common.ErrInvalidInput},
		{"bad option", []TypeOption{WithLocal(f.local), WithVersion("a", version.Options{"rotate": "90"})}, common.ErrBadOption},
		{"no backend", nil, common.ErrInvalidInput},
		{"remote primary missing", []TypeOption{WithLocal(f.local), UseStorage(storage.TierRemote)}, common.ErrInvalidInput},
		{"unknown tier", []TypeOption{WithLocal(f.local), UseStorage("tape")}, common.ErrUnknownStorage},
		{"store remotely without remote", []TypeOption{WithLocal(f.local), StoreRemotely()}, common.ErrInvalidInput},
		{"nil key func", []TypeOption{WithLocal(f.local), WithKeyFunc(nil)}, common.ErrInvalidInput},
		{"nil processor", []TypeOption{WithLocal(f.local), WithProcessor(nil)}, common.ErrInvalidInput},
		{"zero version", []TypeOption{WithLocal(f.local), WithVersions(version.MustNew("thumb", nil), version.Version{})}, common.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewType("Post", tt.opts...)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := NewType("", WithLocal(f.local))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestNewType_RemoteOnly(t *testing.T) {
	f := newFixture(t)
	typ, err := NewType("Post", WithRemote(f.remote))
	require.NoError(t, err)
	assert.Equal(t, storage.TierRemote, typ.Primary().Tier())
	assert.Nil(t, typ.Local())
}

func TestType_DefaultURL(t *testing.T) {
	f := newFixture(t)
	typ, err := NewType("BlogPost", WithLocal(f.local))
	require.NoError(t, err)
	assert.Equal(t, "/default/blog_post/thumb.png", typ.DefaultURL("thumb"))
}

func TestType_Structured(t *testing.T) {
	f := newFixture(t)
	assert.False(t, f.localType(t).Structured())
	assert.True(t, f.localType(t, StructuredValue()).Structured())
	assert.True(t, f.localType(t, EnableMeta()).Structured())
}
