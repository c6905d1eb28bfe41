package attachment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/vstore/internal/common"
	"github.com/dmitrijs2005/vstore/internal/storage"
)

func TestParseValue(t *testing.T) {
	v, err := ParseValue("")
	require.NoError(t, err)
	assert.False(t, v.Present())

	v, err = ParseValue("photo.jpg")
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", v.Filename)
	assert.Empty(t, v.Versions)

	v, err = ParseValue(`{"filename":"photo.jpg","versions":{"thumb":{"key":"uploads/post/1/cover/thumb/photo.jpg","storage":"remote","meta":{"size":42}}}}`)
	require.NoError(t, err)
	assert.Equal(t, "photo.jpg", v.Filename)
	require.Contains(t, v.Versions, "thumb")
	assert.Equal(t, storage.TierRemote, v.Versions["thumb"].Storage)
	assert.Equal(t, int64(42), v.Versions["thumb"].Meta.Size)

	_, err = ParseValue(`{"filename":`)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestValue_JSONRoundTrip(t *testing.T) {
	in := Value{
		Filename: "a.png",
		Versions: map[string]VersionValue{
			"original": {Key: "k", Storage: storage.TierLocal, Meta: &Meta{Size: 7}},
		},
	}
	raw, err := in.JSON()
	require.NoError(t, err)

	out, err := ParseValue(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	raw, err = Value{}.JSON()
	require.NoError(t, err)
	assert.Empty(t, raw)
}
