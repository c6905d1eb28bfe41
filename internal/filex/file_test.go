package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDir(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		prepare func(t *testing.T) string
		wantErr bool
	}{
		{
			name:    "creates nested storage root",
			prepare: func(t *testing.T) string { return filepath.Join(root, "public", "uploads") },
		},
		{
			name: "existing directory is reused",
			prepare: func(t *testing.T) string {
				dir := filepath.Join(root, "tmp")
				require.NoError(t, os.Mkdir(dir, 0o755))
				return dir
			},
		},
		{
			name: "regular file in the way",
			prepare: func(t *testing.T) string {
				p := filepath.Join(root, "taken")
				require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
				return p
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := tt.prepare(t)
			got, err := EnsureDir(dir)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, filepath.IsAbs(got))

			fi, err := os.Stat(got)
			require.NoError(t, err)
			assert.True(t, fi.IsDir())
		})
	}
}

func TestEnsureDir_RelativeToWorkingDir(t *testing.T) {
	tmp, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	got, err := EnsureDir("public")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "public"), got)
}
