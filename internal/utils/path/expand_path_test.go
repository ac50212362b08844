package path

import (
	"os"
	"path/filepath"
	"testing"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	require.NoError(t, err)

	got, err := ExpandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandPath("~/projects")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "projects"), got)

	got, err = ExpandPath("projects")
	require.NoError(t, err)
	assert.Equal(t, "projects", got)

	got, err = ExpandPath("/")
	require.NoError(t, err)
	assert.Equal(t, "/", got)

	_, err = ExpandPath("")
	assert.Error(t, err)

	_, err = ExpandPath("~bob/x")
	assert.Error(t, err)
}

func TestCanonicalize(t *testing.T) {
	dir := t.TempDir()
	real := filepath.Join(dir, "real")
	require.NoError(t, os.Mkdir(real, 0o755))
	link := filepath.Join(dir, "link")
	require.NoError(t, os.Symlink(real, link))

	want, err := filepath.EvalSymlinks(real)
	require.NoError(t, err)

	got, err := Canonicalize(link)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Canonicalize(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
