package covers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStore_Save(t *testing.T) {
	store := setupStore(t)

	name, err := store.Save(strings.NewReader("fake image bytes"), "photo.JPG")

	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.NotContains(t, name, string(filepath.Separator))

	path, err := store.Path(name)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestStore_Save_DistinctNames(t *testing.T) {
	store := setupStore(t)

	first, err := store.Save(strings.NewReader("a"), "cover.png")
	require.NoError(t, err)
	second, err := store.Save(strings.NewReader("b"), "cover.png")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStore_Save_RejectsUnknownExtension(t *testing.T) {
	store := setupStore(t)

	_, err := store.Save(strings.NewReader("evil"), "script.sh")

	assert.Error(t, err)
}

func TestStore_Path_RejectsTraversal(t *testing.T) {
	store := setupStore(t)

	for _, name := range []string{"", "../../etc/passwd", "a/b.jpg", ".hidden"} {
		_, err := store.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestStore_Remove(t *testing.T) {
	store := setupStore(t)

	name, err := store.Save(strings.NewReader("bytes"), "cover.png")
	require.NoError(t, err)

	require.NoError(t, store.Remove(name))

	path, err := store.Path(name)
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Removing an absent cover is a no-op
	assert.NoError(t, store.Remove(name))
}
