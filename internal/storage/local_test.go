package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_SaveOpenDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir(), "/media/")
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, "media/a.jpg", []byte("jpeg"), "image/jpeg"))

	data, err := store.Open(ctx, "media/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), data)
	assert.Equal(t, "/media/media/a.jpg", store.URL("media/a.jpg"))

	require.NoError(t, store.Delete(ctx, "media/a.jpg"))
	_, err = store.Open(ctx, "media/a.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	// already gone
	assert.NoError(t, store.Delete(ctx, "media/a.jpg"))
}

func TestLocalStore_KeysStayUnderRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewLocalStore(root, "/media")
	require.NoError(t, err)

	p, err := store.path("../../etc/passwd")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, root))

	_, err = store.Open(ctx, "")
	assert.Error(t, err)
}

func TestEditedKey(t *testing.T) {
	key, err := EditedKey("media/holiday.jpg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "edited/holiday_edited_"))
	assert.True(t, strings.HasSuffix(key, ".png"))

	other, err := EditedKey("media/holiday.jpg")
	require.NoError(t, err)
	assert.NotEqual(t, key, other)
}

func TestNewKey(t *testing.T) {
	key, err := NewKey("media", "jpg")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "media/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))
}
