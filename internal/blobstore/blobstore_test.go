package blobstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/perito-digital/platform/internal/shared/config"
	apperrors "github.com/perito-digital/platform/internal/shared/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key, err := store.Put(ctx, "evidencias/caso-1/foto.jpg", strings.NewReader("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "evidencias/caso-1/foto.jpg", key)

	rc, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "jpeg bytes", string(data))

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside.txt", "/etc/passwd", "a/../../b"} {
		_, err := store.Put(ctx, key, strings.NewReader("x"), "text/plain")
		assert.Error(t, err, "key %q should be rejected", key)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.BlobConfig{Driver: "ftp"})
	require.Error(t, err)
}

func TestOpenDefaultsToLocal(t *testing.T) {
	store, err := Open(context.Background(), config.BlobConfig{Driver: "", LocalDir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalStore{}, store)
}
