package filestore_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/fiiportal/internal/app/system/filestore"
	"github.com/dalemusser/waffle/pantry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanFilename(t *testing.T) {
	tests := map[string]string{
		"relatorio mensal.pdf":  "relatorio_mensal.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\x\HGLG11.pdf`: "HGLG11.pdf",
		"çãé.pdf":               "pdf",
		".hidden":               "hidden",
		"":                      "",
	}
	for in, want := range tests {
		if got := filestore.CleanFilename(in); got != want {
			t.Errorf("CleanFilename(%q): got %q, want %q", in, got, want)
		}
	}
}

func TestNewKey(t *testing.T) {
	now := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	key := filestore.NewKey("/reports/", "Relatório Final.pdf", now)

	assert.True(t, strings.HasPrefix(key, "reports/2025/03/"), "key %q", key)
	assert.True(t, strings.HasSuffix(key, "-Relatrio_Final.pdf"), "key %q", key)
	assert.NotEqual(t, key, filestore.NewKey("reports", "Relatório Final.pdf", now))
}

func TestNew_Local(t *testing.T) {
	ctx := context.Background()
	store, err := filestore.New(ctx, filestore.Config{Type: "local", LocalPath: t.TempDir()})
	require.NoError(t, err)
	local, ok := store.(*storage.Local)
	require.True(t, ok, "expected *storage.Local, got %T", store)

	key := filestore.NewKey("reports", "x.pdf", time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, store.Put(ctx, key, strings.NewReader("%PDF-1.4"), &storage.PutOptions{ContentType: "application/pdf"}))

	full, err := local.GetFullPath(key)
	require.NoError(t, err)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	// local files are streamed, never linked
	_, err = store.PresignedURL(ctx, key, &storage.PresignOptions{})
	assert.ErrorIs(t, err, storage.ErrPresignNotSupported)

	require.NoError(t, store.Delete(ctx, key))
	assert.ErrorIs(t, store.Delete(ctx, key), storage.ErrNotFound)
	ok, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = local.GetFullPath("../../etc/passwd")
	assert.ErrorIs(t, err, storage.ErrInvalidPath)
}

func TestNew_Rejects(t *testing.T) {
	ctx := context.Background()

	_, err := filestore.New(ctx, filestore.Config{Type: "local"})
	assert.Error(t, err)

	_, err = filestore.New(ctx, filestore.Config{Type: "ftp"})
	assert.ErrorContains(t, err, "unknown storage type")

	s3, err := filestore.New(ctx, filestore.Config{Type: "s3"})
	assert.ErrorIs(t, err, storage.ErrInvalidConfig)
	assert.Nil(t, s3)
}

func TestEndpointURL(t *testing.T) {
	tests := map[string]string{
		"":                       "",
		"localhost:9000":         "https://localhost:9000",
		"http://minio:9000/":     "http://minio:9000",
		"https://r2.example.com": "https://r2.example.com",
	}
	for in, want := range tests {
		assert.Equal(t, want, filestore.EndpointURL(in), "EndpointURL(%q)", in)
	}
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="a_b.pdf"`, filestore.ContentDisposition("a b.pdf"))
	assert.Equal(t, "attachment", filestore.ContentDisposition(""))
}
