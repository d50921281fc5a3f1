package storage

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	content := "vibration log"
	require.NoError(t, s.Put(ctx, "requests/abc/report.txt", strings.NewReader(content), int64(len(content)), "text/plain"))

	rc, err := s.Get(ctx, "requests/abc/report.txt")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	require.NoError(t, s.Delete(ctx, "requests/abc/report.txt"))
	_, err = s.Get(ctx, "requests/abc/report.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.Delete(ctx, "requests/abc/report.txt"))
}

func TestLocalStore_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalStore(root)
	require.NoError(t, err)

	for _, key := range []string{"", "../secret", "/etc/passwd", "a/../../b", "a//b", `a\b`} {
		t.Run(key, func(t *testing.T) {
			err := s.Put(ctx, key, strings.NewReader("x"), 1, "text/plain")
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestNewMinIOStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := NewMinIOStore(ctx, MinIOConfig{
		Endpoint:  "127.0.0.1:1",
		AccessKey: "minio",
		SecretKey: "minio123",
		Bucket:    "attachments",
	})
	assert.Error(t, err)
}
