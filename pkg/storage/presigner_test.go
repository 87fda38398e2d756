package storage

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"locarto/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPresigner(t *testing.T) *Presigner {
	t.Helper()
	p, err := NewPresigner(config.StorageConfig{
		Endpoint:        "localhost:9000",
		AccessKey:       "minio",
		SecretKey:       "minio-secret",
		Bucket:          "locarto-uploads",
		Region:          "us-east-1",
		UploadURLExpiry: 10 * time.Minute,
	})
	require.NoError(t, err)
	return p
}

func TestPresignUpload(t *testing.T) {
	p := newPresigner(t)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	up, err := p.PresignUpload(context.Background(), "vendor/7", "mouse.PNG", "image/png")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(up.ObjectKey, "vendor/7/"))
	assert.True(t, strings.HasSuffix(up.ObjectKey, ".png"))
	assert.Equal(t, "image/png", up.ContentType)
	assert.Equal(t, fixed.Add(10*time.Minute), up.ExpiresAt)

	u, err := url.Parse(up.URL)
	require.NoError(t, err)
	assert.Equal(t, "/locarto-uploads/"+up.ObjectKey, u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestPresignUploadRejectsContentType(t *testing.T) {
	p := newPresigner(t)

	_, err := p.PresignUpload(context.Background(), "vendor/7", "run.sh", "text/x-shellscript")
	require.ErrorIs(t, err, ErrContentType)
}

func TestCleanPrefix(t *testing.T) {
	assert.Equal(t, "uploads", cleanPrefix(""))
	assert.Equal(t, "uploads", cleanPrefix("../.."))
	assert.Equal(t, "consumer/3", cleanPrefix("../consumer/3/"))
}
