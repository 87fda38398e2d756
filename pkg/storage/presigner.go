package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"locarto/pkg/config"
	"locarto/prometheus"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var (
	// ErrContentType rejects uploads that are neither images nor PDFs
	ErrContentType = errors.New("unsupported content type")
	ErrUpstream    = errors.New("object storage error")
)

var allowedTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// Upload tells the client where to PUT its bytes
type Upload struct {
	URL         string    `json:"url"`
	ObjectKey   string    `json:"object_key"`
	ContentType string    `json:"content_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Presigner issues pre-signed PUT URLs; the server never sees the file
type Presigner struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	now    func() time.Time
}

func NewPresigner(cfg config.StorageConfig) (*Presigner, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	expiry := cfg.UploadURLExpiry
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	return &Presigner{client: client, bucket: cfg.Bucket, expiry: expiry, now: time.Now}, nil
}

// PresignUpload returns a URL valid for one PUT of filename under prefix.
// The object key is randomised; only the extension implied by contentType is kept.
func (p *Presigner) PresignUpload(ctx context.Context, prefix, filename, contentType string) (upload *Upload, err error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrContentType, contentType)
	}

	key := path.Join(cleanPrefix(prefix), uuid.NewString()+ext)

	defer func() { prometheus.RecordUpstream("storage", err) }()
	u, err := p.client.PresignedPutObject(ctx, p.bucket, key, p.expiry)
	if err != nil {
		return nil, fmt.Errorf("%w: presign %s: %v", ErrUpstream, filename, err)
	}

	return &Upload{
		URL:         u.String(),
		ObjectKey:   key,
		ContentType: contentType,
		ExpiresAt:   p.now().Add(p.expiry),
	}, nil
}

// cleanPrefix keeps keys inside the bucket namespace the caller was given
func cleanPrefix(prefix string) string {
	cleaned := strings.Trim(path.Clean("/"+prefix), "/")
	if cleaned == "" || cleaned == "." {
		return "uploads"
	}
	return cleaned
}
