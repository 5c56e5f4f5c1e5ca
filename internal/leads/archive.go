package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archive keeps an immutable copy of each raw submission outside the
// database. Failures are reported to the caller, who treats them as
// best-effort.
type Archive interface {
	Put(ctx context.Context, leadID string, form Form) error
}

type ArchiveConfig struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// ObjectArchive stores leads as JSON objects in an S3-compatible bucket,
// keyed leads/<yyyy>/<mm>/<id>.json.
type ObjectArchive struct {
	client   *minio.Client
	bucket   string
	region   string
	clock    func() time.Time

	mu    sync.Mutex
	ready bool
}

func NewObjectArchive(cfg ArchiveConfig) (*ObjectArchive, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("archive endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("archive access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive client: %w", err)
	}
	return &ObjectArchive{client: client, bucket: bucket, region: region, clock: time.Now}, nil
}

// ensureBucket creates the bucket on first use. A failed attempt is retried
// on the next Put.
func (a *ObjectArchive) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ready {
		return nil
	}
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return err
		}
	}
	a.ready = true
	return nil
}

func (a *ObjectArchive) Put(ctx context.Context, leadID string, form Form) error {
	leadID = strings.TrimSpace(leadID)
	if leadID == "" {
		return fmt.Errorf("lead id is required")
	}
	if err := a.ensureBucket(ctx); err != nil {
		return fmt.Errorf("ensure bucket: %w", err)
	}
	body, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}
	key := ArchiveKey(a.clock(), leadID)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func ArchiveKey(at time.Time, leadID string) string {
	at = at.UTC()
	return fmt.Sprintf("leads/%04d/%02d/%s.json", at.Year(), int(at.Month()), strings.TrimSpace(leadID))
}
