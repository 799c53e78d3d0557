// Package archive writes tenant booking snapshots to S3-compatible storage.
package archive

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

const (
	prefix          = "backups/"
	timestampLayout = "20060102T150405Z"
)

type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// NewS3Client builds a path-style client, which R2 and MinIO both accept.
func NewS3Client(cfg S3Config) *s3.Client {
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// ObjectStore is the subset of *s3.Client used here.
type ObjectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Source interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	TenantAppointments(ctx context.Context, tenantID string) ([]models.Appointment, error)
	TenantCustomers(ctx context.Context, tenantID string) ([]models.Customer, error)
}

type Snapshot struct {
	TenantID     string               `json:"tenant_id"`
	ExportedAt   time.Time            `json:"exported_at"`
	Tenant       *models.Tenant       `json:"tenant"`
	Appointments []models.Appointment `json:"appointments"`
	Customers    []models.Customer    `json:"customers"`
}

type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type Archiver struct {
	store  ObjectStore
	bucket string
	source Source
	now    func() time.Time
	log    logrus.FieldLogger
}

func New(store ObjectStore, bucket string, source Source, log logrus.FieldLogger) *Archiver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Archiver{
		store:  store,
		bucket: bucket,
		source: source,
		now:    time.Now,
		log:    log.WithField("component", "archive"),
	}
}

func tenantPrefix(tenantID string) string {
	return prefix + tenantID + "/"
}

// Export uploads a gzipped JSON snapshot and returns its key.
func (a *Archiver) Export(ctx context.Context, tenantID string) (*Object, error) {
	tenant, err := a.source.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	appts, err := a.source.TenantAppointments(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	customers, err := a.source.TenantCustomers(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	now := a.now().UTC()
	snap := Snapshot{
		TenantID:     tenantID,
		ExportedAt:   now,
		Tenant:       tenant,
		Appointments: appts,
		Customers:    customers,
	}

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(snap); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s%s.json.gz", tenantPrefix(tenantID), now.Format(timestampLayout))
	size := int64(buf.Len())

	_, err = a.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentLength:   aws.Int64(size),
		ContentType:     aws.String("application/json"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	a.log.WithFields(logrus.Fields{
		"tenant_id":    tenantID,
		"key":          key,
		"appointments": len(appts),
		"customers":    len(customers),
	}).Info("tenant archive exported")

	return &Object{Key: key, Size: size, LastModified: now}, nil
}

// List returns the tenant's archives, oldest first.
func (a *Archiver) List(ctx context.Context, tenantID string) ([]Object, error) {
	return a.list(ctx, tenantPrefix(tenantID))
}

func (a *Archiver) list(ctx context.Context, p string) ([]Object, error) {
	var out []Object
	pages := s3.NewListObjectsV2Paginator(a.store, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(p),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			o := Object{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			out = append(out, o)
		}
	}
	return out, nil
}

// Prune deletes archives of every tenant older than retention and reports
// how many were removed.
func (a *Archiver) Prune(ctx context.Context, retention time.Duration) (int, error) {
	objs, err := a.list(ctx, prefix)
	if err != nil {
		return 0, err
	}

	cutoff := a.now().Add(-retention)
	deleted := 0
	for _, o := range objs {
		if !strings.HasSuffix(o.Key, ".json.gz") || !o.LastModified.Before(cutoff) {
			continue
		}
		if _, err := a.store.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(a.bucket),
			Key:    aws.String(o.Key),
		}); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", o.Key, err)
		}
		deleted++
	}

	if deleted > 0 {
		a.log.WithFields(logrus.Fields{
			"deleted":   deleted,
			"retention": retention.String(),
		}).Info("old archives pruned")
	}
	return deleted, nil
}
