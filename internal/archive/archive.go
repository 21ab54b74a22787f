// Package archive keeps a copy of every raw upload in an S3 compatible
// bucket, laid out as datasets/<id>/<filename>.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"chemviz/internal/config"
)

type Archive interface {
	Put(ctx context.Context, datasetId int, filename string, data []byte) error
	// Remove deletes everything stored for the dataset.
	Remove(ctx context.Context, datasetId int) error
}

// New returns a minio backed archive when enabled, otherwise Nop.
func New(ctx context.Context, conf config.S3Config) (Archive, error) {
	if !conf.Enabled {
		return Nop{}, nil
	}
	m, err := NewMinio(ctx, conf)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func Prefix(datasetId int) string {
	return "datasets/" + strconv.Itoa(datasetId) + "/"
}

func ObjectKey(datasetId int, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.csv"
	}
	return Prefix(datasetId) + name
}

func ContentType(filename string) string {
	if strings.EqualFold(path.Ext(filename), ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}

type Minio struct {
	client *minio.Client
	bucket string
}

func NewMinio(ctx context.Context, conf config.S3Config) (*Minio, error) {
	client, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKeyID, conf.SecretAccessKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client failed: %w", err)
	}

	exists, err := client.BucketExists(ctx, conf.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s failed: %w", conf.Bucket, err)
	}
	if !exists {
		err = client.MakeBucket(ctx, conf.Bucket, minio.MakeBucketOptions{Region: conf.Region})
		if err != nil {
			return nil, fmt.Errorf("create bucket %s failed: %w", conf.Bucket, err)
		}
	}

	return &Minio{client: client, bucket: conf.Bucket}, nil
}

func (m *Minio) Put(ctx context.Context, datasetId int, filename string, data []byte) error {
	_, err := m.client.PutObject(
		ctx,
		m.bucket,
		ObjectKey(datasetId, filename),
		bytes.NewReader(data),
		int64(len(data)),
		minio.PutObjectOptions{
			ContentType: ContentType(filename),
		},
	)
	if err != nil {
		return fmt.Errorf("put object to minio failed: %w", err)
	}
	return nil
}

func (m *Minio) Remove(ctx context.Context, datasetId int) error {
	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    Prefix(datasetId),
		Recursive: true,
	})
	for obj := range objects {
		if obj.Err != nil {
			return fmt.Errorf("list objects failed: %w", obj.Err)
		}
		if err := m.client.RemoveObject(ctx, m.bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove object %s failed: %w", obj.Key, err)
		}
	}
	return nil
}

type Nop struct{}

func (Nop) Put(context.Context, int, string, []byte) error { return nil }

func (Nop) Remove(context.Context, int) error { return nil }
