// Package objectstore implements the Content Store Gateway (CSG,
// spec.md §4.2): a capability over a bucketed object store with a
// whitelist-based upload safety policy. The teacher has no object-store
// client of its own (GitLab hosts the code it manages, it does not
// store blobs directly); this gateway is grounded on the addressing
// convention spec.md §4.2/§6 specify, which is bucket+key shaped the way
// github.com/minio/minio-go/v7 models S3-compatible storage.
package objectstore

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/computor-org/cpsto/internal/cerrors"
)

const (
	errPutFailed      = "cannot put object %s/%s"
	errGetFailed      = "cannot get object %s/%s"
	errListFailed     = "cannot list objects %s/%s"
	errCopyFailed     = "cannot copy object %s/%s -> %s/%s"
	errDeleteFailed   = "cannot delete object %s/%s"
	errPresignFailed  = "cannot presign %s %s/%s"
)

// Config carries the MinIO/S3 connection parameters.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseTLS    bool
}

// Client is a thin wrapper over *minio.Client implementing CSG's
// operation set (spec.md §4.2).
type Client struct {
	mc *minio.Client
}

// NewClient constructs a Client from Config, mirroring the teacher's
// clients.NewClient(cfg) constructor shape for the GitLab client.
func NewClient(cfg Config) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseTLS,
	})
	if err != nil {
		return nil, errors.Wrap(err, "cannot construct object store client")
	}
	return &Client{mc: mc}, nil
}

// ObjectMetadata is returned alongside object bytes/iterators.
type ObjectMetadata struct {
	ContentType string
	Size        int64
	ETag        string
	UserMeta    map[string]string
}

// PutObject uploads bytes to bucket/key after checking the upload safety
// policy (spec.md §4.2). filename is the basename used for whitelist and
// traversal checks; it may differ from key's final path component when
// key embeds the addressing-convention prefix.
func (c *Client) PutObject(ctx context.Context, bucket, key string, data []byte, filename, contentType string, userMeta map[string]string, maxSize int64) error {
	if err := ValidateUpload(filename, int64(len(data)), maxSize); err != nil {
		return err
	}
	_, err := c.mc.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: userMeta,
	})
	if err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, errors.Errorf(errPutFailed, bucket, key).Error())
	}
	return nil
}

// GetObject downloads bucket/key.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, ObjectMetadata, error) {
	obj, err := c.mc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectMetadata{}, cerrors.Wrap(cerrors.KindProviderTransient, err, errGetFor(bucket, key))
	}
	defer obj.Close()
	info, err := obj.Stat()
	if err != nil {
		if isNotFound(err) {
			return nil, ObjectMetadata{}, cerrors.Newf(cerrors.KindNotFound, "object %s/%s not found", bucket, key)
		}
		return nil, ObjectMetadata{}, cerrors.Wrap(cerrors.KindProviderTransient, err, errGetFor(bucket, key))
	}
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, ObjectMetadata{}, cerrors.Wrap(cerrors.KindProviderTransient, err, errGetFor(bucket, key))
	}
	return data, ObjectMetadata{
		ContentType: info.ContentType,
		Size:        info.Size,
		ETag:        info.ETag,
		UserMeta:    info.UserMetadata,
	}, nil
}

func errGetFor(bucket, key string) string {
	return errors.Errorf(errGetFailed, bucket, key).Error()
}

// ObjectEntry is one item yielded by ListObjects.
type ObjectEntry struct {
	Key  string
	Size int64
}

// ListObjects lists every object under bucket/prefix.
func (c *Client) ListObjects(ctx context.Context, bucket, prefix string) ([]ObjectEntry, error) {
	var out []ObjectEntry
	for obj := range c.mc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, cerrors.Wrap(cerrors.KindProviderTransient, obj.Err, errors.Errorf(errListFailed, bucket, prefix).Error())
		}
		out = append(out, ObjectEntry{Key: obj.Key, Size: obj.Size})
	}
	return out, nil
}

// CopyObject copies srcBucket/srcKey to dstBucket/dstKey.
func (c *Client) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) error {
	src := minio.CopySrcOptions{Bucket: srcBucket, Object: srcKey}
	dst := minio.CopyDestOptions{Bucket: dstBucket, Object: dstKey}
	if _, err := c.mc.CopyObject(ctx, dst, src); err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, errors.Errorf(errCopyFailed, srcBucket, srcKey, dstBucket, dstKey).Error())
	}
	return nil
}

// DeleteObject removes bucket/key.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := c.mc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return cerrors.Wrap(cerrors.KindProviderTransient, err, errors.Errorf(errDeleteFailed, bucket, key).Error())
	}
	return nil
}

// PresignedURL issues a presigned URL for bucket/key valid for ttl,
// method is "GET" or "PUT".
func (c *Client) PresignedURL(ctx context.Context, bucket, key, method string, ttl time.Duration) (string, error) {
	var u *url.URL
	var err error
	switch method {
	case http.MethodGet:
		u, err = c.mc.PresignedGetObject(ctx, bucket, key, ttl, nil)
	case http.MethodPut:
		u, err = c.mc.PresignedPutObject(ctx, bucket, key, ttl)
	default:
		return "", cerrors.Newf(cerrors.KindValidation, "unsupported presign method %q", method)
	}
	if err != nil {
		return "", cerrors.Wrap(cerrors.KindProviderTransient, err, errors.Errorf(errPresignFailed, method, bucket, key).Error())
	}
	return u.String(), nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket"
}
