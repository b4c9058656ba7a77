// Package storage uploads product images to the blob store.
package storage

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/x23379014/MyPOS/internal/apperr"
	"github.com/x23379014/MyPOS/internal/provision"
)

const defaultContentType = "image/jpeg"

// Uploader is satisfied by *manager.Uploader.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// BucketEnsurer is the provisioner's bucket path.
type BucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

type BlobStore struct {
	uploader Uploader
	bucket   string
	region   string
	reporter *apperr.Reporter

	ensure BucketEnsurer
	gate   provision.Gate
}

func NewBlobStore(uploader Uploader, bucket, region string, reporter *apperr.Reporter) *BlobStore {
	if reporter == nil {
		reporter = apperr.NewReporter(nil)
	}
	return &BlobStore{
		uploader: uploader,
		bucket:   bucket,
		region:   region,
		reporter: reporter,
	}
}

// WithProvisioner makes the store ensure its bucket before the first upload.
func (b *BlobStore) WithProvisioner(p BucketEnsurer) *BlobStore {
	b.ensure = p
	return b
}

// Upload writes body under products/{productID}/{filename} with a public-read
// ACL and returns the object's public URL. The URL is built from the bucket
// and region, not read back from the store.
func (b *BlobStore) Upload(ctx context.Context, body io.Reader, productID, filename, contentType string) (string, error) {
	if !validName(baseName(filename)) {
		return "", b.reporter.Validation("filename", "filename must name a file")
	}

	if b.ensure != nil {
		if err := b.gate.Do(ctx, b.ensure.EnsureBucket); err != nil {
			return "", err
		}
	}

	key := ObjectKey(productID, filename)
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(ContentType(filename, contentType)),
		ACL:         types.ObjectCannedACLPublicRead,
	})
	if err != nil {
		return "", b.reporter.Dependency(err, "upload_file", key)
	}

	url := b.URL(key)
	b.reporter.Success("upload_file", url)
	return url, nil
}

// URL is the virtual-hosted style address of key.
func (b *BlobStore) URL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.bucket, b.region, key)
}

// ObjectKey keeps only the final path element of filename so callers cannot
// write outside the product's prefix.
func ObjectKey(productID, filename string) string {
	return fmt.Sprintf("products/%s/%s", productID, baseName(filename))
}

func baseName(filename string) string {
	return path.Base(strings.ReplaceAll(filename, "\\", "/"))
}

// validName rejects what path.Base returns for empty, root and dot-only
// filenames.
func validName(name string) bool {
	switch name {
	case ".", "/", "..":
		return false
	}
	return strings.TrimSpace(name) != ""
}

// ContentType returns supplied if set, otherwise the type registered for the
// file extension, otherwise image/jpeg.
func ContentType(filename, supplied string) string {
	if supplied != "" {
		return supplied
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(filename))); ct != "" {
		return ct
	}
	return defaultContentType
}
