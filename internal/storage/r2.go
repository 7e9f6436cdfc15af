// ===============================
// internal/storage/r2.go - Cloudflare R2 Storage Client
// ===============================

package storage

import (
	"context"
	"fmt"
	"os"
	"strings"

	"dramafeed/internal/config"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// R2Store keeps artifacts in an R2 bucket and serves them from its public URL.
type R2Store struct {
	client     s3iface.S3API
	bucketName string
	publicURL  string
}

// NewR2Store creates an S3 client configured for R2
func NewR2Store(cfg config.R2Config) (*R2Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("auto"),
		Endpoint:         aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)),
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create R2 session: %w", err)
	}

	return newR2Store(s3.New(sess), cfg.BucketName, cfg.PublicURL), nil
}

func newR2Store(client s3iface.S3API, bucket, publicURL string) *R2Store {
	return &R2Store{
		client:     client,
		bucketName: bucket,
		publicURL:  strings.TrimRight(publicURL, "/"),
	}
}

// Backend implements Store.
func (r *R2Store) Backend() string { return "r2" }

// Put uploads localPath under key
func (r *R2Store) Put(ctx context.Context, key, localPath, contentType string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer file.Close()

	if contentType == "" {
		contentType = ContentType(key)
	}

	_, err = r.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucketName),
		Key:         aws.String(key),
		Body:        file,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload file to R2: %w", err)
	}
	return nil
}

// Delete removes key from the bucket
func (r *R2Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	_, err := r.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete file from R2: %w", err)
	}
	return nil
}

// Exists checks the object with a HEAD request
func (r *R2Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	_, err := r.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		// Check if it's a "not found" error
		if aerr, ok := err.(awserr.Error); ok {
			if aerr.Code() == "NotFound" || aerr.Code() == s3.ErrCodeNoSuchKey {
				return false, nil
			}
		}
		return false, err
	}
	return true, nil
}

// Locate returns the public URL of key
func (r *R2Store) Locate(_ context.Context, key string) (Location, error) {
	if err := ValidateKey(key); err != nil {
		return Location{}, err
	}
	return Location{URL: fmt.Sprintf("%s/%s", r.publicURL, key)}, nil
}
