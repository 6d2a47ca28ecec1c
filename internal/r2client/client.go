// Package r2client stores export workbooks in Cloudflare R2 through the
// S3 API and hands out presigned download links.
package r2client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// Config holds R2 credentials and the bucket workbooks go to.
type Config struct {
	Endpoint    string // https://<account>.r2.cloudflarestorage.com
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

func (c Config) validate() error {
	var missing []string
	for name, v := range map[string]string{
		"endpoint":      c.Endpoint,
		"access key id": c.AccessKeyID,
		"secret key":    c.SecretKey,
		"bucket":        c.BucketName,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("r2client: missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// EndpointFor returns the R2 endpoint of a Cloudflare account.
func EndpointFor(accountID string) string {
	return "https://" + accountID + ".r2.cloudflarestorage.com"
}

// Client talks to one R2 bucket.
type Client struct {
	s3      *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New builds a path-style S3 client for R2. Nothing is sent until the
// first call.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("r2client: aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	return &Client{s3: client, presign: s3.NewPresignClient(client), bucket: cfg.BucketName}, nil
}

// Bucket returns the bucket name.
func (c *Client) Bucket() string { return c.bucket }

func (c *Client) fail(op, key string, err error) error {
	return fmt.Errorf("r2client: %s %s/%s: %w", op, c.bucket, key, err)
}

// Upload stores body under key and returns its ETag.
func (c *Client) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	in := &s3.PutObjectInput{Bucket: &c.bucket, Key: &key, Body: body}
	if contentType != "" {
		in.ContentType = &contentType
	}
	out, err := c.s3.PutObject(ctx, in)
	if err != nil {
		return "", c.fail("put", key, err)
	}
	return strings.Trim(aws.ToString(out.ETag), `"`), nil
}

// DeleteObject removes key. Deleting a missing key succeeds, including on
// backends that answer NoSuchKey instead of 204.
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &c.bucket, Key: &key})
	var apiErr smithy.APIError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey":
		return nil
	default:
		return c.fail("delete", key, err)
	}
}

// Object is one listed object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// ListObjects returns every object under prefix, following pagination.
func (c *Client) ListObjects(ctx context.Context, prefix string) ([]Object, error) {
	pages := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{Bucket: &c.bucket, Prefix: &prefix})

	var objects []Object
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, c.fail("list", prefix, err)
		}
		for _, o := range page.Contents {
			objects = append(objects, Object{
				Key:          aws.ToString(o.Key),
				Size:         aws.ToInt64(o.Size),
				LastModified: aws.ToTime(o.LastModified),
			})
		}
	}
	return objects, nil
}

// PresignGet signs a GET for key valid for ttl. With a filename, browsers
// save the download under that name.
func (c *Client) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("r2client: presign ttl must be positive")
	}
	in := &s3.GetObjectInput{Bucket: &c.bucket, Key: &key}
	if filename != "" {
		in.ResponseContentDisposition = aws.String(fmt.Sprintf("attachment; filename=%q", filename))
	}
	req, err := c.presign.PresignGetObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", c.fail("presign", key, err)
	}
	return req.URL, nil
}
