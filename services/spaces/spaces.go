// Package spaces stores faculty thumbnails in DigitalOcean Spaces through the
// S3 API.
package spaces

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned by NewClient when bucket or credentials are missing
var ErrNotConfigured = errors.New("spaces is not configured")

// Config holds configuration for the Spaces client
type Config struct {
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	// Endpoint without scheme, e.g. "fra1.digitaloceanspaces.com"
	Endpoint string
	CDNURL   string
}

// Client handles DigitalOcean Spaces operations
type Client struct {
	s3       s3iface.S3API
	bucket   string
	endpoint string
	cdnURL   string
}

// NewClient creates a new Spaces client
func NewClient(cfg Config) (*Client, error) {
	if cfg.Bucket == "" || cfg.Region == "" || cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = fmt.Sprintf("%s.digitaloceanspaces.com", cfg.Region)
	}

	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Endpoint:         aws.String("https://" + cfg.Endpoint),
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(false),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Spaces session: %w", err)
	}

	return newClient(s3.New(sess), cfg), nil
}

func newClient(api s3iface.S3API, cfg Config) *Client {
	return &Client{
		s3:       api,
		bucket:   cfg.Bucket,
		endpoint: cfg.Endpoint,
		cdnURL:   strings.TrimRight(cfg.CDNURL, "/"),
	}
}

// URL returns the public URL for key
func (c *Client) URL(key string) string {
	if c.cdnURL != "" {
		return fmt.Sprintf("%s/%s", c.cdnURL, key)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucket, c.endpoint, key)
}

// KeyFromURL returns the object key behind a URL produced by URL. ok is
// false for URLs that point somewhere else.
func (c *Client) KeyFromURL(url string) (key string, ok bool) {
	prefixes := []string{fmt.Sprintf("https://%s.%s/", c.bucket, c.endpoint)}
	if c.cdnURL != "" {
		prefixes = append(prefixes, c.cdnURL+"/")
	}
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) {
			key = strings.TrimPrefix(url, p)
			return key, key != ""
		}
	}
	return "", false
}

// UploadThumbnail stores a faculty thumbnail and returns its public URL
func (c *Client) UploadThumbnail(ctx context.Context, facultyID, filename string, data []byte, contentType string) (string, error) {
	key := path.Join("faculties", facultyID, uuid.NewString()+strings.ToLower(path.Ext(filename)))

	_, err := c.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ACL:         aws.String("public-read"),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload thumbnail: %w", err)
	}
	return c.URL(key), nil
}

// DeleteObject deletes key from the bucket
func (c *Client) DeleteObject(ctx context.Context, key string) error {
	_, err := c.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteByURL deletes the object behind url. URLs outside the bucket are
// left alone.
func (c *Client) DeleteByURL(ctx context.Context, url string) error {
	key, ok := c.KeyFromURL(url)
	if !ok {
		return nil
	}
	return c.DeleteObject(ctx, key)
}
