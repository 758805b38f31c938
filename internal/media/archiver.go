// Package media archives inbound attachment media to S3 so conversations keep
// a copy after the platform's CDN URLs expire.
package media

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Config carries the S3 target for archived attachments.
type Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Archiver copies attachment media into an S3 bucket. When no bucket is
// configured the archiver is disabled and Archive returns the original URL.
type Archiver struct {
	client     *s3.Client
	httpClient *resty.Client
	bucket     string
	enabled    bool
}

// NewArchiver builds an archiver from config. An empty bucket disables it.
func NewArchiver(cfg Config) *Archiver {
	if cfg.Bucket == "" {
		log.Info().Msg("S3_BUCKET is not set. Attachment archiving disabled.")
		return &Archiver{}
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info().Str("bucket", cfg.Bucket).Str("region", region).Msg("Attachment archiver configured")

	return &Archiver{
		client:     client,
		httpClient: resty.New().SetTimeout(30 * time.Second),
		bucket:     cfg.Bucket,
		enabled:    true,
	}
}

// Enabled reports whether archiving is configured.
func (a *Archiver) Enabled() bool {
	return a != nil && a.enabled
}

// Archive downloads the attachment at url and uploads it under
// attachments/<conversation>/<uuid>, returning the stored object key URL.
func (a *Archiver) Archive(ctx context.Context, conversationID, url string) (string, error) {
	resp, err := a.httpClient.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("failed to download attachment: status %s", resp.Status())
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := fmt.Sprintf("attachments/%s/%s%s", conversationID, uuid.NewString(), extensionFor(contentType))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(resp.Body()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload attachment to S3: %w", err)
	}

	log.Debug().Str("key", key).Str("bucket", a.bucket).Msg("Archived attachment")
	return fmt.Sprintf("s3://%s/%s", a.bucket, key), nil
}

func extensionFor(contentType string) string {
	base := contentType
	if i := strings.Index(base, ";"); i >= 0 {
		base = strings.TrimSpace(base[:i])
	}
	switch base {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	case "audio/mpeg":
		return ".mp3"
	case "application/pdf":
		return ".pdf"
	default:
		if i := strings.Index(base, "/"); i >= 0 && i < len(base)-1 {
			return "." + base[i+1:]
		}
		return ""
	}
}
