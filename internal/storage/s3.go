// Package storage issues presigned S3 uploads for AE Hub files.
package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	appconfig "github.com/hugh/salespulse/pkg/config"
)

const (
	keyPrefix         = "team-updates"
	maxFileNameLen    = 120
	defaultPresignTTL = 15 * time.Minute
)

var ErrDisabled = errors.New("file uploads are not configured")

// Upload describes a presigned PUT the client performs itself.
type Upload struct {
	URL       string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	Key       string            `json:"key"`
	FileURL   string            `json:"file_url"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type S3Presigner struct {
	presign       *s3.PresignClient
	bucket        string
	region        string
	endpoint      string
	publicBaseURL string
	ttl           time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewS3Presigner builds a presigner from cfg. It returns ErrDisabled when
// no bucket is configured.
func NewS3Presigner(ctx context.Context, cfg appconfig.StorageConfig, logger *slog.Logger) (*S3Presigner, error) {
	if !cfg.Enabled() {
		return nil, ErrDisabled
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL()
	if ttl <= 0 {
		ttl = defaultPresignTTL
	}

	return &S3Presigner{
		presign:       s3.NewPresignClient(client, s3.WithPresignExpires(ttl)),
		bucket:        cfg.Bucket,
		region:        cfg.Region,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		ttl:           ttl,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// Presign returns a PUT URL for a new object named after fileName.
func (p *S3Presigner) Presign(ctx context.Context, fileName, contentType string) (*Upload, error) {
	now := p.now().UTC()
	key := ObjectKey(now, uuid.New(), fileName)

	req, err := p.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("presigning upload: %w", err)
	}

	headers := make(map[string]string, len(req.SignedHeader))
	for name, values := range req.SignedHeader {
		if strings.EqualFold(name, "host") || len(values) == 0 {
			continue
		}
		headers[name] = values[0]
	}

	p.logger.Debug("presigned upload", "key", key, "content_type", contentType)

	return &Upload{
		URL:       req.URL,
		Method:    req.Method,
		Headers:   headers,
		Key:       key,
		FileURL:   p.PublicURL(key),
		ExpiresAt: now.Add(p.ttl),
	}, nil
}

// PublicURL is where clients read the object once uploaded.
func (p *S3Presigner) PublicURL(key string) string {
	switch {
	case p.publicBaseURL != "":
		return p.publicBaseURL + "/" + key
	case p.endpoint != "":
		return p.endpoint + "/" + p.bucket + "/" + key
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, key)
	}
}

// ObjectKey places uploads under team-updates/YYYY/MM with a unique prefix
// so names never collide.
func ObjectKey(now time.Time, id uuid.UUID, fileName string) string {
	return path.Join(keyPrefix, now.Format("2006/01"), id.String()+"-"+SanitizeFileName(fileName))
}

// SanitizeFileName keeps letters, digits, dot, dash and underscore.
func SanitizeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), ".-")
	if out == "" {
		out = "file"
	}
	if len(out) > maxFileNameLen {
		out = out[len(out)-maxFileNameLen:]
	}
	return out
}
