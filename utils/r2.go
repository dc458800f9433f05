// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appconfig "hubcoin-ledger/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gosimple/slug"
)

const maxAvatarBytes = 5 << 20

var avatarFetchClient = &http.Client{Timeout: 15 * time.Second}

// ObjectPutter is the slice of the S3 API the mirror needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// AvatarMirror copies Telegram profile photos to R2 so the stored URL does
// not expire with the bot token's file link.
type AvatarMirror struct {
	Client     ObjectPutter
	Bucket     string
	CDNBaseURL string
	HTTP       *http.Client
}

// NewAvatarMirror builds an R2-backed mirror from cfg.
func NewAvatarMirror(ctx context.Context, cfg appconfig.R2Config) (*AvatarMirror, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	cdn := strings.TrimRight(cfg.CDNBaseURL, "/")
	if cdn == "" {
		cdn = endpoint + "/" + cfg.Bucket
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return &AvatarMirror{Client: client, Bucket: cfg.Bucket, CDNBaseURL: cdn, HTTP: avatarFetchClient}, nil
}

// AvatarKey is the object key for a user's avatar, e.g. "avatars/rahim-khan-42.jpg".
func AvatarKey(userID, handle string) string {
	s := slug.Make(handle)
	if s == "" {
		return fmt.Sprintf("avatars/%s.jpg", userID)
	}
	return fmt.Sprintf("avatars/%s-%s.jpg", s, userID)
}

// Mirror downloads sourceURL and uploads it under AvatarKey, returning the CDN URL.
func (m *AvatarMirror) Mirror(ctx context.Context, userID, handle, sourceURL string) (string, error) {
	client := m.HTTP
	if client == nil {
		client = avatarFetchClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download avatar: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("avatar download returned %d", resp.StatusCode)
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(resp.Body, maxAvatarBytes)); err != nil {
		return "", fmt.Errorf("failed to read avatar: %w", err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "image/jpeg"
	}
	key := AvatarKey(userID, handle)
	_, err = m.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return fmt.Sprintf("%s/%s", m.CDNBaseURL, key), nil
}
