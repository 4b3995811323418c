package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"regexp"
	"strings"
	"time"

	"localeditor/utils"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotConfigured is returned when bucket or credentials are missing.
var ErrNotConfigured = errors.New("s3: export storage is not configured")

const (
	exportPrefix       = "exports"
	defaultContentType = "application/json; charset=utf-8"
	maxKeyLength       = 1024
)

// S3Service uploads exported locale documents.
type S3Service struct {
	config *S3Config
	now    func() time.Time
}

// S3Config contains S3 configuration from environment variables
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	UseSSL    bool
	PathStyle string
	LinkTTL   time.Duration
}

// NewS3ConfigFromEnv reads the S3_* variables.
func NewS3ConfigFromEnv() *S3Config {
	return &S3Config{
		Region:    utils.GetEnv("S3_REGION", "us-east-1"),
		Bucket:    utils.GetEnv("S3_BUCKET", ""),
		AccessKey: utils.GetEnv("S3_ACCESS_KEY", ""),
		SecretKey: utils.GetEnv("S3_SECRET_KEY", ""),
		Endpoint:  utils.GetEnv("S3_ENDPOINT", ""),
		UseSSL:    utils.GetEnvBool("S3_USE_SSL", true),
		PathStyle: utils.GetEnv("S3_PATH_STYLE", "auto"),
		LinkTTL:   utils.GetEnvDuration("S3_LINK_TTL", 24*time.Hour),
	}
}

// NewS3Service creates a new S3 service instance with configuration from environment
func NewS3Service() *S3Service {
	return NewS3ServiceWithConfig(NewS3ConfigFromEnv())
}

// NewS3ServiceWithConfig uses config as is.
func NewS3ServiceWithConfig(config *S3Config) *S3Service {
	return &S3Service{config: config, now: time.Now}
}

// Configured reports whether uploads can be attempted.
func (s *S3Service) Configured() bool {
	return s != nil && s.config != nil &&
		s.config.Bucket != "" && s.config.AccessKey != "" && s.config.SecretKey != ""
}

// getS3Client creates an S3 client with given configuration
func (s *S3Service) getS3Client() (*s3.S3, error) {
	if !s.Configured() {
		return nil, ErrNotConfigured
	}
	config := s.config

	awsConfig := &aws.Config{
		Region:      aws.String(config.Region),
		Credentials: credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, ""),
	}

	// Set endpoint for MinIO or custom S3-compatible storage
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.DisableSSL = aws.Bool(!config.UseSSL)

		if config.PathStyle == "path" || config.PathStyle == "auto" {
			awsConfig.S3ForcePathStyle = aws.Bool(true)
		}
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return s3.New(sess), nil
}

// Export describes an uploaded document.
type Export struct {
	Key      string `json:"key"`
	Location string `json:"location"`
	URL      string `json:"url,omitempty"`
}

// UploadExport stores content under exports/<repo>/<locale>/<date>/<file>
// and returns the key with a presigned download link.
func (s *S3Service) UploadExport(ctx context.Context, repoPath, locale, fileName string, content []byte) (*Export, error) {
	client, err := s.getS3Client()
	if err != nil {
		return nil, err
	}

	key := s.generateStorageKey(repoPath, locale, fileName)
	uploader := s3manager.NewUploaderWithClient(client)

	utils.Logger.Info("Starting S3 upload",
		zap.String("bucket", s.config.Bucket),
		zap.String("storage_key", key),
		zap.Int("bytes", len(content)))

	result, err := uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:             aws.String(s.config.Bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(content),
		ContentType:        aws.String(defaultContentType),
		ContentDisposition: aws.String(mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(fileName)})),
	})
	if err != nil {
		utils.Logger.Error("S3 upload operation failed",
			zap.Error(err),
			zap.String("storage_key", key),
			zap.String("bucket", s.config.Bucket),
			zap.String("endpoint", s.config.Endpoint))
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	export := &Export{Key: key, Location: result.Location}
	if link, err := s.presign(client, key, s.config.LinkTTL); err == nil {
		export.URL = link
	} else {
		utils.Logger.Warn("Failed to presign export link", zap.String("storage_key", key), zap.Error(err))
	}

	utils.Logger.Info("S3 upload completed successfully",
		zap.String("storage_key", key),
		zap.String("s3_location", result.Location))

	return export, nil
}

// GetPresignedURL generates a presigned URL for file access
func (s *S3Service) GetPresignedURL(ctx context.Context, storageKey string, expiration time.Duration) (string, error) {
	client, err := s.getS3Client()
	if err != nil {
		return "", err
	}
	return s.presign(client, storageKey, expiration)
}

func (s *S3Service) presign(client *s3.S3, storageKey string, expiration time.Duration) (string, error) {
	if expiration <= 0 {
		expiration = time.Hour
	}
	req, _ := client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(storageKey),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

// DeleteExport removes an uploaded export.
func (s *S3Service) DeleteExport(ctx context.Context, storageKey string) error {
	client, err := s.getS3Client()
	if err != nil {
		return err
	}

	_, err = client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(storageKey),
	})
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	return nil
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeSegment keeps a key segment ASCII-safe.
func sanitizeSegment(segment string) string {
	cleaned := strings.Trim(unsafeKeyChars.ReplaceAllString(segment, "_"), "_")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}

// generateStorageKey builds exports/<owner_repo>/<locale>/<yyyy/mm/dd>/<dir_file>-<id>.json
func (s *S3Service) generateStorageKey(repoPath, locale, fileName string) string {
	ext := path.Ext(fileName)
	if ext == "" {
		ext = ".json"
	}
	name := strings.TrimSuffix(fileName, path.Ext(fileName))

	repo := sanitizeSegment(strings.ReplaceAll(repoPath, "/", "_"))
	loc := sanitizeSegment(locale)
	base := sanitizeSegment(strings.ReplaceAll(name, "/", "_"))

	date := s.now().UTC().Format("2006/01/02")
	id := uuid.New().String()[:8]

	key := fmt.Sprintf("%s/%s/%s/%s/%s-%s%s", exportPrefix, repo, loc, date, base, id, ext)
	if len(key) > maxKeyLength {
		key = fmt.Sprintf("%s/%s/%s%s", exportPrefix, date, uuid.New().String(), ext)
	}
	return key
}
