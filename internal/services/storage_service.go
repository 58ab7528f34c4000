// internal/services/storage_service.go
package services

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/apperrors"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/config"
	"github.com/NxtWaveTools/nxt-subscription-sub000/internal/utils"
)

const (
	maxInvoiceSizeBytes = 10 << 20 // 10 MB
	localUploadDir      = "./uploads"
)

var allowedInvoiceExtensions = []string{".pdf", ".png", ".jpg", ".jpeg"}

// StorageService writes invoice files to S3, or to local disk when no
// AWS credentials are configured (development).
type StorageService struct {
	s3Client *s3.S3
	config   *config.Config
}

type UploadResult struct {
	URL      string `json:"url"`
	Key      string `json:"key"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

func NewStorageService(cfg *config.Config) (*StorageService, error) {
	if cfg.AWS.AccessKeyID == "" {
		// Local disk fallback for development
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.AWS.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AWS.AccessKeyID,
			cfg.AWS.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &StorageService{
		s3Client: s3.New(sess),
		config:   cfg,
	}, nil
}

// UploadInvoice validates and stores an invoice file under the owning
// subscription's folder.
func (s *StorageService) UploadInvoice(file multipart.File, header *multipart.FileHeader, subscriptionID uuid.UUID) (*UploadResult, error) {
	if header.Size > maxInvoiceSizeBytes {
		return nil, apperrors.Validation(fmt.Sprintf("file size %d bytes exceeds the %d byte limit", header.Size, maxInvoiceSizeBytes))
	}

	fileExt := strings.ToLower(filepath.Ext(header.Filename))
	allowed := false
	for _, ext := range allowedInvoiceExtensions {
		if fileExt == ext {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, apperrors.Validation("file type " + fileExt + " is not allowed for invoices")
	}

	suffix, err := utils.GenerateRandomString(8)
	if err != nil {
		return nil, apperrors.Storage("failed to generate storage key", err)
	}
	key := fmt.Sprintf("invoices/%s/%d_%s%s", subscriptionID, time.Now().Unix(), suffix, fileExt)

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return nil, apperrors.Storage("failed to read uploaded file", err)
	}

	contentType := header.Header.Get("Content-Type")
	if s.s3Client != nil {
		return s.uploadToS3(fileBytes, key, contentType)
	}
	return s.uploadToLocal(fileBytes, key, contentType)
}

func (s *StorageService) uploadToS3(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.AWS.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}

	if _, err := s.s3Client.PutObject(params); err != nil {
		return nil, apperrors.Storage("failed to upload invoice to S3", err)
	}

	return &UploadResult{
		URL:      fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.AWS.S3Bucket, s.config.AWS.Region, key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

func (s *StorageService) uploadToLocal(fileBytes []byte, key, contentType string) (*UploadResult, error) {
	path := filepath.Join(localUploadDir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperrors.Storage("failed to create upload directory", err)
	}

	if err := os.WriteFile(path, fileBytes, 0o644); err != nil {
		return nil, apperrors.Storage("failed to write invoice to disk", err)
	}

	return &UploadResult{
		URL:      "/uploads/" + key,
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}, nil
}

// DeleteObject removes a stored invoice blob. Used to clean up after an
// upload whose cycle transition lost a concurrent write.
func (s *StorageService) DeleteObject(key string) error {
	if s.s3Client == nil {
		if err := os.Remove(filepath.Join(localUploadDir, key)); err != nil && !os.IsNotExist(err) {
			return apperrors.Storage("failed to remove invoice from disk", err)
		}
		return nil
	}

	_, err := s.s3Client.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return apperrors.Storage("failed to delete invoice from S3", err)
	}
	return nil
}

// PresignedURL returns a short-lived download link for a stored invoice.
func (s *StorageService) PresignedURL(key string) (string, error) {
	if s.s3Client == nil {
		return "/uploads/" + key, nil
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.AWS.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(15 * time.Minute)
	if err != nil {
		return "", apperrors.Storage("failed to presign invoice URL", err)
	}
	return url, nil
}
