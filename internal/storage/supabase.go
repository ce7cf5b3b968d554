// Package storage holds the external persistence collaborators: the remote
// object-storage uploader and the local photo directory. The pipeline never
// touches either; the use case layer sequences them around the pipeline call.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// UploadInfo is the diagnostic record of one upload attempt. Upload failures
// are reported here, never as errors: a broken bucket must not fail an
// otherwise approved photo.
type UploadInfo struct {
	OK        bool   `json:"ok"`
	PublicURL string `json:"public_url,omitempty"`
	Status    int    `json:"status,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Uploader pushes encoded photo bytes to remote object storage.
type Uploader interface {
	Upload(ctx context.Context, data []byte, objectPath string) UploadInfo
}

// SupabaseUploader posts JPEG bytes to a Supabase storage bucket using the
// service-role key. One attempt per photo, bounded by the configured timeout.
type SupabaseUploader struct {
	baseURL    string
	serviceKey string
	bucket     string
	timeout    time.Duration
	client     *http.Client
	logger     *zap.Logger
}

// NewSupabaseUploader builds an uploader. baseURL or serviceKey may be empty;
// uploads then report storage_not_configured instead of being attempted.
func NewSupabaseUploader(baseURL, serviceKey, bucket string, timeout time.Duration, logger *zap.Logger) *SupabaseUploader {
	return &SupabaseUploader{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		timeout:    timeout,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.Named("supabase"),
	}
}

// Upload sends the photo to <bucket>/<objectPath>, overwriting any previous
// object at that path.
func (u *SupabaseUploader) Upload(ctx context.Context, data []byte, objectPath string) UploadInfo {
	if u.baseURL == "" || u.serviceKey == "" {
		u.logger.Warn("storage not configured, skipping upload")
		return UploadInfo{Error: "storage_not_configured"}
	}

	objectPath = strings.TrimPrefix(objectPath, "/")
	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", u.baseURL, u.bucket, objectPath)

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return UploadInfo{Error: fmt.Sprintf("build_request: %v", err)}
	}
	req.Header.Set("apikey", u.serviceKey)
	req.Header.Set("Authorization", "Bearer "+u.serviceKey)
	req.Header.Set("Content-Type", "image/jpeg")
	req.Header.Set("x-upsert", "true")

	resp, err := u.client.Do(req)
	if err != nil {
		u.logger.Warn("upload failed", zap.Error(err), zap.String("path", objectPath))
		return UploadInfo{Error: fmt.Sprintf("upload_error: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		u.logger.Warn("upload rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("path", objectPath),
			zap.ByteString("body", body))
		return UploadInfo{
			Status: resp.StatusCode,
			Error:  fmt.Sprintf("upload_failed_%d", resp.StatusCode),
		}
	}

	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", u.baseURL, u.bucket, objectPath)
	u.logger.Info("uploaded", zap.String("public_url", publicURL))
	return UploadInfo{OK: true, PublicURL: publicURL, Status: resp.StatusCode}
}
