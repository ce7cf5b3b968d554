package usecase

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/example/photo-validator/internal/catalog"
	"github.com/example/photo-validator/internal/logging"
	"github.com/example/photo-validator/internal/pipeline"
	"github.com/example/photo-validator/internal/repository"
	"github.com/example/photo-validator/internal/storage"
)

const cacheTTL = 24 * time.Hour

// PhotoPipeline is the pure validation core as seen from the use case.
type PhotoPipeline interface {
	Run(raw []byte) (*pipeline.Result, error)
}

// RecordRepository defines the persistence operations needed by the use case.
type RecordRepository interface {
	SaveRecord(ctx context.Context, record *repository.ValidationRecord) error
	FindByRequestID(ctx context.Context, requestID string) (*repository.ValidationRecord, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// PhotoStore writes processed photos to the local photo directory.
type PhotoStore interface {
	Save(data []byte, approved bool, studentID string) (category, filename, path string, err error)
}

// ValidationResponse is the caller-facing outcome of one submission.
type ValidationResponse struct {
	RequestID     string              `json:"request_id"`
	OK            bool                `json:"ok"`
	Issues        []string            `json:"issues"`
	Width         int                 `json:"width"`
	Height        int                 `json:"height"`
	Bytes         int                 `json:"bytes"`
	WhiteFraction float64             `json:"background_white_fraction"`
	Category      string              `json:"category,omitempty"`
	Filename      string              `json:"filename,omitempty"`
	DataURL       string              `json:"data_url,omitempty"`
	StorageURL    string              `json:"storage_url,omitempty"`
	Storage       *storage.UploadInfo `json:"storage,omitempty"`
}

// ValidationUseCase sequences the pure pipeline between its collaborators:
// filesystem save, record persistence, result cache, and remote upload.
type ValidationUseCase struct {
	pipe     PhotoPipeline
	repo     RecordRepository
	store    PhotoStore
	uploader storage.Uploader
	cache    Cache
	logger   *zap.Logger
}

// NewValidationUseCase constructs a use case instance.
func NewValidationUseCase(pipe PhotoPipeline, repo RecordRepository, store PhotoStore, uploader storage.Uploader, cache Cache, logger *zap.Logger) *ValidationUseCase {
	return &ValidationUseCase{
		pipe:     pipe,
		repo:     repo,
		store:    store,
		uploader: uploader,
		cache:    cache,
		logger:   logger.Named("validation_usecase"),
	}
}

// ValidatePhoto runs the pipeline over an uploaded photo and, depending on
// the verdict, saves it locally, persists the record, and uploads approved
// photos to remote storage. Upload failures are diagnostic, never fatal.
func (uc *ValidationUseCase) ValidatePhoto(ctx context.Context, studentID string, raw []byte, locale language.Tag) (*ValidationResponse, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.validate_photo", requestID)

	studentID = storage.SanitizeName(studentID)
	if studentID == "" {
		studentID = "unknown_user"
	}

	result, err := uc.pipe.Run(raw)
	if err != nil {
		var decodeErr *pipeline.DecodeError
		if errors.As(err, &decodeErr) {
			opLogger.Info("rejected undecodable upload", zap.Error(decodeErr))
			return &ValidationResponse{
				RequestID: requestID,
				Issues:    catalog.RenderAll(locale, []pipeline.Issue{{Code: pipeline.IssueInvalidImage}}),
			}, nil
		}
		wrapped := logging.NewOperationError("usecase.run_pipeline", requestID, err)
		opLogger.Error("pipeline failed", zap.Error(wrapped))
		return nil, wrapped
	}

	issues := catalog.RenderAll(locale, result.Issues)

	category, filename, path, err := uc.store.Save(result.Encoded, result.Approved, studentID)
	if err != nil {
		wrapped := logging.NewOperationError("usecase.save_photo", requestID, err)
		opLogger.Error("failed to save photo locally", zap.Error(wrapped))
		return nil, wrapped
	}

	var uploadInfo *storage.UploadInfo
	publicURL := ""
	if result.Approved {
		info := uc.uploader.Upload(ctx, result.Encoded, fmt.Sprintf("%s/%s", storage.CategoryApproved, filename))
		uploadInfo = &info
		publicURL = info.PublicURL
	}

	record := &repository.ValidationRecord{
		RequestID:     requestID,
		StudentID:     studentID,
		Approved:      result.Approved,
		ByteCount:     result.ByteCount,
		WhiteFraction: result.WhiteFraction,
		Issues:        strings.Join(issues, "; "),
		Category:      category,
		Filename:      filename,
		PublicURL:     publicURL,
		CreatedAt:     time.Now().UTC(),
	}
	if err := uc.repo.SaveRecord(ctx, record); err != nil {
		opLogger.Error("failed to persist validation record", zap.Error(err))
		return nil, err
	}

	uc.cacheRecord(ctx, requestID, record, opLogger)

	opLogger.Info("photo validated",
		zap.String("student_id", studentID),
		zap.Bool("approved", result.Approved),
		zap.Int("bytes", result.ByteCount),
		zap.Float64("white_fraction", result.WhiteFraction),
		zap.String("local_path", path),
		zap.Bool("uploaded", publicURL != ""),
	)

	return &ValidationResponse{
		RequestID:     requestID,
		OK:            result.Approved,
		Issues:        issues,
		Width:         result.Width,
		Height:        result.Height,
		Bytes:         result.ByteCount,
		WhiteFraction: result.WhiteFraction,
		Category:      category,
		Filename:      filename,
		DataURL:       "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(result.Encoded),
		StorageURL:    publicURL,
		Storage:       uploadInfo,
	}, nil
}

type cachedRecord struct {
	RequestID     string    `json:"request_id"`
	StudentID     string    `json:"student_id"`
	Approved      bool      `json:"approved"`
	ByteCount     int       `json:"byte_count"`
	WhiteFraction float64   `json:"white_fraction"`
	Issues        string    `json:"issues"`
	Category      string    `json:"category"`
	Filename      string    `json:"filename"`
	PublicURL     string    `json:"public_url"`
	CreatedAt     time.Time `json:"created_at"`
}

// cacheRecord is best effort: a cold cache only costs a database read.
func (uc *ValidationUseCase) cacheRecord(ctx context.Context, requestID string, record *repository.ValidationRecord, opLogger *zap.Logger) {
	payload, err := json.Marshal(cachedRecord{
		RequestID:     record.RequestID,
		StudentID:     record.StudentID,
		Approved:      record.Approved,
		ByteCount:     record.ByteCount,
		WhiteFraction: record.WhiteFraction,
		Issues:        record.Issues,
		Category:      record.Category,
		Filename:      record.Filename,
		PublicURL:     record.PublicURL,
		CreatedAt:     record.CreatedAt,
	})
	if err != nil {
		opLogger.Warn("failed to serialize record for cache", zap.Error(err))
		return
	}
	if err := uc.cache.Set(ctx, cacheKey(requestID), string(payload), cacheTTL); err != nil {
		opLogger.Warn("failed to cache validation record", zap.Error(err))
	}
}

// GetResult retrieves a validation record, preferring the cache.
func (uc *ValidationUseCase) GetResult(ctx context.Context, requestID string) (*repository.ValidationRecord, error) {
	opLogger := logging.WithOperation(uc.logger, "usecase.get_result", requestID)

	if cached, err := uc.cache.Get(ctx, cacheKey(requestID)); err == nil {
		var payload cachedRecord
		if err := json.Unmarshal([]byte(cached), &payload); err != nil {
			opLogger.Warn("failed to decode cached record", zap.Error(err))
		} else {
			return &repository.ValidationRecord{
				RequestID:     payload.RequestID,
				StudentID:     payload.StudentID,
				Approved:      payload.Approved,
				ByteCount:     payload.ByteCount,
				WhiteFraction: payload.WhiteFraction,
				Issues:        payload.Issues,
				Category:      payload.Category,
				Filename:      payload.Filename,
				PublicURL:     payload.PublicURL,
				CreatedAt:     payload.CreatedAt,
			}, nil
		}
	}

	return uc.repo.FindByRequestID(ctx, requestID)
}

func cacheKey(requestID string) string {
	return fmt.Sprintf("validation:%s", requestID)
}
