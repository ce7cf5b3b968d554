package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/photo-validator/internal/logging"
)

// ValidationRecord is the persisted outcome of one photo validation.
type ValidationRecord struct {
	ID            uint      `gorm:"primaryKey"`
	RequestID     string    `gorm:"column:request_id;uniqueIndex;size:64"`
	StudentID     string    `gorm:"column:student_id;size:64;index"`
	Approved      bool      `gorm:"column:approved"`
	ByteCount     int       `gorm:"column:byte_count"`
	WhiteFraction float64   `gorm:"column:white_fraction"`
	Issues        string    `gorm:"column:issues;type:text"`
	Category      string    `gorm:"column:category;size:16"`
	Filename      string    `gorm:"column:filename;size:128"`
	PublicURL     string    `gorm:"column:public_url;size:512"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

// TableName overrides the default table name.
func (ValidationRecord) TableName() string {
	return "validation_records"
}

// MetricsAggregation is the raw aggregate used by the metrics endpoint.
type MetricsAggregation struct {
	TotalCount           int64
	ApprovedCount        int64
	AverageByteCount     float64
	AverageWhiteFraction float64
}

// RecordRepository persists validation records with transient-error retry.
type RecordRepository struct {
	db             *gorm.DB
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRecordRepository creates a repository instance.
func NewRecordRepository(db *gorm.DB, logger *zap.Logger) *RecordRepository {
	return &RecordRepository{
		db:             db,
		logger:         logger.Named("record_repository"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// AutoMigrate ensures the schema is available.
func (r *RecordRepository) AutoMigrate(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&ValidationRecord{})
}

// SaveRecord persists one validation outcome.
func (r *RecordRepository) SaveRecord(ctx context.Context, record *ValidationRecord) error {
	return r.executeWithRetry(ctx, "repository.save_record", record.RequestID, func() error {
		return r.db.WithContext(ctx).Create(record).Error
	})
}

// FindByRequestID retrieves a validation record.
func (r *RecordRepository) FindByRequestID(ctx context.Context, requestID string) (*ValidationRecord, error) {
	var record ValidationRecord
	err := r.executeWithRetry(ctx, "repository.find_by_request_id", requestID, func() error {
		return r.db.WithContext(ctx).First(&record, "request_id = ?", requestID).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// AggregateMetrics computes approval statistics over all records.
func (r *RecordRepository) AggregateMetrics(ctx context.Context) (*MetricsAggregation, error) {
	var agg MetricsAggregation
	err := r.executeWithRetry(ctx, "repository.aggregate_metrics", "", func() error {
		return r.db.WithContext(ctx).
			Model(&ValidationRecord{}).
			Select(
				"COUNT(*) AS total_count, " +
					"COALESCE(SUM(CASE WHEN approved THEN 1 ELSE 0 END), 0) AS approved_count, " +
					"COALESCE(AVG(byte_count), 0) AS average_byte_count, " +
					"COALESCE(AVG(white_fraction), 0) AS average_white_fraction").
			Scan(&agg).Error
	})
	if err != nil {
		return nil, err
	}
	return &agg, nil
}

func (r *RecordRepository) executeWithRetry(ctx context.Context, operation, requestID string, fn func() error) error {
	if r.retryAttempts <= 1 {
		return logging.NewOperationError(operation, requestID, fn())
	}

	backoff := r.initialBackoff
	opLogger := logging.WithOperation(r.logger, operation, requestID)
	var err error
	for attempt := 0; attempt < r.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, requestID, ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= r.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("database operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}

		if !isTransientError(err) || attempt == r.retryAttempts-1 {
			opLogger.Error("database operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, requestID, err)
		}

		opLogger.Warn("transient database error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, requestID, err)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
