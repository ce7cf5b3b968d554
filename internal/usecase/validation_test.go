package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/example/photo-validator/internal/pipeline"
	"github.com/example/photo-validator/internal/repository"
	"github.com/example/photo-validator/internal/storage"
)

type stubPipeline struct {
	result *pipeline.Result
	err    error
	raw    []byte
}

func (s *stubPipeline) Run(raw []byte) (*pipeline.Result, error) {
	s.raw = raw
	return s.result, s.err
}

type stubRepo struct {
	saved   *repository.ValidationRecord
	saveErr error
	found   *repository.ValidationRecord
	findErr error
	agg     *repository.MetricsAggregation
	aggErr  error
	findID  string
}

func (s *stubRepo) SaveRecord(_ context.Context, record *repository.ValidationRecord) error {
	s.saved = record
	return s.saveErr
}

func (s *stubRepo) FindByRequestID(_ context.Context, requestID string) (*repository.ValidationRecord, error) {
	s.findID = requestID
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.found, nil
}

func (s *stubRepo) AggregateMetrics(_ context.Context) (*repository.MetricsAggregation, error) {
	if s.aggErr != nil {
		return nil, s.aggErr
	}
	return s.agg, nil
}

type stubStore struct {
	studentID string
	approved  bool
	saves     int
	err       error
}

func (s *stubStore) Save(_ []byte, approved bool, studentID string) (string, string, string, error) {
	s.saves++
	s.approved = approved
	s.studentID = studentID
	if s.err != nil {
		return "", "", "", s.err
	}
	category := storage.CategoryRejected
	if approved {
		category = storage.CategoryApproved
	}
	return category, studentID + ".jpg", "/photos/" + category + "/" + studentID + ".jpg", nil
}

type stubUploader struct {
	info    storage.UploadInfo
	uploads int
	path    string
}

func (s *stubUploader) Upload(_ context.Context, _ []byte, objectPath string) storage.UploadInfo {
	s.uploads++
	s.path = objectPath
	return s.info
}

type stubCache struct {
	values map[string]string
	setErr error
}

func (s *stubCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if s.setErr != nil {
		return s.setErr
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value.(string)
	return nil
}

func (s *stubCache) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.values[key]; ok {
		return v, nil
	}
	return "", errors.New("cache miss")
}

func approvedResult() *pipeline.Result {
	return &pipeline.Result{
		Encoded:       []byte("jpeg-bytes"),
		Width:         240,
		Height:        288,
		ByteCount:     10,
		Quality:       80,
		WhiteFraction: 0.92,
		Approved:      true,
	}
}

func newTestUseCase(pipe *stubPipeline, repo *stubRepo, store *stubStore, uploader *stubUploader, cache *stubCache) *ValidationUseCase {
	return NewValidationUseCase(pipe, repo, store, uploader, cache, zap.NewNop())
}

func TestValidatePhotoApprovedUploadsAndPersists(t *testing.T) {
	pipe := &stubPipeline{result: approvedResult()}
	repo := &stubRepo{}
	store := &stubStore{}
	uploader := &stubUploader{info: storage.UploadInfo{OK: true, PublicURL: "https://cdn/approved/12345678.jpg"}}
	cache := &stubCache{}
	uc := newTestUseCase(pipe, repo, store, uploader, cache)

	resp, err := uc.ValidatePhoto(context.Background(), "12345678", []byte("raw"), language.Spanish)
	if err != nil {
		t.Fatalf("ValidatePhoto: %v", err)
	}
	if !resp.OK {
		t.Fatal("expected approved response")
	}
	if len(resp.Issues) != 0 {
		t.Fatalf("approved response must have no issues, got %v", resp.Issues)
	}
	if uploader.uploads != 1 {
		t.Fatalf("expected one upload, got %d", uploader.uploads)
	}
	if uploader.path != "approved/12345678.jpg" {
		t.Fatalf("unexpected object path %s", uploader.path)
	}
	if repo.saved == nil {
		t.Fatal("record was not persisted")
	}
	if !repo.saved.Approved || repo.saved.PublicURL != uploader.info.PublicURL {
		t.Fatalf("unexpected record %+v", repo.saved)
	}
	if resp.StorageURL != uploader.info.PublicURL {
		t.Fatalf("unexpected storage url %s", resp.StorageURL)
	}
	if !strings.HasPrefix(resp.DataURL, "data:image/jpeg;base64,") {
		t.Fatalf("unexpected data url %s", resp.DataURL)
	}
	if len(cache.values) != 1 {
		t.Fatalf("expected cached record, got %d entries", len(cache.values))
	}
}

func TestValidatePhotoUploadFailureIsDiagnostic(t *testing.T) {
	pipe := &stubPipeline{result: approvedResult()}
	repo := &stubRepo{}
	uploader := &stubUploader{info: storage.UploadInfo{OK: false, Error: "upload_failed_503"}}
	uc := newTestUseCase(pipe, repo, &stubStore{}, uploader, &stubCache{})

	resp, err := uc.ValidatePhoto(context.Background(), "12345678", []byte("raw"), language.Spanish)
	if err != nil {
		t.Fatalf("upload failure must not fail the request: %v", err)
	}
	if !resp.OK {
		t.Fatal("verdict must not depend on the upload")
	}
	if resp.Storage == nil || resp.Storage.Error != "upload_failed_503" {
		t.Fatalf("expected diagnostic storage info, got %+v", resp.Storage)
	}
	if resp.StorageURL != "" {
		t.Fatalf("unexpected storage url %s", resp.StorageURL)
	}
	if repo.saved == nil {
		t.Fatal("record must still be persisted")
	}
}

func TestValidatePhotoRejectedSkipsUpload(t *testing.T) {
	result := approvedResult()
	result.Approved = false
	result.Issues = []pipeline.Issue{{Code: pipeline.IssueBackground}}
	pipe := &stubPipeline{result: result}
	uploader := &stubUploader{}
	store := &stubStore{}
	uc := newTestUseCase(pipe, &stubRepo{}, store, uploader, &stubCache{})

	resp, err := uc.ValidatePhoto(context.Background(), "12345678", []byte("raw"), language.Spanish)
	if err != nil {
		t.Fatalf("ValidatePhoto: %v", err)
	}
	if resp.OK {
		t.Fatal("expected rejection")
	}
	if len(resp.Issues) != 1 {
		t.Fatalf("expected one rendered issue, got %v", resp.Issues)
	}
	if uploader.uploads != 0 {
		t.Fatal("rejected photos must not be uploaded")
	}
	if store.approved {
		t.Fatal("photo must be filed as rejected")
	}
	if resp.Category != storage.CategoryRejected {
		t.Fatalf("unexpected category %s", resp.Category)
	}
}

func TestValidatePhotoUndecodableUpload(t *testing.T) {
	pipe := &stubPipeline{err: &pipeline.DecodeError{Err: errors.New("image: unknown format")}}
	repo := &stubRepo{}
	store := &stubStore{}
	uc := newTestUseCase(pipe, repo, store, &stubUploader{}, &stubCache{})

	resp, err := uc.ValidatePhoto(context.Background(), "12345678", []byte("not an image"), language.Spanish)
	if err != nil {
		t.Fatalf("undecodable input is a rejection, not an error: %v", err)
	}
	if resp.OK {
		t.Fatal("expected rejection")
	}
	if len(resp.Issues) != 1 {
		t.Fatalf("expected a single issue, got %v", resp.Issues)
	}
	if resp.RequestID == "" {
		t.Fatal("response must carry a request id")
	}
	if store.saves != 0 {
		t.Fatal("nothing to save for undecodable input")
	}
	if repo.saved != nil {
		t.Fatal("nothing to persist for undecodable input")
	}
}

func TestValidatePhotoRepositoryErrorPropagates(t *testing.T) {
	pipe := &stubPipeline{result: approvedResult()}
	repo := &stubRepo{saveErr: errors.New("connection refused")}
	uc := newTestUseCase(pipe, repo, &stubStore{}, &stubUploader{info: storage.UploadInfo{OK: true}}, &stubCache{})

	if _, err := uc.ValidatePhoto(context.Background(), "12345678", []byte("raw"), language.Spanish); err == nil {
		t.Fatal("expected persistence error to propagate")
	}
}

func TestValidatePhotoSanitizesStudentID(t *testing.T) {
	pipe := &stubPipeline{result: approvedResult()}
	store := &stubStore{}
	uc := newTestUseCase(pipe, &stubRepo{}, store, &stubUploader{info: storage.UploadInfo{OK: true}}, &stubCache{})

	if _, err := uc.ValidatePhoto(context.Background(), "../12 34", []byte("raw"), language.Spanish); err != nil {
		t.Fatalf("ValidatePhoto: %v", err)
	}
	if store.studentID != "1234" {
		t.Fatalf("expected sanitized id, got %q", store.studentID)
	}

	if _, err := uc.ValidatePhoto(context.Background(), "   ", []byte("raw"), language.Spanish); err != nil {
		t.Fatalf("ValidatePhoto: %v", err)
	}
	if store.studentID != "unknown_user" {
		t.Fatalf("expected fallback id, got %q", store.studentID)
	}
}

func TestValidatePhotoCacheFailureIsBestEffort(t *testing.T) {
	pipe := &stubPipeline{result: approvedResult()}
	cache := &stubCache{setErr: errors.New("redis down")}
	uc := newTestUseCase(pipe, &stubRepo{}, &stubStore{}, &stubUploader{info: storage.UploadInfo{OK: true}}, cache)

	if _, err := uc.ValidatePhoto(context.Background(), "12345678", []byte("raw"), language.Spanish); err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
}

func TestGetResultPrefersCache(t *testing.T) {
	pipe := &stubPipeline{result: approvedResult()}
	repo := &stubRepo{findErr: errors.New("must not hit the database")}
	cache := &stubCache{}
	uc := newTestUseCase(pipe, repo, &stubStore{}, &stubUploader{info: storage.UploadInfo{OK: true}}, cache)

	resp, err := uc.ValidatePhoto(context.Background(), "12345678", []byte("raw"), language.Spanish)
	if err != nil {
		t.Fatalf("ValidatePhoto: %v", err)
	}

	record, err := uc.GetResult(context.Background(), resp.RequestID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if record.RequestID != resp.RequestID || record.StudentID != "12345678" || !record.Approved {
		t.Fatalf("unexpected cached record %+v", record)
	}
}

func TestGetResultFallsBackToRepository(t *testing.T) {
	want := &repository.ValidationRecord{RequestID: "req-42", StudentID: "12345678"}
	repo := &stubRepo{found: want}
	uc := newTestUseCase(&stubPipeline{}, repo, &stubStore{}, &stubUploader{}, &stubCache{})

	record, err := uc.GetResult(context.Background(), "req-42")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if record != want {
		t.Fatalf("unexpected record %+v", record)
	}
	if repo.findID != "req-42" {
		t.Fatalf("unexpected lookup id %s", repo.findID)
	}
}

func TestGetMetricsSummary(t *testing.T) {
	repo := &stubRepo{agg: &repository.MetricsAggregation{
		TotalCount:           10,
		ApprovedCount:        7,
		AverageByteCount:     48000,
		AverageWhiteFraction: 0.81,
	}}
	uc := newTestUseCase(&stubPipeline{}, repo, &stubStore{}, &stubUploader{}, &stubCache{})

	summary, err := uc.GetMetricsSummary(context.Background())
	if err != nil {
		t.Fatalf("GetMetricsSummary: %v", err)
	}
	if summary.TotalRequests != 10 || summary.ApprovedRequests != 7 {
		t.Fatalf("unexpected counts %+v", summary)
	}
	if summary.ApprovalRate != 0.7 {
		t.Fatalf("unexpected approval rate %f", summary.ApprovalRate)
	}
}

func TestGetMetricsSummaryEmpty(t *testing.T) {
	repo := &stubRepo{agg: &repository.MetricsAggregation{}}
	uc := newTestUseCase(&stubPipeline{}, repo, &stubStore{}, &stubUploader{}, &stubCache{})

	summary, err := uc.GetMetricsSummary(context.Background())
	if err != nil {
		t.Fatalf("GetMetricsSummary: %v", err)
	}
	if summary.ApprovalRate != 0 {
		t.Fatalf("expected zero approval rate, got %f", summary.ApprovalRate)
	}
}
