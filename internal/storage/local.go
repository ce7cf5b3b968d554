package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const (
	// CategoryApproved and CategoryRejected are the on-disk buckets and the
	// category labels reported to the caller.
	CategoryApproved = "approved"
	CategoryRejected = "rejected"
)

var nameSanitizer = regexp.MustCompile(`[^0-9A-Za-z_-]`)

// SanitizeName strips everything but word characters and dashes from a
// student identifier so it is safe as a filename and object path.
func SanitizeName(name string) string {
	return nameSanitizer.ReplaceAllString(name, "")
}

// LocalStore writes processed photos under <root>/approved and
// <root>/rejected.
type LocalStore struct {
	root string
	now  func() time.Time
}

// NewLocalStore creates both category directories up front.
func NewLocalStore(root string) (*LocalStore, error) {
	for _, category := range []string{CategoryApproved, CategoryRejected} {
		if err := os.MkdirAll(filepath.Join(root, category), 0o755); err != nil {
			return nil, fmt.Errorf("create %s dir: %w", category, err)
		}
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

// Save writes the encoded photo and returns its category, filename, and
// path. Approved photos keep a stable name so re-submissions overwrite;
// rejected ones get a timestamp suffix so nothing is lost.
func (s *LocalStore) Save(data []byte, approved bool, studentID string) (category, filename, path string, err error) {
	category = CategoryRejected
	if approved {
		category = CategoryApproved
	}

	if approved {
		filename = fmt.Sprintf("%s.jpg", studentID)
	} else {
		filename = fmt.Sprintf("%s_%d.jpg", studentID, s.now().Unix())
	}

	path = filepath.Join(s.root, category, filename)
	if err = os.WriteFile(path, data, 0o644); err != nil {
		return "", "", "", fmt.Errorf("write photo: %w", err)
	}
	return category, filename, path, nil
}
