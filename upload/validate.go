package upload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxFileSizeMB is the largest upload the backend accepts by default.
const DefaultMaxFileSizeMB = 50

// PDFMimeType is the only accepted document type.
const PDFMimeType = "application/pdf"

// ValidationError reports a file rejected before any request is sent.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid upload %s: %s", e.Path, e.Reason)
}

// IsValidationError reports whether err is a *ValidationError.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr)
}

// FileInfo describes a validated upload file.
type FileInfo struct {
	Path     string
	Name     string
	Size     int64
	MimeType string
}

// ValidateFile checks that path is a regular PDF file no larger than
// maxSizeMB megabytes. A maxSizeMB of zero or less uses DefaultMaxFileSizeMB.
func ValidateFile(path string, maxSizeMB int) (*FileInfo, error) {
	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxFileSizeMB
	}

	st, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ValidationError{Path: path, Reason: "file not found"}
		}
		return nil, &ValidationError{Path: path, Reason: err.Error()}
	}
	if !st.Mode().IsRegular() {
		return nil, &ValidationError{Path: path, Reason: "not a regular file"}
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, &ValidationError{Path: path, Reason: "only PDF files are allowed"}
	}
	if st.Size() == 0 {
		return nil, &ValidationError{Path: path, Reason: "file is empty"}
	}
	limit := int64(maxSizeMB) * 1024 * 1024
	if st.Size() > limit {
		return nil, &ValidationError{
			Path:   path,
			Reason: fmt.Sprintf("file too large (%d bytes, maximum %d MB)", st.Size(), maxSizeMB),
		}
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, &ValidationError{Path: path, Reason: fmt.Sprintf("detect content type: %v", err)}
	}
	if !mt.Is(PDFMimeType) {
		return nil, &ValidationError{
			Path:   path,
			Reason: fmt.Sprintf("content is %s, not a PDF", mt.String()),
		}
	}

	return &FileInfo{
		Path:     path,
		Name:     filepath.Base(path),
		Size:     st.Size(),
		MimeType: mt.String(),
	}, nil
}
