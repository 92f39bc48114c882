// Package ingest stores submission files arriving on the ingest stream.
package ingest

import (
	"context"
	"encoding/base64"
	"fmt"
	"path"
	"strings"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/metrics"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/rs/zerolog/log"
)

// FileStore persists one submission file
type FileStore interface {
	UpsertFile(ctx context.Context, file *models.StoredFile) error
}

const DefaultMaxFileSize = 1 << 20

type Service struct {
	store       FileStore
	maxFileSize int
}

func NewService(store FileStore, maxFileSize int) *Service {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	return &Service{
		store:       store,
		maxFileSize: maxFileSize,
	}
}

// ProcessSubmission validates one ingested file and stores it.
// Validation failures wrap apperr.ErrInvalidArgument and are not worth retrying.
func (s *Service) ProcessSubmission(ctx context.Context, msg *models.IngestMessage) error {
	file, err := s.toStoredFile(msg)
	if err != nil {
		metrics.IngestCount.WithLabelValues("rejected").Inc()
		return err
	}

	if err := s.store.UpsertFile(ctx, file); err != nil {
		metrics.IngestCount.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to store submission file: %w", err)
	}

	metrics.IngestCount.WithLabelValues("stored").Inc()
	log.Debug().
		Str("labId", file.LabID).
		Str("studentId", file.StudentID).
		Str("path", file.Path).
		Int("bytes", len(file.Content)).
		Msg("Stored submission file")
	return nil
}

func (s *Service) toStoredFile(msg *models.IngestMessage) (*models.StoredFile, error) {
	labID := strings.TrimSpace(msg.LabID)
	studentID := strings.TrimSpace(msg.StudentID)
	if labID == "" || studentID == "" {
		return nil, fmt.Errorf("%w: labId and studentId are required", apperr.ErrInvalidArgument)
	}
	if strings.Contains(labID, "/") || strings.Contains(studentID, "/") {
		return nil, fmt.Errorf("%w: ids must not contain '/'", apperr.ErrInvalidArgument)
	}

	p, err := cleanPath(msg.Path)
	if err != nil {
		return nil, err
	}

	var content []byte
	switch strings.ToLower(msg.Encoding) {
	case "":
		content = []byte(msg.Content)
	case "base64":
		content, err = base64.StdEncoding.DecodeString(msg.Content)
		if err != nil {
			return nil, fmt.Errorf("%w: content is not valid base64: %v", apperr.ErrInvalidArgument, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown encoding %q", apperr.ErrInvalidArgument, msg.Encoding)
	}
	if len(content) > s.maxFileSize {
		return nil, fmt.Errorf("%w: file %s exceeds %d bytes", apperr.ErrInvalidArgument, p, s.maxFileSize)
	}

	return &models.StoredFile{
		LabID:     labID,
		StudentID: studentID,
		Path:      p,
		Content:   content,
	}, nil
}

// cleanPath returns p as a clean relative slash path that stays inside the submission
func cleanPath(p string) (string, error) {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return "", fmt.Errorf("%w: path is required", apperr.ErrInvalidArgument)
	}
	cleaned := path.Clean(strings.TrimLeft(p, "/"))
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: path %q escapes the submission", apperr.ErrInvalidArgument, p)
	}
	return cleaned, nil
}
