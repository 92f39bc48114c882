package submission

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/rs/zerolog/log"
)

// Source lists the submissions of a lab
type Source interface {
	// ListSubmissions fails with apperr.ErrSubmissionsNotFound when the lab has no submissions
	ListSubmissions(ctx context.Context, labID string) ([]models.RawSubmission, error)
}

// DirSource reads submissions from a workspace directory laid out as
// <root>/workspace-<labID>/<studentID>/...
type DirSource struct {
	root string
}

func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// LabDir returns the directory holding the submissions of labID
func (d *DirSource) LabDir(labID string) string {
	return filepath.Join(d.root, "workspace-"+labID)
}

func (d *DirSource) ListSubmissions(ctx context.Context, labID string) ([]models.RawSubmission, error) {
	dir := d.LabDir(labID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: lab %s", apperr.ErrSubmissionsNotFound, labID)
		}
		return nil, apperr.Storage("read workspace", err)
	}

	var subs []models.RawSubmission
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := readTree(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		subs = append(subs, models.RawSubmission{ID: e.Name(), Files: files})
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("%w: lab %s", apperr.ErrSubmissionsNotFound, labID)
	}

	log.Debug().Str("labId", labID).Int("submissions", len(subs)).Msg("Loaded workspace submissions")
	return subs, nil
}

// readTree returns every regular file below root with slash separated paths relative to root.
// Unreadable files are skipped.
func readTree(root string) ([]models.RawFile, error) {
	var files []models.RawFile
	err := filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable workspace entry")
			return nil
		}
		if !e.Type().IsRegular() {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Skipping unreadable workspace file")
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, models.RawFile{Path: filepath.ToSlash(rel), Content: content})
		return nil
	})
	if err != nil {
		return nil, apperr.Storage("walk submission", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}
