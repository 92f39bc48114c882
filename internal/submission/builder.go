// Package submission builds comparable submissions out of a student's files and
// acquires those files from a lab workspace.
package submission

import (
	"errors"
	"sort"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/RishiKendai/labscan/internal/tokenizer"
	"github.com/rs/zerolog/log"
)

// Build tokenizes every file of raw that belongs to tk's language and merges them into one submission.
// Files that fail with a malformed source error are skipped and reported as warnings.
func Build(raw models.RawSubmission, tk tokenizer.Tokenizer) (*models.Submission, []models.Warning, error) {
	files := make([]models.RawFile, 0, len(raw.Files))
	for _, f := range raw.Files {
		if tk.Accepts(f.Path) {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var warnings []models.Warning
	sources := make([]models.SourceFile, 0, len(files))
	for _, f := range files {
		tokens, err := tk.Tokenize(f.Path, DecodeText(f.Content))
		if err != nil {
			var mse *apperr.MalformedSourceError
			if !errors.As(err, &mse) {
				return nil, nil, err
			}
			log.Warn().
				Str("submissionId", raw.ID).
				Str("file", f.Path).
				Int("line", mse.Line).
				Msg("Skipping malformed source file")
			warnings = append(warnings, models.Warning{
				SubmissionID: raw.ID,
				File:         f.Path,
				Line:         mse.Line,
				Column:       mse.Column,
				Message:      mse.Reason,
			})
			continue
		}
		sources = append(sources, models.SourceFile{Path: f.Path, Tokens: tokens})
	}

	return New(raw.ID, tk.Language(), sources), warnings, nil
}

// New merges already tokenized files into a submission, keeping the given file order
func New(id string, lang models.Language, files []models.SourceFile) *models.Submission {
	total := 0
	for _, f := range files {
		total += len(f.Tokens)
	}
	sub := &models.Submission{
		ID:         id,
		Language:   lang,
		Files:      files,
		Tokens:     make([]models.Token, 0, total),
		FileStarts: make([]int, len(files)),
		FileOf:     make([]int, 0, total),
	}
	for i, f := range files {
		sub.FileStarts[i] = len(sub.Tokens)
		sub.Tokens = append(sub.Tokens, f.Tokens...)
		for range f.Tokens {
			sub.FileOf = append(sub.FileOf, i)
		}
	}
	return sub
}

// Locate maps an index of the merged stream back to its file and token
func Locate(sub *models.Submission, index int) (file string, tok models.Token, ok bool) {
	if sub == nil || index < 0 || index >= len(sub.Tokens) {
		return "", models.Token{}, false
	}
	return sub.Files[sub.FileOf[index]].Path, sub.Tokens[index], true
}
