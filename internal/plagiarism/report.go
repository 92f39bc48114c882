package plagiarism

import (
	"fmt"

	"github.com/RishiKendai/labscan/internal/models"
)

// DisplayName is the human readable title of a comparison
func DisplayName(c models.Comparison) string {
	return fmt.Sprintf("%s vs %s (%d%%)", c.SubmissionA, c.SubmissionB, c.Similarity)
}

// BuildReportEntries resolves every comparison of run into render-ready regions.
// subs must hold every submission the run compares, keyed by id.
func BuildReportEntries(run *models.ComparisonRun, subs map[string]*models.Submission) ([]models.ReportEntry, error) {
	entries := make([]models.ReportEntry, 0, len(run.Comparisons))
	for i, c := range run.Comparisons {
		a, b := subs[c.SubmissionA], subs[c.SubmissionB]
		if a == nil || b == nil {
			return nil, fmt.Errorf("comparison %d references an unknown submission", i)
		}

		regions := make([]models.RegionPair, 0, len(c.Matches))
		for _, m := range c.Matches {
			ra, err := span(a, m.A)
			if err != nil {
				return nil, err
			}
			rb, err := span(b, m.B)
			if err != nil {
				return nil, err
			}
			regions = append(regions, models.RegionPair{A: ra, B: rb})
		}

		entries = append(entries, models.ReportEntry{
			LabID:       run.LabID,
			RunID:       run.RunID,
			Index:       i,
			DisplayName: DisplayName(c),
			SubmissionA: c.SubmissionA,
			SubmissionB: c.SubmissionB,
			Similarity:  c.Similarity,
			SimilarityA: c.SimilarityA,
			SimilarityB: c.SimilarityB,
			Regions:     regions,
		})
	}
	return entries, nil
}

// span covers the region from the start of its first token to the end of its last
func span(sub *models.Submission, r models.MatchRegion) (models.RegionSpan, error) {
	if r.StartToken < 0 || r.EndToken > len(sub.Tokens) || r.StartToken >= r.EndToken {
		return models.RegionSpan{}, fmt.Errorf("region [%d,%d) out of range for submission %s", r.StartToken, r.EndToken, sub.ID)
	}
	first, last := sub.Tokens[r.StartToken], sub.Tokens[r.EndToken-1]
	return models.RegionSpan{
		File:      r.File,
		Line:      first.Line,
		Column:    first.Column,
		EndLine:   last.EndLine,
		EndColumn: last.EndColumn,
		Tokens:    r.Len(),
	}, nil
}
