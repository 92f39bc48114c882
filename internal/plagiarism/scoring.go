package plagiarism

import (
	"sort"
	"strings"

	"github.com/RishiKendai/labscan/internal/models"
)

// Compare matches one unordered pair and scores it. The pair is canonicalized so that
// SubmissionA sorts before SubmissionB under CompareIDs.
func Compare(a, b *models.Submission, minMatch int, norm models.Normalization) models.Comparison {
	if CompareIDs(a.ID, b.ID) > 0 {
		a, b = b, a
	}
	matches := Match(a, b, minMatch, norm)
	if matches == nil {
		matches = []models.Match{}
	}
	c := models.Comparison{
		SubmissionA: a.ID,
		SubmissionB: b.ID,
		Matches:     matches,
		TokensA:     a.TokenCount(),
		TokensB:     b.TokenCount(),
	}
	Score(&c)
	return c
}

// Score fills the similarity fields of c from its matches.
// Similarity is the share of the second submission's tokens covered by tiles.
func Score(c *models.Comparison) {
	matched := 0
	for _, m := range c.Matches {
		matched += m.Length
	}
	c.MatchedTokens = matched
	c.SimilarityA = percent(matched, c.TokensA)
	c.SimilarityB = percent(matched, c.TokensB)
	c.Similarity = c.SimilarityB
}

// percent returns round(100*part/total) clamped to [0, 100], or 0 for an empty total
func percent(part, total int) int {
	if total <= 0 || part <= 0 {
		return 0
	}
	p := (200*part + total) / (2 * total)
	if p > 100 {
		return 100
	}
	return p
}

// CompareIDs orders submission ids numerically when both are decimal numbers and lexically otherwise
func CompareIDs(a, b string) int {
	if isDecimal(a) && isDecimal(b) {
		ta, tb := strings.TrimLeft(a, "0"), strings.TrimLeft(b, "0")
		if len(ta) != len(tb) {
			if len(ta) < len(tb) {
				return -1
			}
			return 1
		}
		if c := strings.Compare(ta, tb); c != 0 {
			return c
		}
	}
	return strings.Compare(a, b)
}

func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// SortComparisons orders by descending similarity, then by (SubmissionA, SubmissionB)
func SortComparisons(cs []models.Comparison) {
	sort.SliceStable(cs, func(i, j int) bool {
		if cs[i].Similarity != cs[j].Similarity {
			return cs[i].Similarity > cs[j].Similarity
		}
		if c := CompareIDs(cs[i].SubmissionA, cs[j].SubmissionA); c != 0 {
			return c < 0
		}
		return CompareIDs(cs[i].SubmissionB, cs[j].SubmissionB) < 0
	})
}
