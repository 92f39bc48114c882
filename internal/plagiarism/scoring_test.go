package plagiarism

import (
	"testing"

	"github.com/RishiKendai/labscan/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, percent(0, 0))
	assert.Equal(t, 0, percent(3, 0))
	assert.Equal(t, 25, percent(3, 12))
	assert.Equal(t, 33, percent(1, 3))
	assert.Equal(t, 67, percent(2, 3))
	assert.Equal(t, 50, percent(1, 2))
	assert.Equal(t, 100, percent(12, 12))
	assert.Equal(t, 100, percent(13, 12))
}

func TestScoreUsesSecondSubmission(t *testing.T) {
	c := models.Comparison{
		Matches: []models.Match{{Length: 6}, {Length: 4}},
		TokensA: 40,
		TokensB: 20,
	}
	Score(&c)

	assert.Equal(t, 10, c.MatchedTokens)
	assert.Equal(t, 25, c.SimilarityA)
	assert.Equal(t, 50, c.SimilarityB)
	assert.Equal(t, c.SimilarityB, c.Similarity)
}

func TestCompareIDs(t *testing.T) {
	assert.Negative(t, CompareIDs("2", "10"))
	assert.Positive(t, CompareIDs("10", "9"))
	assert.Zero(t, CompareIDs("42", "42"))
	assert.Negative(t, CompareIDs("007", "8"))
	assert.Negative(t, CompareIDs("007", "7"))
	assert.Negative(t, CompareIDs("alice", "bob"))
	assert.Negative(t, CompareIDs("10", "9a"))
}

func TestSortComparisons(t *testing.T) {
	cs := []models.Comparison{
		{SubmissionA: "2", SubmissionB: "3", Similarity: 25},
		{SubmissionA: "10", SubmissionB: "11", Similarity: 90},
		{SubmissionA: "1", SubmissionB: "3", Similarity: 25},
		{SubmissionA: "1", SubmissionB: "2", Similarity: 100},
		{SubmissionA: "1", SubmissionB: "10", Similarity: 25},
	}
	SortComparisons(cs)

	got := make([][2]string, len(cs))
	for i, c := range cs {
		got[i] = [2]string{c.SubmissionA, c.SubmissionB}
	}
	assert.Equal(t, [][2]string{
		{"1", "2"},
		{"10", "11"},
		{"1", "3"},
		{"1", "10"},
		{"2", "3"},
	}, got)
}
