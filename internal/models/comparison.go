package models

import "time"

// MatchRegion is a half-open token range [StartToken, EndToken) of one submission's merged stream
type MatchRegion struct {
	SubmissionID string `json:"submissionId"`
	File         string `json:"file"`
	StartToken   int    `json:"startToken"`
	EndToken     int    `json:"endToken"`
}

// Len returns the number of tokens in the region
func (r MatchRegion) Len() int {
	return r.EndToken - r.StartToken
}

// Match is one tile: two equal-length regions holding equal token sequences
type Match struct {
	A      MatchRegion `json:"a"`
	B      MatchRegion `json:"b"`
	Length int         `json:"length"`
}

// Comparison is the result of matching one unordered pair of submissions.
// SubmissionA sorts before SubmissionB. Similarity equals SimilarityB, the share of
// the second submission's tokens covered by matches.
type Comparison struct {
	SubmissionA   string  `json:"submissionA"`
	SubmissionB   string  `json:"submissionB"`
	Matches       []Match `json:"matches"`
	Similarity    int     `json:"similarity"`
	SimilarityA   int     `json:"similarityA"`
	SimilarityB   int     `json:"similarityB"`
	MatchedTokens int     `json:"matchedTokens"`
	TokensA       int     `json:"tokensA"`
	TokensB       int     `json:"tokensB"`
}

// Warning records a file that was skipped during a run
type Warning struct {
	SubmissionID string `json:"submissionId"`
	File         string `json:"file"`
	Line         int    `json:"line,omitempty"`
	Column       int    `json:"column,omitempty"`
	Message      string `json:"message"`
}

// ComparisonRun is one immutable execution of the duplicate check over a lab
type ComparisonRun struct {
	LabID             string        `json:"labId"`
	RunID             string        `json:"runId"`
	Language          Language      `json:"language"`
	MinimumTokenMatch int           `json:"minimumTokenMatch"`
	Normalization     Normalization `json:"normalization"`
	CreatedAt         time.Time     `json:"createdAt"`
	SubmissionCount   int           `json:"submissionCount"`
	Comparisons       []Comparison  `json:"comparisons"`
	Warnings          []Warning     `json:"warnings"`
}
