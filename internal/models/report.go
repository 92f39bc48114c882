package models

// RegionSpan is the source position of one side of a match
type RegionSpan struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
	Tokens    int    `json:"tokens"`
}

// RegionPair is a matched region resolved in both submissions
type RegionPair struct {
	A RegionSpan `json:"a"`
	B RegionSpan `json:"b"`
}

// ReportEntry is the render-ready projection of one comparison of a run
type ReportEntry struct {
	LabID       string       `json:"labId"`
	RunID       string       `json:"runId"`
	Index       int          `json:"index"`
	DisplayName string       `json:"displayName"`
	SubmissionA string       `json:"submissionA"`
	SubmissionB string       `json:"submissionB"`
	Similarity  int          `json:"similarity"`
	SimilarityA int          `json:"similarityA"`
	SimilarityB int          `json:"similarityB"`
	Regions     []RegionPair `json:"regions"`
}
