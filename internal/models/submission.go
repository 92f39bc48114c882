package models

import "time"

// RawFile is one file of a submission as handed over by acquisition
type RawFile struct {
	Path    string
	Content []byte
}

// RawSubmission is a student's untokenized files for one lab
type RawSubmission struct {
	ID    string
	Files []RawFile
}

// SourceFile is one tokenized file of a submission
type SourceFile struct {
	Path   string  `json:"path"`
	Tokens []Token `json:"tokens"`
}

// Submission is one student's tokenized files for one lab, merged into a single stream.
// Built once by the submission package and never mutated afterwards.
type Submission struct {
	ID       string       `json:"id"`
	Language Language     `json:"language"`
	Files    []SourceFile `json:"files"`

	// Tokens is the concatenation of every file's tokens in file order.
	Tokens []Token `json:"-"`
	// FileStarts[i] is the index in Tokens of the first token of Files[i].
	FileStarts []int `json:"-"`
	// FileOf[k] is the index in Files of the file holding Tokens[k].
	FileOf []int `json:"-"`
}

// TokenCount returns the length of the merged token stream
func (s *Submission) TokenCount() int {
	if s == nil {
		return 0
	}
	return len(s.Tokens)
}

// StoredFile is a submission file ingested into MongoDB
type StoredFile struct {
	LabID     string    `bson:"labId" json:"labId"`
	StudentID string    `bson:"studentId" json:"studentId"`
	Path      string    `bson:"path" json:"path"`
	Content   []byte    `bson:"content" json:"content"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// IngestMessage is a submission file arriving on the ingest stream
type IngestMessage struct {
	LabID     string `json:"labId"`
	StudentID string `json:"studentId"`
	Path      string `json:"path"`
	Content   string `json:"content"`
	// Encoding is "base64" when Content is base64 encoded, empty for plain text
	Encoding string `json:"encoding"`
}
