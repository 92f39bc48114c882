package models

import (
	"fmt"
	"time"
)

type Step string

const (
	StepIdle       Step = "idle"
	StepStarted    Step = "started"
	StepTokenizing Step = "tokenizing"
	StepComparing  Step = "comparing"
	StepPersisting Step = "persisting"
	StepCompleted  Step = "completed"
	StepFailed     Step = "failed"
)

// DuplicateCheckRequest is the body of a duplicate check request
type DuplicateCheckRequest struct {
	Language          string `json:"language" binding:"required"`
	MinimumTokenMatch int    `json:"minimumTokenMatch"`
}

// ComparisonSummary is one row of a run listing
type ComparisonSummary struct {
	Index       int    `json:"index"`
	SubmissionA string `json:"submissionA"`
	SubmissionB string `json:"submissionB"`
	Similarity  int    `json:"similarity"`
	ReportKey   string `json:"reportKey"`
}

// DuplicateCheckResponse represents the response of the duplicate check endpoint
type DuplicateCheckResponse struct {
	LabID             string              `json:"labId"`
	RunID             string              `json:"runId"`
	Language          Language            `json:"language"`
	MinimumTokenMatch int                 `json:"minimumTokenMatch"`
	CreatedAt         time.Time           `json:"createdAt"`
	SubmissionCount   int                 `json:"submissionCount"`
	Comparisons       []ComparisonSummary `json:"comparisons"`
	Warnings          []Warning           `json:"warnings"`
}

// NewDuplicateCheckResponse projects a run into its listing form
func NewDuplicateCheckResponse(run *ComparisonRun) DuplicateCheckResponse {
	summaries := make([]ComparisonSummary, len(run.Comparisons))
	for i, c := range run.Comparisons {
		summaries[i] = ComparisonSummary{
			Index:       i,
			SubmissionA: c.SubmissionA,
			SubmissionB: c.SubmissionB,
			Similarity:  c.Similarity,
			ReportKey:   ReportKey(i),
		}
	}
	warnings := run.Warnings
	if warnings == nil {
		warnings = []Warning{}
	}
	return DuplicateCheckResponse{
		LabID:             run.LabID,
		RunID:             run.RunID,
		Language:          run.Language,
		MinimumTokenMatch: run.MinimumTokenMatch,
		CreatedAt:         run.CreatedAt,
		SubmissionCount:   run.SubmissionCount,
		Comparisons:       summaries,
		Warnings:          warnings,
	}
}

// RunListResponse lists the runs of a lab, newest first
type RunListResponse struct {
	LabID  string   `json:"labId"`
	Total  int      `json:"total"`
	RunIDs []string `json:"runIds"`
}

// StatusResponse reports the last known step of a lab's duplicate check
type StatusResponse struct {
	LabID string `json:"labId"`
	Step  Step   `json:"step"`
}

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RunKey is the report store key of a run summary
const RunKey = "run"

// ClaimKey is the report store key written first to take ownership of a run id
const ClaimKey = "claim"

// ReportKey returns the report store key of the comparison at index
func ReportKey(index int) string {
	return fmt.Sprintf("match%d", index)
}
