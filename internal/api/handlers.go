package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/config"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/RishiKendai/labscan/internal/plagiarism"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Handler holds dependencies for handlers
type Handler struct {
	engine          *plagiarism.Engine
	defaultMinMatch int
	computeSem      chan struct{} // Semaphore for bounded concurrency
	computeTimeout  time.Duration
}

// NewHandler creates a new handler
func NewHandler(cfg *config.Config, engine *plagiarism.Engine) *Handler {
	return &Handler{
		engine:          engine,
		defaultMinMatch: cfg.DefaultMinTokenMatch,
		computeSem:      make(chan struct{}, cfg.MaxConcurrentCompute),
		computeTimeout:  cfg.ComputationTimeout,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

// DuplicateCheck runs a duplicate check over a lab and answers with the committed run
func (h *Handler) DuplicateCheck(c *gin.Context) {
	labID := c.Param("labId")

	var req models.DuplicateCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if req.MinimumTokenMatch == 0 {
		req.MinimumTokenMatch = h.defaultMinMatch
	}

	ctx := c.Request.Context()

	// Acquire semaphore (bounded concurrency)
	select {
	case h.computeSem <- struct{}{}:
	case <-ctx.Done():
		c.JSON(http.StatusRequestTimeout, models.ErrorResponse{
			Error: "Request cancelled",
			Code:  "REQUEST_TIMEOUT",
		})
		return
	}
	defer func() { <-h.computeSem }()

	ctx, cancel := context.WithTimeout(ctx, h.computeTimeout)
	defer cancel()

	run, err := h.engine.RunDuplicateCheck(ctx, labID, req.Language, req.MinimumTokenMatch)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewDuplicateCheckResponse(run))
}

// ListRuns pages through the committed runs of a lab, newest first
func (h *Handler) ListRuns(c *gin.Context) {
	labID := c.Param("labId")

	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		respondError(c, err)
		return
	}
	limit, err := queryInt(c, "limit", 0)
	if err != nil {
		respondError(c, err)
		return
	}

	ids, total, err := h.engine.ListRuns(c.Request.Context(), labID, offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.RunListResponse{
		LabID:  labID,
		Total:  total,
		RunIDs: ids,
	})
}

func (h *Handler) GetRun(c *gin.Context) {
	run, err := h.engine.GetRun(c.Request.Context(), c.Param("labId"), c.Param("runId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewDuplicateCheckResponse(run))
}

func (h *Handler) GetReportEntry(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		respondError(c, fmt.Errorf("%w: comparison index %q", apperr.ErrInvalidArgument, c.Param("index")))
		return
	}

	entry, err := h.engine.GetReportEntry(c.Request.Context(), c.Param("labId"), c.Param("runId"), index)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// Status reports the last step recorded for a lab's duplicate check
func (h *Handler) Status(c *gin.Context) {
	labID := c.Param("labId")

	step, err := h.engine.Status().Step(c.Request.Context(), labID)
	if err != nil {
		respondError(c, apperr.Storage("read status", err))
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{
		LabID: labID,
		Step:  step,
	})
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", apperr.ErrInvalidArgument, name)
	}
	return v, nil
}

// statusCode maps an error to its HTTP status and client code
func statusCode(err error) (int, string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "COMPUTATION_TIMEOUT"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "REQUEST_TIMEOUT"
	}

	code := apperr.Code(err)
	switch code {
	case "UNSUPPORTED_LANGUAGE", "INVALID_REQUEST":
		return http.StatusBadRequest, code
	case "SUBMISSIONS_NOT_FOUND", "NOT_FOUND":
		return http.StatusNotFound, code
	case "STORAGE_FAILURE":
		return http.StatusBadGateway, code
	default:
		return http.StatusInternalServerError, code
	}
}

func respondError(c *gin.Context, err error) {
	status, code := statusCode(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("labId", c.Param("labId")).
			Msg("Request failed")
	}

	c.JSON(status, models.ErrorResponse{
		Error: err.Error(),
		Code:  code,
	})
}
