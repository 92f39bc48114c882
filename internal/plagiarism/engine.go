// Package plagiarism runs duplicate checks over the submissions of a lab: every pair of submissions is tiled
// with Greedy String Tiling, scored, ranked and persisted as one immutable comparison run.
package plagiarism

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/metrics"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/RishiKendai/labscan/internal/reportstore"
	"github.com/RishiKendai/labscan/internal/submission"
	"github.com/RishiKendai/labscan/internal/tokenizer"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Notifier is told about every committed run
type Notifier interface {
	RunCompleted(ctx context.Context, run *models.ComparisonRun) error
}

type Options struct {
	Normalization models.Normalization
	// OmitZero drops comparisons with similarity 0 from runs
	OmitZero bool
}

type Engine struct {
	source   submission.Source
	store    reportstore.Store
	pool     *WorkerPool
	status   StatusReporter
	notifier Notifier
	opts     Options
	now      func() time.Time

	mu      sync.Mutex
	lastRun map[string]int64
}

type EngineOption func(*Engine)

func WithStatus(s StatusReporter) EngineOption {
	return func(e *Engine) { e.status = s }
}

func WithNotifier(n Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

func NewEngine(source submission.Source, store reportstore.Store, pool *WorkerPool, opts Options, extra ...EngineOption) *Engine {
	if !opts.Normalization.Valid() {
		opts.Normalization = models.NormalizeIdentifiers
	}
	e := &Engine{
		source:  source,
		store:   store,
		pool:    pool,
		status:  NewMemoryStatus(),
		opts:    opts,
		now:     time.Now,
		lastRun: make(map[string]int64),
	}
	for _, o := range extra {
		o(e)
	}
	return e
}

// Status returns the reporter the engine records run steps with
func (e *Engine) Status() StatusReporter {
	return e.status
}

// RunDuplicateCheck compares every pair of submissions of labID and commits the result as a new run.
// Nothing is persisted unless the whole run succeeds.
func (e *Engine) RunDuplicateCheck(ctx context.Context, labID, language string, minimumTokenMatch int) (*models.ComparisonRun, error) {
	start := time.Now()

	lang, err := models.ParseLanguage(language)
	if err != nil {
		return nil, err
	}
	tk, err := tokenizer.For(lang)
	if err != nil {
		return nil, err
	}
	if minimumTokenMatch < 1 {
		return nil, fmt.Errorf("%w: minimumTokenMatch must be at least 1, got %d", apperr.ErrInvalidArgument, minimumTokenMatch)
	}
	if err := validateID("labId", labID); err != nil {
		return nil, err
	}

	e.setStep(ctx, labID, models.StepStarted)
	run, err := e.run(ctx, labID, tk, minimumTokenMatch)
	if err != nil {
		e.setStep(context.WithoutCancel(ctx), labID, models.StepFailed)
		metrics.RunCount.WithLabelValues(string(lang), "failed").Inc()
		log.Error().Err(err).
			Str("labId", labID).
			Str("language", string(lang)).
			Msg("Duplicate check failed")
		return nil, err
	}
	e.setStep(ctx, labID, models.StepCompleted)

	metrics.RunCount.WithLabelValues(string(lang), "completed").Inc()
	metrics.RunDuration.Observe(time.Since(start).Seconds())
	log.Info().
		Str("labId", labID).
		Str("runId", run.RunID).
		Int("submissions", run.SubmissionCount).
		Int("comparisons", len(run.Comparisons)).
		Int("warnings", len(run.Warnings)).
		Dur("took", time.Since(start)).
		Msg("Duplicate check completed")

	if e.notifier != nil {
		if err := e.notifier.RunCompleted(context.WithoutCancel(ctx), run); err != nil {
			log.Warn().Err(err).Str("labId", labID).Str("runId", run.RunID).Msg("Failed to publish run completion")
		}
	}
	return run, nil
}

func (e *Engine) run(ctx context.Context, labID string, tk tokenizer.Tokenizer, minMatch int) (*models.ComparisonRun, error) {
	raws, err := e.source.ListSubmissions(ctx, labID)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%w: lab %s", apperr.ErrSubmissionsNotFound, labID)
	}

	e.setStep(ctx, labID, models.StepTokenizing)
	subs, warnings, err := e.tokenize(ctx, raws, tk)
	if err != nil {
		return nil, err
	}

	e.setStep(ctx, labID, models.StepComparing)
	comparisons, err := e.compareAll(ctx, subs, minMatch)
	if err != nil {
		return nil, err
	}
	if e.opts.OmitZero {
		kept := comparisons[:0]
		for _, c := range comparisons {
			if c.Similarity > 0 {
				kept = append(kept, c)
			}
		}
		comparisons = kept
	}
	SortComparisons(comparisons)

	e.setStep(ctx, labID, models.StepPersisting)
	runID, createdAt, err := e.claimRunID(ctx, labID)
	if err != nil {
		return nil, err
	}
	run := &models.ComparisonRun{
		LabID:             labID,
		RunID:             runID,
		Language:          tk.Language(),
		MinimumTokenMatch: minMatch,
		Normalization:     e.opts.Normalization,
		CreatedAt:         createdAt,
		SubmissionCount:   len(subs),
		Comparisons:       comparisons,
		Warnings:          warnings,
	}

	if err := e.persist(ctx, run, subs); err != nil {
		return nil, err
	}
	return run, nil
}

// tokenize builds every submission in parallel. Submissions come back ordered by id;
// a repeated id keeps its first occurrence.
func (e *Engine) tokenize(ctx context.Context, raws []models.RawSubmission, tk tokenizer.Tokenizer) ([]*models.Submission, []models.Warning, error) {
	ordered := make([]models.RawSubmission, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	for _, raw := range raws {
		if seen[raw.ID] {
			log.Warn().Str("submissionId", raw.ID).Msg("Ignoring duplicate submission id")
			continue
		}
		seen[raw.ID] = true
		ordered = append(ordered, raw)
	}
	sort.SliceStable(ordered, func(i, j int) bool { return CompareIDs(ordered[i].ID, ordered[j].ID) < 0 })

	subs := make([]*models.Submission, len(ordered))
	perSub := make([][]models.Warning, len(ordered))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.pool.Size())
	for i, raw := range ordered {
		i, raw := i, raw
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sub, warnings, err := submission.Build(raw, tk)
			if err != nil {
				return fmt.Errorf("tokenize submission %s: %w", raw.ID, err)
			}
			subs[i], perSub[i] = sub, warnings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	warnings := []models.Warning{}
	for _, w := range perSub {
		warnings = append(warnings, w...)
	}
	metrics.MalformedFileCount.Add(float64(len(warnings)))
	return subs, warnings, nil
}

type pairResult struct {
	index      int
	comparison models.Comparison
	err        error
}

// comparisonJob compares one pair on the worker pool and always reports exactly one result
type comparisonJob struct {
	runCtx   context.Context
	index    int
	a, b     *models.Submission
	minMatch int
	norm     models.Normalization
	results  chan<- pairResult
}

func (j *comparisonJob) Execute(ctx context.Context) (err error) {
	res := pairResult{index: j.index}
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("compare %s and %s: panic: %v", j.a.ID, j.b.ID, r)
		}
		err = res.err
		j.results <- res
	}()

	if res.err = ctx.Err(); res.err != nil {
		return
	}
	if res.err = j.runCtx.Err(); res.err != nil {
		return
	}
	res.comparison = Compare(j.a, j.b, j.minMatch, j.norm)
	return
}

// compareAll schedules every unordered pair on the pool and waits for all of them
func (e *Engine) compareAll(ctx context.Context, subs []*models.Submission, minMatch int) ([]models.Comparison, error) {
	n := len(subs)
	total := n * (n - 1) / 2
	if total == 0 {
		return []models.Comparison{}, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan pairResult, total)
	index := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			job := &comparisonJob{
				runCtx:   runCtx,
				index:    index,
				a:        subs[i],
				b:        subs[j],
				minMatch: minMatch,
				norm:     e.opts.Normalization,
				results:  results,
			}
			if err := e.pool.Submit(runCtx, job); err != nil {
				return nil, fmt.Errorf("failed to submit comparison: %w", err)
			}
			index++
		}
	}

	comparisons := make([]models.Comparison, total)
	for received := 0; received < total; received++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.pool.Done():
			return nil, ErrPoolClosed
		case res := <-results:
			if res.err != nil {
				return nil, res.err
			}
			comparisons[res.index] = res.comparison
		}
	}

	metrics.ComparisonCount.Add(float64(total))
	return comparisons, nil
}

// persist writes every report entry, then the run summary. The summary is the commit point:
// a run without one is invisible to readers.
func (e *Engine) persist(ctx context.Context, run *models.ComparisonRun, subs []*models.Submission) error {
	byID := make(map[string]*models.Submission, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}
	entries, err := BuildReportEntries(run, byID)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.pool.Size())
	for _, entry := range entries {
		entry := entry
		g.Go(func() error {
			payload, err := reportstore.Encode(entry)
			if err != nil {
				return err
			}
			return apperr.Storage("put report entry", e.store.Put(gctx, run.LabID, run.RunID, models.ReportKey(entry.Index), payload))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	payload, err := reportstore.Encode(run)
	if err != nil {
		return err
	}
	return apperr.Storage("put run", e.store.Put(ctx, run.LabID, run.RunID, models.RunKey, payload))
}

// GetReportEntry returns the entry at index of a committed run
func (e *Engine) GetReportEntry(ctx context.Context, labID, runID string, index int) (*models.ReportEntry, error) {
	if index < 0 {
		return nil, fmt.Errorf("%w: comparison %d", apperr.ErrNotFound, index)
	}
	if err := e.committed(ctx, labID, runID); err != nil {
		return nil, err
	}

	payload, err := e.store.Get(ctx, labID, runID, models.ReportKey(index))
	if err != nil {
		return nil, lookupErr("get report entry", err)
	}
	var entry models.ReportEntry
	if err := reportstore.Decode(payload, &entry); err != nil {
		return nil, apperr.Storage("decode report entry", err)
	}
	return &entry, nil
}

// GetRun returns a committed run
func (e *Engine) GetRun(ctx context.Context, labID, runID string) (*models.ComparisonRun, error) {
	if err := validateLookup(labID, runID); err != nil {
		return nil, err
	}
	payload, err := e.store.Get(ctx, labID, runID, models.RunKey)
	if err != nil {
		return nil, lookupErr("get run", err)
	}
	var run models.ComparisonRun
	if err := reportstore.Decode(payload, &run); err != nil {
		return nil, apperr.Storage("decode run", err)
	}
	return &run, nil
}

// ListRuns returns one page of the committed run ids of labID, newest first, and the total count
func (e *Engine) ListRuns(ctx context.Context, labID string, offset, limit int) ([]string, int, error) {
	if err := validateID("labId", labID); err != nil {
		return nil, 0, err
	}
	ids, err := e.store.List(ctx, labID)
	if err != nil {
		return nil, 0, apperr.Storage("list runs", err)
	}
	sort.Slice(ids, func(i, j int) bool { return CompareIDs(ids[i], ids[j]) > 0 })

	total := len(ids)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return ids[offset:end], total, nil
}

func (e *Engine) committed(ctx context.Context, labID, runID string) error {
	if err := validateLookup(labID, runID); err != nil {
		return err
	}
	if _, err := e.store.Get(ctx, labID, runID, models.RunKey); err != nil {
		return lookupErr("get run", err)
	}
	return nil
}

// maxClaimAttempts bounds how many run ids one run tries before giving up
const maxClaimAttempts = 8

// claimRunID takes ownership of a fresh run id by writing its claim key. Engines sharing a store can pick
// the same millisecond; the first claim wins and the others move on to a later id.
func (e *Engine) claimRunID(ctx context.Context, labID string) (string, time.Time, error) {
	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		runID, createdAt := e.nextRunID(labID)
		payload, err := reportstore.Encode(createdAt)
		if err != nil {
			return "", time.Time{}, err
		}

		err = e.store.Put(ctx, labID, runID, models.ClaimKey, payload)
		if err == nil {
			return runID, createdAt, nil
		}
		if !errors.Is(err, reportstore.ErrExists) {
			return "", time.Time{}, apperr.Storage("claim run id", err)
		}
		log.Debug().Str("labId", labID).Str("runId", runID).Int("attempt", attempt).Msg("Run id taken, trying the next one")
	}
	return "", time.Time{}, fmt.Errorf("%w: no free run id for lab %s after %d attempts", apperr.ErrStorageFailure, labID, maxClaimAttempts)
}

// nextRunID returns an epoch millisecond id that is strictly greater than every earlier id of the lab
func (e *Engine) nextRunID(labID string) (string, time.Time) {
	now := e.now()
	ms := now.UnixMilli()

	e.mu.Lock()
	if last := e.lastRun[labID]; ms <= last {
		ms = last + 1
	}
	e.lastRun[labID] = ms
	e.mu.Unlock()

	return strconv.FormatInt(ms, 10), now.UTC()
}

func (e *Engine) setStep(ctx context.Context, labID string, step models.Step) {
	if err := e.status.SetStep(ctx, labID, step); err != nil {
		log.Warn().Err(err).Str("labId", labID).Str("step", string(step)).Msg("Failed to record run step")
	}
}

func validateID(name, id string) error {
	if strings.TrimSpace(id) == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: invalid %s %q", apperr.ErrInvalidArgument, name, id)
	}
	return nil
}

// validateLookup treats ids that can never have been produced as missing
func validateLookup(labID, runID string) error {
	if validateID("labId", labID) != nil || validateID("runId", runID) != nil {
		return fmt.Errorf("%w: run %s/%s", apperr.ErrNotFound, labID, runID)
	}
	return nil
}

func lookupErr(op string, err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	return apperr.Storage(op, err)
}
