package plagiarism

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RishiKendai/labscan/internal/apperr"
	"github.com/RishiKendai/labscan/internal/models"
	"github.com/RishiKendai/labscan/internal/reportstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSource map[string][]models.RawSubmission

func (s memSource) ListSubmissions(_ context.Context, labID string) ([]models.RawSubmission, error) {
	subs, ok := s[labID]
	if !ok {
		return nil, apperr.ErrSubmissionsNotFound
	}
	return subs, nil
}

func raw(id string, files ...string) models.RawSubmission {
	r := models.RawSubmission{ID: id}
	for i := 0; i+1 < len(files); i += 2 {
		r.Files = append(r.Files, models.RawFile{Path: files[i], Content: []byte(files[i+1])})
	}
	return r
}

func scenarioLab() memSource {
	return memSource{
		"lab1": {
			raw("3", "main.py", "x=9;y=0;print(x*y)"),
			raw("1", "main.py", "a=1;b=2;print(a+b)"),
			raw("2", "main.py", "a=1;b=2;print(a+b)"),
		},
	}
}

// failingStore fails every Put of one key
type failingStore struct {
	reportstore.Store
	failKey string
}

func (s *failingStore) Put(ctx context.Context, labID, runID, key string, payload []byte) error {
	if key == s.failKey {
		return errors.New("disk full")
	}
	return s.Store.Put(ctx, labID, runID, key, payload)
}

type recordingNotifier struct {
	mu   sync.Mutex
	runs []string
}

func (n *recordingNotifier) RunCompleted(_ context.Context, run *models.ComparisonRun) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.runs = append(n.runs, run.RunID)
	return nil
}

var fixedNow = time.UnixMilli(1700000000000)

func newTestEngine(t *testing.T, source memSource, store reportstore.Store, opts Options, extra ...EngineOption) *Engine {
	t.Helper()
	pool := NewSizedWorkerPool(context.Background(), 2)
	t.Cleanup(pool.Close)
	if store == nil {
		store = reportstore.NewMemoryStore()
	}
	extra = append([]EngineOption{WithClock(func() time.Time { return fixedNow })}, extra...)
	return NewEngine(source, store, pool, opts, extra...)
}

func pairs(run *models.ComparisonRun) [][3]any {
	out := make([][3]any, len(run.Comparisons))
	for i, c := range run.Comparisons {
		out[i] = [3]any{c.SubmissionA, c.SubmissionB, c.Similarity}
	}
	return out
}

func TestRunDuplicateCheckScenario(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	e := newTestEngine(t, scenarioLab(), nil, Options{}, WithNotifier(notifier))

	run, err := e.RunDuplicateCheck(ctx, "lab1", "python3", 3)
	require.NoError(t, err)

	assert.Equal(t, "lab1", run.LabID)
	assert.Equal(t, "1700000000000", run.RunID)
	assert.Equal(t, models.LanguagePython3, run.Language)
	assert.Equal(t, models.NormalizeIdentifiers, run.Normalization)
	assert.Equal(t, 3, run.SubmissionCount)
	assert.Empty(t, run.Warnings)
	assert.Equal(t, [][3]any{
		{"1", "2", 100},
		{"1", "3", 25},
		{"2", "3", 25},
	}, pairs(run))
	assert.Equal(t, []string{run.RunID}, notifier.runs)

	step, err := e.Status().Step(ctx, "lab1")
	require.NoError(t, err)
	assert.Equal(t, models.StepCompleted, step)

	entry, err := e.GetReportEntry(ctx, "lab1", run.RunID, 0)
	require.NoError(t, err)
	assert.Equal(t, "1", entry.SubmissionA)
	assert.Equal(t, "2", entry.SubmissionB)
	assert.Equal(t, 100, entry.Similarity)
	require.Len(t, entry.Regions, 1)
	assert.Equal(t, models.RegionSpan{File: "main.py", Line: 1, Column: 1, EndLine: 1, EndColumn: 19, Tokens: 12}, entry.Regions[0].A)
	assert.Equal(t, entry.Regions[0].A, entry.Regions[0].B)

	stored, err := e.GetRun(ctx, "lab1", run.RunID)
	require.NoError(t, err)
	assert.Equal(t, pairs(run), pairs(stored))
}

func TestRunDuplicateCheckIsDeterministic(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, scenarioLab(), nil, Options{})

	first, err := e.RunDuplicateCheck(ctx, "lab1", "python", 3)
	require.NoError(t, err)
	second, err := e.RunDuplicateCheck(ctx, "lab1", "python", 3)
	require.NoError(t, err)

	assert.Equal(t, first.Comparisons, second.Comparisons)
	assert.Equal(t, "1700000000000", first.RunID)
	assert.Equal(t, "1700000000001", second.RunID)

	ids, total, err := e.ListRuns(ctx, "lab1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"1700000000001", "1700000000000"}, ids)

	ids, total, err = e.ListRuns(ctx, "lab1", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{"1700000000000"}, ids)

	ids, _, err = e.ListRuns(ctx, "lab1", 5, 1)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunDuplicateCheckEmptySubmission(t *testing.T) {
	source := scenarioLab()
	source["lab1"] = append(source["lab1"], raw("4"))
	e := newTestEngine(t, source, nil, Options{})

	run, err := e.RunDuplicateCheck(context.Background(), "lab1", "python3", 3)
	require.NoError(t, err)
	assert.Equal(t, 4, run.SubmissionCount)
	assert.Len(t, run.Comparisons, 6)
	for _, c := range run.Comparisons {
		if c.SubmissionA == "4" || c.SubmissionB == "4" {
			assert.Equal(t, 0, c.Similarity)
		}
	}
}

func TestRunDuplicateCheckOmitZero(t *testing.T) {
	source := scenarioLab()
	source["lab1"] = append(source["lab1"], raw("4"))
	e := newTestEngine(t, source, nil, Options{OmitZero: true})

	run, err := e.RunDuplicateCheck(context.Background(), "lab1", "python3", 3)
	require.NoError(t, err)
	assert.Len(t, run.Comparisons, 3)
}

func TestRunDuplicateCheckRecordsWarnings(t *testing.T) {
	source := scenarioLab()
	source["lab1"][0].Files = append(source["lab1"][0].Files, models.RawFile{Path: "broken.py", Content: []byte(`s = "open`)})
	e := newTestEngine(t, source, nil, Options{})

	run, err := e.RunDuplicateCheck(context.Background(), "lab1", "python3", 3)
	require.NoError(t, err)
	require.Len(t, run.Warnings, 1)
	assert.Equal(t, "3", run.Warnings[0].SubmissionID)
	assert.Equal(t, "broken.py", run.Warnings[0].File)
	assert.Equal(t, 25, run.Comparisons[1].Similarity)
}

func TestRunDuplicateCheckErrors(t *testing.T) {
	ctx := context.Background()
	source := scenarioLab()
	source["empty"] = nil
	e := newTestEngine(t, source, nil, Options{})

	_, err := e.RunDuplicateCheck(ctx, "lab1", "ruby", 3)
	assert.ErrorIs(t, err, apperr.ErrUnsupportedLanguage)

	_, err = e.RunDuplicateCheck(ctx, "lab1", "java", 0)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	_, err = e.RunDuplicateCheck(ctx, "nope", "java", 3)
	assert.ErrorIs(t, err, apperr.ErrSubmissionsNotFound)

	_, err = e.RunDuplicateCheck(ctx, "empty", "java", 3)
	assert.ErrorIs(t, err, apperr.ErrSubmissionsNotFound)

	step, err := e.Status().Step(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, models.StepFailed, step)
}

func TestRunDuplicateCheckCancelled(t *testing.T) {
	e := newTestEngine(t, scenarioLab(), nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.RunDuplicateCheck(ctx, "lab1", "python3", 3)
	assert.ErrorIs(t, err, context.Canceled)

	ids, _, err := e.ListRuns(context.Background(), "lab1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunIsNotCommittedWhenSummaryFails(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: reportstore.NewMemoryStore(), failKey: models.RunKey}
	e := newTestEngine(t, scenarioLab(), store, Options{})

	_, err := e.RunDuplicateCheck(ctx, "lab1", "python3", 3)
	require.ErrorIs(t, err, apperr.ErrStorageFailure)

	_, err = e.GetReportEntry(ctx, "lab1", "1700000000000", 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	ids, _, err := e.ListRuns(ctx, "lab1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRunFailsWhenEntryWriteFails(t *testing.T) {
	store := &failingStore{Store: reportstore.NewMemoryStore(), failKey: models.ReportKey(1)}
	e := newTestEngine(t, scenarioLab(), store, Options{})

	_, err := e.RunDuplicateCheck(context.Background(), "lab1", "python3", 3)
	assert.ErrorIs(t, err, apperr.ErrStorageFailure)
}

func TestGetReportEntryNotFound(t *testing.T) {
	ctx := context.Background()
	e := newTestEngine(t, scenarioLab(), nil, Options{})

	_, err := e.GetReportEntry(ctx, "lab1", "123", 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	run, err := e.RunDuplicateCheck(ctx, "lab1", "python3", 3)
	require.NoError(t, err)

	_, err = e.GetReportEntry(ctx, "lab1", run.RunID, 3)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.GetReportEntry(ctx, "lab1", run.RunID, -1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.GetReportEntry(ctx, "lab2", run.RunID, 0)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.GetRun(ctx, "lab1", "")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	entry, err := e.GetReportEntry(ctx, "lab1", run.RunID, 2)
	require.NoError(t, err)
	again, err := e.GetReportEntry(ctx, "lab1", run.RunID, 2)
	require.NoError(t, err)
	assert.Equal(t, entry, again)
}

func TestNextRunIDIsPerLab(t *testing.T) {
	e := newTestEngine(t, nil, nil, Options{})

	a1, _ := e.nextRunID("a")
	a2, _ := e.nextRunID("a")
	b1, _ := e.nextRunID("b")
	assert.Equal(t, "1700000000000", a1)
	assert.Equal(t, "1700000000001", a2)
	assert.Equal(t, "1700000000000", b1)
}

func TestEnginesSharingAStoreNeverReuseARunID(t *testing.T) {
	ctx := context.Background()
	store := reportstore.NewMemoryStore()
	first := newTestEngine(t, scenarioLab(), store, Options{})
	second := newTestEngine(t, memSource{"lab1": {
		raw("1", "main.py", "a=1;b=2;print(a+b)"),
		raw("2", "main.py", "x=9;y=0;print(x*y)"),
	}}, store, Options{})

	r1, err := first.RunDuplicateCheck(ctx, "lab1", "python3", 3)
	require.NoError(t, err)
	r2, err := second.RunDuplicateCheck(ctx, "lab1", "python3", 3)
	require.NoError(t, err)

	assert.Equal(t, "1700000000000", r1.RunID)
	assert.Equal(t, "1700000000001", r2.RunID)

	ids, total, err := first.ListRuns(ctx, "lab1", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, []string{r2.RunID, r1.RunID}, ids)

	stored, err := second.GetRun(ctx, "lab1", r1.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.SubmissionCount)

	entry, err := first.GetReportEntry(ctx, "lab1", r2.RunID, 0)
	require.NoError(t, err)
	assert.Equal(t, "1", entry.SubmissionA)
	assert.Equal(t, "2", entry.SubmissionB)
	assert.Equal(t, 25, entry.Similarity)
}

// takenStore reports every claim as already taken
type takenStore struct {
	reportstore.Store
	claims int
}

func (s *takenStore) Put(ctx context.Context, labID, runID, key string, payload []byte) error {
	if key == models.ClaimKey {
		s.claims++
		return reportstore.ErrExists
	}
	return s.Store.Put(ctx, labID, runID, key, payload)
}

func TestRunFailsWhenNoRunIDCanBeClaimed(t *testing.T) {
	store := &takenStore{Store: reportstore.NewMemoryStore()}
	e := newTestEngine(t, scenarioLab(), store, Options{})

	_, err := e.RunDuplicateCheck(context.Background(), "lab1", "python3", 3)
	require.ErrorIs(t, err, apperr.ErrStorageFailure)
	assert.Equal(t, maxClaimAttempts, store.claims)

	claimFails := &failingStore{Store: reportstore.NewMemoryStore(), failKey: models.ClaimKey}
	e = newTestEngine(t, scenarioLab(), claimFails, Options{})
	_, err = e.RunDuplicateCheck(context.Background(), "lab1", "python3", 3)
	assert.ErrorIs(t, err, apperr.ErrStorageFailure)
}
