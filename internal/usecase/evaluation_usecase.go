package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fadilmartias/project-evaluator/internal/evidence"
	"github.com/fadilmartias/project-evaluator/internal/metrics"
	"github.com/fadilmartias/project-evaluator/internal/model"
	"github.com/fadilmartias/project-evaluator/internal/repository"
	"github.com/fadilmartias/project-evaluator/internal/rubric"
	"github.com/fadilmartias/project-evaluator/internal/scoring"
	"github.com/fadilmartias/project-evaluator/internal/worker"
)

type RunState string

const (
	RunPending    RunState = "pending"
	RunEvaluating RunState = "evaluating"
	RunCompleted  RunState = "completed"
	RunSkipped    RunState = "skipped"
	RunFailed     RunState = "failed"
)

// RunResult is the outcome of evaluating one language of a project.
type RunResult struct {
	ProjectID  uuid.UUID
	Language   string
	State      RunState
	Evaluation *model.Evaluation
	Err        error
}

// ManifestSource fetches a project's manifest from wherever uploads live.
type ManifestSource interface {
	FetchManifest(ctx context.Context, projectID uuid.UUID) (*model.Manifest, error)
}

// EvidenceCollector turns a manifest into evidence for one language.
type EvidenceCollector interface {
	Collect(m *model.Manifest, language string) evidence.Evidence
}

const DefaultConcurrency = 4

type EvaluationUsecase struct {
	store       repository.EvaluationStore
	rubrics     *rubric.Registry
	collector   EvidenceCollector
	dispatcher  *worker.Dispatcher
	manifests   ManifestSource
	jobs        *JobTracker
	metrics     *metrics.Metrics
	log         *slog.Logger
	concurrency int
	now         func() time.Time
}

type Option func(*EvaluationUsecase)

func WithDispatcher(d *worker.Dispatcher) Option {
	return func(uc *EvaluationUsecase) { uc.dispatcher = d }
}

func WithManifestSource(src ManifestSource) Option {
	return func(uc *EvaluationUsecase) { uc.manifests = src }
}

func WithCollector(c EvidenceCollector) Option {
	return func(uc *EvaluationUsecase) { uc.collector = c }
}

func WithJobTracker(t *JobTracker) Option {
	return func(uc *EvaluationUsecase) { uc.jobs = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(uc *EvaluationUsecase) { uc.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(uc *EvaluationUsecase) { uc.log = l }
}

// WithConcurrency bounds how many languages of one project run at once.
func WithConcurrency(n int) Option {
	return func(uc *EvaluationUsecase) {
		if n > 0 {
			uc.concurrency = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *EvaluationUsecase) { uc.now = now }
}

func NewEvaluationUsecase(store repository.EvaluationStore, rubrics *rubric.Registry, opts ...Option) *EvaluationUsecase {
	uc := &EvaluationUsecase{
		store:       store,
		rubrics:     rubrics,
		log:         slog.Default(),
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	if uc.collector == nil {
		uc.collector = evidence.NewCollector(evidence.WithCanonicalizer(rubrics.Canonical))
	}
	if uc.jobs == nil {
		uc.jobs = NewJobTracker(time.Hour)
	}
	return uc
}

// EvaluateLanguage runs one language through collect, score and persist.
// Languages without a rubric are skipped and write nothing. Any failure,
// including a panic, ends in RunFailed and a best-effort failed record.
func (uc *EvaluationUsecase) EvaluateLanguage(ctx context.Context, m *model.Manifest, language string) RunResult {
	start := time.Now()
	res := RunResult{Language: rubric.NormalizeLanguage(language), State: RunPending}
	defer func() {
		label := metrics.UnsupportedLanguage
		if def, ok := uc.rubrics.Lookup(res.Language); ok {
			label = def.Language
		}
		uc.metrics.ObserveRun(label, string(res.State), time.Since(start))
	}()

	if m == nil {
		res.State = RunFailed
		res.Err = ErrNoManifest
		return res
	}
	res.ProjectID = m.ProjectID

	def, ok := uc.rubrics.Lookup(language)
	if !ok {
		res.State = RunSkipped
		uc.log.Debug("no rubric for language, skipping", "project_id", m.ProjectID, "language", res.Language)
		return res
	}
	res.Language = def.Language
	res.State = RunEvaluating

	ev, scored, err := uc.score(m, def)
	if err != nil {
		return uc.fail(ctx, res, def, ev, err)
	}

	rec := &model.Evaluation{
		ProjectID:      m.ProjectID,
		Language:       def.Language,
		Status:         model.EvaluationStatusCompleted,
		OverallScore:   scored.Overall,
		CategoryScores: scored.Categories.Map(),
		Evidence:       ev.Map(),
		RubricSnapshot: def.Snapshot(),
		EvaluatedAt:    uc.now(),
	}
	for c, s := range scored.Categories {
		rec.SetCategoryScore(string(c), s)
	}
	if err := uc.store.Upsert(ctx, rec); err != nil {
		return uc.fail(ctx, res, def, ev, fmt.Errorf("save evaluation: %w", err))
	}

	uc.metrics.ObserveScore(def.Language, rec.OverallScore)
	uc.log.Info("evaluation completed",
		"project_id", m.ProjectID,
		"language", def.Language,
		"overall_score", rec.OverallScore,
		"grade", scored.Grade,
	)
	res.State = RunCompleted
	res.Evaluation = rec
	return res
}

func (uc *EvaluationUsecase) score(m *model.Manifest, def *rubric.Definition) (ev evidence.Evidence, res scoring.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluation panicked: %v", r)
		}
	}()
	ev = uc.collector.Collect(m, def.Language)
	res, err = scoring.Evaluate(ev, def)
	return ev, res, err
}

func (uc *EvaluationUsecase) fail(ctx context.Context, res RunResult, def *rubric.Definition, ev evidence.Evidence, cause error) RunResult {
	res.State = RunFailed
	res.Err = fmt.Errorf("evaluate %s: %w", def.Language, cause)
	uc.log.Error("evaluation failed", "project_id", res.ProjectID, "language", def.Language, "error", cause)

	rec := &model.Evaluation{
		ProjectID:      res.ProjectID,
		Language:       def.Language,
		Status:         model.EvaluationStatusFailed,
		Error:          cause.Error(),
		RubricSnapshot: def.Snapshot(),
		EvaluatedAt:    uc.now(),
	}
	if ev != nil {
		rec.Evidence = ev.Map()
	}
	if err := uc.store.Upsert(ctx, rec); err != nil {
		uc.log.Warn("could not record failed evaluation", "project_id", res.ProjectID, "language", def.Language, "error", err)
		return res
	}
	res.Evaluation = rec
	return res
}

// EvaluateProject evaluates every detected language concurrently. Results
// follow the manifest's language order; per-language failures are reported
// in the results, never as an error.
func (uc *EvaluationUsecase) EvaluateProject(ctx context.Context, m *model.Manifest) []RunResult {
	if m == nil {
		return []RunResult{}
	}
	langs := uc.detectedLanguages(m.Languages)
	results := make([]RunResult, len(langs))

	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, lang := range langs {
		g.Go(func() error {
			results[i] = uc.EvaluateLanguage(ctx, m, lang)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// detectedLanguages normalizes, resolves aliases and drops duplicates while
// keeping first-seen order.
func (uc *EvaluationUsecase) detectedLanguages(languages []string) []string {
	seen := make(map[string]struct{}, len(languages))
	out := make([]string, 0, len(languages))
	for _, l := range languages {
		key := uc.rubrics.Canonical(l)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// Submit queues one background job per detected language and returns at
// once. When the queue cannot take every job, the rejected ones are marked
// failed and ErrQueueFull is returned alongside the full job list.
func (uc *EvaluationUsecase) Submit(m *model.Manifest) ([]Job, error) {
	if m == nil {
		return nil, ErrNoManifest
	}
	if uc.dispatcher == nil {
		return nil, ErrNoDispatcher
	}

	langs := uc.detectedLanguages(m.Languages)
	jobs := make([]Job, 0, len(langs))
	var queueErr error
	for _, lang := range langs {
		now := uc.now()
		job := Job{
			ID:        uuid.New(),
			ProjectID: m.ProjectID,
			Language:  lang,
			State:     RunPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if queueErr != nil {
			job.State = RunFailed
			job.Error = queueErr.Error()
			uc.jobs.Put(job)
			jobs = append(jobs, job)
			continue
		}

		uc.jobs.Put(job)
		id := job.ID
		err := uc.dispatcher.Enqueue(&evaluationJob{uc: uc, id: id, manifest: m, language: lang})
		if err != nil {
			queueErr = err
			job.State = RunFailed
			job.Error = err.Error()
			uc.jobs.Put(job)
			uc.log.Warn("background queue rejected job", "job_id", id, "project_id", m.ProjectID, "language", lang, "error", err)
		}
		jobs = append(jobs, job)
	}
	if queueErr != nil {
		return jobs, fmt.Errorf("submit evaluation: %w", queueErr)
	}
	return jobs, nil
}

// evaluationJob is one queued (project, language) run.
type evaluationJob struct {
	uc       *EvaluationUsecase
	id       uuid.UUID
	manifest *model.Manifest
	language string
}

func (j *evaluationJob) Execute(ctx context.Context) {
	j.uc.runJob(ctx, j.id, j.manifest, j.language)
}

// Drop marks a job the dispatcher discarded at shutdown as failed.
func (j *evaluationJob) Drop(err error) {
	j.uc.abandonJob(j.id, err)
}

func (uc *EvaluationUsecase) abandonJob(id uuid.UUID, cause error) {
	uc.jobs.Update(id, func(j *Job) {
		j.State = RunFailed
		j.Error = fmt.Sprintf("job not run: %v", cause)
	})
	uc.log.Warn("background job abandoned", "job_id", id, "error", cause)
}

func (uc *EvaluationUsecase) runJob(ctx context.Context, id uuid.UUID, m *model.Manifest, language string) {
	if err := ctx.Err(); err != nil {
		uc.abandonJob(id, err)
		return
	}
	uc.jobs.Update(id, func(j *Job) { j.State = RunEvaluating })
	res := uc.EvaluateLanguage(ctx, m, language)
	uc.jobs.Update(id, func(j *Job) {
		j.State = res.State
		if res.Err != nil {
			j.Error = res.Err.Error()
		}
		if res.Evaluation != nil && res.State == RunCompleted {
			evalID := res.Evaluation.ID
			j.EvaluationID = &evalID
		}
	})
}

func (uc *EvaluationUsecase) JobStatus(id uuid.UUID) (Job, error) {
	job, ok := uc.jobs.Get(id)
	if !ok {
		return Job{}, ErrJobNotFound
	}
	return job, nil
}

// Regenerate re-fetches the project's manifest and re-runs the given
// languages, or every detected language when none are given.
func (uc *EvaluationUsecase) Regenerate(ctx context.Context, projectID uuid.UUID, languages ...string) ([]RunResult, error) {
	if uc.manifests == nil {
		return nil, ErrNoManifestStore
	}
	m, err := uc.manifests.FetchManifest(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	if m == nil {
		return nil, ErrNoManifest
	}
	run := *m
	run.ProjectID = projectID
	if len(languages) > 0 {
		run.Languages = languages
	}
	uc.log.Info("regenerating evaluations", "project_id", projectID, "languages", run.Languages)
	return uc.EvaluateProject(ctx, &run), nil
}

// DeleteProject removes every evaluation of a project.
func (uc *EvaluationUsecase) DeleteProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	n, err := uc.store.DeleteByProject(ctx, projectID)
	if err != nil {
		return 0, fmt.Errorf("delete evaluations: %w", err)
	}
	uc.log.Info("evaluations deleted", "project_id", projectID, "count", n)
	return n, nil
}

// Failed reports whether any result ended in RunFailed.
func Failed(results []RunResult) bool {
	for _, r := range results {
		if r.State == RunFailed {
			return true
		}
	}
	return false
}
