package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/fadilmartias/project-evaluator/internal/config"
	"github.com/fadilmartias/project-evaluator/internal/dto"
	"github.com/fadilmartias/project-evaluator/internal/model"
	"github.com/fadilmartias/project-evaluator/internal/repository"
	"github.com/fadilmartias/project-evaluator/internal/service"
	"github.com/fadilmartias/project-evaluator/internal/usecase"
	"github.com/fadilmartias/project-evaluator/internal/util"
)

// ErrEvaluationFailed is returned after printing when any language failed.
var ErrEvaluationFailed = errors.New("one or more languages failed to evaluate")

type evaluateFlags struct {
	projectID string
	languages []string
	summary   bool
	timeout   time.Duration
}

type evaluationReport struct {
	ProjectID uuid.UUID                  `json:"project_id"`
	Results   []dto.RunResultDTO         `json:"results"`
	Summaries []dto.EvaluationSummaryDTO `json:"summaries,omitempty"`
}

func newEvaluateCommand(opts *options) *cobra.Command {
	f := &evaluateFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate [manifest.json]",
		Short: "Evaluate a project manifest",
		Long: `Evaluate scores every detected language of a manifest and prints the
results. The manifest is read from a file ("-" for stdin), or fetched from
the upload service when --project-id is given instead.

Example:
  evalctl evaluate manifest.json
  evalctl evaluate manifest.json --language python --summary -o yaml
  EVALCTL_UPLOAD_URL=http://uploads:8080 evalctl evaluate --project-id <uuid>`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.runEvaluate(cmd, f, args)
		},
	}

	cmd.Flags().StringVar(&f.projectID, "project-id", "", "fetch this project's manifest from the upload service")
	cmd.Flags().StringSliceVar(&f.languages, "language", nil, "only evaluate these languages")
	cmd.Flags().BoolVar(&f.summary, "summary", false, "include grade summaries for completed languages")
	cmd.Flags().DurationVar(&f.timeout, "timeout", time.Minute, "overall timeout")
	cmd.Flags().Int("concurrency", usecase.DefaultConcurrency, "languages evaluated at once")
	cmd.Flags().String("upload-url", "", "upload service base URL")
	cmd.Flags().String("upload-api-key", "", "upload service API key")

	_ = opts.v.BindPFlag("concurrency", cmd.Flags().Lookup("concurrency"))
	_ = opts.v.BindPFlag("upload_url", cmd.Flags().Lookup("upload-url"))
	_ = opts.v.BindPFlag("upload_api_key", cmd.Flags().Lookup("upload-api-key"))
	return cmd
}

func (o *options) runEvaluate(cmd *cobra.Command, f *evaluateFlags, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), f.timeout)
	defer cancel()

	var (
		m   *model.Manifest
		err error
	)
	switch {
	case len(args) == 1 && f.projectID != "":
		return errors.New("give either a manifest file or --project-id, not both")
	case len(args) == 1:
		m, err = readManifest(cmd.InOrStdin(), args[0])
	case f.projectID != "":
		m, err = o.fetchManifest(ctx, f.projectID)
	default:
		return errors.New("a manifest file or --project-id is required")
	}
	if err != nil {
		return err
	}
	if len(f.languages) > 0 {
		m.Languages = f.languages
	}
	if err := m.Validate(); err != nil {
		formErr := util.NewValidationFormError("invalid manifest", err)
		return fmt.Errorf("%s: %v", formErr.Message, formErr.Errors)
	}

	reg, err := o.registry()
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if o.v.GetBool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	store := repository.NewMemoryEvaluationRepository()
	evaluations := usecase.NewEvaluationUsecase(store, reg,
		usecase.WithConcurrency(o.v.GetInt("concurrency")),
		usecase.WithLogger(logger),
	)
	results := evaluations.EvaluateProject(ctx, m)

	report := evaluationReport{ProjectID: m.ProjectID, Results: runResults(results)}
	if f.summary {
		for _, r := range results {
			if r.State == usecase.RunCompleted && r.Evaluation != nil {
				report.Summaries = append(report.Summaries, dto.SummaryFromEvaluation(r.Evaluation))
			}
		}
	}
	if err := o.print(cmd.OutOrStdout(), report); err != nil {
		return err
	}
	if usecase.Failed(results) {
		return ErrEvaluationFailed
	}
	return nil
}

// readManifest decodes a manifest file. Responses saved from the upload
// service wrap the manifest in a "data" envelope; both shapes are accepted.
// A manifest without a project id gets a fresh one.
func readManifest(stdin io.Reader, name string) (*model.Manifest, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("manifest %s is not valid JSON", name)
	}
	if inner := gjson.GetBytes(data, "data"); inner.IsObject() {
		data = []byte(inner.Raw)
	}

	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if m.ProjectID == uuid.Nil {
		m.ProjectID = uuid.New()
	}
	return &m, nil
}

func (o *options) fetchManifest(ctx context.Context, rawID string) (*model.Manifest, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid --project-id: %w", err)
	}
	baseURL := o.v.GetString("upload_url")
	if baseURL == "" {
		return nil, errors.New("--upload-url (or EVALCTL_UPLOAD_URL) is required with --project-id")
	}
	client := service.NewUploadServiceClient(&config.UploadServiceConfig{
		BaseURL: baseURL,
		APIKey:  o.v.GetString("upload_api_key"),
		Timeout: 10 * time.Second,
	})
	return client.FetchManifest(ctx, id)
}

func runResults(results []usecase.RunResult) []dto.RunResultDTO {
	out := make([]dto.RunResultDTO, 0, len(results))
	for _, r := range results {
		item := dto.RunResultDTO{
			ProjectID: r.ProjectID,
			Language:  r.Language,
			State:     string(r.State),
		}
		if r.Err != nil {
			item.Error = r.Err.Error()
		}
		if r.Evaluation != nil {
			e := dto.FromEvaluation(r.Evaluation)
			e.RubricSnapshot = nil
			item.Evaluation = &e
		}
		out = append(out, item)
	}
	return out
}
