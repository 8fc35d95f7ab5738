package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/afriplan/takeoff/internal/storage"
	"github.com/afriplan/takeoff/internal/util"
	"github.com/afriplan/takeoff/pkg/ai"
	"github.com/afriplan/takeoff/pkg/classify"
	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/extract"
	"github.com/afriplan/takeoff/pkg/logger"
	"github.com/afriplan/takeoff/pkg/pricing"
	"github.com/afriplan/takeoff/pkg/report"
	"github.com/afriplan/takeoff/pkg/store"
	"github.com/afriplan/takeoff/pkg/validate"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// TakeoffMessage is the work item published on the take-off queue.
type TakeoffMessage struct {
	RunID               string        `json:"run_id"`
	ProjectID           string        `json:"project_id"`
	Pages               []common.Page `json:"pages"`
	InspectionRequested bool          `json:"inspection_requested,omitempty"`
}

// ProcessTakeoffMessage runs the full pipeline for one queued take-off and
// stores the report. Returning an error sends the message through the
// retry cycle.
func ProcessTakeoffMessage(
	ctx context.Context,
	s3Client *s3.Client,
	aiClient ai.DrawingAIClient,
	runs store.RunStore,
	corrections store.CorrectionStore,
	body string,
) error {
	var msg TakeoffMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("unmarshal takeoff message: %w", err)
	}
	if msg.RunID == "" || len(msg.Pages) == 0 {
		return fmt.Errorf("takeoff message missing run id or pages")
	}

	logger.Info("[Takeoff] Processing run", "run_id", msg.RunID, "pages", len(msg.Pages))

	if err := runs.UpdateRunStatus(ctx, msg.RunID, store.RunProcessing, ""); err != nil {
		return fmt.Errorf("mark run processing: %w", err)
	}

	log, err := corrections.ListProjectCorrections(ctx, msg.ProjectID)
	if err != nil {
		return markFailed(ctx, runs, msg.RunID, fmt.Errorf("load correction log: %w", err))
	}

	pipeline := buildPipeline(s3Client, aiClient, msg.InspectionRequested)

	result, err := pipeline.Run(ctx, msg.RunID, msg.ProjectID, msg.Pages, log)
	if err != nil {
		return markFailed(ctx, runs, msg.RunID, fmt.Errorf("pipeline: %w", err))
	}

	data, err := json.Marshal(result)
	if err != nil {
		return markFailed(ctx, runs, msg.RunID, fmt.Errorf("marshal report: %w", err))
	}

	reportKey := fmt.Sprintf("reports/%s.json", msg.RunID)
	if err := storage.PutFile(ctx, s3Client, reportKey, "application/json", bytes.NewReader(data)); err != nil {
		return markFailed(ctx, runs, msg.RunID, fmt.Errorf("store report: %w", err))
	}

	if err := runs.SetRunReport(ctx, msg.RunID, reportKey); err != nil {
		return markFailed(ctx, runs, msg.RunID, err)
	}
	if err := runs.UpdateRunStatus(ctx, msg.RunID, store.RunDone, ""); err != nil {
		return err
	}

	logger.Info("[Takeoff] Run done",
		"run_id", msg.RunID,
		"units", len(result.Units),
		"compliance", result.Validation.ComplianceScore,
		"grand_total", result.Pricing.GrandTotal)
	return nil
}

func buildPipeline(s3Client *s3.Client, aiClient ai.DrawingAIClient, inspection bool) *report.Pipeline {
	validationParams := validate.DefaultParams()
	if path := util.GetEnv("VALIDATION_PARAMS"); path != "" {
		loaded, err := validate.LoadParams(path)
		if err != nil {
			logger.Warn("[Takeoff] Using default validation params", "err", err)
		} else {
			validationParams = loaded
		}
	}

	rates := pricing.DefaultRates()
	if path := util.GetEnv("PRICING_RATES"); path != "" {
		loaded, err := pricing.LoadRates(path)
		if err != nil {
			logger.Warn("[Takeoff] Using default rates", "err", err)
		} else {
			rates = loaded
		}
	}

	var conditions []string
	if raw := util.GetEnv("SITE_CONDITIONS"); raw != "" {
		for _, c := range strings.Split(raw, ",") {
			if c = strings.TrimSpace(c); c != "" {
				conditions = append(conditions, c)
			}
		}
	}

	extractor := extract.NewExtractor(extract.NewExtractorParams{
		Client:              aiClient,
		ExtractModel:        util.GetEnv("AI_EXTRACT_MODEL"),
		EscalateModel:       util.GetEnv("AI_ESCALATE_MODEL"),
		ParallelUnits:       util.GetEnvNumeric("TAKEOFF_PARALLEL_UNITS", 4),
		MaxRetries:          util.GetEnvNumeric("TAKEOFF_MAX_RETRIES", 2),
		EscalationThreshold: 0, // defaulted by the extractor
		ImageLoader: func(ctx context.Context, imageKey string) (ai.PageImage, error) {
			return storage.LoadPageImage(ctx, s3Client, imageKey)
		},
	})

	return report.NewPipeline(report.NewPipelineParams{
		Client:    aiClient,
		Extractor: extractor,
		Validator: validate.NewEngine(validationParams),
		Pricer:    pricing.NewEngine(pricing.NewEngineParams{Rates: rates, SiteConditions: conditions}),
		Classify: classify.Options{
			InspectionRequested: inspection,
		},
	})
}

func markFailed(ctx context.Context, runs store.RunStore, runID string, cause error) error {
	if err := runs.UpdateRunStatus(ctx, runID, store.RunFailed, cause.Error()); err != nil {
		logger.Error("[Takeoff] Failed to mark run failed", "run_id", runID, "err", err)
	}
	return cause
}
