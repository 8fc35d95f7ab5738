package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/afriplan/takeoff/internal/metrics"
	"github.com/afriplan/takeoff/internal/queue"
	"github.com/afriplan/takeoff/internal/server/middleware"
	"github.com/afriplan/takeoff/internal/storage"
	"github.com/afriplan/takeoff/pkg/common"
	"github.com/afriplan/takeoff/pkg/logger"
	"github.com/afriplan/takeoff/pkg/store"

	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

type messageResponse struct {
	Message string `json:"message"`
}

// StartTakeoffHandler accepts a drawing set, creates a queued run and
// publishes it on the take-off queue.
func StartTakeoffHandler(c echo.Context) error {
	type pageBody struct {
		Name     string `json:"name" validate:"required"`
		Text     string `json:"text"`
		ImageKey string `json:"image_key"`
	}
	type startTakeoffBody struct {
		Pages               []pageBody `json:"pages" validate:"required,min=1,dive"`
		InspectionRequested bool       `json:"inspection_requested"`
	}
	type startTakeoffResponse struct {
		Message string `json:"message"`
		RunID   string `json:"run_id,omitempty"`
	}

	projectID := c.Param("id")
	if projectID == "" {
		return c.JSON(http.StatusBadRequest, startTakeoffResponse{Message: "Missing project id"})
	}

	data := new(startTakeoffBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, startTakeoffResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, startTakeoffResponse{Message: "Invalid request body"})
	}

	runID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, startTakeoffResponse{Message: "Internal server error"})
	}

	pages := make([]common.Page, 0, len(data.Pages))
	for _, p := range data.Pages {
		pageID, _ := gonanoid.New()
		pages = append(pages, common.Page{
			ID:       pageID,
			Name:     p.Name,
			Text:     p.Text,
			ImageKey: p.ImageKey,
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if err := app.Runs.CreateRun(ctx, store.Run{
		ID:        runID,
		ProjectID: projectID,
		Status:    store.RunQueued,
	}); err != nil {
		logger.Error("Failed to create run", "err", err)
		return c.JSON(http.StatusInternalServerError, startTakeoffResponse{Message: "Internal server error"})
	}

	msg, err := json.Marshal(queue.TakeoffMessage{
		RunID:               runID,
		ProjectID:           projectID,
		Pages:               pages,
		InspectionRequested: data.InspectionRequested,
	})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, startTakeoffResponse{Message: "Internal server error"})
	}

	if err := queue.PublishFIFO(app.Queue, queue.TakeoffQueue, msg); err != nil {
		logger.Error("Failed to publish takeoff message", "err", err)
		_ = app.Runs.UpdateRunStatus(ctx, runID, store.RunFailed, "failed to queue")
		return c.JSON(http.StatusInternalServerError, startTakeoffResponse{Message: "Internal server error"})
	}

	metrics.RunsQueued.Inc()
	logger.Info("Queued takeoff run", "run_id", runID, "project_id", projectID, "pages", len(pages))
	return c.JSON(http.StatusAccepted, startTakeoffResponse{Message: "Takeoff queued", RunID: runID})
}

// GetRunHandler returns the status row of one run.
func GetRunHandler(c echo.Context) error {
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	run, err := app.Runs.GetRun(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Run not found"})
	}
	if err != nil {
		logger.Error("Failed to get run", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusOK, run)
}

// GetRunReportHandler serves the finished report, either as a presigned
// download link or inline with ?inline=true.
func GetRunReportHandler(c echo.Context) error {
	type reportLinkResponse struct {
		Message string `json:"message"`
		URL     string `json:"url,omitempty"`
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	run, err := app.Runs.GetRun(ctx, c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(http.StatusNotFound, messageResponse{Message: "Run not found"})
	}
	if err != nil {
		logger.Error("Failed to get run", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
	if run.Status != store.RunDone || run.ReportKey == "" {
		return c.JSON(http.StatusConflict, messageResponse{Message: "Report not ready"})
	}

	if c.QueryParam("inline") == "true" {
		data, err := storage.GetFile(ctx, app.S3, run.ReportKey)
		if err != nil {
			logger.Error("Failed to fetch report", "key", run.ReportKey, "err", err)
			return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
		}
		return c.JSONBlob(http.StatusOK, data)
	}

	url, err := storage.GenerateDownloadLink(ctx, app.S3, run.ReportKey)
	if err != nil {
		logger.Error("Failed to presign report link", "key", run.ReportKey, "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
	return c.JSON(http.StatusOK, reportLinkResponse{Message: "OK", URL: url})
}

// RecordCorrectionHandler appends one correction to the run's log.
func RecordCorrectionHandler(c echo.Context) error {
	type correctionBody struct {
		FieldPath string `json:"field_path" validate:"required"`
		Original  string `json:"original"`
		Corrected string `json:"corrected" validate:"required"`
		Author    string `json:"author"`
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App
	runID := c.Param("id")

	data := new(correctionBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
	}

	if _, err := app.Runs.GetRun(ctx, runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.JSON(http.StatusNotFound, messageResponse{Message: "Run not found"})
		}
		logger.Error("Failed to get run", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	id, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	correction := common.Correction{
		ID:        id,
		RunID:     runID,
		FieldPath: data.FieldPath,
		Original:  data.Original,
		Corrected: data.Corrected,
		Author:    data.Author,
		CreatedAt: time.Now().UTC(),
	}
	if err := app.Corrections.SaveCorrection(ctx, correction); err != nil {
		logger.Error("Failed to save correction", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}

	return c.JSON(http.StatusCreated, correction)
}

// ListCorrectionsHandler returns the run's correction log, oldest first.
func ListCorrectionsHandler(c echo.Context) error {
	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	corrections, err := app.Corrections.ListCorrections(ctx, c.Param("id"))
	if err != nil {
		logger.Error("Failed to list corrections", "err", err)
		return c.JSON(http.StatusInternalServerError, messageResponse{Message: "Internal server error"})
	}
	if corrections == nil {
		corrections = []common.Correction{}
	}
	return c.JSON(http.StatusOK, corrections)
}
