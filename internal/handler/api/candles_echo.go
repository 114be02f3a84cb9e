package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	models "CandleVault/internal/domain/models"
	"CandleVault/internal/service/validation"
	"CandleVault/internal/usecase"
	xhttp "CandleVault/pkg/http"
	xlogger "CandleVault/pkg/logger"
)

// CandlesEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type CandlesEchoHandler struct {
	logger   *xlogger.Logger
	pipeline *usecase.Pipeline
	transfer *usecase.Transfer
}

func NewCandlesEchoHandler(logger *xlogger.Logger, pipeline *usecase.Pipeline, transfer *usecase.Transfer) *CandlesEchoHandler {
	return &CandlesEchoHandler{logger: logger, pipeline: pipeline, transfer: transfer}
}

func (h *CandlesEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.POST("/candles", h.Submit)
	g.POST("/candles/batch", h.SubmitBatch)
	g.GET("/candles", h.List)
	g.GET("/suggest", h.Suggest)
	g.GET("/stats", h.Stats)
	g.POST("/sessions/:id/undo", h.Undo)
	g.POST("/sessions/:id/redo", h.Redo)
	g.POST("/transfer/import", h.Import)
	g.GET("/transfer/export", h.Export)
}

func (h *CandlesEchoHandler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]string{"status": "ok"})
}

func (h *CandlesEchoHandler) Submit(c echo.Context) error {
	req := &models.SubmitCandleRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ts, ok := parseTimestamp(req.Timestamp)
	if !ok {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("invalid timestamp: %s", req.Timestamp))
	}

	res, err := h.pipeline.Submit(c.Request().Context(), usecase.SubmitParams{
		SessionID:  req.SessionID,
		SeqIndex:   req.SeqIndex,
		Timestamp:  ts,
		Input:      req.Input(),
		Prediction: req.Prediction,
	})
	if err != nil {
		h.logger.Error("submit usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if !res.Committed {
		// Validation verdicts travel in the body with a 422, not an error.
		return xhttp.DataResponse(c, http.StatusUnprocessableEntity, res)
	}
	return xhttp.CreatedResponse(c, res)
}

func (h *CandlesEchoHandler) SubmitBatch(c echo.Context) error {
	req := &models.SubmitBatchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rows := make([]usecase.SubmitParams, 0, len(req.Rows))
	for i, row := range req.Rows {
		ts, ok := parseTimestamp(row.Timestamp)
		if !ok {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("row %d: invalid timestamp: %s", i, row.Timestamp))
		}
		sessionID := row.SessionID
		if sessionID == "" {
			sessionID = req.SessionID
		}
		rows = append(rows, usecase.SubmitParams{
			SessionID:  sessionID,
			SeqIndex:   row.SeqIndex,
			Timestamp:  ts,
			Input:      row.Input(),
			Prediction: row.Prediction,
		})
	}

	results, err := h.pipeline.SubmitBatch(c.Request().Context(), rows)
	if err != nil {
		h.logger.Error("batch usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, results)
}

func (h *CandlesEchoHandler) List(c echo.Context) error {
	req := &models.ListCandlesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	var rows []*models.CandleRecord
	switch {
	case req.Latest > 0:
		rows = h.pipeline.Index().LatestN(req.SessionID, req.Latest)
	case req.ToIndex >= 0:
		rows = h.pipeline.Index().ByIndexRange(req.SessionID, req.FromIndex, req.ToIndex)
	default:
		rows = h.pipeline.Index().BySession(req.SessionID)
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *CandlesEchoHandler) Suggest(c echo.Context) error {
	req := &models.SuggestRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	field, ok := validation.ParseField(req.Field)
	if !ok {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("unknown field: %s", req.Field))
	}

	sugg := h.pipeline.Suggest(field, req.Partial(), req.SessionID, nil)
	return xhttp.SuccessResponse(c, sugg)
}

func (h *CandlesEchoHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.pipeline.Index().Stats())
}

func (h *CandlesEchoHandler) Undo(c echo.Context) error {
	rec, err := h.pipeline.Undo(c.Param("id"))
	if err != nil {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError("nothing to undo"))
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *CandlesEchoHandler) Redo(c echo.Context) error {
	rec, err := h.pipeline.Redo(c.Param("id"))
	if err != nil {
		return xhttp.NotFoundResponse(c, xhttp.NotFoundError("nothing to redo"))
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *CandlesEchoHandler) Import(c echo.Context) error {
	ctx := c.Request().Context()
	body := c.Request().Body
	defer body.Close()

	var (
		report *usecase.ImportReport
		err    error
	)
	switch format := c.QueryParam("format"); format {
	case "", "json":
		report, err = h.transfer.ImportJSON(ctx, body)
	case "csv":
		report, err = h.transfer.ImportCSV(ctx, body)
	default:
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("unknown format: %s", format))
	}
	if err != nil {
		h.logger.Error("import failed", xlogger.Error(err))
		if report == nil {
			return xhttp.BadRequestResponse(c, xhttp.BadRequestError(err.Error()))
		}
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, report)
}

func (h *CandlesEchoHandler) Export(c echo.Context) error {
	sessionID := c.QueryParam("session_id")
	if sessionID == "" {
		return xhttp.BadRequestResponse(c, xhttp.BadRequestError("session_id is required"))
	}

	switch format := c.QueryParam("format"); format {
	case "csv":
		c.Response().Header().Set(echo.HeaderContentType, "text/csv")
		c.Response().WriteHeader(http.StatusOK)
		return h.transfer.ExportCSV(c.Response(), sessionID)
	case "", "json":
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		c.Response().WriteHeader(http.StatusOK)
		return h.transfer.ExportJSON(c.Response(), sessionID)
	default:
		return xhttp.BadRequestResponse(c, xhttp.BadRequestErrorf("unknown format: %s", format))
	}
}

// parseTimestamp treats an empty value as "now decides later"; the
// pipeline stamps zero timestamps at commit time.
func parseTimestamp(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	return xhttp.ParseTime(raw)
}
