package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/service"
)

type ForecastHandler struct {
	service *service.ForecastService
}

func NewForecastHandler(svc *service.ForecastService) *ForecastHandler {
	return &ForecastHandler{service: svc}
}

// forecastRequest is the JSON body of a forecast run. Dates travel as
// "2006-01-02" strings; cutoff is optional and defaults server-side.
// The window start is either an explicit date or a positive
// start_days_after_cutoff offset resolved against the cutoff.
type forecastRequest struct {
	DatasetID            string                 `json:"dataset_id" binding:"required"`
	Backend              string                 `json:"backend" binding:"required"`
	Selection            domain.FilterSelection `json:"selection"`
	Cutoff               string                 `json:"cutoff"`
	Start                string                 `json:"start"`
	StartDaysAfterCutoff int                    `json:"start_days_after_cutoff"`
	End                  string                 `json:"end" binding:"required"`
}

func (r *forecastRequest) window() (domain.ForecastWindow, error) {
	var w domain.ForecastWindow
	var err error

	if strings.TrimSpace(r.Start) != "" {
		if w.Start, err = parseDate(r.Start); err != nil {
			return w, fmt.Errorf("invalid start date: %w", err)
		}
	}
	w.StartOffsetDays = r.StartDaysAfterCutoff
	if w.End, err = parseDate(r.End); err != nil {
		return w, fmt.Errorf("invalid end date: %w", err)
	}
	if strings.TrimSpace(r.Cutoff) != "" {
		if w.Cutoff, err = parseDate(r.Cutoff); err != nil {
			return w, fmt.Errorf("invalid cutoff date: %w", err)
		}
	}
	return w, nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", strings.TrimSpace(s), time.UTC)
}

// Backends lists the forecast backends available in this process.
func (h *ForecastHandler) Backends(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"backends": h.service.Backends()})
}

// Run executes a forecast and returns the rows, summary and metadata.
func (h *ForecastHandler) Run(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid forecast request: "+err.Error())
		return
	}

	window, err := req.window()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.service.Run(c.Request.Context(), req.DatasetID, req.Selection, req.Backend, window)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Export runs a forecast and streams it as a CSV download.
func (h *ForecastHandler) Export(c *gin.Context) {
	var req forecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid forecast request: "+err.Error())
		return
	}

	window, err := req.window()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	data, err := h.service.ExportCSV(c.Request.Context(), req.DatasetID, req.Selection, req.Backend, window)
	if err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("forecast_%s_%s.csv", req.Backend, time.Now().UTC().Format("20060102_150405"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
