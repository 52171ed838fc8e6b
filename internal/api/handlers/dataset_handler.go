package handlers

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/salescast/backend-go/internal/domain"
	"github.com/salescast/backend-go/internal/drive"
	"github.com/salescast/backend-go/internal/service"
)

type DatasetHandler struct {
	service        *service.DatasetService
	drive          *drive.Service
	maxUploadBytes int64
}

func NewDatasetHandler(svc *service.DatasetService, driveSvc *drive.Service, maxUploadMB int) *DatasetHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 64
	}
	return &DatasetHandler{
		service:        svc,
		drive:          driveSvc,
		maxUploadBytes: int64(maxUploadMB) << 20,
	}
}

// Upload accepts a multipart CSV upload and registers it as a dataset.
func (h *DatasetHandler) Upload(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "missing file field in upload")
		return
	}
	if fileHeader.Size > h.maxUploadBytes {
		errorResponse(c, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to open upload: "+err.Error())
		return
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, h.maxUploadBytes+1))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "failed to read upload: "+err.Error())
		return
	}
	if int64(len(raw)) > h.maxUploadBytes {
		errorResponse(c, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
		return
	}

	ds, err := h.service.Ingest(c.Request.Context(), fileHeader.Filename, raw)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.service.Info(ds))
}

// IngestFromDrive pulls a CSV out of the configured Drive folder by file id.
func (h *DatasetHandler) IngestFromDrive(c *gin.Context) {
	if h.drive == nil {
		errorResponse(c, http.StatusServiceUnavailable, "drive ingestion is not configured")
		return
	}

	fileID := c.Param("fileID")
	name, err := h.drive.GetFileName(fileID)
	if err != nil {
		respondError(c, err)
		return
	}

	var buf bytes.Buffer
	if err := h.drive.DownloadFile(fileID, &buf); err != nil {
		respondError(c, err)
		return
	}

	ds, err := h.service.Ingest(c.Request.Context(), name, buf.Bytes())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, h.service.Info(ds))
}

// ListDriveFiles lists the CSV files available in the configured folder.
func (h *DatasetHandler) ListDriveFiles(folderID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.drive == nil {
			errorResponse(c, http.StatusServiceUnavailable, "drive ingestion is not configured")
			return
		}
		files, err := h.drive.ListCSVFiles(folderID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"files": files})
	}
}

func (h *DatasetHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"datasets": h.service.List(c.Request.Context())})
}

func (h *DatasetHandler) Get(c *gin.Context) {
	ds, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.service.Info(ds))
}

func (h *DatasetHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Categories returns the cascading selection menus for the current
// selection, passed as query parameters.
func (h *DatasetHandler) Categories(c *gin.Context) {
	sel := parseSelection(c)
	menus, err := h.service.Menus(c.Request.Context(), c.Param("id"), sel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, menus)
}

// Series returns the filtered, gap-filled daily series.
func (h *DatasetHandler) Series(c *gin.Context) {
	sel := parseSelection(c)
	daily, err := h.service.Series(c.Request.Context(), c.Param("id"), sel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"series": daily})
}

// parseSelection reads the per-axis code lists from query parameters,
// supporting both repeated params and comma-separated values.
func parseSelection(c *gin.Context) domain.FilterSelection {
	return domain.FilterSelection{
		Departments:  queryCodes(c, "departments"),
		OrderMethods: queryCodes(c, "order_methods"),
		Products:     queryCodes(c, "products"),
	}
}

func queryCodes(c *gin.Context, param string) []string {
	raw := c.QueryArray(param)
	if len(raw) == 0 {
		if single := strings.TrimSpace(c.Query(param)); single != "" {
			raw = []string{single}
		}
	}

	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrDatasetNotFound):
		errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoData), errors.Is(err, domain.ErrInsufficientData):
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrBackendUnavailable), errors.Is(err, domain.ErrInvalidWindow):
		errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}
