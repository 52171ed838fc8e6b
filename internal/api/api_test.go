package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescast/backend-go/internal/config"
	"github.com/salescast/backend-go/internal/forecast"
	"github.com/salescast/backend-go/internal/series"
	"github.com/salescast/backend-go/internal/service"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	datasets := service.NewDatasetService(series.LabelNames{}, nil, nil, nil)
	registry := forecast.NewRegistry(config.ForecastConfig{SeasonalEnabled: true})
	forecasts := service.NewForecastService(datasets, registry, 365)

	return NewRouter(&Services{
		DatasetService:  datasets,
		ForecastService: forecasts,
		MaxUploadMB:     8,
	}, nil)
}

func uploadCSV(t *testing.T, router *gin.Engine, name, content string) map[string]interface{} {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func testCSV() string {
	var sb strings.Builder
	sb.WriteString("売上日付,売上数量,税抜売上金額,部門コード,部門名\n")
	for d := 1; d <= 20; d++ {
		fmt.Fprintf(&sb, "2025年1月%d日,3,450,10,ベーカリー\n", d)
	}
	return sb.String()
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestListBackends(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/forecast/backends", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var payload struct {
		Backends []forecast.Info `json:"backends"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	require.Len(t, payload.Backends, 2)
	assert.Equal(t, "seasonal", payload.Backends[0].ID)
	assert.Equal(t, "linear", payload.Backends[1].ID)
}

func TestUploadAndCategories(t *testing.T) {
	router := newTestRouter(t)
	payload := uploadCSV(t, router, "sales.csv", testCSV())

	id, _ := payload["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, float64(20), payload["rows"])

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/"+id+"/categories", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var menus struct {
		Departments []struct {
			Code string `json:"code"`
			Name string `json:"name"`
		} `json:"departments"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &menus))
	require.Len(t, menus.Departments, 2)
	assert.Equal(t, "all", menus.Departments[0].Code)
	assert.Equal(t, "10", menus.Departments[1].Code)
}

func TestUploadMissingFile(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/datasets", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForecastEndpoint(t *testing.T) {
	router := newTestRouter(t)
	payload := uploadCSV(t, router, "sales.csv", testCSV())
	id := payload["id"].(string)

	body := fmt.Sprintf(`{
		"dataset_id": %q,
		"backend": "linear",
		"cutoff": "2025-01-20",
		"start": "2025-01-21",
		"end": "2025-01-27"
	}`, id)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Backend string `json:"backend"`
		Rows    []struct {
			Quantity float64 `json:"quantity"`
		} `json:"rows"`
		Meta struct {
			Accuracy string `json:"accuracy"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "linear", result.Backend)
	require.Len(t, result.Rows, 7)
	assert.InDelta(t, 3.0, result.Rows[0].Quantity, 1e-6)
	assert.Equal(t, "insufficient", result.Meta.Accuracy)
}

func TestForecastEndpointStartDaysAfterCutoff(t *testing.T) {
	router := newTestRouter(t)
	payload := uploadCSV(t, router, "sales.csv", testCSV())
	id := payload["id"].(string)

	body := fmt.Sprintf(`{
		"dataset_id": %q,
		"backend": "linear",
		"cutoff": "2025-01-20",
		"start_days_after_cutoff": 1,
		"end": "2025-01-27"
	}`, id)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result struct {
		Rows []struct {
			Date     time.Time `json:"date"`
			Quantity float64   `json:"quantity"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Rows, 7)
	assert.Equal(t, "2025-01-21", result.Rows[0].Date.Format("2006-01-02"))
	assert.InDelta(t, 3.0, result.Rows[0].Quantity, 1e-6)

	// Neither a start date nor an offset is a client error.
	body = fmt.Sprintf(`{"dataset_id": %q, "backend": "linear", "end": "2025-01-27"}`, id)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/forecast", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func TestForecastEndpointBadDates(t *testing.T) {
	router := newTestRouter(t)

	body := `{"dataset_id": "x", "backend": "linear", "start": "01/02/2025", "end": "2025-02-10"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestForecastExportEndpoint(t *testing.T) {
	router := newTestRouter(t)
	payload := uploadCSV(t, router, "sales.csv", testCSV())
	id := payload["id"].(string)

	body := fmt.Sprintf(`{
		"dataset_id": %q,
		"backend": "linear",
		"cutoff": "2025-01-20",
		"start": "2025-01-21",
		"end": "2025-01-23"
	}`, id)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/forecast/export", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "\xEF\xBB\xBF"))
	assert.Contains(t, rec.Body.String(), "date,predicted_quantity,predicted_revenue")
}
