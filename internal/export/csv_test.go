package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescast/backend-go/internal/domain"
)

func TestGroupedFixed(t *testing.T) {
	assert.Equal(t, "1,234,567.80", GroupedFixed(1234567.8, 2))
	assert.Equal(t, "1,000", GroupedFixed(1000, 0))
	assert.Equal(t, "999.99", GroupedFixed(999.99, 2))
	assert.Equal(t, "0.00", GroupedFixed(0, 2))
	assert.Equal(t, "0", GroupedFixed(0, 0))
	assert.Equal(t, "123.00", GroupedFixed(123, 2))
	assert.Equal(t, "-1,235", GroupedFixed(-1234.6, 0))
	assert.Equal(t, "12.35", GroupedFixed(12.346, 2))
}

func TestWriteForecastCSV(t *testing.T) {
	rows := []domain.ForecastRow{
		{Date: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), Quantity: 12.5, Revenue: 980},
		{Date: time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC), Quantity: 1234.567, Revenue: 45678.9},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteForecastCSV(&buf, rows))

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "\xEF\xBB\xBF"), "starts with a UTF-8 BOM")

	lines := strings.Split(strings.TrimRight(strings.TrimPrefix(out, "\xEF\xBB\xBF"), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, "date,predicted_quantity,predicted_revenue", lines[0])
	assert.Equal(t, "2025/02/01,12.50,980", lines[1])
	// Grouped values contain commas, so the CSV writer quotes them.
	assert.Equal(t, `2025/02/02,"1,234.57","45,679"`, lines[2])
}

func TestWriteForecastCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteForecastCSV(&buf, nil))

	out := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	assert.Equal(t, "date,predicted_quantity,predicted_revenue\n", out)
}
