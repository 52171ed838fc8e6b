package series

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salescast/backend-go/internal/domain"
)

func TestLabelsSentinelAndOrder(t *testing.T) {
	labels := Labels(fixtureRecords(), domain.AxisDepartment, "All departments")

	require.Len(t, labels, 3)
	assert.True(t, labels[0].IsAll())
	assert.Equal(t, "All departments", labels[0].Name)
	assert.Equal(t, "10", labels[1].Code)
	assert.Equal(t, "20", labels[2].Code)
}

func TestLabelsDeduplicate(t *testing.T) {
	records := fixtureRecords()
	records = append(records, records[0])

	labels := Labels(records, domain.AxisProduct, "All products")
	assert.Len(t, labels, 4, "sentinel plus three distinct products")
}

func TestSortLabelsNonNumericBeforeNumeric(t *testing.T) {
	labels := []domain.CategoryLabel{
		{Code: "20", Name: "Deli"},
		{Code: "misc", Name: "Miscellaneous"},
		{Code: domain.AllCode, Name: "All"},
		{Code: "10", Name: "Bakery"},
	}
	SortLabels(labels)

	codes := make([]string, len(labels))
	for i, l := range labels {
		codes[i] = l.Code
	}
	// Non-numeric codes sort as zero, between the sentinel and code 10.
	assert.Equal(t, []string{domain.AllCode, "misc", "10", "20"}, codes)
}

func TestCategoryLabelDisplay(t *testing.T) {
	assert.Equal(t, "10 - Bakery", domain.CategoryLabel{Code: "10", Name: "Bakery"}.Display())
	assert.Equal(t, "All departments", domain.CategoryLabel{Code: domain.AllCode, Name: "All departments"}.Display())
}
