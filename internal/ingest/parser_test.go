package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "売上日付,売上数量,税抜売上金額,部門コード,部門名,商品コード,商品名\n" +
	"2025年1月1日,2,\"1,000\",10,ベーカリー,101,食パン\n" +
	"2025年1月3日,1,500,10,ベーカリー,102,ケーキ\n" +
	"not-a-date,1,100,10,ベーカリー,101,食パン\n" +
	"2025年1月4日,1,abc,10,ベーカリー,101,食パン\n"

func TestParse(t *testing.T) {
	result, err := Parse(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	assert.Equal(t, 4, result.Rows)
	assert.Equal(t, 1, result.DroppedBadDate)
	assert.Equal(t, 1, result.DroppedBadAmount)
	require.Len(t, result.Records, 2)

	assert.True(t, result.Axes.Department)
	assert.True(t, result.Axes.Product)
	assert.False(t, result.Axes.OrderMethod, "order method columns are absent")

	first := result.Records[0]
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), first.SaleDate)
	assert.Equal(t, 2.0, first.Quantity)
	assert.Equal(t, "1000", first.NetAmount.String())
	assert.Equal(t, "10", first.DepartmentCode)
	assert.Equal(t, "食パン", first.ProductName)
}

func TestParseWithBOM(t *testing.T) {
	result, err := Parse(strings.NewReader("\xEF\xBB\xBF" + sampleCSV))
	require.NoError(t, err)
	assert.Len(t, result.Records, 2)
}

func TestParseMissingRequiredColumn(t *testing.T) {
	csv := "売上数量,税抜売上金額\n1,100\n"
	_, err := Parse(strings.NewReader(csv))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "売上日付")
}

func TestParseLocalizedDate(t *testing.T) {
	d, err := ParseLocalizedDate("2025年12月01日")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), d)

	d, err = ParseLocalizedDate("2025年1月2日")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseLocalizedDate("")
	assert.Error(t, err)

	_, err = ParseLocalizedDate("2025/01/02 extra")
	assert.Error(t, err)
}

func TestParseGroupedDecimal(t *testing.T) {
	d, err := ParseGroupedDecimal("1,234,567")
	require.NoError(t, err)
	assert.Equal(t, "1234567", d.String())

	d, err = ParseGroupedDecimal("12,345.60")
	require.NoError(t, err)
	assert.Equal(t, "12345.6", d.String())

	_, err = ParseGroupedDecimal("")
	assert.Error(t, err)

	_, err = ParseGroupedDecimal("12a")
	assert.Error(t, err)
}
