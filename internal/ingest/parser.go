// backend-go/internal/ingest/parser.go
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/salescast/backend-go/internal/domain"
)

// Column headers of the sales detail export. The file is produced by a
// Japanese POS system, so the headers are fixed localized strings.
const (
	colSaleDate        = "売上日付"
	colQuantity        = "売上数量"
	colNetAmount       = "税抜売上金額"
	colDepartmentCode  = "部門コード"
	colDepartmentName  = "部門名"
	colOrderMethodCode = "受注方法コード"
	colOrderMethodName = "受注方法名"
	colProductCode     = "商品コード"
	colProductName     = "商品名"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Result is the outcome of parsing one upload. Rows whose date or amount
// could not be parsed are dropped from Records and surfaced in the
// counters; they never reach aggregation.
type Result struct {
	Records          []domain.TransactionRecord
	Axes             domain.AxisAvailability
	Rows             int
	DroppedBadDate   int
	DroppedBadAmount int
}

// Parse reads a UTF-8 CSV (optional byte-order mark) into typed records.
func Parse(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	colMap := make(map[string]int, len(header))
	for i, col := range header {
		colMap[strings.TrimSpace(col)] = i
	}

	dateIdx, ok := colMap[colSaleDate]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", colSaleDate)
	}
	qtyIdx, ok := colMap[colQuantity]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", colQuantity)
	}
	amountIdx, ok := colMap[colNetAmount]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", colNetAmount)
	}

	// An axis is filterable only when both of its columns are present.
	axes := domain.AxisAvailability{
		Department:  hasBoth(colMap, colDepartmentCode, colDepartmentName),
		OrderMethod: hasBoth(colMap, colOrderMethodCode, colOrderMethodName),
		Product:     hasBoth(colMap, colProductCode, colProductName),
	}

	result := &Result{Axes: axes}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		result.Rows++

		saleDate, err := ParseLocalizedDate(field(row, dateIdx))
		if err != nil {
			result.DroppedBadDate++
			continue
		}

		amount, err := ParseGroupedDecimal(field(row, amountIdx))
		if err != nil {
			result.DroppedBadAmount++
			continue
		}

		qty, err := parseQuantity(field(row, qtyIdx))
		if err != nil {
			result.DroppedBadAmount++
			continue
		}

		rec := domain.TransactionRecord{
			SaleDate:  saleDate,
			Quantity:  qty,
			NetAmount: amount,
		}
		if axes.Department {
			rec.DepartmentCode = field(row, colMap[colDepartmentCode])
			rec.DepartmentName = field(row, colMap[colDepartmentName])
		}
		if axes.OrderMethod {
			rec.OrderMethodCode = field(row, colMap[colOrderMethodCode])
			rec.OrderMethodName = field(row, colMap[colOrderMethodName])
		}
		if axes.Product {
			rec.ProductCode = field(row, colMap[colProductCode])
			rec.ProductName = field(row, colMap[colProductName])
		}
		result.Records = append(result.Records, rec)
	}

	if result.DroppedBadDate > 0 || result.DroppedBadAmount > 0 {
		log.Warn().
			Int("bad_date", result.DroppedBadDate).
			Int("bad_amount", result.DroppedBadAmount).
			Int("rows", result.Rows).
			Msg("dropped unparsable rows from upload")
	}

	return result, nil
}

// ParseLocalizedDate parses a "2025年12月01日" style date by rewriting the
// ideographic year/month markers into ISO separators.
func ParseLocalizedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	s = strings.ReplaceAll(s, "年", "-")
	s = strings.ReplaceAll(s, "月", "-")
	s = strings.ReplaceAll(s, "日", "")
	t, err := time.ParseInLocation("2006-1-2", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse sale date %q: %w", s, err)
	}
	return t, nil
}

// ParseGroupedDecimal parses a comma-grouped numeric string such as
// "1,234,567" or "12,345.60" into an exact decimal.
func ParseGroupedDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("malformed amount %q: %w", s, err)
	}
	return d, nil
}

func parseQuantity(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return 0, fmt.Errorf("empty quantity")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed quantity %q: %w", s, err)
	}
	return v, nil
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func hasBoth(colMap map[string]int, a, b string) bool {
	_, okA := colMap[a]
	_, okB := colMap[b]
	return okA && okB
}
