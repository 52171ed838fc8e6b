// backend-go/internal/export/csv.go
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/salescast/backend-go/internal/domain"
)

// utf8BOM makes Excel detect UTF-8; the files are opened by Japanese
// Excel installs that otherwise assume Shift-JIS.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteForecastCSV renders a forecast result as the downloadable report:
// slash dates, quantities with two decimals, revenue as whole units, both
// thousands-grouped.
func WriteForecastCSV(w io.Writer, rows []domain.ForecastRow) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "predicted_quantity", "predicted_revenue"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Date.Format("2006/01/02"),
			GroupedFixed(row.Quantity, 2),
			GroupedFixed(row.Revenue, 0),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// GroupedFixed formats a number with the given number of decimals and
// comma thousands separators, e.g. 1234567.8 with 2 -> "1,234,567.80".
func GroupedFixed(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, v)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	intPart := s
	var fracPart string
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i:]
	}

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, d := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(d)
	}
	sb.WriteString(fracPart)
	return sb.String()
}
