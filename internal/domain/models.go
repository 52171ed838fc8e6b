// backend-go/internal/domain/models.go
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AllCode is the sentinel category code meaning "no filtering on this axis".
const AllCode = "all"

// TransactionRecord is one row of the uploaded sales detail file.
// Records are created once at load time and never mutated; filtering
// works on subsets.
type TransactionRecord struct {
	SaleDate        time.Time       `json:"sale_date" db:"sale_date"`
	Quantity        float64         `json:"quantity" db:"quantity"`
	NetAmount       decimal.Decimal `json:"net_amount" db:"net_amount"`
	DepartmentCode  string          `json:"department_code" db:"department_code"`
	DepartmentName  string          `json:"department_name" db:"department_name"`
	OrderMethodCode string          `json:"order_method_code" db:"order_method_code"`
	OrderMethodName string          `json:"order_method_name" db:"order_method_name"`
	ProductCode     string          `json:"product_code" db:"product_code"`
	ProductName     string          `json:"product_name" db:"product_name"`
}

// DailyPoint is one calendar day of aggregated sales.
type DailyPoint struct {
	Date     time.Time       `json:"date"`
	Quantity float64         `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
}

// DailySeries is a gap-free daily series sorted ascending by date.
// Adjacent entries always differ by exactly one day; days without
// transactions carry zero quantity and revenue.
type DailySeries []DailyPoint

func (s DailySeries) FirstDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[0].Date
}

func (s DailySeries) LastDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

// Quantities returns the quantity column as a float slice.
func (s DailySeries) Quantities() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Quantity
	}
	return out
}

// Revenues returns the revenue column as a float slice. Exact decimal
// arithmetic stops at aggregation; model fitting is floating point.
func (s DailySeries) Revenues() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Revenue.InexactFloat64()
	}
	return out
}

// CategoryAxis identifies one filter dimension.
type CategoryAxis string

const (
	AxisDepartment  CategoryAxis = "department"
	AxisOrderMethod CategoryAxis = "order_method"
	AxisProduct     CategoryAxis = "product"
)

// CategoryLabel is a structured code+name pair. The display string is
// derived at the presentation boundary; filtering and sorting always use
// the structured code.
type CategoryLabel struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (l CategoryLabel) IsAll() bool {
	return l.Code == AllCode
}

// Display renders the label the way the selection menus show it.
func (l CategoryLabel) Display() string {
	if l.IsAll() {
		return l.Name
	}
	return l.Code + " - " + l.Name
}

// SortKey returns the numeric ordering value of the label's code.
// Non-numeric codes sort as zero, after the sentinel and before any
// positively coded label.
func (l CategoryLabel) SortKey() int64 {
	code := strings.TrimSpace(l.Code)
	if v, err := strconv.ParseFloat(code, 64); err == nil {
		return int64(v)
	}
	return 0
}

// AxisAvailability records which filter axes the uploaded file carries.
// An axis is filterable only when both its code and name columns exist;
// the flags are derived once at load time.
type AxisAvailability struct {
	Department  bool `json:"department"`
	OrderMethod bool `json:"order_method"`
	Product     bool `json:"product"`
}

// FilterSelection holds the chosen category codes per axis. An empty
// slice or one containing the sentinel code selects every record.
type FilterSelection struct {
	Departments  []string `json:"departments"`
	OrderMethods []string `json:"order_methods"`
	Products     []string `json:"products"`
}

// SelectsAll reports whether a single-axis selection is a no-op filter.
func SelectsAll(codes []string) bool {
	if len(codes) == 0 {
		return true
	}
	for _, c := range codes {
		if strings.TrimSpace(c) == AllCode {
			return true
		}
	}
	return false
}

// ForecastWindow is the operator-chosen forecast period together with
// the training cutoff date. Start may be given either as an explicit
// date or as a positive day offset from the resolved cutoff; when both
// are present the explicit date wins.
type ForecastWindow struct {
	Cutoff          time.Time `json:"cutoff"`
	Start           time.Time `json:"start"`
	StartOffsetDays int       `json:"start_days_after_cutoff,omitempty"`
	End             time.Time `json:"end"`
}

// HorizonDays is the nominal number of days in [Start, End], inclusive.
func (w ForecastWindow) HorizonDays() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// Dataset is one parsed upload held by the service.
type Dataset struct {
	ID               string              `json:"id"`
	Name             string              `json:"name"`
	Fingerprint      string              `json:"fingerprint"`
	UploadedAt       time.Time           `json:"uploaded_at"`
	Rows             int                 `json:"rows"`
	DroppedBadDate   int                 `json:"dropped_bad_date"`
	DroppedBadAmount int                 `json:"dropped_bad_amount"`
	Axes             AxisAvailability    `json:"axes"`
	Records          []TransactionRecord `json:"-"`
}

// DatasetInfo is the listing view of a dataset, without its records.
type DatasetInfo struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Fingerprint      string           `json:"fingerprint"`
	UploadedAt       time.Time        `json:"uploaded_at"`
	Rows             int              `json:"rows"`
	DroppedBadDate   int              `json:"dropped_bad_date"`
	DroppedBadAmount int              `json:"dropped_bad_amount"`
	Axes             AxisAvailability `json:"axes"`
	FirstDate        string           `json:"first_date,omitempty"`
	LastDate         string           `json:"last_date,omitempty"`
	Days             int              `json:"days"`
}

// ForecastRow is one predicted day.
type ForecastRow struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
	Revenue  float64   `json:"revenue"`
}

// ForecastSummary aggregates the forecast period, mirroring the summary
// metrics shown above the result table.
type ForecastSummary struct {
	Days            int     `json:"days"`
	TotalQuantity   float64 `json:"total_quantity"`
	MeanQuantity    float64 `json:"mean_quantity"`
	TotalRevenue    float64 `json:"total_revenue"`
	MeanRevenue     float64 `json:"mean_revenue"`
	MaxDailyRevenue float64 `json:"max_daily_revenue"`
}

// ForecastMeta describes the data actually used for training.
type ForecastMeta struct {
	DataFirst     time.Time `json:"data_first"`
	DataLast      time.Time `json:"data_last"`
	DataDays      int       `json:"data_days"`
	TrainingFirst time.Time `json:"training_first"`
	TrainingLast  time.Time `json:"training_last"`
	TrainingDays  int       `json:"training_days"`
	Accuracy      string    `json:"accuracy"`
}

// ForecastResult is the full outcome of one forecast run.
type ForecastResult struct {
	Backend string          `json:"backend"`
	Rows    []ForecastRow   `json:"rows"`
	Summary ForecastSummary `json:"summary"`
	Meta    ForecastMeta    `json:"meta"`
}
