// backend-go/internal/series/filter.go
package series

import (
	"strings"

	"github.com/salescast/backend-go/internal/domain"
)

// Engine applies the cascading category filters in their fixed order:
// department, then order method, then product. Each stage filters the raw
// record set; the product stage performs the final aggregation. Axes the
// source file does not carry are skipped entirely.
type Engine struct {
	axes   domain.AxisAvailability
	labels LabelNames
}

// LabelNames carries the display names of the per-axis "all" sentinels.
type LabelNames struct {
	AllDepartments  string
	AllOrderMethods string
	AllProducts     string
}

func NewEngine(axes domain.AxisAvailability, labels LabelNames) *Engine {
	if labels.AllDepartments == "" {
		labels.AllDepartments = "All departments"
	}
	if labels.AllOrderMethods == "" {
		labels.AllOrderMethods = "All order methods"
	}
	if labels.AllProducts == "" {
		labels.AllProducts = "All products"
	}
	return &Engine{axes: axes, labels: labels}
}

// Menus is the set of selectable labels per axis for the current
// selection. Deeper menus are derived from the already-filtered records,
// so the product menu only lists products that exist within the chosen
// departments and order methods. Absent axes yield nil menus.
type Menus struct {
	Departments  []domain.CategoryLabel `json:"departments,omitempty"`
	OrderMethods []domain.CategoryLabel `json:"order_methods,omitempty"`
	Products     []domain.CategoryLabel `json:"products,omitempty"`
}

// Menus derives the cascading selection menus for the given selection.
func (e *Engine) Menus(records []domain.TransactionRecord, sel domain.FilterSelection) Menus {
	var menus Menus

	subset := records
	if e.axes.Department {
		menus.Departments = Labels(subset, domain.AxisDepartment, e.labels.AllDepartments)
		subset = filterByCodes(subset, domain.AxisDepartment, sel.Departments)
	}
	if e.axes.OrderMethod {
		menus.OrderMethods = Labels(subset, domain.AxisOrderMethod, e.labels.AllOrderMethods)
		subset = filterByCodes(subset, domain.AxisOrderMethod, sel.OrderMethods)
	}
	if e.axes.Product {
		menus.Products = Labels(subset, domain.AxisProduct, e.labels.AllProducts)
	}
	return menus
}

// Apply runs the full cascade and returns the filtered subset of the raw
// records. An axis whose selection is empty or contains the sentinel
// passes records through unchanged.
func (e *Engine) Apply(records []domain.TransactionRecord, sel domain.FilterSelection) []domain.TransactionRecord {
	subset := records
	if e.axes.Department {
		subset = filterByCodes(subset, domain.AxisDepartment, sel.Departments)
	}
	if e.axes.OrderMethod {
		subset = filterByCodes(subset, domain.AxisOrderMethod, sel.OrderMethods)
	}
	if e.axes.Product {
		subset = filterByCodes(subset, domain.AxisProduct, sel.Products)
	}
	return subset
}

// Series applies the cascade and aggregates the survivors into a daily
// series. When the final filtered set is empty it reports ErrNoData
// rather than returning a series with a meaningless span.
func (e *Engine) Series(records []domain.TransactionRecord, sel domain.FilterSelection) (domain.DailySeries, error) {
	subset := e.Apply(records, sel)
	if len(subset) == 0 {
		return nil, domain.ErrNoData
	}
	s := Aggregate(subset)
	if len(s) == 0 {
		return nil, domain.ErrNoData
	}
	return s, nil
}

func filterByCodes(records []domain.TransactionRecord, axis domain.CategoryAxis, codes []string) []domain.TransactionRecord {
	if domain.SelectsAll(codes) {
		return records
	}

	allowed := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		allowed[c] = struct{}{}
	}
	if len(allowed) == 0 {
		return records
	}

	out := make([]domain.TransactionRecord, 0, len(records))
	for _, rec := range records {
		code, _ := axisValues(rec, axis)
		if _, ok := allowed[strings.TrimSpace(code)]; ok {
			out = append(out, rec)
		}
	}
	return out
}
