// backend-go/internal/series/labels.go
package series

import (
	"sort"

	"github.com/salescast/backend-go/internal/domain"
)

// Labels enumerates the distinct category labels of one axis across the
// given records, prepends the "all" sentinel, and sorts the rest by the
// numeric value of their code ascending. Labels with a non-numeric code
// sort as code 0: right after the sentinel, before any positively coded
// entry.
func Labels(records []domain.TransactionRecord, axis domain.CategoryAxis, sentinelName string) []domain.CategoryLabel {
	seen := make(map[string]struct{})
	labels := []domain.CategoryLabel{{Code: domain.AllCode, Name: sentinelName}}

	for _, rec := range records {
		code, name := axisValues(rec, axis)
		if code == "" && name == "" {
			continue
		}
		key := code + "\x00" + name
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		labels = append(labels, domain.CategoryLabel{Code: code, Name: name})
	}

	SortLabels(labels)
	return labels
}

// SortLabels orders labels in place: sentinel first, then ascending
// numeric code, ties broken by name for stability across uploads.
func SortLabels(labels []domain.CategoryLabel) {
	sort.SliceStable(labels, func(i, j int) bool {
		a, b := labels[i], labels[j]
		if a.IsAll() != b.IsAll() {
			return a.IsAll()
		}
		ka, kb := a.SortKey(), b.SortKey()
		if ka != kb {
			return ka < kb
		}
		return a.Name < b.Name
	})
}

func axisValues(rec domain.TransactionRecord, axis domain.CategoryAxis) (code, name string) {
	switch axis {
	case domain.AxisDepartment:
		return rec.DepartmentCode, rec.DepartmentName
	case domain.AxisOrderMethod:
		return rec.OrderMethodCode, rec.OrderMethodName
	case domain.AxisProduct:
		return rec.ProductCode, rec.ProductName
	}
	return "", ""
}
