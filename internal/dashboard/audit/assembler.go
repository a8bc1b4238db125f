// Package audit assembles service events into sorted, paginated, exportable
// views: district filter, cohort filter, free-text search, then a descending
// sort on best-effort service date.
package audit

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/cohort"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/config"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/district"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

// Query is the transient view state for one audit rendering.
type Query struct {
	Search   string
	District string
	Cohort   models.CohortSpec
	Page     int
	PageSize int
}

type sortableRow struct {
	row  models.AuditRow
	date time.Time
}

// Assemble filters, searches, and sorts service events into audit rows.
// Unparsable service dates sort as oldest. Ties on identical timestamps keep
// no guaranteed order; this is an accepted non-determinism for a read-only
// view.
func Assemble(events []records.Record, q Query, idx *district.Index, cfg config.Engine) []models.AuditRow {
	rows := make([]sortableRow, 0, len(events))

	for _, event := range events {
		rawDistrict := records.Text(event, cfg.DistrictKeys)
		if !idx.Matches(q.District, rawDistrict) {
			continue
		}
		if !cohort.Matches(event, q.Cohort, cfg.CohortKeyMap) {
			continue
		}

		row := models.AuditRow{
			ID:               records.Text(event, cfg.EventOwnerKeys),
			District:         rawDistrict,
			ServiceDate:      records.Text(event, cfg.ServiceDateKeys),
			ProvidedServices: splitServices(records.Resolve(event, cfg.ServiceKeys)),
			CaseworkerName:   records.Text(event, cfg.CaseworkerKeys),
		}
		if !matchesSearch(row, q.Search) {
			continue
		}

		date, _ := records.ParseFlexibleDate(row.ServiceDate)
		rows = append(rows, sortableRow{row: row, date: date})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].date.After(rows[j].date)
	})

	out := make([]models.AuditRow, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return out
}

// Page slices assembled rows into one page. Pages are 1-based; out-of-range
// pages come back empty rather than erroring.
func Page(rows []models.AuditRow, page, pageSize int) models.AuditPage {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 1
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	return models.AuditPage{
		Rows:      rows[start:end],
		Page:      page,
		PageSize:  pageSize,
		TotalRows: len(rows),
	}
}

// csvHeader is the fixed export column order.
var csvHeader = []string{"household_id", "district", "service_date", "services", "caseworker"}

// WriteCSV writes rows in the fixed column order. Every field is
// double-quoted and embedded quotes are doubled; encoding/csv only quotes on
// demand, so the quoting is explicit here.
func WriteCSV(w io.Writer, rows []models.AuditRow) error {
	if err := writeCSVLine(w, csvHeader); err != nil {
		return err
	}
	for _, row := range rows {
		fields := []string{
			row.ID,
			row.District,
			row.ServiceDate,
			strings.Join(row.ProvidedServices, "; "),
			row.CaseworkerName,
		}
		if err := writeCSVLine(w, fields); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVLine(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	if _, err := fmt.Fprintf(w, "%s\r\n", strings.Join(quoted, ",")); err != nil {
		return fmt.Errorf("write csv line: %w", err)
	}
	return nil
}

func matchesSearch(row models.AuditRow, search string) bool {
	needle := strings.ToLower(strings.TrimSpace(search))
	if needle == "" {
		return true
	}
	haystacks := []string{
		row.ID,
		row.District,
		row.ServiceDate,
		row.CaseworkerName,
		strings.Join(row.ProvidedServices, " "),
	}
	for _, h := range haystacks {
		if strings.Contains(strings.ToLower(h), needle) {
			return true
		}
	}
	return false
}

// splitServices renders the provided-services field, which the export stores
// as a delimited string, a JSON array, or occasionally a bare scalar.
func splitServices(v any) []string {
	switch t := v.(type) {
	case string:
		if t == records.NotAvailable {
			return nil
		}
		var out []string
		for _, part := range strings.FieldsFunc(t, func(r rune) bool { return r == ';' || r == ',' }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if v == nil {
			return nil
		}
		return []string{fmt.Sprint(v)}
	}
}
