// Package cohort evaluates sub-population filter specs against records.
package cohort

import (
	"encoding/json"

	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/dashboard/models"
	"github.com/BlueCodeSystems/ecap-plus-pmp-sub000/internal/records"
)

// Matches reports whether a record belongs to the cohort described by spec.
// Every key not set to "all" must pass (logical AND). A "yes" selection
// passes iff the mapped field holds an exact truthy value; "no" passes iff it
// holds an exact falsy value. Anything else, including a missing field or
// "Not Applicable", fails both branches.
func Matches(r records.Record, spec models.CohortSpec, keyMap map[string]string) bool {
	for key, sel := range spec {
		if sel == models.SelectAll || sel == "" {
			continue
		}
		dataKey := key
		if mapped, ok := keyMap[key]; ok {
			dataKey = mapped
		}
		v, ok := r[dataKey]
		if !ok {
			return false
		}
		switch sel {
		case models.SelectYes:
			if !isTruthy(v) {
				return false
			}
		case models.SelectNo:
			if !isFalsy(v) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Membership is exact: "1", "true", 1, true. The upstream export is not
// consistent about types, so JSON numbers and raw strings both appear.
func isTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "1" || t == "true"
	case int:
		return t == 1
	case int64:
		return t == 1
	case float64:
		return t == 1
	case json.Number:
		return t.String() == "1"
	default:
		return false
	}
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case bool:
		return !t
	case string:
		return t == "0" || t == "false"
	case int:
		return t == 0
	case int64:
		return t == 0
	case float64:
		return t == 0
	case json.Number:
		return t.String() == "0"
	default:
		return false
	}
}
