package memory

import (
	"reflect"
	"sort"

	"github.com/ledgerline/finsight/internal/model"
)

// DiffSheets computes the field-level differences between an original and a
// validated sheet, in stable field order.
func DiffSheets(original, validated map[string]any) []model.FieldDiff {
	fields := make(map[string]bool, len(original)+len(validated))
	for f := range original {
		fields[f] = true
	}
	for f := range validated {
		fields[f] = true
	}

	ordered := make([]string, 0, len(fields))
	for f := range fields {
		ordered = append(ordered, f)
	}
	sort.Strings(ordered)

	var diffs []model.FieldDiff
	for _, f := range ordered {
		oldVal, hadOld := original[f]
		newVal, hasNew := validated[f]

		if hadOld && hasNew && valuesEqual(oldVal, newVal) {
			continue
		}

		diff := model.FieldDiff{Field: f, OldValue: oldVal, NewValue: newVal}
		switch {
		case !hadOld && hasNew:
			diff.ChangeType = model.ChangeAdded
		case hadOld && !hasNew:
			diff.ChangeType = model.ChangeRemoved
		default:
			diff.ChangeType = model.ChangeModified
		}
		diffs = append(diffs, diff)
	}

	return diffs
}

// valuesEqual compares sheet values, treating numerically equal values as the
// same even when their Go types differ after a JSON round trip.
func valuesEqual(a, b any) bool {
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			return af == bf
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
