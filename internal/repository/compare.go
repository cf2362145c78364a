package repository

import (
	"strings"
	"time"
)

// compareValues orders two normalised JSON values. Numbers compare
// numerically, booleans false before true, and strings lexically unless both
// parse as timestamps, in which case they compare chronologically. It reports
// false when the values are not mutually orderable.
func compareValues(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		return compareFloat(av, bv), true
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		if at, aok := parseTime(av); aok {
			if bt, bok := parseTime(bv); bok {
				return at.Compare(bt), true
			}
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func parseTime(s string) (time.Time, bool) {
	if len(s) < len("2006-01-02T15:04:05Z") || s[4] != '-' || s[10] != 'T' {
		return time.Time{}, false
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// typeRank gives a total order across JSON kinds for sorting mixed columns.
func typeRank(v any) int {
	switch v.(type) {
	case nil:
		return 0
	case bool:
		return 1
	case float64:
		return 2
	case string:
		return 3
	default:
		return 4
	}
}

// sortCompare orders values for SortBy. Missing and null sort first;
// values of different kinds order by kind.
func sortCompare(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	if cmp, ok := compareValues(a, b); ok {
		return cmp
	}
	return 0
}
