package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"glucotrack/internal/repository"
)

// parseValue reads a flag value as JSON when it parses (numbers, booleans,
// null, quoted strings) and as a bare string otherwise. A numeric-looking id
// therefore needs quotes to compare as a string: userId="123".
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

// parseWhere turns "field:op:value" clauses into a filter. "field=value" is
// shorthand for eq. in and nin take comma-separated values.
func parseWhere(clauses []string) (repository.Filter, error) {
	f := repository.Filter{}
	for _, clause := range clauses {
		if field, value, ok := strings.Cut(clause, "="); ok && !strings.Contains(field, ":") {
			f = f.And(strings.TrimSpace(field), repository.Eq(parseValue(value)))
			continue
		}
		parts := strings.SplitN(clause, ":", 3)
		if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("%w: where clause %q, want field:op:value", repository.ErrInvalidFilter, clause)
		}
		field, op, value := strings.TrimSpace(parts[0]), repository.Op(strings.ToLower(strings.TrimSpace(parts[1]))), parts[2]
		switch op {
		case repository.OpIn, repository.OpNotIn:
			var values []any
			for _, item := range strings.Split(value, ",") {
				values = append(values, parseValue(strings.TrimSpace(item)))
			}
			f = f.And(field, repository.Condition{Op: op, Values: values})
		default:
			f = f.And(field, repository.Condition{Op: op, Value: parseValue(value)})
		}
	}
	return f, nil
}

// parseFilterJSON accepts the object form understood by FilterFromMap.
func parseFilterJSON(raw string) (repository.Filter, error) {
	if strings.TrimSpace(raw) == "" {
		return repository.Filter{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("%w: --filter must be a JSON object: %v", repository.ErrInvalidFilter, err)
	}
	return repository.FilterFromMap(m)
}

// parseSort reads "field" or "field:asc|desc".
func parseSort(keys []string) ([]repository.QueryOption, error) {
	var opts []repository.QueryOption
	for _, key := range keys {
		field, dir, _ := strings.Cut(key, ":")
		if strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("%w: empty sort field in %q", repository.ErrInvalidQuery, key)
		}
		d, err := repository.ParseDirection(dir)
		if err != nil {
			return nil, err
		}
		opts = append(opts, repository.SortBy(strings.TrimSpace(field), d))
	}
	return opts, nil
}

func mergeFilters(a, b repository.Filter) repository.Filter {
	out := repository.Filter{}
	for field, conds := range a {
		out = out.And(field, conds...)
	}
	for field, conds := range b {
		out = out.And(field, conds...)
	}
	return out
}
