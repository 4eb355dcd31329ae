// Package reading turns raw result rows into readings keyed by primary key value.
package reading

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Null is how a SQL NULL is rendered inside a Reading
const Null = "NULL"

// TimeLayout is used to render time.Time column values
const TimeLayout = "2006-01-02 15:04:05"

// ErrPrimaryKeyNotFound is returned when the primary key column is not part of the result set
var ErrPrimaryKeyNotFound = errors.New("primary key column not found in result columns")

// Reading maps a stringified primary key value to the remaining columns of its row
type Reading map[string]map[string]string

// Keys returns the reading keys in sorted order
func (r Reading) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map converts the reading into the generic shape handed back to hosts
func (r Reading) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r))
	for k, fields := range r {
		nested := make(map[string]interface{}, len(fields))
		for col, val := range fields {
			nested[col] = val
		}
		out[k] = nested
	}
	return out
}

// Stats counts what Transform did with its input
type Stats struct {
	Rows        int
	Skipped     int
	Overwritten int
}

// Transform keys every row by its primary key value.
// The primary key column is dropped from the nested map and every other value
// is stringified. Rows whose width does not match columns are skipped, and a
// later row with an already seen key replaces the earlier one.
// If primaryKey is not one of columns an empty Reading and ErrPrimaryKeyNotFound
// are returned.
func Transform(primaryKey string, columns []string, rows [][]interface{}) (Reading, Stats, error) {
	readings := make(Reading)
	stats := Stats{Rows: len(rows)}

	keyIndex := -1
	for i, col := range columns {
		if col == primaryKey {
			keyIndex = i
			break
		}
	}
	if primaryKey == "" || keyIndex < 0 {
		return readings, stats, fmt.Errorf("%w: %q", ErrPrimaryKeyNotFound, primaryKey)
	}

	for _, row := range rows {
		if len(row) != len(columns) {
			stats.Skipped++
			continue
		}

		data := make(map[string]string, len(columns)-1)
		for i, val := range row {
			if i == keyIndex {
				continue
			}
			data[columns[i]] = String(val)
		}

		key := String(row[keyIndex])
		if _, ok := readings[key]; ok {
			stats.Overwritten++
		}
		readings[key] = data
	}

	return readings, stats, nil
}

// String renders a driver value the way it appears in a Reading
func String(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return Null
	case string:
		return val
	case []byte:
		return string(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case int:
		return strconv.Itoa(val)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format(TimeLayout)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
