// Package types provides shared value types for Firmament.
package types

import "strconv"

// ToID64 converts a database scan value to a 64-bit system address.
// The MySQL driver returns BIGINT columns as int64 and CAST(... AS CHAR)
// results as []byte; both shapes appear in candidate queries.
func ToID64(v interface{}) int64 {
	switch i := v.(type) {
	case int64:
		return i
	case int:
		return int64(i)
	case int32:
		return int64(i)
	case uint64:
		return int64(i)
	case uint32:
		return int64(i)
	case float64:
		return int64(i)
	case []byte:
		return parseID64(string(i))
	case string:
		return parseID64(i)
	default:
		return 0
	}
}

func parseID64(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
