package mapper

import (
	"encoding/json"
	"sort"
	"strconv"
)

// String returns raw[key] coerced to a string. Missing keys, nil values and
// unsupported types all come back as "" - bank payloads are inconsistent
// about which optional fields are present, and absence is never an error.
func String(raw RawMap, key string) string {
	if raw == nil {
		return ""
	}
	switch v := raw[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// OptString is String with empty-means-absent semantics: it returns nil for
// missing keys and empty strings, a pointer otherwise.
func OptString(raw RawMap, key string) *string {
	if s := String(raw, key); s != "" {
		return &s
	}
	return nil
}

// SubMap returns raw[key] as a nested RawMap, or nil when the key is absent
// or holds something else.
func SubMap(raw RawMap, key string) RawMap {
	if raw == nil {
		return nil
	}
	if m, ok := raw[key].(map[string]any); ok {
		return m
	}
	return nil
}

// Slice returns raw[key] as a list of nested maps. A single nested map is
// wrapped into a one-element slice: XML-decoded bank payloads collapse
// single-item lists into a plain object.
func Slice(raw RawMap, key string) []RawMap {
	if raw == nil {
		return nil
	}
	switch v := raw[key].(type) {
	case []any:
		items := make([]RawMap, 0, len(v))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				items = append(items, m)
			}
		}
		return items
	case []map[string]any:
		items := make([]RawMap, 0, len(v))
		items = append(items, v...)
		return items
	case map[string]any:
		return []RawMap{v}
	default:
		return nil
	}
}

// StrPtr returns a pointer to s. Convenience for building records.
func StrPtr(s string) *string { return &s }

// IntPtr returns a pointer to i.
func IntPtr(i int) *int { return &i }

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool { return &b }

// DetailPtr returns a pointer to d.
func DetailPtr(d StatusDetail) *StatusDetail { return &d }

// SecurityPtr returns a pointer to s.
func SecurityPtr(s TransactionSecurity) *TransactionSecurity { return &s }

// CodeTable maps a gateway's raw return/error codes to canonical status
// details. Tables are fixed at construction and read-only afterwards.
type CodeTable map[string]StatusDetail

// Detail looks up a raw code; nil when the code is not in the table, which
// callers surface as an unclassified decline.
func (t CodeTable) Detail(code string) *StatusDetail {
	if d, ok := t[code]; ok {
		return &d
	}
	return nil
}

// SortTransactionsByTime orders history legs ascending by transaction time.
// Legs without a time sort after the dated ones; ties keep source order.
func SortTransactionsByTime(txs []TransactionRecord) {
	sort.SliceStable(txs, func(i, j int) bool {
		ti, tj := txs[i].TransactionTime, txs[j].TransactionTime
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.Before(*tj)
		}
	})
}
