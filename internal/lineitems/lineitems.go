// Package lineitems shapes quote line item rows for a configurable table of up
// to five fields.
package lineitems

import (
	"strings"
	"unicode"
)

// MaxFields is the number of configurable columns.
const MaxFields = 5

// Header is a table column.
type Header struct {
	Label     string `json:"label"`
	FieldName string `json:"fieldName"`
}

// ConfiguredFields keeps the first MaxFields non-empty field names.
func ConfiguredFields(fields ...string) []string {
	out := make([]string, 0, MaxFields)
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out = append(out, f)
		if len(out) == MaxFields {
			break
		}
	}
	return out
}

// Headers returns one header per field.
func Headers(fields []string) []Header {
	headers := make([]Header, len(fields))
	for i, f := range fields {
		headers[i] = Header{Label: FormatLabel(f), FieldName: f}
	}
	return headers
}

// Title is the table caption, qualified by the product family filter.
func Title(family string) string {
	if family == "" {
		return "Quote Line Items"
	}
	return "Quote Line Items - " + family
}

// FormatLabel turns an API field name into a column label: the last segment
// of a dotted path, without a custom-field "__c" suffix, split into words on
// underscores and case changes, each word capitalised.
//
//	Product2.ProductCode  → "Product Code"
//	Discount_Percent__c   → "Discount Percent"
//	SBQQ__ListPrice__c    → "SBQQ List Price"
func FormatLabel(field string) string {
	if field == "" {
		return ""
	}
	if i := strings.LastIndex(field, "."); i >= 0 {
		field = field[i+1:]
	}
	field = strings.TrimSuffix(field, "__c")

	words := make([]string, 0, 4)
	for _, part := range strings.FieldsFunc(field, func(r rune) bool { return r == '_' || unicode.IsSpace(r) }) {
		words = append(words, splitCamel(part)...)
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// splitCamel splits "ListPrice" into "List", "Price" and keeps acronyms
// together: "SBQQQuote" → "SBQQ", "Quote".
func splitCamel(s string) []string {
	runes := []rune(s)
	var words []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		boundary := unicode.IsLower(prev) && unicode.IsUpper(cur) ||
			unicode.IsUpper(prev) && unicode.IsUpper(cur) && i+1 < len(runes) && unicode.IsLower(runes[i+1]) ||
			unicode.IsDigit(prev) != unicode.IsDigit(cur) && unicode.IsLetter(cur) && unicode.IsUpper(cur)
		if boundary {
			words = append(words, string(runes[start:i]))
			start = i
		}
	}
	return append(words, string(runes[start:]))
}

// FieldValue reads field from record, following dotted paths through nested
// objects. Missing values read as "".
func FieldValue(record map[string]any, field string) any {
	if record == nil || field == "" {
		return ""
	}
	var current any = record
	for _, part := range strings.Split(field, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return ""
		}
		current, ok = m[part]
		if !ok || current == nil {
			return ""
		}
	}
	return current
}

// Process copies each row and fills in configured fields that are only
// reachable through a dotted path, so the table can bind them by name.
func Process(rows []map[string]any, fields []string) []map[string]any {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		processed := make(map[string]any, len(row)+len(fields))
		for k, v := range row {
			processed[k] = v
		}
		for _, f := range fields {
			if _, ok := processed[f]; !ok {
				processed[f] = FieldValue(row, f)
			}
		}
		out = append(out, processed)
	}
	return out
}
