package utils

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stringify renders a decoded JSON or BSON value as a cell string.
// Scalars print plainly, lists of scalars are joined with " | ",
// and nested objects are re-encoded as compact JSON.
func Stringify(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.Format(time.RFC3339)
	case primitive.DateTime:
		return v.Time().UTC().Format(time.RFC3339)
	case primitive.ObjectID:
		return v.Hex()
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			switch item.(type) {
			case map[string]interface{}, []interface{}:
				parts = append(parts, encodeJSON(item))
			default:
				parts = append(parts, Stringify(item))
			}
		}
		return strings.Join(parts, " | ")
	case primitive.A:
		return Stringify([]interface{}(v))
	case map[string]interface{}:
		return encodeJSON(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func encodeJSON(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// ParseID parses a positive numeric entity id, reporting false for anything else.
func ParseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// ColumnLetters returns the spreadsheet-style name of a zero-based column index:
// 0 -> A, 25 -> Z, 26 -> AA, 27 -> AB.
func ColumnLetters(idx int) string {
	if idx < 0 {
		return ""
	}
	var b []byte
	for n := idx + 1; n > 0; n = (n - 1) / 26 {
		b = append([]byte{byte('A' + (n-1)%26)}, b...)
	}
	return string(b)
}
