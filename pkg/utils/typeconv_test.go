package utils

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStringify(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{json.Number("12.50"), "12.50"},
		{true, "true"},
		{float64(3), "3"},
		{int32(7), "7"},
		{[]interface{}{"a", float64(2)}, "a | 2"},
		{[]interface{}{map[string]interface{}{"k": "v"}}, `{"k":"v"}`},
		{primitive.A{"a", "b"}, "a | b"},
		{map[string]interface{}{"n": float64(1)}, `{"n":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Stringify(tt.in), "%#v", tt.in)
	}
}

func TestParseID(t *testing.T) {
	id, ok := ParseID(" 42 ")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	for _, s := range []string{"", "0", "-3", "L-1"} {
		_, ok := ParseID(s)
		assert.False(t, ok, s)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "héllo", Truncate("héllo", 5))
	assert.Equal(t, "", Truncate("héllo", 0))
}

func TestColumnLetters(t *testing.T) {
	for idx, want := range map[int]string{0: "A", 25: "Z", 26: "AA", 27: "AB", 51: "AZ", 52: "BA", 701: "ZZ", 702: "AAA"} {
		assert.Equal(t, want, ColumnLetters(idx))
	}
	assert.Equal(t, "", ColumnLetters(-1))
}
