package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRow_UnmarshalPreservesOrder(t *testing.T) {
	var row Row
	err := json.Unmarshal([]byte(`{"zeta": 1, "alpha": "a", "mid": null, "id": 12345678901234567890}`), &row)
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "alpha", "mid", "id"}, row.Keys())

	id, ok := row.Get("id")
	require.True(t, ok)
	assert.Equal(t, json.Number("12345678901234567890"), id)

	mid, ok := row.Get("mid")
	require.True(t, ok)
	assert.Nil(t, mid)

	_, ok = row.Get("missing")
	assert.False(t, ok)
}

func TestRow_MarshalRoundTripsOrder(t *testing.T) {
	row := NewRow(
		Field{Key: "Date", Value: "2024-01-02"},
		Field{Key: "Amount", Value: json.Number("10.50")},
		Field{Key: "Ref", Value: "INV-1"},
	)

	data, err := json.Marshal(row)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Date":"2024-01-02","Amount":10.50,"Ref":"INV-1"}`, string(data))
	assert.Equal(t, `{"Date":"2024-01-02","Amount":10.50,"Ref":"INV-1"}`, string(data))
}

func TestRow_Set(t *testing.T) {
	var row Row
	row.Set("a", 1)
	row.Set("b", 2)
	row.Set("a", 3)

	assert.Equal(t, 2, row.Len())
	assert.Equal(t, []string{"a", "b"}, row.Keys())
	v, _ := row.Get("a")
	assert.Equal(t, 3, v)
}

func TestRow_UnmarshalRejectsNonObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "array", input: `[1,2]`},
		{name: "string", input: `"x"`},
		{name: "number", input: `5`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var row Row
			assert.Error(t, json.Unmarshal([]byte(tt.input), &row))
		})
	}
}

func TestRow_UnmarshalNull(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`null`), &row))
	assert.Equal(t, 0, row.Len())
}

func TestRow_NestedValues(t *testing.T) {
	var row Row
	require.NoError(t, json.Unmarshal([]byte(`{"tags":["a","b"],"meta":{"k":1}}`), &row))

	tags, _ := row.Get("tags")
	assert.Equal(t, []any{"a", "b"}, tags)

	meta, _ := row.Get("meta")
	assert.Equal(t, map[string]any{"k": json.Number("1")}, meta)
}
