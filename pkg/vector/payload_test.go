package vector

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andrew/vecdash/pkg/models"
)

func TestParseRecords(t *testing.T) {
	records, err := ParseRecords([]byte(`  {"a": "b"} `))
	require.NoError(t, err)
	assert.Equal(t, []models.Record{{"a": "b"}}, records)

	records, err = ParseRecords([]byte(`[{"a": 1}, {"b": [true]}]`))
	require.NoError(t, err)
	assert.Len(t, records, 2)

	records, err = ParseRecords([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, records)

	for _, bad := range []string{``, `   `, `"text"`, `42`, `[1, 2]`, `{"a":`} {
		_, err := ParseRecords([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidInput, "input %q", bad)
	}
}

func TestPayloadConversion(t *testing.T) {
	rec := models.Record{
		"title":  "hello",
		"count":  int64(3),
		"small":  7,
		"ratio":  0.5,
		"ok":     true,
		"none":   nil,
		"tags":   []string{"x", "y"},
		"mixed":  []any{"a", 1.5, false},
		"nested": map[string]any{"inner": "value"},
		"number": json.Number("12"),
	}

	payload, err := recordToPayload(rec)
	require.NoError(t, err)
	back := payloadToRecord(payload)

	assert.Equal(t, "hello", back["title"])
	assert.Equal(t, int64(3), back["count"])
	assert.Equal(t, int64(7), back["small"])
	assert.Equal(t, 0.5, back["ratio"])
	assert.Equal(t, true, back["ok"])
	assert.Nil(t, back["none"])
	assert.Contains(t, back, "none")
	assert.Equal(t, []any{"x", "y"}, back["tags"])
	assert.Equal(t, []any{"a", 1.5, false}, back["mixed"])
	assert.Equal(t, map[string]any{"inner": "value"}, back["nested"])
	assert.Equal(t, int64(12), back["number"])
}

func TestPayloadConversion_Unsupported(t *testing.T) {
	_, err := recordToPayload(models.Record{"ch": make(chan int)})
	assert.ErrorContains(t, err, `property "ch"`)

	_, err = recordToPayload(models.Record{"list": []any{"ok", struct{}{}}})
	assert.ErrorContains(t, err, "index 1")
}

func TestRecordText(t *testing.T) {
	rec := models.Record{
		"z":      "last",
		"a":      "first",
		"n":      5.0,
		"nested": map[string]any{"m": "middle", "blank": "  "},
		"tags":   []any{"t1", 2.0, "t2"},
	}

	// keys in order: a, n, nested, tags, z
	assert.Equal(t, "first\nmiddle\nt1\nt2\nlast", recordText(rec))
	assert.Empty(t, recordText(models.Record{"n": 1.0}))
}
