package vector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	qdrantclient "github.com/qdrant/go-client/qdrant"

	"github.com/andrew/vecdash/pkg/models"
)

// ParseRecords decodes a JSON document holding either one object or an array of objects
func ParseRecords(data []byte) ([]models.Record, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty JSON document", ErrInvalidInput)
	}

	switch trimmed[0] {
	case '[':
		var records []models.Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return records, nil
	case '{':
		var record models.Record
		if err := json.Unmarshal(trimmed, &record); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return []models.Record{record}, nil
	default:
		return nil, fmt.Errorf("%w: expected a JSON object or array", ErrInvalidInput)
	}
}

// recordToPayload converts a record's properties to Qdrant payload values
func recordToPayload(rec models.Record) (map[string]*qdrantclient.Value, error) {
	payload := make(map[string]*qdrantclient.Value, len(rec))
	for k, v := range rec {
		val, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", k, err)
		}
		payload[k] = val
	}
	return payload, nil
}

func toValue(v any) (*qdrantclient.Value, error) {
	switch x := v.(type) {
	case nil:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_NullValue{NullValue: qdrantclient.NullValue_NULL_VALUE}}, nil
	case string:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: x}}, nil
	case bool:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_BoolValue{BoolValue: x}}, nil
	case float64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: x}}, nil
	case float32:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: float64(x)}}, nil
	case int:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(x)}}, nil
	case int32:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: int64(x)}}, nil
	case int64:
		return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: x}}, nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return &qdrantclient.Value{Kind: &qdrantclient.Value_IntegerValue{IntegerValue: i}}, nil
		}
		f, err := x.Float64()
		if err != nil {
			return nil, err
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_DoubleValue{DoubleValue: f}}, nil
	case []any:
		values := make([]*qdrantclient.Value, 0, len(x))
		for i, item := range x {
			val, err := toValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			values = append(values, val)
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{ListValue: &qdrantclient.ListValue{Values: values}}}, nil
	case []string:
		values := make([]*qdrantclient.Value, 0, len(x))
		for _, item := range x {
			values = append(values, &qdrantclient.Value{Kind: &qdrantclient.Value_StringValue{StringValue: item}})
		}
		return &qdrantclient.Value{Kind: &qdrantclient.Value_ListValue{ListValue: &qdrantclient.ListValue{Values: values}}}, nil
	case map[string]any:
		return structValue(x)
	case models.Record:
		return structValue(x)
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func structValue(m map[string]any) (*qdrantclient.Value, error) {
	fields, err := recordToPayload(m)
	if err != nil {
		return nil, err
	}
	return &qdrantclient.Value{Kind: &qdrantclient.Value_StructValue{StructValue: &qdrantclient.Struct{Fields: fields}}}, nil
}

// payloadToRecord converts Qdrant payload values back into a record
func payloadToRecord(payload map[string]*qdrantclient.Value) models.Record {
	rec := make(models.Record, len(payload))
	for k, v := range payload {
		rec[k] = fromValue(v)
	}
	return rec
}

func fromValue(v *qdrantclient.Value) any {
	switch k := v.GetKind().(type) {
	case *qdrantclient.Value_StringValue:
		return k.StringValue
	case *qdrantclient.Value_BoolValue:
		return k.BoolValue
	case *qdrantclient.Value_DoubleValue:
		return k.DoubleValue
	case *qdrantclient.Value_IntegerValue:
		return k.IntegerValue
	case *qdrantclient.Value_ListValue:
		values := k.ListValue.GetValues()
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, fromValue(item))
		}
		return out
	case *qdrantclient.Value_StructValue:
		return map[string]any(payloadToRecord(k.StructValue.GetFields()))
	default:
		return nil
	}
}

// recordText gathers the string values of a record, ordered by property name,
// as the text sent to the vectorizer
func recordText(rec models.Record) string {
	var parts []string
	collectText(map[string]any(rec), &parts)
	return strings.Join(parts, "\n")
}

func collectText(v any, parts *[]string) {
	switch x := v.(type) {
	case string:
		if s := strings.TrimSpace(x); s != "" {
			*parts = append(*parts, s)
		}
	case []any:
		for _, item := range x {
			collectText(item, parts)
		}
	case []string:
		for _, item := range x {
			collectText(item, parts)
		}
	case models.Record:
		collectText(map[string]any(x), parts)
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectText(x[k], parts)
		}
	}
}

func pointIDString(id *qdrantclient.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}
