package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"

	"github.com/tinytelemetry/longevents/internal/model"
)

var (
	// ErrMissingID is returned for objects without a usable id.
	ErrMissingID = errors.New("ingest: record has no id")
	// ErrMissingTimestamp is returned for STARTED/FINISHED objects without a timestamp.
	ErrMissingTimestamp = errors.New("ingest: record has no timestamp")
	// ErrInvalidTimestamp is returned when the timestamp is not an integral millisecond value.
	ErrInvalidTimestamp = errors.New("ingest: record has an invalid timestamp")
)

// recordFromValue maps a parsed object onto a Record. Unknown fields are ignored
// and any incoming duration is dropped; durations are computed by correlation.
func recordFromValue(v *fastjson.Value) (model.Record, error) {
	if v.Type() != fastjson.TypeObject {
		return model.Record{}, fmt.Errorf("ingest: expected object, got %s", v.Type())
	}

	r := model.Record{
		ID:    stringField(v, "id"),
		State: model.State(stringField(v, "state")),
		Type:  stringField(v, "type"),
		Host:  stringField(v, "host"),
	}
	if strings.TrimSpace(r.ID) == "" {
		return model.Record{}, ErrMissingID
	}

	ts, ok, err := int64Field(v, "timestamp")
	if err != nil {
		return model.Record{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	if !ok && r.State.Known() {
		return model.Record{}, ErrMissingTimestamp
	}
	r.Timestamp = ts
	return r, nil
}

// stringField accepts strings and coerces scalar numbers/booleans to text.
func stringField(v *fastjson.Value, key string) string {
	f := v.Get(key)
	if f == nil {
		return ""
	}
	switch f.Type() {
	case fastjson.TypeString:
		return string(f.GetStringBytes())
	case fastjson.TypeNumber, fastjson.TypeTrue, fastjson.TypeFalse:
		return f.String()
	default:
		return ""
	}
}

// int64Field accepts numbers and numeric strings. Float forms such as 1.5e2
// or 1491377495212.0 are accepted when they hold an integral value.
func int64Field(v *fastjson.Value, key string) (int64, bool, error) {
	f := v.Get(key)
	if f == nil || f.Type() == fastjson.TypeNull {
		return 0, false, nil
	}
	var text string
	switch f.Type() {
	case fastjson.TypeNumber:
		if n, err := f.Int64(); err == nil {
			return n, true, nil
		}
		text = f.String()
	case fastjson.TypeString:
		text = strings.TrimSpace(string(f.GetStringBytes()))
		if n, err := strconv.ParseInt(text, 10, 64); err == nil {
			return n, true, nil
		}
	default:
		return 0, false, fmt.Errorf("%s: unsupported type %s", key, f.Type())
	}

	fv, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %q is not a number", key, text)
	}
	if fv != math.Trunc(fv) || fv < math.MinInt64 || fv >= math.MaxInt64 {
		return 0, false, fmt.Errorf("%s: %s is not an integral int64", key, text)
	}
	return int64(fv), true, nil
}
