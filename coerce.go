package feedload

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a typed column value. Null values keep their declared Type.
type Value struct {
	Type  FieldType
	Null  bool
	Int   int64
	Text  string
	Float float64
}

func IntValue(i int64) Value      { return Value{Type: Integer, Int: i} }
func TextValue(s string) Value    { return Value{Type: Text, Text: s} }
func FloatValue(f float64) Value  { return Value{Type: Float, Float: f} }
func NullValue(t FieldType) Value { return Value{Type: t, Null: true} }

func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	switch v.Type {
	case Integer:
		return strconv.FormatInt(v.Int, 10)
	case Float:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	default:
		return v.Text
	}
}

// Record is the typed attribute set of an entity, keyed by column name.
type Record map[string]Value

// CoerceOptions controls the normalisations applied before conversion.
type CoerceOptions struct {
	// KeepEPrefix disables stripping a leading 'E' from integer fields. Some
	// feeds publish trip and block ids as E1234.
	KeepEPrefix bool
}

// coerce converts every non-ignored field of raw to its declared type.
func coerce(schema tableSchema, raw map[string]string, opts CoerceOptions) (Record, error) {
	rec := make(Record, len(raw))
	for field, v := range raw {
		if schema.Ignore[field] {
			continue
		}
		col, ok := schema.column(field)
		if !ok {
			return nil, &FieldError{
				Kind:  schema.Kind,
				Field: field,
				Value: v,
				Err:   fmt.Errorf("%w: no column %q in table %q", ErrSchemaMismatch, field, schema.Kind),
			}
		}
		value, err := convert(col.Type, v, opts)
		if err != nil {
			return nil, &FieldError{Kind: schema.Kind, Field: field, Value: v, Err: err}
		}
		rec[field] = value
	}
	return rec, nil
}

func convert(t FieldType, raw string, opts CoerceOptions) (Value, error) {
	switch t {
	case Integer:
		return convertInteger(raw, opts)
	case Text:
		return TextValue(raw), nil
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return Value{}, fmt.Errorf("%w: not a decimal number", ErrConversion)
		}
		return FloatValue(f), nil
	}
	panic(fmt.Sprintf("no converter for %s", t))
}

func convertInteger(raw string, opts CoerceOptions) (Value, error) {
	if raw == "" {
		return NullValue(Integer), nil
	}
	s := strings.TrimSpace(raw)
	if !opts.KeepEPrefix {
		s = strings.TrimPrefix(s, "E")
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Value{}, fmt.Errorf("%w: not an integer", ErrConversion)
	}
	return IntValue(i), nil
}
