package engine

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"db-mirror/internal/schema"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// ValuesEqual compares two column values by meaning rather than Go type.
// Drivers decode the same stored value differently (int64 vs []byte,
// time.Time vs string, 1 vs true), so values are first coerced to the
// column's semantic type. When coercion fails the text forms are compared.
func ValuesEqual(typ schema.ColumnType, a, b any) bool {
	a, b = deref(a), deref(b)
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	switch typ {
	case schema.TypeInteger, schema.TypeDecimal:
		return decimalEqual(a, b)
	case schema.TypeBoolean:
		x, errA := toBool(a)
		y, errB := toBool(b)
		if errA == nil && errB == nil {
			return x == y
		}
	case schema.TypeDatetime:
		x, errA := cast.ToTimeE(textOf(a))
		y, errB := cast.ToTimeE(textOf(b))
		if errA == nil && errB == nil {
			return sameInstant(x, y)
		}
	case schema.TypeBinary:
		return bytes.Equal(toBytes(a), toBytes(b))
	}
	return fmt.Sprint(textOf(a)) == fmt.Sprint(textOf(b))
}

func deref(v any) any {
	switch x := v.(type) {
	case *any:
		if x == nil {
			return nil
		}
		return *x
	}
	return v
}

// textOf turns driver byte slices into strings so cast can parse them.
func textOf(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func toBytes(v any) []byte {
	switch x := v.(type) {
	case []byte:
		return x
	case string:
		return []byte(x)
	default:
		return []byte(fmt.Sprint(x))
	}
}

func toBool(v any) (bool, error) {
	if s, ok := textOf(v).(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "y", "yes", "on":
			return true, nil
		case "n", "no", "off":
			return false, nil
		}
	}
	return cast.ToBoolE(textOf(v))
}

func decimalEqual(a, b any) bool {
	x, errA := toDecimal(a)
	y, errB := toDecimal(b)
	if errA != nil || errB != nil {
		return fmt.Sprint(textOf(a)) == fmt.Sprint(textOf(b))
	}
	return x.Equal(y)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := textOf(v).(type) {
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case bool:
		if x {
			return decimal.NewFromInt(1), nil
		}
		return decimal.Zero, nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	default:
		s, err := cast.ToStringE(x)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	}
}

// sameInstant treats zone-less timestamps read back as UTC by one driver and
// as local time by another as equal when their wall clocks match. Values
// carrying a real zone must be the same instant.
func sameInstant(x, y time.Time) bool {
	if x.Equal(y) {
		return true
	}
	if !zoneless(x) || !zoneless(y) {
		return false
	}
	wall := "2006-01-02 15:04:05.999999999"
	return x.Format(wall) == y.Format(wall)
}

func zoneless(t time.Time) bool {
	if loc := t.Location(); loc == time.UTC || loc == time.Local {
		return true
	}
	name, offset := t.Zone()
	return name == "" && offset == 0
}
