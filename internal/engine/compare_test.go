package engine_test

import (
	"testing"
	"time"

	"db-mirror/internal/engine"
	"db-mirror/internal/schema"

	"github.com/stretchr/testify/assert"
)

func TestValuesEqual(t *testing.T) {
	ts := time.Date(2006, 2, 15, 4, 34, 33, 0, time.UTC)

	tests := []struct {
		name string
		typ  schema.ColumnType
		a, b any
		want bool
	}{
		{"both nil", schema.TypeText, nil, nil, true},
		{"nil vs empty", schema.TypeText, nil, "", false},
		{"text", schema.TypeText, "ACADEMY", "ACADEMY", true},
		{"text bytes", schema.TypeText, []byte("ACADEMY"), "ACADEMY", true},
		{"text differs", schema.TypeText, "ACADEMY", "academy", false},
		{"int widths", schema.TypeInteger, int64(42), int32(42), true},
		{"int from bytes", schema.TypeInteger, []byte("42"), int64(42), true},
		{"int differs", schema.TypeInteger, int64(42), int64(43), false},
		{"int fraction is not truncated", schema.TypeInteger, 1.5, int64(1), false},
		{"int whole float", schema.TypeInteger, 2.0, int64(2), true},
		{"int hex text is not a number", schema.TypeInteger, "0x10", int64(16), false},
		{"int leading zero is decimal", schema.TypeInteger, "010", int64(10), true},
		{"decimal float vs string", schema.TypeDecimal, 2.99, "2.99", true},
		{"decimal trailing zeros", schema.TypeDecimal, "5.00", int64(5), true},
		{"decimal differs", schema.TypeDecimal, "0.99", "0.98", false},
		{"bool int", schema.TypeBoolean, int64(1), true, true},
		{"bool bytes", schema.TypeBoolean, []byte("0"), false, true},
		{"bool yes", schema.TypeBoolean, "Y", int64(1), true},
		{"bool differs", schema.TypeBoolean, int64(0), true, false},
		{"datetime string", schema.TypeDatetime, ts, "2006-02-15 04:34:33", true},
		{"datetime local wall clock", schema.TypeDatetime, ts, time.Date(2006, 2, 15, 4, 34, 33, 0, time.Local), true},
		{"datetime same instant other zone", schema.TypeDatetime, ts, ts.In(time.FixedZone("KST", 9*3600)), true},
		{"datetime same wall clock other zone", schema.TypeDatetime, ts, time.Date(2006, 2, 15, 4, 34, 33, 0, time.FixedZone("PKT", 5*3600)), false},
		{"datetime differs", schema.TypeDatetime, ts, ts.Add(time.Second), false},
		{"binary", schema.TypeBinary, []byte{1, 2}, []byte{1, 2}, true},
		{"binary differs", schema.TypeBinary, []byte{1, 2}, []byte{1, 3}, false},
		{"enum", schema.TypeEnum, []byte("G"), "G", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.ValuesEqual(tt.typ, tt.a, tt.b))
			assert.Equal(t, tt.want, engine.ValuesEqual(tt.typ, tt.b, tt.a))
		})
	}
}
